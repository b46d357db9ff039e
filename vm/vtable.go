package vm

// VTable is the per-class dispatch table.
//
// Methods are stored in a slice indexed by selector ID. Inheritance is a
// parent pointer: lookup walks from the class that owns the table toward the
// root and returns the first hit, so an override nearer the leaf always wins.
// A VTable is filled once while its class is defined and never changes
// afterwards, so lookups need no locking.
type VTable struct {
	class   *Class
	parent  *VTable
	methods []*Method
}

// NewVTable creates a dispatch table for a class.
func NewVTable(class *Class, parent *VTable) *VTable {
	return &VTable{
		class:   class,
		parent:  parent,
		methods: make([]*Method, 0, 16),
	}
}

// Lookup finds a method by selector ID, walking the inheritance chain.
// Returns nil if no class in the chain defines it.
func (vt *VTable) Lookup(selector int) *Method {
	for v := vt; v != nil; v = v.parent {
		if m := v.LookupLocal(selector); m != nil {
			return m
		}
	}
	return nil
}

// LookupLocal finds a method declared by this table's class only.
func (vt *VTable) LookupLocal(selector int) *Method {
	if selector >= 0 && selector < len(vt.methods) {
		return vt.methods[selector]
	}
	return nil
}

// addMethod installs a method at a selector ID, growing the table.
func (vt *VTable) addMethod(selector int, m *Method) {
	if selector >= len(vt.methods) {
		grown := make([]*Method, selector+1)
		copy(grown, vt.methods)
		vt.methods = grown
	}
	vt.methods[selector] = m
}

// Parent returns the superclass's table.
func (vt *VTable) Parent() *VTable { return vt.parent }

// Class returns the class this table belongs to.
func (vt *VTable) Class() *Class { return vt.class }

// LocalMethods returns the methods declared by this table's class.
func (vt *VTable) LocalMethods() []*Method {
	var result []*Method
	for _, m := range vt.methods {
		if m != nil {
			result = append(result, m)
		}
	}
	return result
}
