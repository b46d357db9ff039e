package vm

import (
	"sort"
	"sync"

	"github.com/chazu/xrt/pkg/ast"
)

// ---------------------------------------------------------------------------
// Class: the runtime ClassDef
// ---------------------------------------------------------------------------

// Class is an immutable class definition.
//
// Instance slot layout is fixed when the class is defined: the superclass's
// slots come first (root ancestor down to the parent), then this class's own
// non-static fields in declaration order. Static fields are not slots; each
// declaring class owns one shared storage cell per static field.
type Class struct {
	Name       string
	Superclass *Class
	VTable     *VTable
	Fields     []*FieldDef // own instance fields, declaration order
	Statics    []*FieldDef // own static fields, declaration order
	Methods    []*Method   // own methods, declaration order
	NumSlots   int         // inherited + own instance fields

	decl *ast.Class

	staticMu   sync.RWMutex
	staticVals map[string]Value

	// Lazy static initialization state, guarded by VM.initMu.
	initBy    *Interpreter // interpreter running the initializers
	initReady chan struct{}
	initDone  bool
	initErr   error
}

// FieldDef describes one declared field.
type FieldDef struct {
	Name   string
	Type   TypeSpec
	Static bool
	Slot   int // absolute slot index; -1 for static fields
	Owner  *Class
	Init   *ast.Expr
}

// Decl returns the declaration the class was built from.
func (c *Class) Decl() *ast.Class { return c.decl }

// FieldIndex returns the slot index of an instance field, walking from this
// class toward the root. Returns -1 if no class in the chain declares it.
func (c *Class) FieldIndex(name string) int {
	if f := c.LookupField(name); f != nil {
		return f.Slot
	}
	return -1
}

// LookupField resolves an instance field, leaf to root.
func (c *Class) LookupField(name string) *FieldDef {
	for current := c; current != nil; current = current.Superclass {
		for _, f := range current.Fields {
			if f.Name == name {
				return f
			}
		}
	}
	return nil
}

// LookupStatic resolves a static field, leaf to root.
func (c *Class) LookupStatic(name string) *FieldDef {
	for current := c; current != nil; current = current.Superclass {
		for _, f := range current.Statics {
			if f.Name == name {
				return f
			}
		}
	}
	return nil
}

// AllFields returns every instance field in slot order (root first).
func (c *Class) AllFields() []*FieldDef {
	if c.Superclass == nil {
		return c.Fields
	}
	inherited := c.Superclass.AllFields()
	result := make([]*FieldDef, 0, len(inherited)+len(c.Fields))
	result = append(result, inherited...)
	return append(result, c.Fields...)
}

// LookupMethod resolves a method by name against this class's chain.
func (c *Class) LookupMethod(selectors *SelectorTable, name string) *Method {
	id := selectors.Lookup(name)
	if id < 0 {
		return nil
	}
	return c.VTable.Lookup(id)
}

// IsSubclassOf reports whether c is other or one of its descendants.
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.Superclass {
		if current == other {
			return true
		}
	}
	return false
}

// Superclasses returns all ancestors from the immediate parent to the root.
func (c *Class) Superclasses() []*Class {
	var result []*Class
	for current := c.Superclass; current != nil; current = current.Superclass {
		result = append(result, current)
	}
	return result
}

// Depth returns the inheritance depth (0 for a root class).
func (c *Class) Depth() int {
	return len(c.Superclasses())
}

func (c *Class) String() string { return c.Name }

// ---------------------------------------------------------------------------
// Static storage
// ---------------------------------------------------------------------------

// GetStatic reads a static field declared by c or an ancestor.
func (c *Class) GetStatic(name string) (Value, error) {
	f := c.LookupStatic(name)
	if f == nil {
		return Null, newError(UnresolvedField, "%s has no static field %q", c.Name, name)
	}
	owner := f.Owner
	owner.staticMu.RLock()
	defer owner.staticMu.RUnlock()
	return owner.staticVals[name], nil
}

// SetStatic writes a static field declared by c or an ancestor.
func (c *Class) SetStatic(name string, v Value) error {
	f := c.LookupStatic(name)
	if f == nil {
		return newError(UnresolvedField, "%s has no static field %q", c.Name, name)
	}
	owner := f.Owner
	owner.staticMu.Lock()
	owner.staticVals[name] = f.Type.Coerce(v)
	owner.staticMu.Unlock()
	return nil
}

// ---------------------------------------------------------------------------
// Class construction
// ---------------------------------------------------------------------------

// buildClass turns a declaration into a Class. It checks field and method
// name collisions; the parent must already be resolved.
func buildClass(decl *ast.Class, parent *Class, selectors *SelectorTable) (*Class, error) {
	c := &Class{
		Name:       decl.Name,
		Superclass: parent,
		decl:       decl,
		staticVals: make(map[string]Value),
	}
	var parentVT *VTable
	if parent != nil {
		parentVT = parent.VTable
		c.NumSlots = parent.NumSlots
	}
	c.VTable = NewVTable(c, parentVT)

	seen := make(map[string]bool, len(decl.Fields))
	for _, fd := range decl.Fields {
		if seen[fd.Name] {
			return nil, newError(DuplicateFieldName, "%s declares field %q twice", decl.Name, fd.Name)
		}
		seen[fd.Name] = true
		if parent != nil {
			if inherited := parent.LookupField(fd.Name); inherited != nil {
				return nil, newError(DuplicateFieldName, "%s.%s collides with field inherited from %s",
					decl.Name, fd.Name, inherited.Owner.Name)
			}
			if inherited := parent.LookupStatic(fd.Name); inherited != nil {
				return nil, newError(DuplicateFieldName, "%s.%s collides with static field inherited from %s",
					decl.Name, fd.Name, inherited.Owner.Name)
			}
		}

		f := &FieldDef{
			Name:   fd.Name,
			Type:   ParseType(fd.Type),
			Static: fd.Static,
			Slot:   -1,
			Owner:  c,
			Init:   fd.Init,
		}
		if f.Static {
			c.Statics = append(c.Statics, f)
			c.staticVals[f.Name] = f.Type.Zero()
			continue
		}
		f.Slot = c.NumSlots
		c.NumSlots++
		c.Fields = append(c.Fields, f)
	}

	for _, md := range decl.Methods {
		id := selectors.Intern(md.Name)
		if c.VTable.LookupLocal(id) != nil {
			return nil, newError(DuplicateMethod, "%s declares method %q twice", decl.Name, md.Name)
		}
		m := newMethod(c, id, md)
		c.VTable.addMethod(id, m)
		c.Methods = append(c.Methods, m)
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// ClassTable: registry of defined classes
// ---------------------------------------------------------------------------

// ClassTable holds the defined classes by name. Safe for concurrent use.
type ClassTable struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// NewClassTable creates an empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{classes: make(map[string]*Class)}
}

// Register adds a class. Fails with DuplicateClass if the name is taken.
func (ct *ClassTable) Register(c *Class) error {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if _, exists := ct.classes[c.Name]; exists {
		return newError(DuplicateClass, "class %q is already defined", c.Name)
	}
	ct.classes[c.Name] = c
	return nil
}

// Lookup finds a class by name.
func (ct *ClassTable) Lookup(name string) *Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.classes[name]
}

// Has reports whether a class with this name is registered.
func (ct *ClassTable) Has(name string) bool {
	return ct.Lookup(name) != nil
}

// All returns all registered classes sorted by name.
func (ct *ClassTable) All() []*Class {
	ct.mu.RLock()
	result := make([]*Class, 0, len(ct.classes))
	for _, c := range ct.classes {
		result = append(result, c)
	}
	ct.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Len returns the number of registered classes.
func (ct *ClassTable) Len() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.classes)
}
