package vm

import (
	"fmt"
	"strings"
)

// Inspector provides debugging inspection of x-lang values.
// It recursively inspects objects and their fields and previews array
// elements, providing a structured view of any value in the VM.
type Inspector struct {
	vm *VM
}

// InspectionResult contains structured information about an inspected value.
type InspectionResult struct {
	Type      string              `yaml:"type"`               // value kind, e.g. int, object, array
	Value     string              `yaml:"value"`              // display form of the value
	ClassName string              `yaml:"class,omitempty"`    // objects: the runtime class; arrays: the element kind
	Fields    []FieldInfo         `yaml:"fields,omitempty"`   // objects: instance fields in slot order
	Dims      []int               `yaml:"dims,omitempty"`     // arrays: dimension sizes
	Size      int                 `yaml:"size,omitempty"`     // arrays: number of elements
	Elements  []*InspectionResult `yaml:"elements,omitempty"` // arrays: preview in row-major order
}

// FieldInfo contains information about a single field.
type FieldInfo struct {
	Name  string            `yaml:"name"`
	Value *InspectionResult `yaml:"value"`
}

// MaxElementPreview is the maximum number of array elements to preview.
const MaxElementPreview = 10

// DefaultInspectDepth is the default recursion depth for inspection.
const DefaultInspectDepth = 3

// NewInspector creates a new Inspector attached to the given VM.
func NewInspector(vm *VM) *Inspector {
	return &Inspector{vm: vm}
}

// Inspect inspects a value with the default maximum depth.
func (i *Inspector) Inspect(v Value) *InspectionResult {
	return i.InspectDepth(v, DefaultInspectDepth)
}

// InspectDepth inspects a value with a specified maximum recursion depth.
// When depth reaches 0, nested objects and arrays are shown as summaries.
func (i *Inspector) InspectDepth(v Value, depth int) *InspectionResult {
	switch v.Kind() {
	case KindObject:
		return i.inspectObject(v.Object(), depth)
	case KindArray:
		return i.inspectArray(v.Array(), depth)
	case KindThread:
		return i.inspectThread(v.Thread(), depth)
	case KindString:
		return &InspectionResult{Type: v.Kind().String(), Value: fmt.Sprintf("%q", v.String())}
	}
	return &InspectionResult{Type: v.Kind().String(), Value: v.String()}
}

func (i *Inspector) inspectObject(obj *Object, depth int) *InspectionResult {
	result := &InspectionResult{
		Type:      KindObject.String(),
		ClassName: obj.Class().Name,
		Value:     obj.String(),
	}
	if depth <= 0 {
		return result
	}
	for _, f := range obj.Class().AllFields() {
		result.Fields = append(result.Fields, FieldInfo{
			Name:  f.Name,
			Value: i.InspectDepth(obj.GetSlot(f.Slot), depth-1),
		})
	}
	return result
}

func (i *Inspector) inspectArray(a *Array, depth int) *InspectionResult {
	result := &InspectionResult{
		Type:      KindArray.String(),
		ClassName: a.ElementKind().String(),
		Value:     a.String(),
		Dims:      a.Dims(),
		Size:      a.Len(),
	}
	if depth <= 0 {
		return result
	}
	a.mu.RLock()
	preview := a.data
	if len(preview) > MaxElementPreview {
		preview = preview[:MaxElementPreview]
	}
	preview = append([]Value(nil), preview...)
	a.mu.RUnlock()

	for _, v := range preview {
		result.Elements = append(result.Elements, i.InspectDepth(v, depth-1))
	}
	return result
}

func (i *Inspector) inspectThread(t *Thread, depth int) *InspectionResult {
	result := &InspectionResult{
		Type:  KindThread.String(),
		Value: fmt.Sprintf("%s (%s)", t, t.State()),
	}
	if depth <= 0 || t.State() == ThreadRunning {
		return result
	}
	t.mu.Lock()
	res, err := t.result, t.err
	t.mu.Unlock()
	if err != nil {
		result.Fields = append(result.Fields, FieldInfo{
			Name:  "error",
			Value: &InspectionResult{Type: KindString.String(), Value: err.Error()},
		})
		return result
	}
	result.Fields = append(result.Fields, FieldInfo{
		Name:  "result",
		Value: i.InspectDepth(res, depth-1),
	})
	return result
}

// String returns a pretty-printed representation of the inspection result.
func (r *InspectionResult) String() string {
	var sb strings.Builder
	r.write(&sb, 0)
	return sb.String()
}

func (r *InspectionResult) write(sb *strings.Builder, indent int) {
	prefix := strings.Repeat("  ", indent)

	sb.WriteString(prefix)
	sb.WriteString(r.Type)
	sb.WriteString(": ")
	sb.WriteString(r.Value)
	sb.WriteString("\n")

	for _, f := range r.Fields {
		sb.WriteString(prefix)
		sb.WriteString("  ")
		sb.WriteString(f.Name)
		sb.WriteString(" =\n")
		f.Value.write(sb, indent+2)
	}
	for idx, e := range r.Elements {
		sb.WriteString(prefix)
		fmt.Fprintf(sb, "  [%d]\n", idx)
		e.write(sb, indent+2)
	}
	if len(r.Elements) > 0 && r.Size > len(r.Elements) {
		sb.WriteString(prefix)
		fmt.Fprintf(sb, "  ... (%d more)\n", r.Size-len(r.Elements))
	}
}

// ---------------------------------------------------------------------------
// Class descriptions
// ---------------------------------------------------------------------------

// ClassInfo describes a defined class: its own and inherited fields and the
// methods its instances respond to.
type ClassInfo struct {
	Name    string          `yaml:"name"`
	Parent  string          `yaml:"parent,omitempty"`
	Fields  []FieldSummary  `yaml:"fields,omitempty"`
	Statics []FieldSummary  `yaml:"statics,omitempty"`
	Methods []MethodSummary `yaml:"methods,omitempty"`
}

// FieldSummary describes one field and the class that declares it.
type FieldSummary struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Owner string `yaml:"owner"`
}

// MethodSummary describes the method a selector dispatches to.
type MethodSummary struct {
	Name      string `yaml:"name"`
	Signature string `yaml:"signature"`
	Owner     string `yaml:"owner"` // class whose implementation runs
}

// DescribeClass describes c. Methods are listed in dispatch order: own
// methods first, then inherited ones not overridden.
func (vm *VM) DescribeClass(c *Class) ClassInfo {
	info := ClassInfo{Name: c.Name}
	if c.Superclass != nil {
		info.Parent = c.Superclass.Name
	}
	for _, f := range c.AllFields() {
		info.Fields = append(info.Fields, FieldSummary{Name: f.Name, Type: f.Type.String(), Owner: f.Owner.Name})
	}

	chain := append([]*Class{c}, c.Superclasses()...)
	for idx := len(chain) - 1; idx >= 0; idx-- {
		for _, f := range chain[idx].Statics {
			info.Statics = append(info.Statics, FieldSummary{Name: f.Name, Type: f.Type.String(), Owner: f.Owner.Name})
		}
	}

	seen := make(map[int]bool)
	for _, k := range chain {
		for _, m := range k.Methods {
			if seen[m.Selector] {
				continue
			}
			seen[m.Selector] = true
			info.Methods = append(info.Methods, MethodSummary{
				Name:      m.Name,
				Signature: m.Decl().Signature(),
				Owner:     k.Name,
			})
		}
	}
	return info
}

// Describe describes every defined class, sorted by name.
func (vm *VM) Describe() []ClassInfo {
	classes := vm.Classes.All()
	infos := make([]ClassInfo, len(classes))
	for idx, c := range classes {
		infos[idx] = vm.DescribeClass(c)
	}
	return infos
}
