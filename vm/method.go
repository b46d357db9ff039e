package vm

import (
	"github.com/chazu/xrt/pkg/ast"
)

// Method is a method (or free function) ready to execute.
type Method struct {
	Name     string
	Owner    *Class // nil for free functions
	Params   []Param
	Returns  TypeSpec
	Selector int
	decl     *ast.Method
}

// Param is a parameter with its parsed declared type.
type Param struct {
	Name string
	Type TypeSpec
}

func newMethod(owner *Class, selector int, decl *ast.Method) *Method {
	params := make([]Param, len(decl.Params))
	for i, p := range decl.Params {
		params[i] = Param{Name: p.Name, Type: ParseType(p.Type)}
	}
	return &Method{
		Name:     decl.Name,
		Owner:    owner,
		Params:   params,
		Returns:  ParseType(decl.Returns),
		Selector: selector,
		decl:     decl,
	}
}

// Arity returns the number of declared parameters.
func (m *Method) Arity() int { return len(m.Params) }

// Body returns the statements of the method.
func (m *Method) Body() []*ast.Stmt { return m.decl.Body }

// Decl returns the declaration the method was built from.
func (m *Method) Decl() *ast.Method { return m.decl }

// IsConstructor reports whether the method is named after its class.
func (m *Method) IsConstructor() bool {
	return m.Owner != nil && m.Owner.Name == m.Name
}

// QualifiedName is Class.method, or the bare name for free functions.
func (m *Method) QualifiedName() string {
	if m.Owner == nil {
		return m.Name
	}
	return m.Owner.Name + "." + m.Name
}

// ---------------------------------------------------------------------------
// Bound methods
// ---------------------------------------------------------------------------

// BoundMethod pairs a method, resolved against its receiver's runtime class,
// with that receiver. It is the unit of work handed to Spawn.
type BoundMethod struct {
	Method   *Method
	Receiver *Object
}

func (b *BoundMethod) String() string {
	return b.Receiver.String() + "." + b.Method.Name
}
