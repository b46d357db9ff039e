package vm

import "strings"

// PrimKind is the kind of a primitive declared type.
type PrimKind uint8

const (
	PrimNone PrimKind = iota
	PrimInt
	PrimFloat
	PrimBool
	PrimString
)

func (p PrimKind) String() string {
	switch p {
	case PrimInt:
		return "int"
	case PrimFloat:
		return "float"
	case PrimBool:
		return "bool"
	case PrimString:
		return "string"
	}
	return "none"
}

// primNames maps every primitive type spelling the front end emits.
var primNames = map[string]PrimKind{
	"int": PrimInt, "int8": PrimInt, "int16": PrimInt, "int32": PrimInt, "int64": PrimInt,
	"uint8": PrimInt, "uint16": PrimInt, "uint32": PrimInt, "uint64": PrimInt,
	"float": PrimFloat, "float16": PrimFloat, "float32": PrimFloat, "float64": PrimFloat,
	"bool": PrimBool, "boolean": PrimBool,
	"string": PrimString,
}

// LookupPrim resolves a primitive type name.
func LookupPrim(name string) (PrimKind, bool) {
	p, ok := primNames[name]
	return p, ok
}

// Zero returns the default value of a primitive kind.
func (p PrimKind) Zero() Value {
	switch p {
	case PrimInt:
		return Int(0)
	case PrimFloat:
		return Float(0)
	case PrimBool:
		return Bool(false)
	case PrimString:
		return String("")
	}
	return Null
}

// Accepts reports whether v can be stored in a slot of this kind, and
// returns the value to store (integers widen into float slots).
func (p PrimKind) Accepts(v Value) (Value, bool) {
	switch p {
	case PrimInt:
		return v, v.kind == KindInt
	case PrimFloat:
		if f, ok := v.AsFloat(); ok {
			return Float(f), true
		}
	case PrimBool:
		return v, v.kind == KindBool
	case PrimString:
		return v, v.kind == KindString
	}
	return v, false
}

// TypeSpec is a parsed declared type such as `int`, `Integer` or
// `[][]Integer`.
type TypeSpec struct {
	Name string   // element name with the [] prefixes stripped
	Dims int      // number of [] prefixes
	Prim PrimKind // PrimNone for class and void types
}

// ParseType parses a declared type string.
func ParseType(s string) TypeSpec {
	s = strings.TrimSpace(s)
	var t TypeSpec
	for strings.HasPrefix(s, "[]") {
		t.Dims++
		s = s[2:]
	}
	t.Name = s
	t.Prim, _ = LookupPrim(s)
	return t
}

func (t TypeSpec) String() string {
	return strings.Repeat("[]", t.Dims) + t.Name
}

// Zero returns the default value for a slot of this type: the primitive
// zero for scalar primitives, null for arrays, classes and void.
func (t TypeSpec) Zero() Value {
	if t.Dims > 0 {
		return Null
	}
	return t.Prim.Zero()
}

// Coerce applies the write-time promotion rule for a slot of this type.
// Only int -> float widening happens; anything else is stored unchanged.
func (t TypeSpec) Coerce(v Value) Value {
	if t.Dims == 0 && t.Prim == PrimFloat && v.kind == KindInt {
		return Float(float64(v.i))
	}
	return v
}
