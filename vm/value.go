package vm

import (
	"math"
	"strconv"
)

// Value is the runtime representation of every x-lang value.
//
// It is a small tagged union passed by value. Scalars live inline; objects,
// arrays, classes, bound methods and threads are held by pointer, so copying
// a Value copies the reference and never the underlying storage.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	ref  any
}

// Kind tags a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindObject
	KindArray
	KindClass  // class used as a value, e.g. the element kind of array.create
	KindType   // primitive type used as a value (int, float64, ...)
	KindMethod // bound method
	KindThread // thread handle
)

var kindNames = [...]string{
	KindNull:   "null",
	KindInt:    "int",
	KindFloat:  "float",
	KindBool:   "bool",
	KindString: "string",
	KindObject: "object",
	KindArray:  "array",
	KindClass:  "class",
	KindType:   "type",
	KindMethod: "method",
	KindThread: "thread",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Null is the null reference.
var Null = Value{}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

func Int(n int64) Value     { return Value{kind: KindInt, i: n} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func String(s string) Value { return Value{kind: KindString, s: s} }

func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// ObjectValue wraps an instance. A nil object is Null.
func ObjectValue(o *Object) Value {
	if o == nil {
		return Null
	}
	return Value{kind: KindObject, ref: o}
}

// ArrayValue wraps an array. A nil array is Null.
func ArrayValue(a *Array) Value {
	if a == nil {
		return Null
	}
	return Value{kind: KindArray, ref: a}
}

func ClassValue(c *Class) Value { return Value{kind: KindClass, ref: c} }

func TypeValue(p PrimKind) Value { return Value{kind: KindType, i: int64(p)} }

func MethodValue(b *BoundMethod) Value { return Value{kind: KindMethod, ref: b} }

func ThreadValue(t *Thread) Value { return Value{kind: KindThread, ref: t} }

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

// AsFloat returns the numeric payload as a float, promoting integers.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) AsBool() (bool, bool)     { return v.i != 0, v.kind == KindBool }
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) Object() *Object {
	o, _ := v.ref.(*Object)
	return o
}

func (v Value) Array() *Array {
	a, _ := v.ref.(*Array)
	return a
}

func (v Value) Class() *Class {
	c, _ := v.ref.(*Class)
	return c
}

func (v Value) BoundMethod() *BoundMethod {
	b, _ := v.ref.(*BoundMethod)
	return b
}

func (v Value) Thread() *Thread {
	t, _ := v.ref.(*Thread)
	return t
}

// PrimType returns the primitive kind of a KindType value.
func (v Value) PrimType() PrimKind {
	if v.kind != KindType {
		return PrimNone
	}
	return PrimKind(v.i)
}

// Truthy reports whether a value counts as true in a condition. Only
// booleans are conditions; everything else is a type error at the caller.
func (v Value) Truthy() (bool, bool) {
	return v.AsBool()
}

// ---------------------------------------------------------------------------
// Comparison and display
// ---------------------------------------------------------------------------

// Equal compares two values. Numbers compare after promotion, strings by
// content, references by identity.
func Equal(a, b Value) bool {
	if a.IsNumeric() && b.IsNumeric() {
		if a.kind == KindInt && b.kind == KindInt {
			return a.i == b.i
		}
		af, _ := a.AsFloat()
		bf, _ := b.AsFloat()
		return af == bf
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool, KindType:
		return a.i == b.i
	case KindString:
		return a.s == b.s
	case KindMethod:
		am, bm := a.BoundMethod(), b.BoundMethod()
		return am.Receiver == bm.Receiver && am.Method == bm.Method
	}
	return a.ref == b.ref
}

// String renders a value for diagnostics and for printf arguments that are
// not scalars.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		if math.IsInf(v.f, 0) || math.IsNaN(v.f) {
			return strconv.FormatFloat(v.f, 'g', -1, 64)
		}
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	case KindString:
		return v.s
	case KindObject:
		return v.Object().String()
	case KindArray:
		return v.Array().String()
	case KindClass:
		return v.Class().Name
	case KindType:
		return v.PrimType().String()
	case KindMethod:
		return v.BoundMethod().String()
	case KindThread:
		return v.Thread().String()
	}
	return "<" + v.kind.String() + ">"
}

// TypeName names the runtime type of a value: the class name for objects,
// the kind name otherwise.
func (v Value) TypeName() string {
	switch v.kind {
	case KindObject:
		return v.Object().Class().Name
	case KindArray:
		return v.Array().TypeName()
	}
	return v.kind.String()
}
