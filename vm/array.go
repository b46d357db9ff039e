package vm

import (
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Array: fixed-shape multi-dimensional container
// ---------------------------------------------------------------------------

// ElementKind is what an array holds: a primitive kind or instances of a
// class (and its descendants). Exactly one of Prim and Class is set.
type ElementKind struct {
	Prim  PrimKind
	Class *Class
}

// PrimElements returns the element kind for a primitive.
func PrimElements(p PrimKind) ElementKind { return ElementKind{Prim: p} }

// ClassElements returns the element kind for instances of a class.
func ClassElements(c *Class) ElementKind { return ElementKind{Class: c} }

// ElementKindOf converts an array.create argument (a class or primitive
// type used as a value) into an element kind.
func ElementKindOf(v Value) (ElementKind, bool) {
	switch v.Kind() {
	case KindClass:
		return ClassElements(v.Class()), true
	case KindType:
		return PrimElements(v.PrimType()), true
	}
	return ElementKind{}, false
}

func (e ElementKind) String() string {
	if e.Class != nil {
		return e.Class.Name
	}
	return e.Prim.String()
}

// Zero returns the default slot value for this element kind.
func (e ElementKind) Zero() Value {
	if e.Class != nil {
		return Null
	}
	return e.Prim.Zero()
}

// accept checks a value against the element kind and returns the value to
// store. Object arrays take null or an instance of the class or a
// descendant; primitive arrays take their own kind, ints widen to float.
func (e ElementKind) accept(v Value) (Value, bool) {
	if e.Class != nil {
		switch v.Kind() {
		case KindNull:
			return v, true
		case KindObject:
			return v, v.Object().Class().IsSubclassOf(e.Class)
		}
		return v, false
	}
	return e.Prim.Accepts(v)
}

// Array is a multi-dimensional array with an immutable shape. Elements are
// stored flat in row-major order; the store is guarded so that concurrent
// element writes never corrupt it.
type Array struct {
	id   uuid.UUID
	elem ElementKind
	dims []int

	mu   sync.RWMutex
	data []Value
}

// MaxArraySlots bounds the total number of slots of one array.
const MaxArraySlots = 1 << 26

// NewArray creates an array with every slot default-initialized. dims must
// be non-empty and every size positive.
func NewArray(elem ElementKind, dims []int) (*Array, error) {
	if len(dims) == 0 {
		return nil, newError(InvalidDimensions, "array of %s needs at least one dimension", elem)
	}
	size := 1
	for i, d := range dims {
		if d <= 0 {
			return nil, newError(InvalidDimensions, "dimension %d of array of %s is %d, must be positive", i, elem, d)
		}
		if d > MaxArraySlots/size {
			return nil, newError(InvalidDimensions, "array of %s with dimensions %v exceeds %d slots", elem, dims, MaxArraySlots)
		}
		size *= d
	}

	arr := &Array{
		id:   uuid.New(),
		elem: elem,
		dims: append([]int(nil), dims...),
		data: make([]Value, size),
	}
	zero := elem.Zero()
	for i := range arr.data {
		arr.data[i] = zero
	}
	return arr, nil
}

// ID returns the identity of the array.
func (a *Array) ID() uuid.UUID { return a.id }

// ElementKind returns what the array holds.
func (a *Array) ElementKind() ElementKind { return a.elem }

// Dims returns a copy of the dimension sizes.
func (a *Array) Dims() []int { return append([]int(nil), a.dims...) }

// Rank returns the number of dimensions.
func (a *Array) Rank() int { return len(a.dims) }

// Len returns the total number of slots.
func (a *Array) Len() int { return len(a.data) }

// offset maps an index tuple to a position in the flat store.
func (a *Array) offset(indices []int) (int, error) {
	if len(indices) != len(a.dims) {
		return 0, newError(DimensionMismatch, "%d indices for a %d-dimensional array", len(indices), len(a.dims))
	}
	off := 0
	for k, idx := range indices {
		if idx < 0 || idx >= a.dims[k] {
			return 0, newError(IndexOutOfRange, "index %d is %d, dimension size is %d", k, idx, a.dims[k])
		}
		off = off*a.dims[k] + idx
	}
	return off, nil
}

// Get reads the element at an index tuple.
func (a *Array) Get(indices []int) (Value, error) {
	off, err := a.offset(indices)
	if err != nil {
		return Null, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data[off], nil
}

// Set writes the element at an index tuple.
func (a *Array) Set(indices []int, v Value) error {
	off, err := a.offset(indices)
	if err != nil {
		return err
	}
	stored, ok := a.elem.accept(v)
	if !ok {
		return newError(TypeMismatch, "cannot store %s in array of %s", v.TypeName(), a.elem)
	}
	a.mu.Lock()
	a.data[off] = stored
	a.mu.Unlock()
	return nil
}

// TypeName renders the array type as declared, e.g. [][]Integer.
func (a *Array) TypeName() string {
	return strings.Repeat("[]", len(a.dims)) + a.elem.String()
}

// String renders the array as its type and shape, e.g. [][]Integer(5x4).
func (a *Array) String() string {
	if a == nil {
		return "null"
	}
	parts := make([]string, len(a.dims))
	for i, d := range a.dims {
		parts[i] = strconv.Itoa(d)
	}
	return a.TypeName() + "(" + strings.Join(parts, "x") + ")"
}
