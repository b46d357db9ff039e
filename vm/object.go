package vm

import (
	"sync"

	"github.com/google/uuid"
)

// Object is an instance of a class.
//
// Slots are guarded by a per-object RWMutex. The language has no locking
// keyword and performs no implicit locking across statements; the mutex only
// makes each individual slot read or write atomic, so threads that share an
// instance can race logically but never corrupt memory.
type Object struct {
	class *Class
	id    uuid.UUID

	mu    sync.RWMutex
	slots []Value
}

// newObject allocates an instance with every slot at its declared default.
// Field initializers and the constructor run afterwards, in the VM.
func newObject(c *Class) *Object {
	obj := &Object{
		class: c,
		id:    uuid.New(),
		slots: make([]Value, c.NumSlots),
	}
	for _, f := range c.AllFields() {
		obj.slots[f.Slot] = f.Type.Zero()
	}
	return obj
}

// Class returns the runtime class of the instance.
func (obj *Object) Class() *Class { return obj.class }

// ID returns the identity of the instance.
func (obj *Object) ID() uuid.UUID { return obj.id }

// NumSlots returns the number of instance slots.
func (obj *Object) NumSlots() int { return len(obj.slots) }

// ---------------------------------------------------------------------------
// Slot access
// ---------------------------------------------------------------------------

// GetSlot returns the value at a slot index. Panics if out of range.
func (obj *Object) GetSlot(index int) Value {
	obj.mu.RLock()
	defer obj.mu.RUnlock()
	return obj.slots[index]
}

// SetSlot stores a value at a slot index. Panics if out of range.
func (obj *Object) SetSlot(index int, v Value) {
	obj.mu.Lock()
	obj.slots[index] = v
	obj.mu.Unlock()
}

// GetField reads an instance field by name, resolving leaf to root.
func (obj *Object) GetField(name string) (Value, error) {
	f := obj.class.LookupField(name)
	if f == nil {
		return Null, newError(UnresolvedField, "%s has no field %q", obj.class.Name, name)
	}
	return obj.GetSlot(f.Slot), nil
}

// SetField writes an instance field by name. Integers widen into
// float-typed fields.
func (obj *Object) SetField(name string, v Value) error {
	f := obj.class.LookupField(name)
	if f == nil {
		return newError(UnresolvedField, "%s has no field %q", obj.class.Name, name)
	}
	obj.SetSlot(f.Slot, f.Type.Coerce(v))
	return nil
}

// Fields returns a snapshot of every instance field by name.
func (obj *Object) Fields() map[string]Value {
	obj.mu.RLock()
	defer obj.mu.RUnlock()

	result := make(map[string]Value, len(obj.slots))
	for _, f := range obj.class.AllFields() {
		result[f.Name] = obj.slots[f.Slot]
	}
	return result
}

// String renders the instance as Class@shortid.
func (obj *Object) String() string {
	if obj == nil {
		return "null"
	}
	return obj.class.Name + "@" + obj.id.String()[:8]
}
