package vm

// ---------------------------------------------------------------------------
// Virtual dispatch
// ---------------------------------------------------------------------------

// send dispatches name against the receiver's runtime class. A method is
// looked up first; failing that, an instance field holding a bound method
// is called.
func (in *Interpreter) send(recv Value, name string, args []Value) (Value, error) {
	switch recv.Kind() {
	case KindObject:
	case KindNull:
		return Null, newError(NullReference, "cannot call %s on null", name)
	case KindClass:
		return Null, newError(UnresolvedMethod, "%s.%s: classes have no static methods", recv.Class().Name, name)
	default:
		return Null, newError(UnresolvedMethod, "cannot call %s on %s", name, recv.TypeName())
	}

	obj := recv.Object()
	c := obj.Class()
	if m := c.LookupMethod(in.vm.Selectors, name); m != nil {
		return in.invoke(m, obj, args)
	}
	if f := c.LookupField(name); f != nil {
		if held := obj.GetSlot(f.Slot); held.Kind() == KindMethod {
			return in.callValue(held, args)
		}
	}
	return Null, newError(UnresolvedMethod, "%s does not understand %s", c.Name, name)
}

// sendAs resolves name starting at an explicit class in the receiver's
// chain rather than at its runtime class.
func (in *Interpreter) sendAs(obj *Object, class *Class, name string, args []Value) (Value, error) {
	if obj == nil {
		return Null, newError(NullReference, "cannot call %s on null", name)
	}
	if !obj.Class().IsSubclassOf(class) {
		return Null, newError(TypeMismatch, "%s is not a %s", obj.Class().Name, class.Name)
	}
	m := class.LookupMethod(in.vm.Selectors, name)
	if m == nil {
		return Null, newError(UnresolvedMethod, "%s does not understand %s", class.Name, name)
	}
	return in.invoke(m, obj, args)
}

// Send calls a method on a receiver with virtual dispatch.
func (vm *VM) Send(recv Value, name string, args []Value) (Value, error) {
	return vm.newInterpreter().send(recv, name, args)
}

// SendAs calls the method an ancestor class (or the runtime class itself)
// resolves for name, bypassing overrides below that class. This is the
// host-side form of calling an inherited method by name.
func (vm *VM) SendAs(obj *Object, class *Class, name string, args []Value) (Value, error) {
	return vm.newInterpreter().sendAs(obj, class, name, args)
}

// Resolve returns the method a receiver of class c runs for name, or nil.
func (vm *VM) Resolve(c *Class, name string) *Method {
	return c.LookupMethod(vm.Selectors, name)
}
