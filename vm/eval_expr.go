package vm

import (
	"github.com/chazu/xrt/pkg/ast"
)

// eval evaluates an expression in a frame.
func (in *Interpreter) eval(fr *frame, e *ast.Expr) (Value, error) {
	switch e.Type {
	case ast.ExprInt:
		return Int(e.Int), nil
	case ast.ExprFloat:
		return Float(e.Float), nil
	case ast.ExprString:
		return String(e.Str), nil
	case ast.ExprBool:
		return Bool(e.Bool), nil
	case ast.ExprNull:
		return Null, nil

	case ast.ExprIdent:
		return in.resolveIdent(fr, e.Name)

	case ast.ExprThis:
		if fr.this == nil {
			return Null, newError(UndefinedVariable, "this used outside an instance method")
		}
		return ObjectValue(fr.this), nil

	case ast.ExprBinary:
		return in.evalBinary(fr, e)

	case ast.ExprUnary:
		operand, err := in.eval(fr, e.Operand)
		if err != nil {
			return Null, err
		}
		return unaryOp(e.Op, operand)

	case ast.ExprMember:
		recv, err := in.eval(fr, e.Object)
		if err != nil {
			return Null, err
		}
		return in.getMember(recv, e.Name)

	case ast.ExprCall:
		return in.evalCall(fr, e)

	case ast.ExprIndex:
		arr, indices, err := in.evalIndexing(fr, e)
		if err != nil {
			return Null, err
		}
		return arr.Get(indices)

	case ast.ExprNew:
		c, err := in.vm.LookupClass(e.Name)
		if err != nil {
			return Null, err
		}
		args, err := in.evalArgs(fr, e.Args)
		if err != nil {
			return Null, err
		}
		obj, err := in.instantiate(c, args)
		if err != nil {
			return Null, err
		}
		return ObjectValue(obj), nil

	case ast.ExprSpawn:
		target, err := in.eval(fr, e.Operand)
		if err != nil {
			return Null, err
		}
		if target.Kind() != KindMethod {
			return Null, newError(TypeMismatch, "thread() needs a bound method, got %s", target.TypeName())
		}
		t, err := in.vm.Spawn(target.BoundMethod())
		if err != nil {
			return Null, err
		}
		return ThreadValue(t), nil

	case ast.ExprJoin:
		handle, err := in.eval(fr, e.Operand)
		if err != nil {
			return Null, err
		}
		if handle.Kind() != KindThread {
			return Null, newError(TypeMismatch, "join() needs a thread handle, got %s", handle.TypeName())
		}
		return handle.Thread().Join()
	}
	return Null, newError(TypeMismatch, "unknown expression type %q", e.Type)
}

// resolveIdent looks a bare name up in the local scopes, then among the
// defined classes, then among the primitive type names.
func (in *Interpreter) resolveIdent(fr *frame, name string) (Value, error) {
	if local := fr.scope.lookup(name); local != nil {
		return local.val, nil
	}
	if c := in.vm.Classes.Lookup(name); c != nil {
		return ClassValue(c), nil
	}
	if p, ok := LookupPrim(name); ok {
		return TypeValue(p), nil
	}
	return Null, newError(UndefinedVariable, "undefined variable %q", name)
}

func (in *Interpreter) evalArgs(fr *frame, exprs []*ast.Expr) ([]Value, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	args := make([]Value, len(exprs))
	for i, a := range exprs {
		v, err := in.eval(fr, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// evalIndexing evaluates the array and index list of an index expression.
func (in *Interpreter) evalIndexing(fr *frame, e *ast.Expr) (*Array, []int, error) {
	v, err := in.eval(fr, e.Object)
	if err != nil {
		return nil, nil, err
	}
	switch v.Kind() {
	case KindArray:
	case KindNull:
		return nil, nil, newError(NullReference, "indexing null %s", e.Object)
	default:
		return nil, nil, newError(TypeMismatch, "cannot index %s", v.TypeName())
	}

	indices := make([]int, len(e.Args))
	for i, a := range e.Args {
		n, err := in.evalInt(fr, a, "index")
		if err != nil {
			return nil, nil, err
		}
		indices[i] = int(n)
	}
	return v.Array(), indices, nil
}

// ---------------------------------------------------------------------------
// Member access
// ---------------------------------------------------------------------------

// getMember reads obj.name: an instance field, else a static field of the
// class chain, else a method bound to the instance. On a class value it
// reads a static field.
func (in *Interpreter) getMember(recv Value, name string) (Value, error) {
	switch recv.Kind() {
	case KindObject:
		obj := recv.Object()
		c := obj.Class()
		if f := c.LookupField(name); f != nil {
			return obj.GetSlot(f.Slot), nil
		}
		if c.LookupStatic(name) != nil {
			return in.getStatic(c, name)
		}
		if m := c.LookupMethod(in.vm.Selectors, name); m != nil {
			return MethodValue(&BoundMethod{Method: m, Receiver: obj}), nil
		}
		return Null, newError(UnresolvedField, "%s has no field %q", c.Name, name)
	case KindClass:
		return in.getStatic(recv.Class(), name)
	case KindNull:
		return Null, newError(NullReference, "cannot read field %q of null", name)
	}
	return Null, newError(TypeMismatch, "cannot read field %q of %s", name, recv.TypeName())
}

func (in *Interpreter) getStatic(c *Class, name string) (Value, error) {
	if err := in.touchStatic(c, name); err != nil {
		return Null, err
	}
	return c.GetStatic(name)
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// evalCall handles the three call shapes: ns.f(args) on a builtin
// namespace, recv.m(args) with virtual dispatch, and f(args) on a free
// function or a local holding a bound method.
func (in *Interpreter) evalCall(fr *frame, e *ast.Expr) (Value, error) {
	callee := e.Callee
	switch callee.Type {
	case ast.ExprMember:
		if ns, ok := in.builtinNamespace(fr, callee.Object); ok {
			args, err := in.evalArgs(fr, e.Args)
			if err != nil {
				return Null, err
			}
			return in.vm.Bridge.Call(ns, callee.Name, args)
		}
		recv, err := in.eval(fr, callee.Object)
		if err != nil {
			return Null, err
		}
		args, err := in.evalArgs(fr, e.Args)
		if err != nil {
			return Null, err
		}
		return in.send(recv, callee.Name, args)

	case ast.ExprIdent:
		if fr.scope.lookup(callee.Name) == nil {
			if fn := in.vm.Function(callee.Name); fn != nil {
				args, err := in.evalArgs(fr, e.Args)
				if err != nil {
					return Null, err
				}
				return in.invoke(fn, nil, args)
			}
			if in.vm.Classes.Lookup(callee.Name) == nil {
				return Null, newError(UnresolvedMethod, "no function %q", callee.Name)
			}
		}
	}

	target, err := in.eval(fr, callee)
	if err != nil {
		return Null, err
	}
	args, err := in.evalArgs(fr, e.Args)
	if err != nil {
		return Null, err
	}
	return in.callValue(target, args)
}

// builtinNamespace reports whether expr names a builtin namespace rather
// than a local or a class.
func (in *Interpreter) builtinNamespace(fr *frame, expr *ast.Expr) (string, bool) {
	if expr.Type != ast.ExprIdent {
		return "", false
	}
	name := expr.Name
	if fr.scope.lookup(name) != nil || in.vm.Classes.Has(name) {
		return "", false
	}
	return name, in.vm.Bridge.HasNamespace(name)
}

// callValue calls a bound method held in a value.
func (in *Interpreter) callValue(target Value, args []Value) (Value, error) {
	switch target.Kind() {
	case KindMethod:
		b := target.BoundMethod()
		return in.invoke(b.Method, b.Receiver, args)
	case KindNull:
		return Null, newError(NullReference, "call of null")
	}
	return Null, newError(TypeMismatch, "%s is not callable", target.TypeName())
}
