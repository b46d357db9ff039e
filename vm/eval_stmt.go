package vm

import (
	"github.com/chazu/xrt/pkg/ast"
)

// flow tells the enclosing block how a statement finished.
type flow int

const (
	flowNormal flow = iota
	flowReturn
	flowBreak
)

// execBlock runs statements in a fresh scope nested in the frame's.
func (in *Interpreter) execBlock(fr *frame, stmts []*ast.Stmt) (flow, Value, error) {
	outer := fr.scope
	fr.scope = newScope(outer)
	defer func() { fr.scope = outer }()

	for _, s := range stmts {
		f, v, err := in.exec(fr, s)
		if err != nil {
			return flowNormal, Null, annotate(err, fr, s.Location)
		}
		if f != flowNormal {
			return f, v, nil
		}
	}
	return flowNormal, Null, nil
}

func (in *Interpreter) exec(fr *frame, s *ast.Stmt) (flow, Value, error) {
	switch s.Type {
	case ast.StmtVar:
		typ := ParseType(s.VarType)
		val := typ.Zero()
		if s.Value != nil {
			v, err := in.eval(fr, s.Value)
			if err != nil {
				return flowNormal, Null, err
			}
			val = v
		}
		fr.scope.declare(s.Name, typ, val)
		return flowNormal, Null, nil

	case ast.StmtAssign:
		v, err := in.eval(fr, s.Value)
		if err != nil {
			return flowNormal, Null, err
		}
		return flowNormal, Null, in.assign(fr, s.Target, v)

	case ast.StmtExpr:
		_, err := in.eval(fr, s.Value)
		return flowNormal, Null, err

	case ast.StmtReturn:
		if s.Value == nil {
			return flowReturn, Null, nil
		}
		v, err := in.eval(fr, s.Value)
		if err != nil {
			return flowNormal, Null, err
		}
		return flowReturn, v, nil

	case ast.StmtIf:
		cond, err := in.evalCondition(fr, s.Cond)
		if err != nil {
			return flowNormal, Null, err
		}
		if cond {
			return in.execBlock(fr, s.Then)
		}
		if len(s.Else) > 0 {
			return in.execBlock(fr, s.Else)
		}
		return flowNormal, Null, nil

	case ast.StmtForeach:
		return in.execForeach(fr, s)

	case ast.StmtWhile:
		for {
			cond, err := in.evalCondition(fr, s.Cond)
			if err != nil || !cond {
				return flowNormal, Null, err
			}
			f, v, err := in.execBlock(fr, s.Body)
			if err != nil {
				return flowNormal, Null, err
			}
			if f == flowReturn {
				return f, v, nil
			}
			if f == flowBreak {
				return flowNormal, Null, nil
			}
		}

	case ast.StmtBreak:
		return flowBreak, Null, nil
	}
	return flowNormal, Null, newError(TypeMismatch, "unknown statement type %q", s.Type)
}

// execForeach iterates the half-open range lower..upper. Both bounds are
// evaluated once, before the first iteration; assigning the loop variable
// in the body does not change the iteration.
func (in *Interpreter) execForeach(fr *frame, s *ast.Stmt) (flow, Value, error) {
	lower, err := in.evalInt(fr, s.Lower, "foreach lower bound")
	if err != nil {
		return flowNormal, Null, err
	}
	upper, err := in.evalInt(fr, s.Upper, "foreach upper bound")
	if err != nil {
		return flowNormal, Null, err
	}

	outer := fr.scope
	defer func() { fr.scope = outer }()
	intType := TypeSpec{Name: "int", Prim: PrimInt}

	for i := lower; i < upper; i++ {
		fr.scope = newScope(outer)
		fr.scope.declare(s.Name, intType, Int(i))
		f, v, err := in.execBlock(fr, s.Body)
		if err != nil {
			return flowNormal, Null, err
		}
		if f == flowReturn {
			return f, v, nil
		}
		if f == flowBreak {
			break
		}
	}
	return flowNormal, Null, nil
}

func (in *Interpreter) evalCondition(fr *frame, e *ast.Expr) (bool, error) {
	v, err := in.eval(fr, e)
	if err != nil {
		return false, err
	}
	b, ok := v.Truthy()
	if !ok {
		return false, newError(TypeMismatch, "condition %s is %s, not bool", e, v.TypeName())
	}
	return b, nil
}

func (in *Interpreter) evalInt(fr *frame, e *ast.Expr, what string) (int64, error) {
	v, err := in.eval(fr, e)
	if err != nil {
		return 0, err
	}
	n, ok := v.AsInt()
	if !ok {
		return 0, newError(TypeMismatch, "%s %s is %s, not int", what, e, v.TypeName())
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Assignment
// ---------------------------------------------------------------------------

// assign stores v into an identifier, member or multi-index target.
func (in *Interpreter) assign(fr *frame, target *ast.Expr, v Value) error {
	switch target.Type {
	case ast.ExprIdent:
		if local := fr.scope.lookup(target.Name); local != nil {
			local.val = local.typ.Coerce(v)
			return nil
		}
		return newError(UndefinedVariable, "assignment to undeclared variable %q", target.Name)

	case ast.ExprMember:
		recv, err := in.eval(fr, target.Object)
		if err != nil {
			return err
		}
		return in.setMember(recv, target.Name, v)

	case ast.ExprIndex:
		arr, indices, err := in.evalIndexing(fr, target)
		if err != nil {
			return err
		}
		return arr.Set(indices, v)
	}
	return newError(TypeMismatch, "cannot assign to %s", target)
}

// setMember writes an instance field, falling back to the static fields of
// the class chain; on a class value it writes a static field.
func (in *Interpreter) setMember(recv Value, name string, v Value) error {
	switch recv.Kind() {
	case KindObject:
		obj := recv.Object()
		if f := obj.Class().LookupField(name); f != nil {
			obj.SetSlot(f.Slot, f.Type.Coerce(v))
			return nil
		}
		return in.setStatic(obj.Class(), name, v)
	case KindClass:
		return in.setStatic(recv.Class(), name, v)
	case KindNull:
		return newError(NullReference, "cannot set field %q of null", name)
	}
	return newError(TypeMismatch, "cannot set field %q of %s", name, recv.TypeName())
}

func (in *Interpreter) setStatic(c *Class, name string, v Value) error {
	if err := in.touchStatic(c, name); err != nil {
		return err
	}
	return c.SetStatic(name, v)
}
