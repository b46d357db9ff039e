package vm

import (
	"math"

	"github.com/chazu/xrt/pkg/ast"
)

// evalBinary evaluates a binary operation. && and || short-circuit.
func (in *Interpreter) evalBinary(fr *frame, e *ast.Expr) (Value, error) {
	left, err := in.eval(fr, e.Left)
	if err != nil {
		return Null, err
	}

	if e.Op == "&&" || e.Op == "||" {
		l, ok := left.AsBool()
		if !ok {
			return Null, newError(TypeMismatch, "%s needs bool operands, got %s", e.Op, left.TypeName())
		}
		if (e.Op == "&&" && !l) || (e.Op == "||" && l) {
			return Bool(l), nil
		}
		right, err := in.eval(fr, e.Right)
		if err != nil {
			return Null, err
		}
		r, ok := right.AsBool()
		if !ok {
			return Null, newError(TypeMismatch, "%s needs bool operands, got %s", e.Op, right.TypeName())
		}
		return Bool(r), nil
	}

	right, err := in.eval(fr, e.Right)
	if err != nil {
		return Null, err
	}
	return binaryOp(e.Op, left, right)
}

// binaryOp applies a strict binary operator. Mixing int and float
// promotes to float; strings support + and comparison.
func binaryOp(op string, l, r Value) (Value, error) {
	switch op {
	case "==":
		return Bool(Equal(l, r)), nil
	case "!=":
		return Bool(!Equal(l, r)), nil
	}

	if ls, ok := l.AsString(); ok {
		if rs, ok := r.AsString(); ok {
			return stringOp(op, ls, rs)
		}
	}

	if !l.IsNumeric() || !r.IsNumeric() {
		return Null, newError(TypeMismatch, "operator %s on %s and %s", op, l.TypeName(), r.TypeName())
	}

	if li, ok := l.AsInt(); ok {
		if ri, ok := r.AsInt(); ok {
			return intOp(op, li, ri)
		}
	}
	lf, _ := l.AsFloat()
	rf, _ := r.AsFloat()
	return floatOp(op, lf, rf)
}

func intOp(op string, a, b int64) (Value, error) {
	switch op {
	case "+":
		return Int(a + b), nil
	case "-":
		return Int(a - b), nil
	case "*":
		return Int(a * b), nil
	case "/":
		if b == 0 {
			return Null, newError(DivisionByZero, "%d / 0", a)
		}
		return Int(a / b), nil
	case "%":
		if b == 0 {
			return Null, newError(DivisionByZero, "%d %% 0", a)
		}
		return Int(a % b), nil
	case "<":
		return Bool(a < b), nil
	case "<=":
		return Bool(a <= b), nil
	case ">":
		return Bool(a > b), nil
	case ">=":
		return Bool(a >= b), nil
	}
	return Null, newError(TypeMismatch, "operator %s on int", op)
}

func floatOp(op string, a, b float64) (Value, error) {
	switch op {
	case "+":
		return Float(a + b), nil
	case "-":
		return Float(a - b), nil
	case "*":
		return Float(a * b), nil
	case "/":
		return Float(a / b), nil
	case "%":
		return Float(math.Mod(a, b)), nil
	case "<":
		return Bool(a < b), nil
	case "<=":
		return Bool(a <= b), nil
	case ">":
		return Bool(a > b), nil
	case ">=":
		return Bool(a >= b), nil
	}
	return Null, newError(TypeMismatch, "operator %s on float", op)
}

func stringOp(op string, a, b string) (Value, error) {
	switch op {
	case "+":
		return String(a + b), nil
	case "<":
		return Bool(a < b), nil
	case "<=":
		return Bool(a <= b), nil
	case ">":
		return Bool(a > b), nil
	case ">=":
		return Bool(a >= b), nil
	}
	return Null, newError(TypeMismatch, "operator %s on string", op)
}

func unaryOp(op string, v Value) (Value, error) {
	switch op {
	case "-":
		if n, ok := v.AsInt(); ok {
			return Int(-n), nil
		}
		if v.Kind() == KindFloat {
			f, _ := v.AsFloat()
			return Float(-f), nil
		}
	case "!":
		if b, ok := v.AsBool(); ok {
			return Bool(!b), nil
		}
	}
	return Null, newError(TypeMismatch, "operator %s on %s", op, v.TypeName())
}
