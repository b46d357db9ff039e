package vm

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/chazu/xrt/pkg/ast"
)

// ---------------------------------------------------------------------------
// Recursion: the AdvancedMath sample
// ---------------------------------------------------------------------------

func TestPowerAndFactorial(t *testing.T) {
	vm, _ := newTestVM(t)
	mustDefine(t, vm, advancedMath())
	m := mustInstantiate(t, vm, "AdvancedMath")

	tests := []struct {
		method string
		args   []Value
		want   int64
	}{
		{"power", []Value{Int(2), Int(0)}, 1},
		{"power", []Value{Int(2), Int(5)}, 32},
		{"power", []Value{Int(3), Int(4)}, 81},
		{"factorial", []Value{Int(1)}, 1},
		{"factorial", []Value{Int(5)}, 120},
		{"factorial", []Value{Int(10)}, 3628800},
	}
	for _, tt := range tests {
		got := mustSend(t, vm, m, tt.method, tt.args...)
		wantInt(t, tt.method, got, tt.want)
	}
}

func TestFloatPromotion(t *testing.T) {
	vm, _ := newTestVM(t)
	mustDefine(t, vm, advancedMath())
	m := mustInstantiate(t, vm, "AdvancedMath")

	// An int argument widens into the float64 parameter; PI * r * r.
	area := mustSend(t, vm, m, "circleArea", Int(2))
	f, _ := area.AsFloat()
	if area.Kind() != KindFloat || math.Abs(f-12.5663706) > 1e-6 {
		t.Errorf("circleArea(2) = %v (%s), want ~12.566 float", area, area.Kind())
	}

	// 2 * PI promotes the int literal.
	circ := mustSend(t, vm, m, "circleCircumference", Float(1))
	if f, _ := circ.AsFloat(); math.Abs(f-6.2831853) > 1e-6 {
		t.Errorf("circleCircumference(1) = %v, want ~6.283", circ)
	}
}

func TestStackOverflow(t *testing.T) {
	vm, _ := newTestVM(t, WithMaxDepth(50))
	mustDefine(t, vm, &ast.Class{
		Name: "Loop",
		Methods: []*ast.Method{
			ast.Fn("forever", "int", ast.Params("n", "int"),
				ast.Return(ast.Send(ast.This(), "forever", ast.Binary("+", ast.Ident("n"), ast.Int(1))))),
		},
	})
	obj := mustInstantiate(t, vm, "Loop")

	_, err := vm.Send(ObjectValue(obj), "forever", []Value{Int(0)})
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("forever() error = %v, want StackOverflow", err)
	}
	if vm.MaxDepth() != 50 {
		t.Errorf("MaxDepth() = %d, want 50", vm.MaxDepth())
	}

	// The limit is per call chain; the VM stays usable.
	mustDefine(t, vm, advancedMath())
	wantInt(t, "factorial(5) after overflow",
		mustSend(t, vm, mustInstantiate(t, vm, "AdvancedMath"), "factorial", Int(5)), 120)
}

// ---------------------------------------------------------------------------
// Constructors and field initializers
// ---------------------------------------------------------------------------

func TestConstructorCalledAsMethod(t *testing.T) {
	// The sample where increment() re-runs the constructor on this and
	// returns it.
	this := ast.This()
	p := &ast.Program{
		Imports: ast.Builtins("io"),
		Classes: []*ast.Class{{
			Name:   "Test",
			Fields: []ast.Field{{Name: "x", Type: "int"}},
			Methods: []*ast.Method{
				ast.Fn("Test", "Test", ast.Params("x", "int"),
					ast.Assign(ast.Member(this, "x"), ast.Ident("x")),
					ast.Return(this)),
				ast.Fn("increment", "Test", nil,
					ast.Return(ast.Send(this, "Test", ast.Binary("+", ast.Member(this, "x"), ast.Int(1))))),
			},
		}},
		Functions: []*ast.Method{ast.Fn("main", "int32", nil,
			ast.Var("t", "Test", ast.New("Test", ast.Int(200))),
			ast.Var("x", "Test", ast.Send(ast.Ident("t"), "increment")),
			ast.Do(ast.Send(ast.Ident("io"), "printf", ast.Str("after: x=%d"), ast.Member(ast.Ident("x"), "x"))),
			ast.Return(ast.Int(0)))},
	}

	vm, out := newTestVM(t)
	code, err := vm.Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if got := out.Output(); got != "after: x=201" {
		t.Errorf("output = %q, want %q", got, "after: x=201")
	}
}

func TestInstantiateWithoutConstructor(t *testing.T) {
	vm, _ := newTestVM(t)
	mustDefine(t, vm, &ast.Class{Name: "Plain", Fields: []ast.Field{{Name: "n", Type: "int", Init: ast.Int(4)}}})
	c := vm.Classes.Lookup("Plain")

	obj, err := vm.Instantiate(c, nil)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	n, _ := obj.GetField("n")
	wantInt(t, "n", n, 4)

	if _, err := vm.Instantiate(c, []Value{Int(1)}); !errors.Is(err, ErrArityMismatch) {
		t.Errorf("Instantiate with args and no constructor = %v, want ArityMismatch", err)
	}
}

func TestFieldInitializersRunRootToLeafBeforeConstructor(t *testing.T) {
	this := ast.This()
	vm, _ := newTestVM(t)
	mustDefine(t, vm,
		&ast.Class{Name: "A", Fields: []ast.Field{{Name: "a", Type: "int", Init: ast.Int(1)}}},
		&ast.Class{
			Name: "B", Parent: "A",
			// b sees a already initialized.
			Fields: []ast.Field{{Name: "b", Type: "int", Init: ast.Binary("+", ast.Member(this, "a"), ast.Int(10))}},
			Methods: []*ast.Method{
				// The constructor sees both.
				ast.Fn("B", "", nil, ast.Assign(ast.Member(this, "a"), ast.Binary("*", ast.Member(this, "b"), ast.Int(2)))),
			},
		},
	)
	obj := mustInstantiate(t, vm, "B")

	a, _ := obj.GetField("a")
	b, _ := obj.GetField("b")
	wantInt(t, "b", b, 11)
	wantInt(t, "a", a, 22)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func runMain(t *testing.T, body ...*ast.Stmt) (Value, error) {
	t.Helper()
	vm, _ := newTestVM(t)
	mustLoad(t, vm, &ast.Program{
		Imports:   ast.Builtins("io"),
		Functions: []*ast.Method{ast.Fn("main", "int", nil, body...)},
	})
	return vm.RunEntry("main")
}

func TestForeachHalfOpenRange(t *testing.T) {
	sum := ast.Ident("sum")
	v, err := runMain(t,
		ast.Var("sum", "int", ast.Int(0)),
		ast.Var("hi", "int", ast.Int(5)),
		ast.Foreach("i", ast.Int(1), ast.Ident("hi"),
			ast.Assign(sum, ast.Binary("+", sum, ast.Ident("i"))),
			// Bounds were evaluated once; this does not extend the loop.
			ast.Assign(ast.Ident("hi"), ast.Int(100))),
		ast.Return(sum))
	if err != nil {
		t.Fatalf("main: %v", err)
	}
	wantInt(t, "sum of 1..5", v, 10)
}

func TestForeachEmptyRange(t *testing.T) {
	v, err := runMain(t,
		ast.Var("n", "int", ast.Int(0)),
		ast.Foreach("i", ast.Int(3), ast.Int(3),
			ast.Assign(ast.Ident("n"), ast.Int(99))),
		ast.Return(ast.Ident("n")))
	if err != nil {
		t.Fatalf("main: %v", err)
	}
	wantInt(t, "n", v, 0)
}

func TestWhileAndBreak(t *testing.T) {
	n := ast.Ident("n")
	v, err := runMain(t,
		ast.Var("n", "int", ast.Int(0)),
		ast.While(ast.Bool(true),
			ast.Assign(n, ast.Binary("+", n, ast.Int(1))),
			ast.If(ast.Binary(">=", n, ast.Int(7)), []*ast.Stmt{ast.Break()}, nil)),
		ast.Return(n))
	if err != nil {
		t.Fatalf("main: %v", err)
	}
	wantInt(t, "n", v, 7)
}

func TestBreakLeavesInnermostLoop(t *testing.T) {
	count := ast.Ident("count")
	v, err := runMain(t,
		ast.Var("count", "int", ast.Int(0)),
		ast.Foreach("i", ast.Int(0), ast.Int(3),
			ast.Foreach("j", ast.Int(0), ast.Int(10),
				ast.If(ast.Binary("==", ast.Ident("j"), ast.Int(2)), []*ast.Stmt{ast.Break()}, nil),
				ast.Assign(count, ast.Binary("+", count, ast.Int(1))))),
		ast.Return(count))
	if err != nil {
		t.Fatalf("main: %v", err)
	}
	wantInt(t, "count", v, 6)
}

func TestReturnFromInsideLoop(t *testing.T) {
	v, err := runMain(t,
		ast.Foreach("i", ast.Int(0), ast.Int(100),
			ast.If(ast.Binary("==", ast.Binary("*", ast.Ident("i"), ast.Ident("i")), ast.Int(49)),
				[]*ast.Stmt{ast.Return(ast.Ident("i"))}, nil)),
		ast.Return(ast.Int(-1)))
	if err != nil {
		t.Fatalf("main: %v", err)
	}
	wantInt(t, "first i with i*i == 49", v, 7)
}

func TestBlockScoping(t *testing.T) {
	v, err := runMain(t,
		ast.Var("x", "int", ast.Int(1)),
		ast.If(ast.Bool(true), []*ast.Stmt{
			ast.Var("x", "int", ast.Int(2)),
			ast.Assign(ast.Ident("x"), ast.Int(3)),
		}, nil),
		ast.Return(ast.Ident("x")))
	if err != nil {
		t.Fatalf("main: %v", err)
	}
	wantInt(t, "outer x", v, 1)
}

func TestLocalFloatDeclarationWidens(t *testing.T) {
	// say z: float64 = x.sum(10,10) + x.mul(10,20) from the first sample.
	this := ast.This()
	vm, _ := newTestVM(t)
	mustLoad(t, vm, &ast.Program{
		Classes: []*ast.Class{{
			Name: "DirectoryReader",
			Fields: []ast.Field{
				{Name: "x", Type: "float32", Static: true, Init: ast.Int(200)},
				{Name: "y", Type: "float64", Init: ast.Int(1)},
			},
			Methods: []*ast.Method{
				ast.Fn("sum", "int", ast.Params("x", "int", "y", "int"), ast.Return(ast.Member(this, "y"))),
				ast.Fn("mul", "int", ast.Params("x", "int", "y", "int"), ast.Return(ast.Binary("*", ast.Ident("x"), ast.Ident("y")))),
			},
		}},
		Functions: []*ast.Method{ast.Fn("main", "float64", nil,
			ast.Var("x", "DirectoryReader", ast.New("DirectoryReader")),
			ast.Var("z", "float64", ast.Binary("+",
				ast.Send(ast.Ident("x"), "sum", ast.Int(10), ast.Int(10)),
				ast.Send(ast.Ident("x"), "mul", ast.Int(10), ast.Int(20)))),
			ast.Return(ast.Ident("z")))},
	})

	v, err := vm.RunEntry("main")
	if err != nil {
		t.Fatalf("main: %v", err)
	}
	if f, _ := v.AsFloat(); v.Kind() != KindFloat || f != 201 {
		t.Errorf("z = %v (%s), want float 201", v, v.Kind())
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func TestBinaryOperators(t *testing.T) {
	tests := []struct {
		op   string
		l, r Value
		want Value
	}{
		{"+", Int(2), Int(3), Int(5)},
		{"-", Int(2), Int(3), Int(-1)},
		{"*", Int(4), Int(3), Int(12)},
		{"/", Int(7), Int(2), Int(3)},
		{"%", Int(7), Int(2), Int(1)},
		{"+", Int(1), Float(0.5), Float(1.5)},
		{"/", Float(7), Int(2), Float(3.5)},
		{"%", Float(7.5), Int(2), Float(1.5)},
		{"+", String("ab"), String("cd"), String("abcd")},
		{"<", Int(1), Float(1.5), Bool(true)},
		{">=", Int(2), Int(2), Bool(true)},
		{"<", String("a"), String("b"), Bool(true)},
		{"==", Int(2), Float(2), Bool(true)},
		{"!=", String("a"), String("a"), Bool(false)},
		{"==", Null, Null, Bool(true)},
		{"==", Int(0), Null, Bool(false)},
	}
	for _, tt := range tests {
		got, err := binaryOp(tt.op, tt.l, tt.r)
		if err != nil {
			t.Errorf("%v %s %v: %v", tt.l, tt.op, tt.r, err)
			continue
		}
		if got.Kind() != tt.want.Kind() || !Equal(got, tt.want) {
			t.Errorf("%v %s %v = %v (%s), want %v (%s)", tt.l, tt.op, tt.r, got, got.Kind(), tt.want, tt.want.Kind())
		}
	}
}

func TestBinaryOperatorErrors(t *testing.T) {
	tests := []struct {
		op   string
		l, r Value
		want error
	}{
		{"/", Int(1), Int(0), ErrDivisionByZero},
		{"%", Int(1), Int(0), ErrDivisionByZero},
		{"+", String("a"), Int(1), ErrTypeMismatch},
		{"+", Bool(true), Int(1), ErrTypeMismatch},
		{"-", String("a"), String("b"), ErrTypeMismatch},
		{"<", Null, Int(1), ErrTypeMismatch},
	}
	for _, tt := range tests {
		if _, err := binaryOp(tt.op, tt.l, tt.r); !errors.Is(err, tt.want) {
			t.Errorf("%v %s %v error = %v, want %v", tt.l, tt.op, tt.r, err, tt.want)
		}
	}
}

func TestUnaryOperators(t *testing.T) {
	if v, _ := unaryOp("-", Int(3)); !Equal(v, Int(-3)) {
		t.Errorf("-3 = %v", v)
	}
	if v, _ := unaryOp("-", Float(1.5)); !Equal(v, Float(-1.5)) {
		t.Errorf("-1.5 = %v", v)
	}
	if v, _ := unaryOp("!", Bool(false)); !Equal(v, Bool(true)) {
		t.Errorf("!false = %v", v)
	}
	if _, err := unaryOp("!", Int(1)); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("!1 error = %v, want TypeMismatch", err)
	}
}

func TestShortCircuit(t *testing.T) {
	// false && (1/0 == 0) must not evaluate the division.
	v, err := runMain(t,
		ast.If(ast.Binary("&&", ast.Bool(false),
			ast.Binary("==", ast.Binary("/", ast.Int(1), ast.Int(0)), ast.Int(0))),
			[]*ast.Stmt{ast.Return(ast.Int(1))}, nil),
		ast.If(ast.Binary("||", ast.Bool(true),
			ast.Binary("==", ast.Binary("/", ast.Int(1), ast.Int(0)), ast.Int(0))),
			[]*ast.Stmt{ast.Return(ast.Int(2))}, nil),
		ast.Return(ast.Int(3)))
	if err != nil {
		t.Fatalf("main: %v", err)
	}
	wantInt(t, "result", v, 2)
}

func TestRuntimeErrorsInBodies(t *testing.T) {
	tests := []struct {
		name string
		body []*ast.Stmt
		want error
	}{
		{"undefined variable", []*ast.Stmt{ast.Return(ast.Ident("nope"))}, ErrUndefinedVariable},
		{"assign undeclared", []*ast.Stmt{ast.Assign(ast.Ident("nope"), ast.Int(1))}, ErrUndefinedVariable},
		{"this in a free function", []*ast.Stmt{ast.Return(ast.This())}, ErrUndefinedVariable},
		{"non-bool condition", []*ast.Stmt{ast.If(ast.Int(1), nil, nil)}, ErrTypeMismatch},
		{"float loop bound", []*ast.Stmt{ast.Foreach("i", ast.Int(0), ast.Float(2), ast.Break())}, ErrTypeMismatch},
		{"unknown class", []*ast.Stmt{ast.Do(ast.New("Ghost"))}, ErrUnknownClass},
		{"unknown function", []*ast.Stmt{ast.Do(ast.Call(ast.Ident("ghost")))}, ErrUnresolvedMethod},
		{"field of null", []*ast.Stmt{ast.Var("p", "Point", nil), ast.Return(ast.Member(ast.Ident("p"), "x"))}, ErrNullReference},
		{"index null", []*ast.Stmt{ast.Var("a", "[]int", nil), ast.Return(ast.Index(ast.Ident("a"), ast.Int(0)))}, ErrNullReference},
		{"index an int", []*ast.Stmt{ast.Return(ast.Index(ast.Int(3), ast.Int(0)))}, ErrTypeMismatch},
		{"spawn a non-method", []*ast.Stmt{ast.Do(ast.Spawn(ast.Int(1)))}, ErrTypeMismatch},
		{"join a non-thread", []*ast.Stmt{ast.Do(ast.Join(ast.Int(1)))}, ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runMain(t, tt.body...)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestErrorsCarryLocation(t *testing.T) {
	ret := ast.Return(ast.Binary("/", ast.Int(1), ast.Int(0)))
	ret.Location = ast.Location{Line: 12, Col: 5}
	_, err := runMain(t, ret)

	var rtErr *Error
	if !errors.As(err, &rtErr) {
		t.Fatalf("error %v is not a runtime error", err)
	}
	if rtErr.Where != "main 12:5" {
		t.Errorf("Where = %q, want %q", rtErr.Where, "main 12:5")
	}
	if !strings.Contains(err.Error(), "DivisionByZero") {
		t.Errorf("Error() = %q, want it to name the kind", err.Error())
	}
}

func TestBoundMethodValues(t *testing.T) {
	vm, _ := newTestVM(t)
	mustDefine(t, vm, advancedMath())
	p := &ast.Program{Functions: []*ast.Method{ast.Fn("main", "int", nil,
		ast.Var("m", "AdvancedMath", ast.New("AdvancedMath")),
		ast.Var("f", "", ast.Member(ast.Ident("m"), "factorial")),
		ast.Return(ast.Call(ast.Ident("f"), ast.Int(4))))}}
	mustLoad(t, vm, p)

	v, err := vm.RunEntry("main")
	if err != nil {
		t.Fatalf("main: %v", err)
	}
	wantInt(t, "f(4)", v, 24)
}

func TestFreeFunctionCalls(t *testing.T) {
	n := ast.Ident("n")
	vm, _ := newTestVM(t)
	mustLoad(t, vm, &ast.Program{Functions: []*ast.Method{
		ast.Fn("fib", "int", ast.Params("n", "int"),
			ast.If(ast.Binary("<", n, ast.Int(2)), []*ast.Stmt{ast.Return(n)}, nil),
			ast.Return(ast.Binary("+",
				ast.Call(ast.Ident("fib"), ast.Binary("-", n, ast.Int(1))),
				ast.Call(ast.Ident("fib"), ast.Binary("-", n, ast.Int(2)))))),
	}})

	v, err := vm.Call("fib", []Value{Int(15)})
	if err != nil {
		t.Fatalf("fib: %v", err)
	}
	wantInt(t, "fib(15)", v, 610)

	if _, err := vm.Call("fib", nil); !errors.Is(err, ErrArityMismatch) {
		t.Errorf("fib() error = %v, want ArityMismatch", err)
	}
}
