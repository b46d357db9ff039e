package vm

import (
	"testing"

	"github.com/chazu/xrt/builtin"
	"github.com/chazu/xrt/pkg/ast"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// newTestVM creates a VM whose io.printf output is captured.
func newTestVM(t *testing.T, opts ...Option) (*VM, *builtin.BufferPrinter) {
	t.Helper()
	out := builtin.NewBufferPrinter()
	vm := NewVM(append([]Option{WithPrinter(out)}, opts...)...)
	return vm, out
}

func mustDefine(t *testing.T, vm *VM, decls ...*ast.Class) []*Class {
	t.Helper()
	classes := make([]*Class, len(decls))
	for i, d := range decls {
		c, err := vm.DefineClass(d)
		if err != nil {
			t.Fatalf("DefineClass(%s): %v", d.Name, err)
		}
		classes[i] = c
	}
	return classes
}

func mustLoad(t *testing.T, vm *VM, p *ast.Program) {
	t.Helper()
	if err := vm.LoadProgram(p); err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
}

func mustInstantiate(t *testing.T, vm *VM, name string, args ...Value) *Object {
	t.Helper()
	c, err := vm.LookupClass(name)
	if err != nil {
		t.Fatalf("LookupClass(%s): %v", name, err)
	}
	obj, err := vm.Instantiate(c, args)
	if err != nil {
		t.Fatalf("Instantiate(%s): %v", name, err)
	}
	return obj
}

func mustSend(t *testing.T, vm *VM, recv *Object, name string, args ...Value) Value {
	t.Helper()
	v, err := vm.Send(ObjectValue(recv), name, args)
	if err != nil {
		t.Fatalf("Send(%s): %v", name, err)
	}
	return v
}

func wantInt(t *testing.T, what string, v Value, want int64) {
	t.Helper()
	got, ok := v.AsInt()
	if !ok {
		t.Errorf("%s = %v (%s), want int %d", what, v, v.TypeName(), want)
		return
	}
	if got != want {
		t.Errorf("%s = %d, want %d", what, got, want)
	}
}

// ---------------------------------------------------------------------------
// Sample classes
// ---------------------------------------------------------------------------

// advancedMath mirrors the AdvancedMath sample: recursive power and
// factorial plus a float field read through this.
func advancedMath() *ast.Class {
	this := ast.This()
	return &ast.Class{
		Name:   "AdvancedMath",
		Fields: []ast.Field{{Name: "PI", Type: "float64", Init: ast.Float(3.14159265)}},
		Methods: []*ast.Method{
			ast.Fn("AdvancedMath", "", nil),
			ast.Fn("circleArea", "float64", ast.Params("radius", "float64"),
				ast.Return(ast.Binary("*",
					ast.Binary("*", ast.Member(this, "PI"), ast.Ident("radius")),
					ast.Ident("radius")))),
			ast.Fn("circleCircumference", "float64", ast.Params("radius", "float64"),
				ast.Return(ast.Binary("*",
					ast.Binary("*", ast.Int(2), ast.Member(this, "PI")),
					ast.Ident("radius")))),
			ast.Fn("power", "int", ast.Params("base", "int", "exp", "int"),
				ast.If(ast.Binary("==", ast.Ident("exp"), ast.Int(0)),
					[]*ast.Stmt{ast.Return(ast.Int(1))},
					[]*ast.Stmt{ast.Return(ast.Binary("*", ast.Ident("base"),
						ast.Send(this, "power", ast.Ident("base"),
							ast.Binary("-", ast.Ident("exp"), ast.Int(1)))))}),
				ast.Return(ast.Int(0))),
			ast.Fn("factorial", "int", ast.Params("n", "int"),
				ast.If(ast.Binary("==", ast.Ident("n"), ast.Int(1)),
					[]*ast.Stmt{ast.Return(ast.Int(1))},
					[]*ast.Stmt{ast.Return(ast.Binary("*", ast.Ident("n"),
						ast.Send(this, "factorial", ast.Binary("-", ast.Ident("n"), ast.Int(1)))))}),
				ast.Return(ast.Int(0))),
		},
	}
}

// anyClass is the root of the Integer sample hierarchy.
func anyClass() *ast.Class {
	return &ast.Class{
		Name: "Any",
		Methods: []*ast.Method{
			ast.Fn("Any", "", nil),
			ast.Fn("Print", "", nil,
				ast.Do(ast.Send(ast.Ident("io"), "printf", ast.Str("unimplemented")))),
			ast.Fn("Describe", "string", nil, ast.Return(ast.Str("any"))),
		},
	}
}

// integerClass boxes an int; it overrides Print but not Describe.
func integerClass() *ast.Class {
	return &ast.Class{
		Name:   "Integer",
		Parent: "Any",
		Fields: []ast.Field{{Name: "x", Type: "int"}},
		Methods: []*ast.Method{
			ast.Fn("Integer", "", ast.Params("x", "int"),
				ast.Assign(ast.Member(ast.This(), "x"), ast.Ident("x"))),
			ast.Fn("Print", "", nil,
				ast.Do(ast.Send(ast.Ident("io"), "printf", ast.Str("x=%d. "), ast.Member(ast.This(), "x")))),
		},
	}
}

// worker counts to n in its own thread and reports when done.
func worker() *ast.Class {
	this := ast.This()
	count := ast.Member(this, "count")
	loop := func(method string, n int64) *ast.Method {
		return ast.Fn(method, "int", nil,
			ast.Foreach("i", ast.Int(0), ast.Int(n),
				ast.Assign(count, ast.Binary("+", count, ast.Int(1)))),
			ast.Assign(ast.Member(this, "done"), ast.Bool(true)),
			ast.Do(ast.Send(ast.Ident("io"), "printf", ast.Str("%s "+method+" done\n"), ast.Member(this, "name"))),
			ast.Return(count))
	}
	return &ast.Class{
		Name: "Worker",
		Fields: []ast.Field{
			{Name: "name", Type: "string"},
			{Name: "count", Type: "int"},
			{Name: "done", Type: "bool"},
		},
		Methods: []*ast.Method{
			ast.Fn("Worker", "", ast.Params("name", "string"),
				ast.Assign(ast.Member(this, "name"), ast.Ident("name"))),
			loop("work", 1000),
			loop("rest", 500),
		},
	}
}
