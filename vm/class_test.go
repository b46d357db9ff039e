package vm

import (
	"errors"
	"sync"
	"testing"

	"github.com/chazu/xrt/pkg/ast"
)

// ---------------------------------------------------------------------------
// Class definition tests
// ---------------------------------------------------------------------------

func TestDefineClass(t *testing.T) {
	vm, _ := newTestVM(t)
	classes := mustDefine(t, vm, anyClass(), integerClass())
	anyC, intC := classes[0], classes[1]

	if intC.Superclass != anyC {
		t.Error("Integer superclass should be Any")
	}
	if intC.VTable.Parent() != anyC.VTable {
		t.Error("VTable parent should be Any's vtable")
	}
	if intC.VTable.Class() != intC {
		t.Error("VTable.Class() should return the class")
	}
	if intC.NumSlots != 1 {
		t.Errorf("NumSlots = %d, want 1", intC.NumSlots)
	}
	if intC.Depth() != 1 {
		t.Errorf("Depth() = %d, want 1", intC.Depth())
	}
	if !intC.IsSubclassOf(anyC) || !intC.IsSubclassOf(intC) {
		t.Error("Integer should be a subclass of Any and of itself")
	}
	if anyC.IsSubclassOf(intC) {
		t.Error("Any should not be a subclass of Integer")
	}
	if vm.Classes.Lookup("Integer") != intC {
		t.Error("Classes.Lookup(Integer) should return the defined class")
	}
}

func TestDefineClassErrors(t *testing.T) {
	tests := []struct {
		name string
		decl *ast.Class
		want error
	}{
		{
			name: "duplicate class",
			decl: &ast.Class{Name: "Any"},
			want: ErrDuplicateClass,
		},
		{
			name: "unknown parent",
			decl: &ast.Class{Name: "Orphan", Parent: "Missing"},
			want: ErrUnknownClass,
		},
		{
			name: "field repeated in one class",
			decl: &ast.Class{Name: "Pair", Fields: []ast.Field{
				{Name: "a", Type: "int"}, {Name: "a", Type: "float64"},
			}},
			want: ErrDuplicateFieldName,
		},
		{
			name: "field collides with ancestor field",
			decl: &ast.Class{Name: "Shadow", Parent: "Integer", Fields: []ast.Field{
				{Name: "x", Type: "float64"},
			}},
			want: ErrDuplicateFieldName,
		},
		{
			name: "field collides with ancestor static",
			decl: &ast.Class{Name: "Shadow", Parent: "Counter", Fields: []ast.Field{
				{Name: "total", Type: "int"},
			}},
			want: ErrDuplicateFieldName,
		},
		{
			name: "method repeated in one class",
			decl: &ast.Class{Name: "Twice", Methods: []*ast.Method{
				ast.Fn("go", "", nil), ast.Fn("go", "int", nil),
			}},
			want: ErrDuplicateMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, _ := newTestVM(t)
			mustDefine(t, vm, anyClass(), integerClass(), &ast.Class{
				Name:   "Counter",
				Fields: []ast.Field{{Name: "total", Type: "int", Static: true}},
			})

			_, err := vm.DefineClass(tt.decl)
			if !errors.Is(err, tt.want) {
				t.Fatalf("DefineClass error = %v, want %v", err, tt.want)
			}
			if tt.want != ErrDuplicateClass && vm.Classes.Has(tt.decl.Name) {
				t.Errorf("failed definition of %s should not be registered", tt.decl.Name)
			}
		})
	}
}

func TestOverridingMethodIsNotDuplicate(t *testing.T) {
	vm, _ := newTestVM(t)
	mustDefine(t, vm, anyClass(), integerClass())
	// Integer redefines Print from Any; only same-class repeats are errors.
	if m := vm.Resolve(vm.Classes.Lookup("Integer"), "Print"); m == nil || m.Owner.Name != "Integer" {
		t.Errorf("Resolve(Integer, Print) = %v, want Integer.Print", m)
	}
}

// ---------------------------------------------------------------------------
// Slot layout
// ---------------------------------------------------------------------------

func TestSlotLayoutRootToLeaf(t *testing.T) {
	vm, _ := newTestVM(t)
	classes := mustDefine(t, vm,
		&ast.Class{Name: "Shape", Fields: []ast.Field{
			{Name: "id", Type: "int"},
			{Name: "registry", Type: "int", Static: true},
			{Name: "label", Type: "string"},
		}},
		&ast.Class{Name: "Circle", Parent: "Shape", Fields: []ast.Field{
			{Name: "radius", Type: "float64"},
		}},
		&ast.Class{Name: "Ring", Parent: "Circle", Fields: []ast.Field{
			{Name: "inner", Type: "float64"},
		}},
	)
	ring := classes[2]

	want := map[string]int{"id": 0, "label": 1, "radius": 2, "inner": 3}
	for name, slot := range want {
		if got := ring.FieldIndex(name); got != slot {
			t.Errorf("FieldIndex(%s) = %d, want %d", name, got, slot)
		}
	}
	if got := ring.FieldIndex("registry"); got != -1 {
		t.Errorf("static field should have no slot, got %d", got)
	}
	if got := ring.FieldIndex("missing"); got != -1 {
		t.Errorf("FieldIndex(missing) = %d, want -1", got)
	}
	if ring.NumSlots != 4 {
		t.Errorf("NumSlots = %d, want 4", ring.NumSlots)
	}

	all := ring.AllFields()
	names := make([]string, len(all))
	for i, f := range all {
		names[i] = f.Name
	}
	if len(names) != 4 || names[0] != "id" || names[3] != "inner" {
		t.Errorf("AllFields() = %v, want [id label radius inner]", names)
	}
	if owner := ring.LookupField("label").Owner.Name; owner != "Shape" {
		t.Errorf("label owner = %s, want Shape", owner)
	}
}

// ---------------------------------------------------------------------------
// Static fields
// ---------------------------------------------------------------------------

func staticsProgram() *ast.Program {
	return &ast.Program{
		Imports: ast.Builtins("io"),
		Classes: []*ast.Class{
			{
				Name: "DirectoryReader",
				Fields: []ast.Field{
					{Name: "x", Type: "float32", Static: true, Init: ast.Int(200)},
					{Name: "doubled", Type: "float32", Static: true,
						Init: ast.Binary("*", ast.Member(ast.Ident("DirectoryReader"), "x"), ast.Int(2))},
					{Name: "y", Type: "float64", Init: ast.Int(1)},
				},
				Methods: []*ast.Method{
					ast.Fn("bump", "", nil,
						ast.Assign(ast.Member(ast.This(), "x"),
							ast.Binary("+", ast.Member(ast.This(), "x"), ast.Int(1)))),
				},
			},
			{Name: "SubReader", Parent: "DirectoryReader"},
		},
	}
}

func TestStaticFieldsSharedAcrossInstances(t *testing.T) {
	vm, _ := newTestVM(t)
	mustLoad(t, vm, staticsProgram())

	a := mustInstantiate(t, vm, "DirectoryReader")
	b := mustInstantiate(t, vm, "SubReader")

	mustSend(t, vm, a, "bump")
	mustSend(t, vm, b, "bump")

	c := vm.Classes.Lookup("DirectoryReader")
	x, err := vm.GetStatic(c, "x")
	if err != nil {
		t.Fatalf("GetStatic(x): %v", err)
	}
	if f, _ := x.AsFloat(); x.Kind() != KindFloat || f != 202 {
		t.Errorf("x = %v (%s), want float 202", x, x.TypeName())
	}

	// Resolved through the subclass too.
	sub := vm.Classes.Lookup("SubReader")
	viaSub, err := vm.GetStatic(sub, "x")
	if err != nil {
		t.Fatalf("GetStatic via subclass: %v", err)
	}
	if !Equal(viaSub, x) {
		t.Errorf("SubReader.x = %v, want %v", viaSub, x)
	}

	// Instance field y is per instance and widened to float.
	y, _ := a.GetField("y")
	if y.Kind() != KindFloat {
		t.Errorf("y kind = %s, want float", y.Kind())
	}
}

func TestStaticInitializersRunLazilyOnce(t *testing.T) {
	vm, _ := newTestVM(t)
	mustLoad(t, vm, staticsProgram())
	c := vm.Classes.Lookup("DirectoryReader")

	// Before first access the storage holds the declared default.
	raw, _ := c.GetStatic("x")
	if f, _ := raw.AsFloat(); f != 0 {
		t.Errorf("x before first access = %v, want 0", raw)
	}

	doubled, err := vm.GetStatic(c, "doubled")
	if err != nil {
		t.Fatalf("GetStatic(doubled): %v", err)
	}
	if f, _ := doubled.AsFloat(); f != 400 {
		t.Errorf("doubled = %v, want 400 (initializer sees earlier static)", doubled)
	}

	if err := vm.SetStatic(c, "x", Int(7)); err != nil {
		t.Fatalf("SetStatic: %v", err)
	}
	// A second access must not rerun the initializers.
	x, _ := vm.GetStatic(c, "x")
	if f, _ := x.AsFloat(); f != 7 {
		t.Errorf("x = %v, want 7", x)
	}
}

func TestStaticInitializationConcurrent(t *testing.T) {
	vm, _ := newTestVM(t)
	mustLoad(t, vm, staticsProgram())
	c := vm.Classes.Lookup("DirectoryReader")

	var wg sync.WaitGroup
	results := make([]Value, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = vm.GetStatic(c, "doubled")
		}(i)
	}
	wg.Wait()

	for i, v := range results {
		if f, _ := v.AsFloat(); f != 400 {
			t.Errorf("goroutine %d saw doubled = %v, want 400", i, v)
		}
	}
}

func TestUnknownStaticField(t *testing.T) {
	vm, _ := newTestVM(t)
	mustLoad(t, vm, staticsProgram())
	_, err := vm.GetStatic(vm.Classes.Lookup("DirectoryReader"), "nope")
	if !errors.Is(err, ErrUnresolvedField) {
		t.Errorf("GetStatic(nope) error = %v, want UnresolvedField", err)
	}
}

// ---------------------------------------------------------------------------
// ClassTable
// ---------------------------------------------------------------------------

func TestClassTable(t *testing.T) {
	ct := NewClassTable()
	st := NewSelectorTable()
	b, _ := buildClass(&ast.Class{Name: "B"}, nil, st)
	a, _ := buildClass(&ast.Class{Name: "A"}, nil, st)

	if err := ct.Register(b); err != nil {
		t.Fatalf("Register(B): %v", err)
	}
	if err := ct.Register(a); err != nil {
		t.Fatalf("Register(A): %v", err)
	}
	if err := ct.Register(a); !errors.Is(err, ErrDuplicateClass) {
		t.Errorf("second Register(A) = %v, want DuplicateClass", err)
	}
	if ct.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ct.Len())
	}
	all := ct.All()
	if all[0].Name != "A" || all[1].Name != "B" {
		t.Errorf("All() = [%s %s], want sorted [A B]", all[0].Name, all[1].Name)
	}
}

func TestClassTableConcurrentAccess(t *testing.T) {
	ct := NewClassTable()
	st := NewSelectorTable()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c, _ := buildClass(&ast.Class{Name: "C" + string(rune('A'+i%26)) + string(rune('a'+i/26))}, nil, st)
			ct.Register(c)
		}(i)
		go func() {
			defer wg.Done()
			ct.Lookup("CAa")
			ct.All()
		}()
	}
	wg.Wait()

	if ct.Len() != 50 {
		t.Errorf("Len() = %d, want 50", ct.Len())
	}
}

func crossStaticsProgram() *ast.Program {
	return &ast.Program{Classes: []*ast.Class{
		{Name: "A", Fields: []ast.Field{{Name: "a", Type: "int", Static: true, Init: ast.Member(ast.Ident("B"), "b")}}},
		{Name: "B", Fields: []ast.Field{{Name: "b", Type: "int", Static: true, Init: ast.Member(ast.Ident("A"), "a")}}},
	}}
}

// beginInit marks c as being initialized by in, as initStatics does.
func beginInit(vm *VM, c *Class, in *Interpreter) {
	vm.initMu.Lock()
	c.initBy = in
	c.initReady = make(chan struct{})
	vm.initMu.Unlock()
}

func TestStaticInitCycleAcrossThreads(t *testing.T) {
	vm, _ := newTestVM(t)
	mustLoad(t, vm, crossStaticsProgram())
	a, b := vm.Classes.Lookup("A"), vm.Classes.Lookup("B")

	// first is initializing A and blocked on B; second is initializing B.
	first, second := vm.newInterpreter(), vm.newInterpreter()
	beginInit(vm, a, first)
	beginInit(vm, b, second)
	vm.initMu.Lock()
	vm.initWaits[first] = b
	vm.initMu.Unlock()

	if err := second.initStatics(a); !errors.Is(err, ErrStaticInitCycle) {
		t.Errorf("initStatics(A) error = %v, want StaticInitCycle", err)
	}
	vm.initMu.Lock()
	defer vm.initMu.Unlock()
	if _, waiting := vm.initWaits[second]; waiting {
		t.Error("a refused wait should not be recorded")
	}
}

func TestStaticInitWaitsForOtherThread(t *testing.T) {
	vm, _ := newTestVM(t)
	mustLoad(t, vm, staticsProgram())
	c := vm.Classes.Lookup("DirectoryReader")

	owner, waiter := vm.newInterpreter(), vm.newInterpreter()
	beginInit(vm, c, owner)

	done := make(chan error)
	go func() { done <- waiter.initStatics(c) }()

	vm.initMu.Lock()
	c.initDone = true
	c.initBy = nil
	close(c.initReady)
	vm.initMu.Unlock()

	if err := <-done; err != nil {
		t.Errorf("initStatics after the owner finished = %v, want nil", err)
	}
	vm.initMu.Lock()
	defer vm.initMu.Unlock()
	if len(vm.initWaits) != 0 {
		t.Errorf("initWaits = %v, want empty", vm.initWaits)
	}
}

func TestStaticInitSelfReferenceOneThread(t *testing.T) {
	vm, _ := newTestVM(t)
	mustLoad(t, vm, crossStaticsProgram())

	v, err := vm.GetStatic(vm.Classes.Lookup("A"), "a")
	if err != nil {
		t.Fatalf("GetStatic(A.a) error = %v", err)
	}
	if !Equal(v, Int(0)) {
		t.Errorf("A.a = %v, want 0 (B.b read while A is still initializing)", v)
	}
}
