package vm

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/xrt/builtin"
	"github.com/chazu/xrt/pkg/ast"
)

// DefaultMaxDepth is the default limit on nested method calls per thread.
const DefaultMaxDepth = 10000

// ---------------------------------------------------------------------------
// VM: the x-lang object runtime
// ---------------------------------------------------------------------------

// VM owns the defined classes, free functions, builtin bridge and the
// threads spawned by a program. Its tables are safe for concurrent use, so
// every spawned thread shares them through its own Interpreter.
type VM struct {
	Selectors *SelectorTable
	Classes   *ClassTable
	Bridge    *Bridge

	funcMu    sync.RWMutex
	functions map[string]*Method

	printer  Printer
	observer Observer
	log      commonlog.Logger
	maxDepth int

	threadMu sync.Mutex
	threads  []*Thread // spawned and not yet reaped by JoinAll

	initMu    sync.Mutex
	initWaits map[*Interpreter]*Class // interpreter -> class whose statics it waits for
}

// Observer is notified about thread lifecycle events. Callbacks run on the
// spawning goroutine (ThreadStarted) and on the thread's own goroutine
// (ThreadFinished), so implementations must be safe for concurrent use.
type Observer interface {
	ThreadStarted(t *Thread)
	ThreadFinished(t *Thread)
}

// Option configures a VM.
type Option func(*VM)

// WithPrinter sets the service behind io.printf.
func WithPrinter(p Printer) Option {
	return func(vm *VM) { vm.printer = p }
}

// WithObserver sets the thread lifecycle observer.
func WithObserver(o Observer) Option {
	return func(vm *VM) { vm.observer = o }
}

// WithLogger replaces the default "xrt.vm" logger.
func WithLogger(l commonlog.Logger) Option {
	return func(vm *VM) { vm.log = l }
}

// WithMaxDepth sets the call depth limit. Non-positive values keep the
// default.
func WithMaxDepth(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.maxDepth = n
		}
	}
}

// NewVM creates a VM with the io, array and types builtin namespaces
// registered. Output goes to stdout unless a printer is given.
func NewVM(opts ...Option) *VM {
	vm := &VM{
		Selectors: NewSelectorTable(),
		Classes:   NewClassTable(),
		Bridge:    NewBridge(),
		functions: make(map[string]*Method),
		initWaits: make(map[*Interpreter]*Class),
		log:       commonlog.GetLogger("xrt.vm"),
		maxDepth:  DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.printer == nil {
		vm.printer = builtin.NewStdoutPrinter(os.Stdout)
	}
	vm.registerBuiltins()
	return vm
}

// MaxDepth returns the call depth limit.
func (vm *VM) MaxDepth() int { return vm.maxDepth }

func (vm *VM) newInterpreter() *Interpreter {
	return &Interpreter{vm: vm}
}

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

// DefineClass registers a class. Its parent must already be defined.
func (vm *VM) DefineClass(decl *ast.Class) (*Class, error) {
	if vm.Classes.Has(decl.Name) {
		return nil, newError(DuplicateClass, "class %q is already defined", decl.Name)
	}
	var parent *Class
	if decl.Parent != "" {
		parent = vm.Classes.Lookup(decl.Parent)
		if parent == nil {
			return nil, newError(UnknownClass, "%s extends undefined class %q", decl.Name, decl.Parent)
		}
	}

	c, err := buildClass(decl, parent, vm.Selectors)
	if err != nil {
		return nil, err
	}
	if err := vm.Classes.Register(c); err != nil {
		return nil, err
	}
	vm.log.Debugf("defined class %s (%d slots, %d methods)", c.Name, c.NumSlots, len(c.Methods))
	return c, nil
}

// LookupClass finds a defined class.
func (vm *VM) LookupClass(name string) (*Class, error) {
	if c := vm.Classes.Lookup(name); c != nil {
		return c, nil
	}
	return nil, newError(UnknownClass, "no class %q", name)
}

// DefineFunction registers a free function.
func (vm *VM) DefineFunction(decl *ast.Method) (*Method, error) {
	vm.funcMu.Lock()
	defer vm.funcMu.Unlock()

	if _, exists := vm.functions[decl.Name]; exists {
		return nil, newError(DuplicateMethod, "function %q is already defined", decl.Name)
	}
	m := newMethod(nil, vm.Selectors.Intern(decl.Name), decl)
	vm.functions[decl.Name] = m
	return m, nil
}

// Function finds a free function, or nil.
func (vm *VM) Function(name string) *Method {
	vm.funcMu.RLock()
	defer vm.funcMu.RUnlock()
	return vm.functions[name]
}

// Functions returns every free function.
func (vm *VM) Functions() []*Method {
	vm.funcMu.RLock()
	defer vm.funcMu.RUnlock()
	result := make([]*Method, 0, len(vm.functions))
	for _, m := range vm.functions {
		result = append(result, m)
	}
	return result
}

// LoadProgram imports the program's builtin namespaces and defines its
// classes and free functions. Classes may appear in any order; each is
// defined after its parent.
func (vm *VM) LoadProgram(p *ast.Program) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid program: %w", err)
	}
	for _, imp := range p.Imports {
		if err := vm.Bridge.Import(imp.Name, imp.Source); err != nil {
			return err
		}
	}

	ordered, err := vm.orderClasses(p.Classes)
	if err != nil {
		return err
	}
	for _, decl := range ordered {
		if _, err := vm.DefineClass(decl); err != nil {
			return err
		}
	}
	for _, fn := range p.Functions {
		if _, err := vm.DefineFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

// orderClasses sorts declarations so that every parent precedes its
// children. Parents may also be classes the VM already knows.
func (vm *VM) orderClasses(decls []*ast.Class) ([]*ast.Class, error) {
	byName := make(map[string]*ast.Class, len(decls))
	for _, d := range decls {
		if _, dup := byName[d.Name]; dup {
			return nil, newError(DuplicateClass, "class %q is declared twice", d.Name)
		}
		byName[d.Name] = d
	}

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int, len(decls))
	ordered := make([]*ast.Class, 0, len(decls))

	var visit func(d *ast.Class) error
	visit = func(d *ast.Class) error {
		switch state[d.Name] {
		case visited:
			return nil
		case visiting:
			return newError(UnknownClass, "inheritance cycle through %q", d.Name)
		}
		state[d.Name] = visiting
		if parent, ok := byName[d.Parent]; ok {
			if err := visit(parent); err != nil {
				return err
			}
		}
		state[d.Name] = visited
		ordered = append(ordered, d)
		return nil
	}
	for _, d := range decls {
		if err := visit(d); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// ---------------------------------------------------------------------------
// Host API
// ---------------------------------------------------------------------------

// Instantiate creates an instance of c and runs its constructor with args.
func (vm *VM) Instantiate(c *Class, args []Value) (*Object, error) {
	return vm.newInterpreter().instantiate(c, args)
}

// Call invokes a free function.
func (vm *VM) Call(name string, args []Value) (Value, error) {
	m := vm.Function(name)
	if m == nil {
		return Null, newError(UnresolvedMethod, "no function %q", name)
	}
	return vm.newInterpreter().invoke(m, nil, args)
}

// GetStatic reads a static field, running the declaring class's static
// initializers first if this is its first static access.
func (vm *VM) GetStatic(c *Class, name string) (Value, error) {
	in := vm.newInterpreter()
	if err := in.touchStatic(c, name); err != nil {
		return Null, err
	}
	return c.GetStatic(name)
}

// SetStatic writes a static field, initializing the declaring class first.
func (vm *VM) SetStatic(c *Class, name string, v Value) error {
	in := vm.newInterpreter()
	if err := in.touchStatic(c, name); err != nil {
		return err
	}
	return c.SetStatic(name, v)
}

// ---------------------------------------------------------------------------
// Running programs
// ---------------------------------------------------------------------------

// Run loads a program, runs its entry and implicitly joins every thread.
// The exit code is the entry's integer result (0 otherwise), or 1 when
// loading or the entry fails or any thread failed.
func (vm *VM) Run(p *ast.Program) (int, error) {
	if err := vm.LoadProgram(p); err != nil {
		return 1, err
	}
	_, code, err := vm.Execute(p.EntryPoint())
	return code, err
}

// Execute runs an entry of an already loaded program and joins every thread.
// It returns the entry's result along with the exit code Run would report.
func (vm *VM) Execute(entry string) (Value, int, error) {
	result, runErr := vm.RunEntry(entry)
	joinErr := vm.JoinAll()

	if runErr != nil || joinErr != nil {
		return result, 1, errors.Join(runErr, joinErr)
	}
	if n, ok := result.AsInt(); ok {
		return result, int(n), nil
	}
	return result, 0, nil
}

// RunEntry runs an entry point: a free function name such as "main", or
// "Class.method", which instantiates Class with no arguments and calls
// method on the new instance. It does not join threads.
func (vm *VM) RunEntry(entry string) (Value, error) {
	className, method, ok := strings.Cut(entry, ".")
	if !ok {
		vm.log.Infof("running %s", entry)
		return vm.Call(entry, nil)
	}

	c, err := vm.LookupClass(className)
	if err != nil {
		return Null, err
	}
	vm.log.Infof("running %s", entry)
	obj, err := vm.Instantiate(c, nil)
	if err != nil {
		return Null, err
	}
	return vm.Send(ObjectValue(obj), method, nil)
}
