package vm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/chazu/xrt/pkg/ast"
)

// ---------------------------------------------------------------------------
// Builtin Bridge
// ---------------------------------------------------------------------------

// Printer is the formatted-output service behind io.printf. The runtime
// never formats; it hands the template and host values to the printer.
type Printer interface {
	Printf(format string, args ...any) error
}

// BuiltinFunc implements a builtin call target.
type BuiltinFunc func(args []Value) (Value, error)

// Builtin is a named, arity-checked call target.
type Builtin struct {
	Namespace string
	Name      string
	MinArgs   int
	MaxArgs   int // -1 for variadic
	Fn        BuiltinFunc
}

// QualifiedName returns namespace.name.
func (b *Builtin) QualifiedName() string { return b.Namespace + "." + b.Name }

func (b *Builtin) checkArity(n int) error {
	if n < b.MinArgs || (b.MaxArgs >= 0 && n > b.MaxArgs) {
		want := fmt.Sprintf("%d", b.MinArgs)
		switch {
		case b.MaxArgs < 0:
			want = fmt.Sprintf("at least %d", b.MinArgs)
		case b.MaxArgs != b.MinArgs:
			want = fmt.Sprintf("%d to %d", b.MinArgs, b.MaxArgs)
		}
		return newError(ArityMismatch, "%s takes %s arguments, got %d", b.QualifiedName(), want, n)
	}
	return nil
}

// Bridge routes calls on builtin namespaces to their targets. A namespace
// is callable only after the program imports it.
type Bridge struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]*Builtin
	imported   map[string]bool
}

// NewBridge creates a bridge with no namespaces.
func NewBridge() *Bridge {
	return &Bridge{
		namespaces: make(map[string]map[string]*Builtin),
		imported:   make(map[string]bool),
	}
}

// AddNamespace declares a namespace, possibly without targets.
func (br *Bridge) AddNamespace(ns string) {
	br.mu.Lock()
	defer br.mu.Unlock()
	if br.namespaces[ns] == nil {
		br.namespaces[ns] = make(map[string]*Builtin)
	}
}

// Register installs a call target, declaring its namespace if needed.
func (br *Bridge) Register(b *Builtin) {
	br.AddNamespace(b.Namespace)
	br.mu.Lock()
	br.namespaces[b.Namespace][b.Name] = b
	br.mu.Unlock()
}

// HasNamespace reports whether a namespace exists, imported or not.
func (br *Bridge) HasNamespace(ns string) bool {
	br.mu.RLock()
	defer br.mu.RUnlock()
	return br.namespaces[ns] != nil
}

// Import brings a namespace into scope. Only the builtin source exists.
func (br *Bridge) Import(name, source string) error {
	if source != ast.BuiltinSource {
		return newError(UnknownBuiltin, "cannot import %s from %q", name, source)
	}
	br.mu.Lock()
	defer br.mu.Unlock()
	if br.namespaces[name] == nil {
		return newError(UnknownBuiltin, "no builtin namespace %q", name)
	}
	br.imported[name] = true
	return nil
}

// IsImported reports whether a namespace was imported.
func (br *Bridge) IsImported(ns string) bool {
	br.mu.RLock()
	defer br.mu.RUnlock()
	return br.imported[ns]
}

// Lookup finds a call target on an imported namespace.
func (br *Bridge) Lookup(ns, name string) (*Builtin, error) {
	br.mu.RLock()
	defer br.mu.RUnlock()

	targets := br.namespaces[ns]
	if targets == nil {
		return nil, newError(UnknownBuiltin, "no builtin namespace %q", ns)
	}
	if !br.imported[ns] {
		return nil, newError(UnknownBuiltin, "builtin namespace %q is not imported", ns)
	}
	b := targets[name]
	if b == nil {
		return nil, newError(UnknownBuiltin, "no builtin %s.%s", ns, name)
	}
	return b, nil
}

// Call invokes ns.name with arity checking.
func (br *Bridge) Call(ns, name string, args []Value) (Value, error) {
	b, err := br.Lookup(ns, name)
	if err != nil {
		return Null, err
	}
	if err := b.checkArity(len(args)); err != nil {
		return Null, err
	}
	return b.Fn(args)
}

// Namespaces returns the declared namespace names, sorted.
func (br *Bridge) Namespaces() []string {
	br.mu.RLock()
	defer br.mu.RUnlock()
	names := make([]string, 0, len(br.namespaces))
	for ns := range br.namespaces {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// Targets returns the call targets of a namespace, sorted by name.
func (br *Bridge) Targets(ns string) []*Builtin {
	br.mu.RLock()
	defer br.mu.RUnlock()
	result := make([]*Builtin, 0, len(br.namespaces[ns]))
	for _, b := range br.namespaces[ns] {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// ---------------------------------------------------------------------------
// The io, array and types namespaces
// ---------------------------------------------------------------------------

func (vm *VM) registerBuiltins() {
	vm.Bridge.Register(&Builtin{
		Namespace: "io",
		Name:      "printf",
		MinArgs:   1,
		MaxArgs:   -1,
		Fn:        vm.builtinPrintf,
	})
	vm.Bridge.Register(&Builtin{
		Namespace: "array",
		Name:      "create",
		MinArgs:   2,
		MaxArgs:   -1,
		Fn:        builtinArrayCreate,
	})
	// types is importable but has no call targets.
	vm.Bridge.AddNamespace("types")
}

func (vm *VM) builtinPrintf(args []Value) (Value, error) {
	format, ok := args[0].AsString()
	if !ok {
		return Null, newError(TypeMismatch, "io.printf format must be a string, got %s", args[0].TypeName())
	}
	host := make([]any, len(args)-1)
	for i, a := range args[1:] {
		host[i] = HostValue(a)
	}
	if err := vm.printer.Printf(format, host...); err != nil {
		return Null, fmt.Errorf("io.printf: %w", err)
	}
	return Null, nil
}

func builtinArrayCreate(args []Value) (Value, error) {
	elem, ok := ElementKindOf(args[0])
	if !ok {
		return Null, newError(TypeMismatch, "array.create element kind must be a class or primitive type, got %s", args[0].TypeName())
	}
	dims := make([]int, len(args)-1)
	for i, a := range args[1:] {
		n, ok := a.AsInt()
		if !ok {
			return Null, newError(TypeMismatch, "array.create dimension %d must be an int, got %s", i, a.TypeName())
		}
		dims[i] = int(n)
	}
	arr, err := NewArray(elem, dims)
	if err != nil {
		return Null, err
	}
	return ArrayValue(arr), nil
}

// HostValue converts a value into the Go value handed to host services:
// int64, float64, bool, string, nil, or the rendered reference.
func HostValue(v Value) any {
	switch v.Kind() {
	case KindNull:
		return nil
	case KindInt:
		n, _ := v.AsInt()
		return n
	case KindFloat:
		f, _ := v.AsFloat()
		return f
	case KindBool:
		b, _ := v.AsBool()
		return b
	case KindString:
		s, _ := v.AsString()
		return s
	}
	return v.String()
}
