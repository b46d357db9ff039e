package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/xrt/pkg/ast"
)

// ---------------------------------------------------------------------------
// Interpreter: executes method bodies
// ---------------------------------------------------------------------------

// Interpreter walks method bodies on one goroutine. The main path and every
// spawned thread each get their own; they share the VM's tables.
type Interpreter struct {
	vm    *VM
	depth int
}

// frame is the activation of one method body or initializer.
type frame struct {
	method *Method // nil for field initializers
	this   *Object // nil in free functions and static initializers
	scope  *scope
}

type variable struct {
	typ TypeSpec
	val Value
}

// scope is one block of local variables.
type scope struct {
	vars   map[string]*variable
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: make(map[string]*variable), parent: parent}
}

func (s *scope) lookup(name string) *variable {
	for current := s; current != nil; current = current.parent {
		if v, ok := current.vars[name]; ok {
			return v
		}
	}
	return nil
}

func (s *scope) declare(name string, typ TypeSpec, val Value) {
	s.vars[name] = &variable{typ: typ, val: typ.Coerce(val)}
}

// where describes the frame and location for error reports.
func (fr *frame) where(loc ast.Location) string {
	name := "<init>"
	if fr.method != nil {
		name = fr.method.QualifiedName()
	}
	if loc.Line == 0 {
		return name
	}
	return name + " " + loc.String()
}

// annotate records where a runtime error was raised, once.
func annotate(err error, fr *frame, loc ast.Location) error {
	var e *Error
	if errors.As(err, &e) && e.Where == "" {
		e.Where = fr.where(loc)
	}
	return err
}

// ---------------------------------------------------------------------------
// Invocation
// ---------------------------------------------------------------------------

// invoke runs a method (or free function when this is nil) with arguments.
func (in *Interpreter) invoke(m *Method, this *Object, args []Value) (Value, error) {
	if len(args) != len(m.Params) {
		return Null, newError(ArityMismatch, "%s takes %d arguments, got %d", m.QualifiedName(), len(m.Params), len(args))
	}
	in.depth++
	defer func() { in.depth-- }()
	if in.depth > in.vm.maxDepth {
		return Null, newError(StackOverflow, "call depth exceeded %d in %s", in.vm.maxDepth, m.QualifiedName())
	}

	fr := &frame{method: m, this: this, scope: newScope(nil)}
	for i, p := range m.Params {
		fr.scope.declare(p.Name, p.Type, args[i])
	}

	flow, result, err := in.execBlock(fr, m.Body())
	if err != nil {
		return Null, err
	}
	if flow != flowReturn {
		return Null, nil
	}
	return m.Returns.Coerce(result), nil
}

// instantiate allocates an instance, runs the instance field initializers
// root to leaf, then the constructor if the class resolves one.
func (in *Interpreter) instantiate(c *Class, args []Value) (*Object, error) {
	obj := newObject(c)

	chain := append([]*Class{c}, c.Superclasses()...)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].Fields {
			if f.Init == nil {
				continue
			}
			fr := &frame{this: obj, scope: newScope(nil)}
			v, err := in.eval(fr, f.Init)
			if err != nil {
				return nil, fmt.Errorf("initializing %s.%s: %w", f.Owner.Name, f.Name, err)
			}
			obj.SetSlot(f.Slot, f.Type.Coerce(v))
		}
	}

	ctor := c.LookupMethod(in.vm.Selectors, c.Name)
	if ctor == nil {
		if len(args) > 0 {
			return nil, newError(ArityMismatch, "%s has no constructor but got %d arguments", c.Name, len(args))
		}
		return obj, nil
	}
	if _, err := in.invoke(ctor, obj, args); err != nil {
		return nil, err
	}
	return obj, nil
}

// ---------------------------------------------------------------------------
// Static initialization
// ---------------------------------------------------------------------------

// touchStatic makes sure the class declaring a static field has run its
// static initializers.
func (in *Interpreter) touchStatic(c *Class, name string) error {
	f := c.LookupStatic(name)
	if f == nil {
		return newError(UnresolvedField, "%s has no static field %q", c.Name, name)
	}
	return in.initStatics(f.Owner)
}

// initStatics runs a class's static initializers once, on first use.
// Initializers that read their own class's statics see the values
// assigned so far; other threads wait until initialization finishes.
// A thread never waits on an initialization that is itself waiting, directly
// or through other threads, on one this thread is running.
func (in *Interpreter) initStatics(c *Class) error {
	vm := in.vm
	vm.initMu.Lock()
	switch {
	case c.initDone:
		err := c.initErr
		vm.initMu.Unlock()
		return err
	case c.initBy == in:
		vm.initMu.Unlock()
		return nil
	case c.initBy != nil:
		if vm.waitsOn(c.initBy, in) {
			vm.initMu.Unlock()
			return newError(StaticInitCycle, "statics of %s depend on an initialization this thread is running", c.Name)
		}
		ready := c.initReady
		vm.initWaits[in] = c
		vm.initMu.Unlock()
		<-ready

		vm.initMu.Lock()
		delete(vm.initWaits, in)
		err := c.initErr
		vm.initMu.Unlock()
		return err
	}
	c.initBy = in
	c.initReady = make(chan struct{})
	vm.initMu.Unlock()

	var err error
	for _, f := range c.Statics {
		if f.Init == nil {
			continue
		}
		fr := &frame{scope: newScope(nil)}
		var v Value
		if v, err = in.eval(fr, f.Init); err != nil {
			err = fmt.Errorf("initializing %s.%s: %w", c.Name, f.Name, err)
			break
		}
		if err = c.SetStatic(f.Name, v); err != nil {
			break
		}
	}

	vm.initMu.Lock()
	c.initErr = err
	c.initDone = true
	c.initBy = nil
	close(c.initReady)
	vm.initMu.Unlock()

	if err == nil && len(c.Statics) > 0 {
		vm.log.Debugf("initialized statics of %s", c.Name)
	}
	return err
}

// waitsOn reports whether owner, following the chain of static
// initializations it is blocked on, ends up waiting for target. Callers
// hold vm.initMu.
func (vm *VM) waitsOn(owner, target *Interpreter) bool {
	for owner != nil {
		if owner == target {
			return true
		}
		c, ok := vm.initWaits[owner]
		if !ok {
			return false
		}
		owner = c.initBy
	}
	return false
}
