package vm

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Thread: a bound method running on its own goroutine
// ---------------------------------------------------------------------------

// ThreadState represents the state of a thread.
type ThreadState int32

const (
	ThreadRunning ThreadState = iota
	ThreadCompleted
	ThreadFailed
)

func (s ThreadState) String() string {
	switch s {
	case ThreadRunning:
		return "running"
	case ThreadCompleted:
		return "completed"
	case ThreadFailed:
		return "failed"
	}
	return fmt.Sprintf("ThreadState(%d)", int32(s))
}

// Thread is the handle of a spawned bound method. The handle keeps the
// receiver reachable until the thread finishes.
type Thread struct {
	id    uuid.UUID
	bound *BoundMethod
	state atomic.Int32 // ThreadState
	done  chan struct{}

	mu       sync.Mutex
	result   Value
	err      error
	started  time.Time
	finished time.Time
}

func newThread(bound *BoundMethod) *Thread {
	return &Thread{
		id:      uuid.New(),
		bound:   bound,
		done:    make(chan struct{}),
		started: time.Now(),
	}
}

// finish records the outcome. Joiners stay blocked until release.
func (t *Thread) finish(result Value, err error) {
	t.mu.Lock()
	t.result = result
	t.err = err
	t.finished = time.Now()
	if err != nil {
		t.state.Store(int32(ThreadFailed))
	} else {
		t.state.Store(int32(ThreadCompleted))
	}
	t.mu.Unlock()
}

func (t *Thread) release() { close(t.done) }

// ID returns the identity of the thread.
func (t *Thread) ID() uuid.UUID { return t.id }

// Method returns the bound method the thread runs.
func (t *Thread) Method() *BoundMethod { return t.bound }

// State returns the current state without blocking.
func (t *Thread) State() ThreadState { return ThreadState(t.state.Load()) }

// Done is closed once the thread has left the Running state.
func (t *Thread) Done() <-chan struct{} { return t.done }

// Err returns the failure reason of a Failed thread, nil otherwise.
func (t *Thread) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Started returns when the thread was spawned.
func (t *Thread) Started() time.Time { return t.started }

// Duration returns how long the thread ran, or has been running so far.
func (t *Thread) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished.IsZero() {
		return time.Since(t.started)
	}
	return t.finished.Sub(t.started)
}

// Join blocks until the thread finishes. It returns the method's result, or
// a ThreadPanicked error wrapping the failure. There is no timeout.
func (t *Thread) Join() (Value, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return Null, &Error{Kind: ThreadPanicked, Msg: t.String(), Err: t.err}
	}
	return t.result, nil
}

func (t *Thread) String() string {
	return "thread(" + t.bound.String() + ")"
}

// ---------------------------------------------------------------------------
// Spawning and implicit joins
// ---------------------------------------------------------------------------

// Spawn starts the bound method on a new goroutine with its own interpreter
// and returns its handle immediately. Only zero-argument methods can be
// spawned. Any failure, including a Go panic in the runtime, ends the
// thread in the Failed state and never reaches the spawning caller.
func (vm *VM) Spawn(bound *BoundMethod) (*Thread, error) {
	if bound == nil || bound.Receiver == nil {
		return nil, newError(NullReference, "cannot spawn a method of null")
	}
	if n := bound.Method.Arity(); n != 0 {
		return nil, newError(ArityMismatch, "cannot spawn %s: it takes %d arguments", bound.Method.QualifiedName(), n)
	}

	t := newThread(bound)
	vm.trackThread(t)
	vm.log.Debugf("spawned %s %s", t, t.id)
	if vm.observer != nil {
		vm.observer.ThreadStarted(t)
	}

	go func() {
		var (
			result Value
			err    error
		)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("runtime panic: %v", r)
			}
			t.finish(result, err)
			if err != nil {
				vm.log.Warningf("%s failed: %s", t, err)
			} else {
				vm.log.Debugf("%s completed in %s", t, t.Duration())
			}
			if vm.observer != nil {
				vm.observer.ThreadFinished(t)
			}
			t.release()
		}()

		result, err = vm.newInterpreter().invoke(bound.Method, bound.Receiver, nil)
	}()

	return t, nil
}

func (vm *VM) trackThread(t *Thread) {
	vm.threadMu.Lock()
	vm.threads = append(vm.threads, t)
	vm.threadMu.Unlock()
}

// Threads returns the handles spawned since the last JoinAll.
func (vm *VM) Threads() []*Thread {
	vm.threadMu.Lock()
	defer vm.threadMu.Unlock()
	return append([]*Thread(nil), vm.threads...)
}

// JoinAll waits for every outstanding thread, including threads spawned by
// other threads while it waits. Every failed thread is reported as a
// ThreadPanicked error; the errors are joined.
func (vm *VM) JoinAll() error {
	var errs []error
	for {
		vm.threadMu.Lock()
		pending := vm.threads
		vm.threads = nil
		vm.threadMu.Unlock()

		if len(pending) == 0 {
			return errors.Join(errs...)
		}
		for _, t := range pending {
			if _, err := t.Join(); err != nil {
				errs = append(errs, err)
			}
		}
	}
}
