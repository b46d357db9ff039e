package server

import (
	"context"
	"fmt"
	"sync"
)

// runRequest represents a unit of work to be executed by a runner goroutine.
type runRequest struct {
	fn   func() (any, error)
	done chan runResult
}

// runResult holds the return value from a run.
type runResult struct {
	value any
	err   error
}

// Runner bounds how many programs execute at once. Every run gets its own
// VM, so runs never share interpreter state; the pool only caps load.
type Runner struct {
	requests chan runRequest
	quit     chan struct{}
	wg       sync.WaitGroup
	stop     sync.Once
}

// NewRunner creates a Runner and starts n processing goroutines.
func NewRunner(n int) *Runner {
	if n < 1 {
		n = 1
	}
	r := &Runner{
		requests: make(chan runRequest, 64),
		quit:     make(chan struct{}),
	}
	r.wg.Add(n)
	for range n {
		go r.loop()
	}
	return r
}

// loop processes requests sequentially on a dedicated goroutine.
func (r *Runner) loop() {
	defer r.wg.Done()
	for {
		select {
		case req := <-r.requests:
			req.done <- r.execute(req.fn)
		case <-r.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (r *Runner) execute(fn func() (any, error)) (result runResult) {
	defer func() {
		if p := recover(); p != nil {
			result.err = fmt.Errorf("run panicked: %v", p)
		}
	}()
	result.value, result.err = fn()
	return result
}

// Do submits fn and blocks until it completes or ctx is done. A run that
// has started keeps going after ctx is cancelled; its result is dropped.
func (r *Runner) Do(ctx context.Context, fn func() (any, error)) (any, error) {
	req := runRequest{
		fn:   fn,
		done: make(chan runResult, 1),
	}
	select {
	case r.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.quit:
		return nil, fmt.Errorf("runner stopped")
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts down the runner goroutines once their current runs finish.
func (r *Runner) Stop() {
	r.stop.Do(func() { close(r.quit) })
	r.wg.Wait()
}
