package vm

import (
	"sync"
	"sync/atomic"
)

// SelectorTable interns method names to dense numeric IDs, which index
// every VTable.
//
// Names are interned while classes and functions are defined; after that
// the table is only read, by every thread that dispatches. Readers load an
// immutable snapshot without locking. Writers copy the snapshot under mu
// and publish the copy.
type SelectorTable struct {
	mu      sync.Mutex
	current atomic.Pointer[map[string]int]
}

// NewSelectorTable creates an empty selector table.
func NewSelectorTable() *SelectorTable {
	st := &SelectorTable{}
	empty := map[string]int{}
	st.current.Store(&empty)
	return st
}

// Lookup returns the ID for a method name, or -1 if it was never interned.
// A name nobody declared cannot resolve anywhere.
func (st *SelectorTable) Lookup(name string) int {
	if id, ok := (*st.current.Load())[name]; ok {
		return id
	}
	return -1
}

// Intern returns the ID for a method name, assigning the next one if needed.
func (st *SelectorTable) Intern(name string) int {
	if id := st.Lookup(name); id >= 0 {
		return id
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	old := *st.current.Load()
	if id, ok := old[name]; ok {
		return id
	}
	next := make(map[string]int, len(old)+1)
	for n, id := range old {
		next[n] = id
	}
	id := len(old)
	next[name] = id
	st.current.Store(&next)
	return id
}
