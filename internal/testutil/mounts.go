package testutil

import "sync"

// FakeEnumerator returns a mount list controlled by the test.
type FakeEnumerator struct {
	mu    sync.Mutex
	paths []string
	err   error
	calls int
}

// NewFakeEnumerator returns an enumerator reporting paths.
func NewFakeEnumerator(paths ...string) *FakeEnumerator {
	return &FakeEnumerator{paths: paths}
}

// Set replaces the reported mount list and clears any error.
func (e *FakeEnumerator) Set(paths ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paths = paths
	e.err = nil
}

// Fail makes later List calls return err.
func (e *FakeEnumerator) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *FakeEnumerator) List() ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return append([]string(nil), e.paths...), nil
}

// Calls returns how many times List was called.
func (e *FakeEnumerator) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
