// Package wizard provides the step machine and the sequential batch runner used by multi-step pages.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrFirstStep is returned by Back on the first step.
	ErrFirstStep = errors.New("already at the first step")
	// ErrLastStep is returned by Next on the last step.
	ErrLastStep = errors.New("already at the last step")
)

// Machine walks an ordered list of steps one at a time.
type Machine[S comparable] struct {
	mu    sync.Mutex
	steps []S
	pos   int
}

// NewMachine panics on an empty or duplicated step list.
func NewMachine[S comparable](steps ...S) *Machine[S] {
	if len(steps) == 0 {
		panic("wizard: at least one step is required")
	}
	seen := make(map[S]struct{}, len(steps))
	for _, s := range steps {
		if _, dup := seen[s]; dup {
			panic(fmt.Sprintf("wizard: duplicate step %v", s))
		}
		seen[s] = struct{}{}
	}
	return &Machine[S]{steps: append([]S(nil), steps...)}
}

// Current returns the active step.
func (m *Machine[S]) Current() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.steps[m.pos]
}

// Index returns the zero-based position of the active step.
func (m *Machine[S]) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

// IsLast reports whether the active step is the final one.
func (m *Machine[S]) IsLast() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos == len(m.steps)-1
}

// Next advances one step when valid returns nil. A nil valid always passes.
func (m *Machine[S]) Next(valid func() error) (S, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pos == len(m.steps)-1 {
		return m.steps[m.pos], ErrLastStep
	}
	if valid != nil {
		if err := valid(); err != nil {
			return m.steps[m.pos], err
		}
	}
	m.pos++
	return m.steps[m.pos], nil
}

// Back returns to the previous step.
func (m *Machine[S]) Back() (S, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pos == 0 {
		return m.steps[0], ErrFirstStep
	}
	m.pos--
	return m.steps[m.pos], nil
}

// Reset goes back to the first step.
func (m *Machine[S]) Reset() {
	m.mu.Lock()
	m.pos = 0
	m.mu.Unlock()
}

// Progress reports how far a sequential run got.
type Progress struct {
	Current int
	Total   int
}

// ItemError identifies which item stopped a run.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index+1, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// RunSequential calls fn for each item in order, one at a time. onProgress, if set, is called after
// every completed item. The run stops at the first failure or when ctx is done; results produced
// until then are returned alongside the error.
func RunSequential[I, R any](ctx context.Context, items []I, fn func(context.Context, I) (R, error), onProgress func(Progress)) ([]R, error) {
	results := make([]R, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return results, &ItemError{Index: i, Err: err}
		}
		r, err := fn(ctx, item)
		if err != nil {
			return results, &ItemError{Index: i, Err: err}
		}
		results = append(results, r)
		if onProgress != nil {
			onProgress(Progress{Current: i + 1, Total: len(items)})
		}
	}
	return results, nil
}
