// Package pagestate implements the data lifecycle shared by console pages:
// a loading flag, a persistent error, manual retry, and last-request-wins
// cancellation for every data slice a page renders.
package pagestate

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrStale is returned when a newer request superseded this one; its result was discarded.
	ErrStale = errors.New("response superseded by a newer request")
	// ErrClosed is returned once the owning page has been closed.
	ErrClosed = errors.New("page closed")
	// ErrPanicked wraps a panic raised by a fetch function.
	ErrPanicked = errors.New("fetch panicked")
)

// State is a snapshot of one data slice.
type State[Q, T any] struct {
	Data    T
	Query   Q
	Loading bool
	// Err is the human-readable failure of the last load; empty on success.
	Err string
	// Loaded is set after the first successful load.
	Loaded bool
}

// FetchFunc performs the service calls for a query.
type FetchFunc[Q, T any] func(ctx context.Context, q Q) (T, error)

// Loader owns the State of one data slice. Each Load cancels the in-flight request and bumps a
// generation token; results carrying an older token are dropped, so the newest request always wins.
type Loader[Q, T any] struct {
	fetch    FetchFunc[Q, T]
	describe func(error) string

	lifetime context.Context
	closeFn  context.CancelFunc

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	state  State[Q, T]
}

// Option customises a Loader.
type Option func(*loaderOptions)

type loaderOptions struct {
	describe func(error) string
}

// WithErrorText overrides how failures are turned into the banner text.
func WithErrorText(fn func(error) string) Option {
	return func(o *loaderOptions) { o.describe = fn }
}

// NewLoader builds a Loader whose requests live at most as long as lifetime.
func NewLoader[Q, T any](lifetime context.Context, fetch FetchFunc[Q, T], opts ...Option) *Loader[Q, T] {
	if fetch == nil {
		panic("pagestate: fetch func is required")
	}
	o := loaderOptions{describe: Describe}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(lifetime)
	return &Loader[Q, T]{fetch: fetch, describe: o.describe, lifetime: ctx, closeFn: cancel}
}

// Load runs fetch for q. It returns ErrStale when a newer Load superseded it.
// Failures are recorded in State.Err and previous Data is kept.
func (l *Loader[Q, T]) Load(ctx context.Context, q Q) (State[Q, T], error) {
	gen, reqCtx, release, err := l.begin(ctx, q)
	if err != nil {
		return l.State(), err
	}
	defer release()

	data, fetchErr := l.run(reqCtx, q)

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen || l.lifetime.Err() != nil {
		return l.state, ErrStale
	}

	l.state.Loading = false
	l.cancel = nil

	if fetchErr != nil {
		// Caller walked away; keep the previous banner state.
		if errors.Is(fetchErr, context.Canceled) && ctx.Err() != nil {
			return l.state, fetchErr
		}
		l.state.Err = l.describe(fetchErr)
		return l.state, fetchErr
	}

	l.state.Data = data
	l.state.Err = ""
	l.state.Loaded = true
	return l.state, nil
}

func (l *Loader[Q, T]) begin(ctx context.Context, q Q) (uint64, context.Context, func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lifetime.Err() != nil {
		return 0, nil, nil, ErrClosed
	}

	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen

	reqCtx, cancel := context.WithCancel(l.lifetime)
	stop := context.AfterFunc(ctx, cancel)
	l.cancel = cancel
	l.state.Loading = true
	l.state.Query = q

	release := func() {
		stop()
		cancel()
		l.mu.Lock()
		// Only the newest request clears the flag; a superseded one leaves it to its successor.
		if gen == l.gen {
			l.state.Loading = false
		}
		l.mu.Unlock()
	}
	return gen, reqCtx, release, nil
}

func (l *Loader[Q, T]) run(ctx context.Context, q Q) (data T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, rec)
		}
	}()
	return l.fetch(ctx, q)
}

// Reload re-invokes the last query. It is the manual retry behind the error banner.
func (l *Loader[Q, T]) Reload(ctx context.Context) (State[Q, T], error) {
	return l.Load(ctx, l.State().Query)
}

// State returns a snapshot.
func (l *Loader[Q, T]) State() State[Q, T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Update applies fn to Data. Used to patch confirmed writes into the loaded list.
func (l *Loader[Q, T]) Update(fn func(T) T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Data = fn(l.state.Data)
}

// Close cancels in-flight requests; later results are discarded.
func (l *Loader[Q, T]) Close() {
	l.closeFn()
	l.mu.Lock()
	l.state.Loading = false
	l.cancel = nil
	l.mu.Unlock()
}
