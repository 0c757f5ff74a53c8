package pagestate

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bizscreen/console/platform/go/validation"
)

// Kind classifies a toast.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// DefaultToastTTL is how long a toast stays visible.
const DefaultToastTTL = 4 * time.Second

// Toast is a transient notification.
type Toast struct {
	Kind    Kind
	Message string
	TTL     time.Duration
}

func Success(msg string) Toast { return Toast{Kind: KindSuccess, Message: msg} }
func Info(msg string) Toast    { return Toast{Kind: KindInfo, Message: msg} }

// Failure builds an error toast prefixed with what was attempted.
func Failure(action string, err error) Toast {
	return Toast{Kind: KindError, Message: fmt.Sprintf("%s: %s", action, Describe(err))}
}

// Notifier receives toasts. Writes notify; loads do not.
type Notifier interface {
	Notify(Toast)
}

// Describe renders err for people. Field errors are listed by field.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		parts := make([]string, 0, len(vErr.Fields))
		for _, k := range vErr.Fields.Keys() {
			parts = append(parts, strings.Join(vErr.Fields[k], ", "))
		}
		return strings.Join(parts, "; ")
	}
	return err.Error()
}

type queued struct {
	Toast
	expires time.Time
}

// ToastQueue holds visible toasts and drops them once their TTL elapses.
type ToastQueue struct {
	mu    sync.Mutex
	now   func() time.Time
	items []queued
}

// NewToastQueue builds a queue; now may be nil for the wall clock.
func NewToastQueue(now func() time.Time) *ToastQueue {
	if now == nil {
		now = time.Now
	}
	return &ToastQueue{now: now}
}

func (q *ToastQueue) Notify(t Toast) {
	if t.TTL <= 0 {
		t.TTL = DefaultToastTTL
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, queued{Toast: t, expires: q.now().Add(t.TTL)})
}

// Active returns the toasts still visible, oldest first.
func (q *ToastQueue) Active() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	kept := q.items[:0]
	out := make([]Toast, 0, len(q.items))
	for _, it := range q.items {
		if now.Before(it.expires) {
			kept = append(kept, it)
			out = append(out, it.Toast)
		}
	}
	q.items = kept
	return out
}

// Recorder keeps every toast; handy for tests and audit views.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Notify(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

// Toasts returns a copy of what was recorded.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Last returns the latest toast, if any.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}

// LogNotifier writes toasts to a zap logger.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(t Toast) {
	switch t.Kind {
	case KindError:
		n.Logger.Warn("toast", zap.String("kind", string(t.Kind)), zap.String("message", t.Message))
	default:
		n.Logger.Info("toast", zap.String("kind", string(t.Kind)), zap.String("message", t.Message))
	}
}

// Fanout delivers each toast to every notifier.
type Fanout []Notifier

func (f Fanout) Notify(t Toast) {
	for _, n := range f {
		n.Notify(t)
	}
}
