package pagestate

import (
	"errors"

	"go.uber.org/zap"
)

// ErrRenderFailed is returned by Boundary when building a view panicked.
var ErrRenderFailed = errors.New("view failed to render")

// Boundary runs build and converts a panic into ErrRenderFailed so the page can show a fallback.
func Boundary[T any](logger *zap.Logger, build func() (T, error)) (view T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("view panicked", zap.Any("panic", rec), zap.Stack("stack"))
			var zero T
			view, err = zero, ErrRenderFailed
		}
	}()
	return build()
}
