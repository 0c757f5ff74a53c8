package service

import (
	"go.uber.org/zap"

	"github.com/bizscreen/console/platform/go/requesttrace"
)

// NewWithCodeSource lets tests control the code generator.
func NewWithCodeSource(repo Repository, activity requesttrace.Recorder, logger *zap.Logger, next func() (string, error)) Service {
	svc := New(repo, activity, logger).(*service)
	svc.newCode = next
	return svc
}
