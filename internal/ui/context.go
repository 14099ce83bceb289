package ui

import (
	"context"
	"errors"
	"sync"
)

// ErrInterrupted is returned when a prompt is interrupted by Ctrl+C.
var ErrInterrupted = errors.New("interrupted")

var (
	globalCtx = context.Background()
	ctxMu     sync.RWMutex
)

// SetContext sets the context prompts and the selector watch for
// cancellation. main installs the signal handler's context here.
func SetContext(ctx context.Context) {
	ctxMu.Lock()
	defer ctxMu.Unlock()
	globalCtx = ctx
}

// GetContext returns the context set by SetContext.
func GetContext() context.Context {
	ctxMu.RLock()
	defer ctxMu.RUnlock()
	return globalCtx
}

// IsInterrupted reports whether the global context has been cancelled.
func IsInterrupted() bool {
	return GetContext().Err() != nil
}
