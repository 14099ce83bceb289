package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ExitInterrupted is the exit code after SIGINT or SIGTERM.
const ExitInterrupted = 130

// SignalHandler cancels a context on the first SIGINT/SIGTERM and exits on
// the second.
type SignalHandler struct {
	ctx    context.Context
	cancel context.CancelFunc
	sigCh  chan os.Signal
	once   sync.Once

	mu          sync.Mutex
	interrupted bool
}

// NewSignalHandler creates a signal handler with a cancellable context.
func NewSignalHandler() *SignalHandler {
	ctx, cancel := context.WithCancel(context.Background())

	h := &SignalHandler{
		ctx:    ctx,
		cancel: cancel,
		sigCh:  make(chan os.Signal, 1),
	}

	signal.Notify(h.sigCh, syscall.SIGINT, syscall.SIGTERM)
	go h.watch()

	return h
}

// Context returns the handler's context, which is cancelled on shutdown.
func (h *SignalHandler) Context() context.Context {
	return h.ctx
}

// Interrupted reports whether shutdown came from a signal.
func (h *SignalHandler) Interrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}

// Shutdown cancels the context.
func (h *SignalHandler) Shutdown() {
	h.once.Do(h.cancel)
}

func (h *SignalHandler) watch() {
	done := h.ctx.Done()
	for {
		select {
		case <-h.sigCh:
			h.mu.Lock()
			again := h.interrupted
			h.interrupted = true
			h.mu.Unlock()

			if again {
				fmt.Fprintln(os.Stderr, "\nForce quit")
				os.Exit(ExitInterrupted)
			}
			fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up")
			h.Shutdown()
		case <-done:
			// Keep watching so a second signal can force the exit.
			if !h.Interrupted() {
				return
			}
			done = nil
		}
	}
}

// Stop stops watching for signals and cancels the context.
func (h *SignalHandler) Stop() {
	signal.Stop(h.sigCh)
	h.Shutdown()
}
