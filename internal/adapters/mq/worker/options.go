package worker

import (
	"time"

	"github.com/gogobubbles/leadops/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithObserver registers an observer notified after every stored settlement.
func WithObserver(o Observer) Option {
	return func(w *InMemoryWorker) {
		if o != nil {
			w.observers = append(w.observers, o)
		}
	}
}

// WithOnFailure registers f to run for every event the worker failed to
// settle and store.
func WithOnFailure(f FailureFunc) Option {
	return func(w *InMemoryWorker) {
		if f != nil {
			w.onFailure = append(w.onFailure, f)
		}
	}
}

// WithClock overrides the settlement timestamp source.
func WithClock(now func() time.Time) Option {
	return func(w *InMemoryWorker) {
		if now != nil {
			w.now = now
		}
	}
}
