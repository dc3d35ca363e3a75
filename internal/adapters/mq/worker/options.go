package worker

import (
	"github.com/okian/piggybank/internal/domain/dedupe"
	"github.com/okian/piggybank/pkg/logger"
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

// WithDeduper shares an at-most-once guard between workers.
func WithDeduper(d dedupe.Deduper) Option {
	return func(w *InMemoryWorker) {
		if d != nil {
			w.deduper = d
		}
	}
}

// WithNotifier announces each recorded emission, e.g. with a chime.
func WithNotifier(n Notifier) Option {
	return func(w *InMemoryWorker) {
		if n != nil {
			w.notifier = n
		}
	}
}
