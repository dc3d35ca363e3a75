package simulation

import (
	"github.com/okian/piggybank/internal/domain/emission"
	"github.com/okian/piggybank/pkg/logger"
)

// Option configures a World.
type Option func(*World)

// WithScheduler sets the emission scheduler.
func WithScheduler(s *emission.Scheduler) Option {
	return func(w *World) {
		if s != nil {
			w.scheduler = s
		}
	}
}

// WithCollisionWindow bounds how many later coins each coin is checked against.
func WithCollisionWindow(n int) Option {
	return func(w *World) {
		if n >= 0 {
			w.window = n
		}
	}
}

// WithRenderer sets the frame renderer.
func WithRenderer(r Renderer) Option {
	return func(w *World) {
		if r != nil {
			w.renderer = r
		}
	}
}

// WithSink sets where emission events are published.
func WithSink(s Sink) Option {
	return func(w *World) {
		if s != nil {
			w.sink = s
		}
	}
}

// WithLogger sets the world logger.
func WithLogger(l logger.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.logger = l
		}
	}
}
