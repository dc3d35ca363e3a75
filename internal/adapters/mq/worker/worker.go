// Package worker drains emissions off the queue into the ledger and the chime.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/piggybank/internal/domain/dedupe"
	"github.com/okian/piggybank/internal/domain/model"
	"github.com/okian/piggybank/pkg/logger"
	"github.com/okian/piggybank/pkg/metrics"
)

const poolShutdownTimeout = 10 * time.Second

// Event abstracts what workers read off the queue.
type Event = model.Emission

// Recorder persists an emission.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Notifier announces a recorded emission. It must not block for long.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes emissions.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	notifier Notifier
	deduper  dedupe.Deduper
	name     string

	processed *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		recorder:  recorder,
		name:      "worker",
		processed: &atomic.Int64{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.deduper == nil {
		w.deduper = dedupe.NewInMemoryDeduper()
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, e); err != nil {
				w.logger.Error(ctx, "error processing emission", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns how many emissions this worker recorded.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: received by value from the channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if w.deduper.SeenAndRecord(ctx, e.ID) {
		metrics.RecordEmissionDuplicate()
		w.logger.Debug(ctx, "duplicate emission skipped", logger.String("emission_id", e.ID))
		return nil
	}

	if err := w.recorder.Record(ctx, e); err != nil {
		// Forget the id so a redelivery can succeed.
		w.deduper.Unrecord(ctx, e.ID)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "ledger_error")
		return fmt.Errorf("record emission %s: %w", e.ID, err)
	}
	w.processed.Add(1)

	if w.notifier != nil {
		w.notifier.Notify(ctx, e)
	}
	return nil
}

// Pool manages multiple workers sharing one queue, recorder and guard.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	deduper dedupe.Deduper
	logger  logger.Logger
}

// NewPool creates a worker pool. Options apply to every worker; a deduper is
// created and shared when none is given.
func NewPool(workerCount int, q Queue, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	// Resolve the shared guard before naming each worker.
	probe := &InMemoryWorker{}
	for _, opt := range opts {
		opt(probe)
	}
	shared := probe.deduper
	if shared == nil {
		shared = dedupe.NewInMemoryDeduper()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		deduper: shared,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{}, opts...)
		workerOpts = append(workerOpts, WithDeduper(shared), WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = NewInMemoryWorker(q, recorder, workerOpts...)
	}
	metrics.UpdateWorkerActiveCount(workerCount)
	return p
}

// Deduper returns the guard shared by the pool's workers.
func (p *Pool) Deduper() dedupe.Deduper { return p.deduper }

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of emissions recorded by all workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and lets the workers drain it. Workers still busy
// when ctx expires or the pool timeout passes are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-drainCtx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			stopCtx, stop := context.WithTimeout(context.Background(), time.Second)
			_ = w.Shutdown(stopCtx)
			stop()
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return nil
}
