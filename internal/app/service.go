// Package service owns the running simulation and the pipeline that records
// its coins. It implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/piggybank/internal/adapters/audio"
	eventqueue "github.com/okian/piggybank/internal/adapters/mq/queue"
	workerpool "github.com/okian/piggybank/internal/adapters/mq/worker"
	repository "github.com/okian/piggybank/internal/adapters/repository"
	"github.com/okian/piggybank/internal/domain/collision"
	"github.com/okian/piggybank/internal/domain/dedupe"
	"github.com/okian/piggybank/internal/domain/emission"
	"github.com/okian/piggybank/internal/domain/model"
	"github.com/okian/piggybank/internal/domain/session"
	"github.com/okian/piggybank/internal/domain/simulation"
	"github.com/okian/piggybank/pkg/logger"
	"github.com/okian/piggybank/pkg/metrics"
)

const (
	inboxSize    = 64
	statsTimeout = time.Second
)

// Service implements the API dependencies for the piggy bank.
type Service struct {
	mu sync.RWMutex
	// startMu orders session starts with their ledger purge and dedupe reset.
	startMu sync.Mutex

	// Core components
	world    *simulation.World
	ledger   repository.Store
	queue    *eventqueue.InMemoryQueue
	pool     *workerpool.Pool
	player   *audio.Player
	renderer simulation.Renderer
	notifier workerpool.Notifier

	// Configuration
	width, height   int
	frameRate       int
	collisionWindow int
	firstDelay      time.Duration
	seed            int64
	workerCount     int
	queueSize       int
	dedupeSize      int
	ledgerDSN       string
	audioEnabled    bool
	audioVolume     float64
	clock           func() time.Time

	// State
	started   bool
	sessionID string
	inbox     chan func(now time.Time)
	quit      chan struct{}
	done      chan struct{}
	cancel    context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSceneSize sets the initial scene size.
func WithSceneSize(width, height int) Option {
	return func(s *Service) {
		if width > 0 && height > 0 {
			s.width, s.height = width, height
		}
	}
}

// WithFrameRate sets the number of simulation steps per second.
func WithFrameRate(fps int) Option {
	return func(s *Service) {
		if fps > 0 {
			s.frameRate = fps
		}
	}
}

// WithCollisionWindow bounds the collision partners checked per coin.
func WithCollisionWindow(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.collisionWindow = n
		}
	}
}

// WithFirstDropDelay holds back the first coin of each session.
func WithFirstDropDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.firstDelay = d
		}
	}
}

// WithSeed fixes the random source. Zero seeds from the clock.
func WithSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithWorkerCount sets the number of ledger workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the emission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many emission IDs the workers remember.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLedgerDSN sets the SQLite database backing the ledger.
func WithLedgerDSN(dsn string) Option {
	return func(s *Service) {
		if dsn != "" {
			s.ledgerDSN = dsn
		}
	}
}

// WithAudio enables the speaker chime at volume.
func WithAudio(enabled bool, volume float64) Option {
	return func(s *Service) {
		s.audioEnabled = enabled
		if volume >= 0 && volume <= 1 {
			s.audioVolume = volume
		}
	}
}

// WithRenderer draws every frame. The renderer is called from the simulation
// goroutine.
func WithRenderer(r simulation.Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithNotifier is told about every recorded emission. It replaces the speaker.
func WithNotifier(n workerpool.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock replaces time.Now for the simulation.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.clock = fn
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		width:           800,
		height:          600,
		frameRate:       60,
		collisionWindow: collision.DefaultWindow,
		firstDelay:      emission.DefaultFirstDelay,
		workerCount:     2,
		queueSize:       1024,
		dedupeSize:      dedupe.DefaultMaxSize,
		ledgerDSN:       repository.MemoryDSN,
		audioVolume:     0.5,
		clock:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the ledger, starts the workers and runs the frame loop until
// Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting piggy bank service...")

	ledger, err := repository.Open(ctx, s.ledgerDSN)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}

	scheduler := emission.NewScheduler(
		emission.WithRandomSource(emission.NewSeededSource(s.seed)),
		emission.WithFirstDelay(s.firstDelay),
	)
	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	simOpts := []simulation.Option{
		simulation.WithScheduler(scheduler),
		simulation.WithCollisionWindow(s.collisionWindow),
		simulation.WithSink(q),
	}
	if s.renderer != nil {
		simOpts = append(simOpts, simulation.WithRenderer(s.renderer))
	}
	world, err := simulation.New(s.width, s.height, simOpts...)
	if err != nil {
		_ = ledger.Close()
		_ = q.Close()
		return fmt.Errorf("start: %w", err)
	}

	notifier := s.notifier
	if notifier == nil && s.audioEnabled {
		player, err := audio.NewPlayer(audio.WithVolume(s.audioVolume))
		if err != nil {
			// The simulation runs fine without sound.
			s.logger.Warn(ctx, "audio disabled", logger.Error(err))
		} else {
			s.player = player
			notifier = player
		}
	}

	poolOpts := []workerpool.Option{
		workerpool.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))),
	}
	if notifier != nil {
		poolOpts = append(poolOpts, workerpool.WithNotifier(notifier))
	}
	s.pool = workerpool.NewPool(s.workerCount, q, ledger, poolOpts...)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.pool.Start(runCtx)

	s.ledger = ledger
	s.queue = q
	s.world = world
	s.cancel = cancel
	s.inbox = make(chan func(time.Time), inboxSize)
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(runCtx)

	s.started = true
	s.logger.Info(ctx, "piggy bank service started",
		logger.Int("width", s.width),
		logger.Int("height", s.height),
		logger.Int("frameRate", s.frameRate),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("audio", notifier != nil),
	)

	return nil
}

// run owns the world. Commands and frames never overlap.
func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(time.Second / time.Duration(s.frameRate))
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case cmd := <-s.inbox:
			cmd(s.clock())
		case <-ticker.C:
			s.world.Step(ctx, s.clock())
		}
	}
}

// do runs fn on the simulation goroutine and waits for it.
func (s *Service) do(ctx context.Context, fn func(now time.Time)) error {
	s.mu.RLock()
	started, inbox, quit := s.started, s.inbox, s.quit
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	finished := make(chan struct{})
	cmd := func(now time.Time) {
		fn(now)
		close(finished)
	}

	select {
	case inbox <- cmd:
	case <-quit:
		return ErrNotStarted
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-quit:
		return ErrNotStarted
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop halts the frame loop, drains the queue into the ledger and closes it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping piggy bank service...")

	close(s.quit)
	<-s.done

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	s.cancel()

	if s.player != nil {
		s.player.Close()
		s.player = nil
	}

	if err := s.ledger.Close(); err != nil {
		s.logger.Error(ctx, "ledger close failed", logger.Error(err))
	}

	s.started = false
	s.sessionID = ""
	s.logger.Info(ctx, "piggy bank service stopped")
}

// StartSession validates wageInput and starts a new session. An invalid wage
// leaves the running session untouched.
func (s *Service) StartSession(ctx context.Context, wageInput string) (session.Info, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	var (
		info   session.Info
		runErr error
	)
	if err := s.do(ctx, func(now time.Time) {
		info, runErr = s.world.StartSession(ctx, wageInput, now)
	}); err != nil {
		return session.Info{}, err
	}
	if runErr != nil {
		return session.Info{}, runErr
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return session.Info{}, ErrNotStarted
	}
	s.sessionID = info.ID
	ledger, pool := s.ledger, s.pool
	s.mu.Unlock()

	pool.Deduper().Reset(ctx)
	if n, err := ledger.PurgeExcept(ctx, info.ID); err != nil {
		s.logger.Error(ctx, "purge previous session failed", logger.Error(err))
	} else if n > 0 {
		s.logger.Debug(ctx, "purged previous session", logger.Int("rows", int(n)))
	}
	return info, nil
}

// Resize changes the scene size.
func (s *Service) Resize(ctx context.Context, width, height int) error {
	var runErr error
	if err := s.do(ctx, func(time.Time) {
		runErr = s.world.Resize(ctx, width, height)
	}); err != nil {
		return err
	}
	return runErr
}

// ToggleOverlay flips the stats overlay. It returns ErrNoSession when no
// session is running.
func (s *Service) ToggleOverlay(ctx context.Context) (bool, error) {
	var visible, active bool
	if err := s.do(ctx, func(time.Time) {
		visible, active = s.world.ToggleOverlay()
	}); err != nil {
		return false, err
	}
	if !active {
		return visible, ErrNoSession
	}
	return visible, nil
}

// Snapshot copies the current world state.
func (s *Service) Snapshot(ctx context.Context) (simulation.Snapshot, error) {
	var snap simulation.Snapshot
	err := s.do(ctx, func(now time.Time) {
		snap = s.world.Snapshot(now)
	})
	return snap, err
}

// Breakdown tallies the active session's recorded coins per denomination.
func (s *Service) Breakdown(ctx context.Context) ([]model.Tally, error) {
	ledger, id, err := s.activeLedger()
	if err != nil {
		return nil, err
	}
	return ledger.Breakdown(ctx, id)
}

// Recent returns the active session's latest recorded coins.
func (s *Service) Recent(ctx context.Context, limit int) ([]model.Emission, error) {
	ledger, id, err := s.activeLedger()
	if err != nil {
		return nil, err
	}
	return ledger.Recent(ctx, id, limit)
}

func (s *Service) activeLedger() (repository.Store, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, "", ErrNotStarted
	}
	if s.sessionID == "" {
		return nil, "", ErrNoSession
	}
	return s.ledger, s.sessionID, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"frameRate":   s.frameRate,
	}
	started, q, pool, ledger, id := s.started, s.queue, s.pool, s.ledger, s.sessionID
	s.mu.RUnlock()

	if !started {
		return stats
	}

	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	queueLen := q.Len(ctx)
	stats["queueLength"] = queueLen
	stats["processed"] = pool.Processed()
	stats["dedupeEntries"] = pool.Deduper().Size()
	metrics.UpdateQueueSize(queueLen, s.queueSize)

	var world simulation.Stats
	var coins int
	if err := s.do(ctx, func(time.Time) {
		world = s.world.Stats()
		coins = s.world.Coins()
	}); err == nil {
		stats["frames"] = world.Frames
		stats["coins"] = coins
		stats["emitted"] = world.Emitted
		stats["dropped"] = world.Dropped
		stats["contacts"] = world.Contacts
		stats["imprints"] = world.Imprints
		stats["sessions"] = world.Sessions
		stats["rejections"] = world.Rejections
	}

	if id != "" {
		stats["sessionId"] = id
		if n, err := ledger.Count(ctx, id); err == nil {
			stats["recorded"] = n
		}
	}

	return stats
}
