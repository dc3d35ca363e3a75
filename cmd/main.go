package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/okian/piggybank/internal/adapters/http/api"
	"github.com/okian/piggybank/internal/adapters/http/swagger"
	"github.com/okian/piggybank/internal/adapters/render/terminal"
	app "github.com/okian/piggybank/internal/app"
	"github.com/okian/piggybank/internal/config"
	"github.com/okian/piggybank/pkg/logger"
	"github.com/okian/piggybank/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
	maxRecentEmissions     = 100
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := setupLogging(ctx, cfg); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()
	loggerInstance := logger.Get()

	if err := registerRuntimeCollectors(metrics.GetRegistry()); err != nil {
		loggerInstance.Warn(ctx, "runtime collectors not registered", logger.Error(err))
	}

	opts := serviceOptions(cfg)

	// The terminal view replaces the configured scene size with the screen's.
	var (
		screen tcell.Screen
		view   *terminal.View
	)
	if cfg.TerminalEnabled {
		screen, view, err = openTerminal(cfg)
		if err != nil {
			os.Stderr.WriteString("failed to open terminal: " + err.Error() + "\n")
			return
		}
		defer screen.Fini()
		w, h := view.SceneSize(screen.Size())
		opts = append(opts, app.WithRenderer(view), app.WithSceneSize(w, h))
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	if cfg.Wage != "" {
		if _, err := svc.StartSession(ctx, cfg.Wage); err != nil {
			loggerInstance.Warn(ctx, "initial session not started", logger.String("wage", cfg.Wage), logger.Error(err))
		}
	}

	if screen != nil {
		go func() {
			terminal.Pump(ctx, screen, view, svc)
			stop()
		}()
	}

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal or terminal quit
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// setupLogging initializes the global logger for cfg. The terminal owns
// stdout, so without a log file terminal mode discards logs.
func setupLogging(ctx context.Context, cfg *config.Config) error {
	var opts []logger.Option
	switch {
	case cfg.LogFile != "":
		opts = append(opts, logger.WithFile(cfg.LogFile))
	case cfg.TerminalEnabled:
		opts = append(opts, logger.WithWriter(io.Discard))
	}
	if err := logger.Init(opts...); err != nil {
		return err
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// serviceOptions maps configuration onto service options.
func serviceOptions(cfg *config.Config) []app.Option {
	return []app.Option{
		app.WithLogger(logger.Get()),
		app.WithSceneSize(cfg.SceneWidth, cfg.SceneHeight),
		app.WithFrameRate(cfg.FrameRate),
		app.WithCollisionWindow(cfg.CollisionWindow),
		app.WithFirstDropDelay(cfg.FirstDropDelay()),
		app.WithSeed(cfg.Seed),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithLedgerDSN(cfg.LedgerDSN),
		app.WithAudio(cfg.AudioEnabled, cfg.AudioVolume),
	}
}

// openTerminal initializes the screen with mouse reporting and a view sized
// by the configured cell dimensions.
func openTerminal(cfg *config.Config) (tcell.Screen, *terminal.View, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, nil, err
	}
	screen.EnableMouse()
	screen.HideCursor()
	return screen, terminal.NewView(screen, terminal.WithCellSize(cfg.CellWidth, cfg.CellHeight)), nil
}

// newMux registers the API routes backed by svc and the OpenAPI document.
func newMux(svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc, svc, maxRecentEmissions).Register(mux)
	return mux
}

// registerRuntimeCollectors adds Go runtime and process metrics to reg.
func registerRuntimeCollectors(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics copies queue and worker stats into gauges.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	queueLen, okLen := stats["queueLength"].(int)
	queueCap, okCap := stats["queueSize"].(int)
	if okLen && okCap {
		metrics.UpdateQueueSize(queueLen, queueCap)
	}

	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerActiveCount(workerCount)
	}
}
