// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package app wires the battery watcher together: the refresh loop, alert
// evaluation, the metrics server and graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/soothill/battery-watcher/config"
	apperrors "github.com/soothill/battery-watcher/pkg/errors"
	"github.com/soothill/battery-watcher/pkg/interfaces"
	"github.com/soothill/battery-watcher/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	signalChannelSize   = 1
	shutdownTimeout     = 5 * time.Second
	alertContextTimeout = 5 * time.Second
)

// App represents the main application
type App struct {
	metricsPort   string
	server        *http.Server
	batteries     interfaces.BatteryWatcher
	scanner       interfaces.BatteryScanner
	notifiers     []interfaces.Notifier
	configWatcher *config.Watcher
	state         AlertState
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc

	cfgMu sync.RWMutex
	cfg   *config.Config
}

// New creates a new application instance
func New(cfg *config.Config, metricsPort string, batteries interfaces.BatteryWatcher,
	scanner interfaces.BatteryScanner, notifiers []interfaces.Notifier,
	configWatcher *config.Watcher) *App {
	app := &App{
		cfg:           cfg,
		metricsPort:   metricsPort,
		batteries:     batteries,
		scanner:       scanner,
		notifiers:     notifiers,
		configWatcher: configWatcher,
		state:         StateAC,
	}
	app.server = app.buildMetricsServer()
	return app
}

// Run starts the application and blocks until shutdown or a fatal refresh
// error. A non-nil return means the process should exit non-zero.
func (a *App) Run(configChan <-chan *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	a.ctx = ctx
	a.cancel = cancel
	defer a.cancel()

	a.configWatcher.Start(ctx)
	defer a.configWatcher.Stop()

	a.startMetricsServer()
	a.setupSignalHandler()
	a.startConfigListener(configChan)

	err := a.runRefreshLoop(ctx)

	a.performCleanup()
	return err
}

// config returns the current configuration. Hot reloads replace the pointer,
// never mutate the pointee.
func (a *App) config() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

// UpdateConfig updates the application's configuration.
func (a *App) UpdateConfig(newCfg *config.Config) {
	a.cfgMu.Lock()
	a.cfg = newCfg
	a.cfgMu.Unlock()
	logger.Info().Dur("poll_interval", newCfg.Battery.PollInterval).
		Int("warning_level", newCfg.Alerts.WarningLevel).
		Msg("Application configuration updated")
}

// runRefreshLoop is the main loop: block for a wake or timeout, re-read all
// batteries, evaluate alert transitions, repeat. A required-read failure
// ends the loop with an error and the process exits non-zero.
func (a *App) runRefreshLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			logger.Info().Msg("Refresh loop shutting down")
			return nil
		}

		cfg := a.config()
		refreshErr := a.batteries.WaitAndRefresh(ctx, cfg.Battery.RequiredReads, a.nextTimeout())
		switch {
		case refreshErr == nil:
		case errors.Is(refreshErr, context.Canceled), errors.Is(refreshErr, apperrors.ErrClosed):
			logger.Info().Msg("Refresh loop shutting down")
			return nil
		case apperrors.IsRequiredReadError(refreshErr):
			logger.Error().Err(refreshErr).Msg("Required battery read failed")
			return refreshErr
		default:
			logger.Error().Err(refreshErr).Msg("Refresh failed")
			continue
		}

		snap := a.batteries.Snapshot()
		if snap == nil {
			continue
		}
		a.evaluateAlerts(ctx, snap)
	}
}

// nextTimeout implements adaptive polling: a short refresh timeout while
// discharging close to the warning threshold (or before any data exists),
// the relaxed one otherwise. Wake notifications make the timeout a backstop,
// not the primary latency source.
func (a *App) nextTimeout() time.Duration {
	cfg := a.config()
	snap := a.batteries.Snapshot()
	if snap == nil || snap.NoData {
		return cfg.Battery.UrgentInterval
	}
	if snap.Discharging && snap.Level <= cfg.Alerts.WarningLevel+urgentLevelMargin {
		return cfg.Battery.UrgentInterval
	}
	return cfg.Battery.PollInterval
}

// buildMetricsServer sets up the metrics and health endpoints.
func (a *App) buildMetricsServer() *http.Server {
	healthLimiter := rate.NewLimiter(10, 20)
	readyLimiter := rate.NewLimiter(10, 20)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", rateLimitMiddleware(healthLimiter, healthCheckHandler))
	mux.HandleFunc("/ready", rateLimitMiddleware(readyLimiter, func(w http.ResponseWriter, r *http.Request) {
		readinessCheckHandler(w, r, a.batteries)
	}))

	return &http.Server{
		Addr:    "localhost:" + a.metricsPort,
		Handler: mux,
	}
}

// startMetricsServer starts the HTTP server for metrics and health checks
func (a *App) startMetricsServer() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logger.Info().Str("addr", a.server.Addr).Msg("Starting metrics and health check server (localhost only)")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}

// setupSignalHandler sets up graceful shutdown on interrupt signals
func (a *App) setupSignalHandler() {
	sigChan := make(chan os.Signal, signalChannelSize)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		a.performGracefulShutdown()
	}()
}

// startConfigListener starts a goroutine applying hot-reloaded configs
func (a *App) startConfigListener(configChan <-chan *config.Config) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-a.ctx.Done():
				logger.Info().Msg("Config listener goroutine shutting down")
				return
			case newCfg := <-configChan:
				a.UpdateConfig(newCfg)
			}
		}
	}()
}

// performGracefulShutdown handles graceful shutdown of all components
func (a *App) performGracefulShutdown() {
	logger.Info().Msg("Initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server stopped")
	}

	a.cancel()
}

// performCleanup tears down the watcher and waits for goroutines to finish
func (a *App) performCleanup() {
	if err := a.batteries.Close(); err != nil {
		logger.Error().Err(err).Msg("Battery set close error")
	}
	logger.Info().Msg("Waiting for goroutines to finish...")
	a.wg.Wait()
	logger.Info().Msg("All goroutines finished, exiting")
}

// DumpApplicationState dumps current application state to logs
func (a *App) DumpApplicationState() {
	logger.Info().Msg("=== APPLICATION STATE DUMP (SIGUSR1) ===")

	logger.Info().
		Int("batteries", a.batteries.Count()).
		Int("watched", a.batteries.WatchedCount()).
		Str("alert_state", a.state.String()).
		Msg("Watcher state")

	if snap := a.batteries.Snapshot(); snap != nil {
		logger.Info().
			Int("level", snap.Level).
			Bool("discharging", snap.Discharging).
			Bool("full", snap.Full).
			Int64("energy_now", snap.EnergyNow).
			Int64("energy_full", snap.EnergyFull).
			Bool("no_data", snap.NoData).
			Time("taken", snap.Taken).
			Msg("Last snapshot")
	} else {
		logger.Info().Msg("No snapshot yet")
	}

	if uptime, err := host.Uptime(); err == nil {
		logger.Info().Uint64("uptime_s", uptime).Msg("Host uptime")
	}
	if avg, err := load.Avg(); err == nil {
		logger.Info().Float64("load1", avg.Load1).Float64("load5", avg.Load5).
			Msg("Host load")
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	logger.Info().
		Uint64("alloc_mb", m.Alloc/1024/1024).
		Uint64("total_alloc_mb", m.TotalAlloc/1024/1024).
		Uint32("num_gc", m.NumGC).
		Int("num_goroutines", runtime.NumGoroutine()).
		Msg("Runtime statistics")

	logger.Info().Msg("=== END STATE DUMP ===")
}

// DumpGoroutineStackTraces dumps all goroutine stack traces to logs
func DumpGoroutineStackTraces() {
	logger.Info().Msg("=== GOROUTINE STACK TRACES (SIGUSR2) ===")
	logger.Info().Int("num_goroutines", runtime.NumGoroutine()).Msg("Current goroutine count")

	buf := make([]byte, 1024*1024) // 1MB buffer
	stackLen := runtime.Stack(buf, true)
	logger.Info().Str("stack_traces", string(buf[:stackLen])).Msg("Full stack trace")

	logger.Info().Msg("=== END STACK TRACES ===")
}

// rateLimitMiddleware wraps an HTTP handler with rate limiting
func rateLimitMiddleware(limiter *rate.Limiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			logger.Warn().
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("Rate limit exceeded for health endpoint")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// healthCheckHandler handles health check requests
func healthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, writeErr := w.Write([]byte("OK")); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write health check response")
	}
}

// readinessCheckHandler reports ready once a refresh cycle has produced data
func readinessCheckHandler(w http.ResponseWriter, _ *http.Request, batteries interfaces.BatteryWatcher) {
	snap := batteries.Snapshot()
	if snap == nil || snap.NoData {
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, writeErr := w.Write([]byte("NOT READY: no battery data")); writeErr != nil {
			logger.Error().Err(writeErr).Msg("Failed to write readiness check response")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, writeErr := fmt.Fprintf(w, "READY: level %d%%", snap.Level); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write readiness check response")
	}
}
