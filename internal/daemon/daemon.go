// Package daemon runs the pipeline unattended: on a fixed interval, and
// optionally whenever the catalog file changes. Runs never overlap; a trigger
// arriving while a run is in flight is dropped, not queued, because the next
// run re-reads the catalog and picks up everything pending anyway.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/Sachin-Mamoru/error-fix-engine/internal/logfields"
)

// Daemon owns the schedule, the optional catalog watcher and the optional
// metrics listener.
type Daemon struct {
	// RunOnce executes one full pipeline pass. Required.
	RunOnce func(ctx context.Context) error

	Interval     time.Duration
	CatalogPath  string // watched when WatchCatalog is set
	WatchCatalog bool
	Debounce     time.Duration

	// MetricsAddr, when non-empty, serves MetricsHandler at /metrics.
	MetricsAddr    string
	MetricsHandler http.Handler

	running chan struct{}
}

// Run blocks until ctx is canceled, executing RunOnce on the interval and on
// debounced catalog changes. The first run fires immediately on start.
func (d *Daemon) Run(ctx context.Context) error {
	if d.RunOnce == nil {
		return fmt.Errorf("daemon requires a run function")
	}
	d.running = make(chan struct{}, 1)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(d.Interval),
		gocron.NewTask(func() { d.tryRun(ctx, "schedule") }),
		gocron.WithName("pipeline-run"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule pipeline job: %w", err)
	}

	var watcher *catalogWatcher
	if d.WatchCatalog {
		watcher, err = newCatalogWatcher(d.CatalogPath, d.Debounce, func() {
			d.tryRun(ctx, "catalog-change")
		})
		if err != nil {
			return fmt.Errorf("watch catalog: %w", err)
		}
		watcher.start(ctx)
	}

	var metricsServer *http.Server
	if d.MetricsAddr != "" && d.MetricsHandler != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", d.MetricsHandler)
		metricsServer = &http.Server{Addr: d.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			slog.Info("Metrics listener started", slog.String("addr", d.MetricsAddr))
			if serveErr := metricsServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				slog.Error("Metrics listener failed", logfields.Error(serveErr))
			}
		}()
	}

	scheduler.Start()
	slog.Info("Daemon started", slog.Duration("interval", d.Interval),
		slog.Bool("watch_catalog", d.WatchCatalog))

	<-ctx.Done()
	slog.Info("Daemon shutting down")

	if watcher != nil {
		watcher.stop()
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
			slog.Warn("Metrics listener shutdown failed", logfields.Error(shutdownErr))
		}
	}
	if shutdownErr := scheduler.Shutdown(); shutdownErr != nil {
		return fmt.Errorf("shutdown scheduler: %w", shutdownErr)
	}
	return nil
}

// tryRun executes one pass unless another is already in flight.
func (d *Daemon) tryRun(ctx context.Context, trigger string) {
	select {
	case d.running <- struct{}{}:
	default:
		slog.Info("Run already in flight, skipping trigger", slog.String("trigger", trigger))
		return
	}
	defer func() { <-d.running }()

	if ctx.Err() != nil {
		return
	}
	slog.Info("Run triggered", slog.String("trigger", trigger))
	if err := d.RunOnce(ctx); err != nil {
		slog.Error("Run failed", slog.String("trigger", trigger), logfields.Error(err))
	}
}
