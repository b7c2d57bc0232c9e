package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mmynk/settleup/internal/config"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/notify"
	"github.com/mmynk/settleup/internal/reminder"
	"github.com/mmynk/settleup/internal/storage/sqlite"
)

// app holds the clients shared by every command. All of them are created
// here and released by Close.
type app struct {
	store      *sqlite.SQLiteStore
	dispatcher notify.Dispatcher
	registry   *prometheus.Registry
	reminders  *reminder.Service

	closeDispatcher func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "database", cfg.Database.Path)

	dispatcher, closeDispatcher, err := notify.New(ctx, cfg.NotifyConfig())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("initialize notifier: %w", err)
	}
	logger.Info("Notifier initialized", "driver", cfg.Notifier.Driver)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []reminder.Option{
		reminder.WithLogger(logger.With("component", "reminder")),
		reminder.WithMetrics(metrics.NewReminders(registry)),
		reminder.WithThreshold(*cfg.Reminders.ThresholdCents),
		reminder.WithConcurrency(cfg.Reminders.Concurrency),
	}
	if cfg.Reminders.StrictMembership {
		opts = append(opts, reminder.WithStrictMembership())
	}

	return &app{
		store:           store,
		dispatcher:      dispatcher,
		registry:        registry,
		reminders:       reminder.NewService(store, reminder.DirectoryResolver{Directory: store}, dispatcher, opts...),
		closeDispatcher: closeDispatcher,
	}, nil
}

// Close releases the notifier connection and the store.
func (a *app) Close() error {
	return errors.Join(a.closeDispatcher(), a.store.Close())
}

// release closes the app and logs a failure instead of returning it, for use
// in defer.
func (a *app) release(logger *slog.Logger) {
	if err := a.Close(); err != nil {
		logger.Error("Failed to release resources", "error", err)
	}
}
