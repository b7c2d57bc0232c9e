// Package scheduler triggers the daily reminder run on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mmynk/settleup/internal/reminder"
)

const (
	DefaultSpec     = "0 18 * * *"
	DefaultTimezone = "America/New_York"
	DefaultTimeout  = 10 * time.Minute
)

// Runner performs one reminder run.
type Runner interface {
	RunDaily(ctx context.Context) (reminder.Summary, error)
}

// Config describes when runs happen.
type Config struct {
	Spec     string
	Timezone string
	Timeout  time.Duration
}

// Scheduler runs a Runner on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	logger  *slog.Logger
	timeout time.Duration
	entry   cron.EntryID
	spec    string

	baseCtx context.Context
	cancel  context.CancelFunc
}

// New parses cfg and registers the run. Empty fields fall back to the defaults.
func New(runner Runner, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Spec == "" {
		cfg.Spec = DefaultSpec
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", cfg.Timezone, err)
	}

	cl := cronLogger{logger: logger.With("component", "scheduler")}
	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
		),
		runner:  runner,
		logger:  logger,
		timeout: cfg.Timeout,
		spec:    cfg.Spec,
		baseCtx: baseCtx,
		cancel:  cancel,
	}

	s.entry, err = s.cron.AddFunc(cfg.Spec, s.run)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("register reminder run %q: %w", cfg.Spec, err)
	}
	return s, nil
}

// Start begins running on schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Reminder scheduler started",
		"schedule", s.spec,
		"location", s.cron.Location().String(),
		"next_run", s.Next(),
	)
}

// Stop halts the schedule and waits for a running job to finish or ctx to end.
// If ctx ends first the running job's context is cancelled and Stop waits for
// it to return.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Reminder run still in progress at shutdown, cancelling")
		s.cancel()
		<-done.Done()
	}
	s.cancel()
	s.logger.Info("Reminder scheduler stopped")
}

// Next returns the time of the next scheduled run. It is zero until Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// RunNow performs one run synchronously, bounded by the configured timeout.
func (s *Scheduler) RunNow(ctx context.Context) (reminder.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.runner.RunDaily(ctx)
}

func (s *Scheduler) run() {
	if _, err := s.RunNow(s.baseCtx); err != nil {
		s.logger.Error("Scheduled reminder run failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
