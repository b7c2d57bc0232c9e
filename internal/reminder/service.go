// Package reminder decides which groups need a settle-up reminder and sends it.
//
// Planning is pure (see BuildPlan); Service performs the I/O around it:
// loading ledgers, resolving member tokens and handing messages to a
// notify.Dispatcher.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/notify"
	"github.com/mmynk/settleup/internal/storage"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidArgument = errors.New("group id is required")
	ErrGroupNotFound   = errors.New("group not found")
	ErrNotMember       = errors.New("caller is not a member of the group")
	ErrDispatch        = errors.New("failed to send reminder")
)

const defaultConcurrency = 4

// Summary counts what a scheduled run did.
type Summary struct {
	Groups  int
	Sent    int
	Skipped int
	Failed  int
	Tokens  int
}

// Result is the outcome of an on-demand reminder.
type Result struct {
	Success    bool
	TokensSent int
	Message    string
}

// Service runs scheduled and on-demand reminders.
type Service struct {
	groups     storage.GroupStore
	resolver   TokenResolver
	dispatcher notify.Dispatcher

	logger      *slog.Logger
	metrics     *metrics.Reminders
	threshold   int64
	concurrency int
	calcOpts    []calculator.Option
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Reminders) Option {
	return func(s *Service) { s.metrics = m }
}

// WithThreshold sets the balance, in cents, a member must fall below to count as a debtor.
func WithThreshold(cents int64) Option {
	return func(s *Service) { s.threshold = cents }
}

// WithConcurrency bounds how many groups a scheduled run processes at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithStrictMembership rejects ledgers that name non-members.
func WithStrictMembership() Option {
	return func(s *Service) {
		s.calcOpts = append(s.calcOpts, calculator.WithStrictMembership())
	}
}

// NewService creates a reminder service. The dispatcher is used as given;
// the caller owns its lifetime.
func NewService(groups storage.GroupStore, resolver TokenResolver, dispatcher notify.Dispatcher, opts ...Option) *Service {
	s := &Service{
		groups:      groups,
		resolver:    resolver,
		dispatcher:  dispatcher,
		logger:      slog.Default(),
		threshold:   calculator.DefaultDebtThreshold,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Threshold returns the debtor threshold in cents.
func (s *Service) Threshold() int64 {
	return s.threshold
}

// Plan loads and evaluates one group's ledger with the service settings.
func (s *Service) Plan(ctx context.Context, group *models.Group) (Plan, error) {
	return LoadPlan(ctx, s.groups, group, s.threshold, s.calcOpts...)
}

// RunDaily reminds every group that has at least one debtor.
// A failing group is logged and counted; only failing to list groups fails the run.
func (s *Service) RunDaily(ctx context.Context) (Summary, error) {
	start := time.Now()
	s.logger.Info("Starting reminder run")

	groups, err := s.groups.ListGroups(ctx)
	if err != nil {
		s.logger.Error("Failed to list groups", "error", err)
		return Summary{}, fmt.Errorf("list groups: %w", err)
	}

	var (
		mu      sync.Mutex
		summary = Summary{Groups: len(groups)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, group := range groups {
		g.Go(func() error {
			outcome, tokens := s.remindGroup(gctx, group)
			s.metrics.ObserveGroup(outcome)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case metrics.OutcomeSent:
				summary.Sent++
				summary.Tokens += tokens
			case metrics.OutcomeNoDebtors, metrics.OutcomeNoTokens:
				summary.Skipped++
			default:
				summary.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	s.metrics.ObserveRun(elapsed)
	s.logger.Info("Reminder run finished",
		"groups", summary.Groups,
		"sent", summary.Sent,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"tokens", summary.Tokens,
		"duration", elapsed,
	)
	return summary, nil
}

// remindGroup processes one group and returns its outcome and the number of
// tokens the reminder reached.
func (s *Service) remindGroup(ctx context.Context, group *models.Group) (string, int) {
	log := s.logger.With("group_id", group.ID)

	plan, err := s.Plan(ctx, group)
	if errors.Is(err, calculator.ErrInvalidExpense) {
		log.Warn("Skipping group with invalid ledger", "error", err)
		return metrics.OutcomeInvalidLedger, 0
	}
	if err != nil {
		log.Error("Failed to load ledger", "error", err)
		return metrics.OutcomeStoreError, 0
	}
	if !plan.NeedsReminder() {
		log.Debug("No debtors in group")
		return metrics.OutcomeNoDebtors, 0
	}

	tokens, err := s.resolver.ResolveTokens(ctx, group.MemberUserIDs)
	if err != nil {
		log.Error("Failed to resolve tokens", "error", err)
		return metrics.OutcomeStoreError, 0
	}
	if len(tokens) == 0 {
		log.Debug("No delivery tokens for group", "debtors", len(plan.Debtors))
		return metrics.OutcomeNoTokens, 0
	}

	res, err := s.dispatcher.Send(ctx, ScheduledMessage(plan, tokens))
	if err != nil {
		log.Error("Failed to send reminder", "tokens", len(tokens), "error", err)
		s.metrics.ObserveDispatchFailure(metrics.TypeScheduled)
		return metrics.OutcomeDispatchError, 0
	}

	log.Info("Sent reminder", "debtors", len(plan.Debtors), "tokens", res.Sent, "failed", res.Failed)
	s.metrics.ObserveSent(metrics.TypeScheduled, res.Sent)
	return metrics.OutcomeSent, res.Sent
}

// SendGroupReminder sends a reminder for one group on behalf of callerID,
// who must be a member. The reminder goes out even when nobody is a debtor.
func (s *Service) SendGroupReminder(ctx context.Context, callerID, groupID string) (Result, error) {
	if callerID == "" {
		return Result{}, ErrUnauthenticated
	}
	if groupID == "" {
		return Result{}, ErrInvalidArgument
	}

	log := s.logger.With("group_id", groupID, "user_id", callerID)
	log.Info("Manual reminder requested")

	group, err := s.groups.GetGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return Result{}, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	if err != nil {
		return Result{}, fmt.Errorf("get group: %w", err)
	}
	if !group.HasMember(callerID) {
		return Result{}, ErrNotMember
	}

	plan, err := s.Plan(ctx, group)
	if err != nil {
		log.Warn("Failed to compute balances", "error", err)
		return Result{}, err
	}

	tokens, err := s.resolver.ResolveTokens(ctx, group.MemberUserIDs)
	if err != nil {
		return Result{}, err
	}
	if len(tokens) == 0 {
		log.Info("No delivery tokens for group")
		return Result{Success: false, Message: "No delivery tokens found"}, nil
	}

	res, err := s.dispatcher.Send(ctx, ManualMessage(plan, tokens))
	if err != nil {
		log.Error("Failed to send manual reminder", "tokens", len(tokens), "error", err)
		s.metrics.ObserveDispatchFailure(metrics.TypeManual)
		return Result{}, fmt.Errorf("%w: %w", ErrDispatch, err)
	}

	log.Info("Sent manual reminder", "debtors", len(plan.Debtors), "tokens", res.Sent, "failed", res.Failed)
	s.metrics.ObserveSent(metrics.TypeManual, res.Sent)
	return Result{Success: true, TokensSent: res.Sent}, nil
}

// RemindGroup runs the scheduled flow for a single group, skipping the
// membership check. It is meant for operators.
func (s *Service) RemindGroup(ctx context.Context, groupID string) (string, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	if err != nil {
		return "", fmt.Errorf("get group: %w", err)
	}
	outcome, _ := s.remindGroup(ctx, group)
	s.metrics.ObserveGroup(outcome)
	return outcome, nil
}
