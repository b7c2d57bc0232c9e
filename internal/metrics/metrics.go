// Package metrics exposes Prometheus instrumentation for reminder runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Group outcomes recorded by ObserveGroup.
const (
	OutcomeSent          = "sent"
	OutcomeNoDebtors     = "no_debtors"
	OutcomeNoTokens      = "no_tokens"
	OutcomeInvalidLedger = "invalid_ledger"
	OutcomeStoreError    = "store_error"
	OutcomeDispatchError = "dispatch_error"
)

// Reminder types, matching the "type" field of the notification data.
const (
	TypeScheduled = "settle_reminder"
	TypeManual    = "manual_reminder"
)

// Reminders holds the collectors for reminder processing.
// A nil *Reminders is valid and records nothing.
type Reminders struct {
	groups      *prometheus.CounterVec
	sent        *prometheus.CounterVec
	tokens      *prometheus.CounterVec
	failures    *prometheus.CounterVec
	runDuration prometheus.Histogram
}

// NewReminders creates the collectors and registers them with reg.
func NewReminders(reg prometheus.Registerer) *Reminders {
	m := &Reminders{
		groups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "settleup",
			Name:      "reminder_groups_total",
			Help:      "Groups processed by reminder runs, by outcome.",
		}, []string{"outcome"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "settleup",
			Name:      "reminders_sent_total",
			Help:      "Reminder notifications handed to the dispatcher successfully.",
		}, []string{"type"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "settleup",
			Name:      "reminder_tokens_total",
			Help:      "Device tokens a reminder was delivered to.",
		}, []string{"type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "settleup",
			Name:      "dispatch_failures_total",
			Help:      "Reminder dispatches that delivered to no token.",
		}, []string{"type"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "settleup",
			Name:      "reminder_run_duration_seconds",
			Help:      "Wall time of a scheduled reminder run.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	reg.MustRegister(m.groups, m.sent, m.tokens, m.failures, m.runDuration)
	return m
}

// ObserveGroup counts one processed group.
func (m *Reminders) ObserveGroup(outcome string) {
	if m == nil {
		return
	}
	m.groups.WithLabelValues(outcome).Inc()
}

// ObserveSent counts a successful dispatch and the tokens it reached.
func (m *Reminders) ObserveSent(reminderType string, tokens int) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(reminderType).Inc()
	m.tokens.WithLabelValues(reminderType).Add(float64(tokens))
}

// ObserveDispatchFailure counts a dispatch that reached nobody.
func (m *Reminders) ObserveDispatchFailure(reminderType string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reminderType).Inc()
}

// ObserveRun records the duration of a scheduled run.
func (m *Reminders) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
