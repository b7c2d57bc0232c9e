package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminders(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReminders(reg)

	m.ObserveGroup(OutcomeSent)
	m.ObserveGroup(OutcomeSent)
	m.ObserveGroup(OutcomeNoDebtors)
	m.ObserveSent(TypeScheduled, 3)
	m.ObserveSent(TypeScheduled, 2)
	m.ObserveDispatchFailure(TypeManual)
	m.ObserveRun(150 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.groups.WithLabelValues(OutcomeSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.groups.WithLabelValues(OutcomeNoDebtors)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sent.WithLabelValues(TypeScheduled)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.tokens.WithLabelValues(TypeScheduled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues(TypeManual)))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "settleup_reminder_groups_total")
	assert.Contains(t, string(body), "settleup_reminder_run_duration_seconds_count 1")
}

func TestReminders_NilIsNoop(t *testing.T) {
	var m *Reminders
	assert.NotPanics(t, func() {
		m.ObserveGroup(OutcomeSent)
		m.ObserveSent(TypeManual, 1)
		m.ObserveDispatchFailure(TypeManual)
		m.ObserveRun(time.Second)
	})
}
