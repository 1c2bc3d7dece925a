package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.RegistrationCreated("group")
	m.RegistrationCreated("group")
	m.RegistrationRejected(ReasonCapacity)
	m.RegistrationCancelled()
	m.Reconciled(3)
	m.ObserveHTTP(http.MethodPost, "POST /registrations/{eventID}", http.StatusCreated, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RegistrationsTotal.WithLabelValues("group")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistrationRejections.WithLabelValues(ReasonCapacity)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CancellationsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReconciliationsTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CounterDriftEvents))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "POST /registrations/{eventID}", "201")))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RegistrationCreated("solo")
		m.RegistrationRejected(ReasonDuplicate)
		m.RegistrationCancelled()
		m.Reconciled(1)
		m.ObserveHTTP(http.MethodGet, "GET /events", http.StatusOK, time.Millisecond)
	})
}
