package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fest"

// Rejection reasons recorded by RegistrationRejected.
const (
	ReasonForbidden      = "forbidden"
	ReasonNotFound       = "not_found"
	ReasonNotListed      = "not_listed"
	ReasonCapacity       = "capacity"
	ReasonDuplicate      = "duplicate"
	ReasonTeamValidation = "team_validation"
	ReasonStorage        = "storage"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	RegistrationsTotal     *prometheus.CounterVec
	RegistrationRejections *prometheus.CounterVec
	CancellationsTotal     prometheus.Counter
	ReconciliationsTotal   prometheus.Counter
	CounterDriftEvents     prometheus.Counter
}

// New registers the collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with registerer.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		RegistrationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_total",
				Help:      "Total number of successful event registrations",
			},
			[]string{"mode"},
		),
		RegistrationRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registration_rejections_total",
				Help:      "Total number of rejected registration attempts",
			},
			[]string{"reason"},
		),
		CancellationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cancellations_total",
				Help:      "Total number of registrations cancelled by their leader",
			},
		),
		ReconciliationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliations_total",
				Help:      "Total number of counter recomputations",
			},
		),
		CounterDriftEvents: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "counter_drift_events_total",
				Help:      "Total number of events whose registered count had drifted when recomputed",
			},
		),
	}
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) RegistrationCreated(mode string) {
	if m == nil {
		return
	}
	m.RegistrationsTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) RegistrationRejected(reason string) {
	if m == nil {
		return
	}
	m.RegistrationRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) RegistrationCancelled() {
	if m == nil {
		return
	}
	m.CancellationsTotal.Inc()
}

// Reconciled records a recomputation that found drifted events out of sync.
func (m *Metrics) Reconciled(drifted int) {
	if m == nil {
		return
	}
	m.ReconciliationsTotal.Inc()
	m.CounterDriftEvents.Add(float64(drifted))
}
