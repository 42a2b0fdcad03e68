// Package metrics defines the Prometheus collectors of the planner.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "planner"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	dueQueries         *prometheus.CounterVec
	invalidRules       *prometheus.CounterVec
	completionWrites   *prometheus.CounterVec
	completionConflict prometheus.Counter
	reportsSent        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		dueQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "due_queries_total",
			Help:      "Due-items queries by outcome.",
		}, []string{"outcome"}),
		invalidRules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_rules_total",
			Help:      "Stored recurrence rules skipped because they failed validation.",
		}, []string{"kind"}),
		completionWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_writes_total",
			Help:      "Completion ledger writes by operation.",
		}, []string{"operation"}),
		completionConflict: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_conflicts_total",
			Help:      "Completion inserts that lost a race and reloaded the existing row.",
		}),
		reportsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_sent_total",
			Help:      "Telegram digests by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.dueQueries,
		m.invalidRules,
		m.completionWrites,
		m.completionConflict,
		m.reportsSent,
	)
	return m
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) DueQuery(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.dueQueries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) InvalidRule(kind string) {
	if m == nil {
		return
	}
	m.invalidRules.WithLabelValues(kind).Inc()
}

func (m *Metrics) CompletionWrite(operation string) {
	if m == nil {
		return
	}
	m.completionWrites.WithLabelValues(operation).Inc()
}

func (m *Metrics) CompletionConflict() {
	if m == nil {
		return
	}
	m.completionConflict.Inc()
}

func (m *Metrics) ReportSent(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.reportsSent.WithLabelValues(outcome).Inc()
}
