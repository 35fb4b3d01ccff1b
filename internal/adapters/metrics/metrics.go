// Package metrics exposes Prometheus instruments for workflows, live
// subscriptions, store latency and HTTP traffic.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sportify"

// Workflow outcomes.
const (
	OutcomeOK       = "ok"
	OutcomePartial  = "partial"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// latencyBuckets are in seconds; store calls on SQLite sit well under 100ms.
var latencyBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1}

// Metrics owns a private registry and every instrument on it.
type Metrics struct {
	registry *prometheus.Registry

	workflows     *prometheus.CounterVec
	repairs       *prometheus.CounterVec
	subscriptions prometheus.Gauge
	storeOps      *prometheus.HistogramVec
	storeErrors   *prometheus.CounterVec
	queries       *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates a Metrics with its own registry, including Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	auto := promauto.With(reg)

	return &Metrics{
		registry: reg,
		workflows: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_outcomes_total",
			Help:      "Mutation workflow runs by workflow and outcome",
		}, []string{"workflow", "outcome"}),
		repairs: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repair_attempts_total",
			Help:      "Compensating-action attempts by action and result",
		}, []string{"action", "result"}),
		subscriptions: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscriptions",
			Help:      "Currently open live query subscriptions",
		}),
		storeOps: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Document store operation latency",
			Buckets:   latencyBuckets,
		}, []string{"op"}),
		storeErrors: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operation_errors_total",
			Help:      "Document store operations that returned an error",
		}, []string{"op"}),
		queries: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sql_query_duration_seconds",
			Help:      "SQL statement latency",
			Buckets:   latencyBuckets,
		}, []string{"op"}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code",
		}, []string{"route", "method", "status_code"}),
		httpDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WorkflowOutcome counts one run of a mutation workflow.
func (m *Metrics) WorkflowOutcome(workflow, outcome string) {
	if m == nil {
		return
	}
	m.workflows.WithLabelValues(workflow, outcome).Inc()
}

// RepairAttempt counts one retry of a compensating action.
func (m *Metrics) RepairAttempt(action string, ok bool) {
	if m == nil {
		return
	}
	result := "failed"
	if ok {
		result = "ok"
	}
	m.repairs.WithLabelValues(action, result).Inc()
}

// ObserveStoreOp implements docstore.Observer.
func (m *Metrics) ObserveStoreOp(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		m.storeErrors.WithLabelValues(op).Inc()
	}
}

// SubscriptionOpened implements docstore.Observer.
func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.subscriptions.Inc()
}

// SubscriptionClosed implements docstore.Observer.
func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.subscriptions.Dec()
}

// ObserveQuery implements storage.QueryRecorder.
func (m *Metrics) ObserveQuery(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveHTTP records one served request. route is the matched mux pattern.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
