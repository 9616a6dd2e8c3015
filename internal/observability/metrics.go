// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the journal.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Journal metrics
	Mutations          *prometheus.CounterVec
	Recomputes         *prometheus.CounterVec
	RecomputeDuration  prometheus.Histogram
	EventsPublished    *prometheus.CounterVec
	TradesImported     *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
	LastReconciliation prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics registers every metric on reg under namespace.
func NewMetrics(reg *prometheus.Registry, namespace string) *Metrics {
	if namespace == "" {
		namespace = "trade_journal"
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),

		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "mutations_total",
			Help:      "Strategy and trade mutations by operation and outcome",
		}, []string{"operation", "status"}),
		Recomputes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "recomputes_total",
			Help:      "Strategy aggregate recomputations by trigger",
		}, []string{"trigger"}),
		RecomputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "recompute_duration_seconds",
			Help:      "Time spent recomputing a strategy aggregate",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "events_published_total",
			Help:      "Journal events published by type and outcome",
		}, []string{"event_type", "status"}),
		TradesImported: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "trades_imported_total",
			Help:      "Imported trades by outcome",
		}, []string{"status"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups by result",
		}, []string{"result"}),
		LastReconciliation: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "last_reconciliation_timestamp_seconds",
			Help:      "Unix time of the last successful reconciliation sweep",
		}),

		gatherer: reg,
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records a served request.
func (m *Metrics) RecordHTTPRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// RecordMutation records a journal mutation outcome.
func (m *Metrics) RecordMutation(operation string, err error) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(operation, status(err)).Inc()
}

// RecordRecompute records an aggregate recomputation.
func (m *Metrics) RecordRecompute(trigger string, d time.Duration) {
	if m == nil {
		return
	}
	m.Recomputes.WithLabelValues(trigger).Inc()
	m.RecomputeDuration.Observe(d.Seconds())
}

// RecordPublish records a journal event publish attempt.
func (m *Metrics) RecordPublish(eventType string, err error) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType, status(err)).Inc()
}

// RecordImport records the outcome of an imported trade: created, duplicate or error.
func (m *Metrics) RecordImport(outcome string) {
	if m == nil {
		return
	}
	m.TradesImported.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordReconciliation stamps the time of a completed sweep.
func (m *Metrics) RecordReconciliation(at time.Time) {
	if m == nil {
		return
	}
	m.LastReconciliation.Set(float64(at.Unix()))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
