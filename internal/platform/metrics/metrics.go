// Package metrics owns the process Prometheus registry and the engine collectors
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "echokit"

// Metrics groups the collectors; a nil *Metrics records nothing
type Metrics struct {
	reg *prometheus.Registry

	queries    *prometheus.CounterVec
	retries    *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	batches    *prometheus.CounterVec
	rows       prometheus.Counter
	retrievals *prometheus.CounterVec
	statements *prometheus.CounterVec
}

// New builds a registry with Go and process collectors plus the engine metrics
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		reg: reg,
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_queries_total",
			Help:      "Remote queries by transport variant and outcome",
		}, []string{"variant", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_retries_total",
			Help:      "Rate limited retries by transport variant",
		}, []string{"variant"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transport_query_seconds",
			Help:      "Remote query latency including retries",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}, []string{"variant"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_batches_total",
			Help:      "Id batches by outcome",
		}, []string{"outcome"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_rows_total",
			Help:      "Rows returned by batched fetches",
		}),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Retrievals by program, region kind and outcome",
		}, []string{"program", "kind", "outcome"}),
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_statements_total",
			Help:      "Audit store statements by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.queries, m.retries, m.latency, m.batches, m.rows, m.retrievals, m.statements)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the exposition format for the registry
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Query records one transport call
func (m *Metrics) Query(variant, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(variant, outcome).Inc()
	m.latency.WithLabelValues(variant).Observe(took.Seconds())
}

// Retry records one rate limited retry
func (m *Metrics) Retry(variant string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(variant).Inc()
}

// Batch records one id batch outcome and its rows
func (m *Metrics) Batch(outcome string, rows int) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(outcome).Inc()
	m.rows.Add(float64(rows))
}

// Retrieval records one service level retrieval
func (m *Metrics) Retrieval(program, kind, outcome string) {
	if m == nil {
		return
	}
	m.retrievals.WithLabelValues(program, kind, outcome).Inc()
}

// Statement records one audit store statement
func (m *Metrics) Statement(outcome string) {
	if m == nil {
		return
	}
	m.statements.WithLabelValues(outcome).Inc()
}
