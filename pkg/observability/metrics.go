// Package observability provides Prometheus metrics for the quote pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sol_swap"

// Metrics holds all Prometheus metrics for the application. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Quote engine
	QuoteRequests   prometheus.Counter
	QuoteStaleDrops prometheus.Counter
	QuoteFailures   *prometheus.CounterVec

	// Token lookup
	Lookups     *prometheus.CounterVec
	CacheEvents *prometheus.CounterVec

	// Submission
	Submissions *prometheus.CounterVec

	// Solana RPC
	RPCCalls *prometheus.CounterVec
}

// NewMetrics registers every metric on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		QuoteRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "requests_total",
			Help:      "Total number of quote requests sent to the aggregator",
		}),
		QuoteStaleDrops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "stale_responses_total",
			Help:      "Quote responses dropped because newer input superseded them",
		}),
		QuoteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "failures_total",
			Help:      "Quote failures by reason",
		}, []string{"reason"}),

		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "requests_total",
			Help:      "Token metadata lookups by outcome",
		}, []string{"outcome"}),
		CacheEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "cache_events_total",
			Help:      "Token metadata cache hits, misses and errors",
		}, []string{"event"}),

		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "submissions_total",
			Help:      "Swap submissions by outcome",
		}, []string{"outcome"}),

		RPCCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_calls_total",
			Help:      "Solana RPC calls by method and outcome",
		}, []string{"method", "outcome"}),
	}
}

// Registry returns the registry the metrics live on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordQuoteRequest counts an outgoing quote request
func (m *Metrics) RecordQuoteRequest() {
	if m == nil {
		return
	}
	m.QuoteRequests.Inc()
}

// RecordStaleDrop counts a response discarded by the request-id check
func (m *Metrics) RecordStaleDrop() {
	if m == nil {
		return
	}
	m.QuoteStaleDrops.Inc()
}

// RecordQuoteFailure counts a failed quote by reason
func (m *Metrics) RecordQuoteFailure(reason string) {
	if m == nil {
		return
	}
	m.QuoteFailures.WithLabelValues(reason).Inc()
}

// RecordLookup counts a token lookup by outcome
func (m *Metrics) RecordLookup(outcome string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(outcome).Inc()
}

// RecordCache counts a cache hit, miss or error
func (m *Metrics) RecordCache(event string) {
	if m == nil {
		return
	}
	m.CacheEvents.WithLabelValues(event).Inc()
}

// RecordSubmission counts a swap submission by outcome
func (m *Metrics) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

// RecordRPC counts a Solana RPC call
func (m *Metrics) RecordRPC(method string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RPCCalls.WithLabelValues(method, outcome).Inc()
}
