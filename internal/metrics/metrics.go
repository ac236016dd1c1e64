// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled HTTP requests by path and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockdiff_http_requests_total",
		Help: "HTTP requests handled, by path and status code.",
	}, []string{"path", "status"})

	// SymbolQueries counts symbols resolved across all diff requests.
	SymbolQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockdiff_symbol_queries_total",
		Help: "Symbols resolved across all diff requests.",
	})

	// SymbolErrors counts symbols that degraded to an error result.
	// Stage is "task" for trading-day and worker failures, "lookup" for
	// contained per-price failures.
	SymbolErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockdiff_symbol_errors_total",
		Help: "Symbol queries that hit a data source error, by stage.",
	}, []string{"stage"})

	// CacheHits counts price cache lookups served without a data source call.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockdiff_price_cache_hits_total",
		Help: "Price cache lookups that returned a live entry.",
	})

	// CacheMisses counts price cache lookups that fell through.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockdiff_price_cache_misses_total",
		Help: "Price cache lookups that fell through to the data source.",
	})

	// ProviderRequestDuration observes upstream vendor request latency.
	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockdiff_provider_request_seconds",
		Help:    "Upstream provider request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
)
