// Package stats provides a unified interface for exporting router metrics.
package stats

// Metric names emitted by the router.
const (
	MetricRequests         = "fastroute_requests_total"
	MetricCacheHits        = "fastroute_cache_hits_total"
	MetricCacheMisses      = "fastroute_cache_misses_total"
	MetricPatternMatches   = "fastroute_pattern_matches_total"
	MetricDecisions        = "fastroute_decisions_total"
	MetricAnalysisTimeouts = "fastroute_analysis_timeouts_total"
	MetricRetries          = "fastroute_backend_retries_total"
	MetricFallbacks        = "fastroute_fallbacks_total"

	MetricCacheL1Size = "fastroute_cache_l1_entries"
	MetricCacheL2Size = "fastroute_cache_l2_entries"
	MetricCacheL3Size = "fastroute_cache_l3_entries"

	// MetricRouteSeconds observes end-to-end route latency.
	MetricRouteSeconds = "fastroute_route_duration_seconds"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
