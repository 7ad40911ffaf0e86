package models

import "time"

// CircuitState is the health gate of a backend.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half-open"
)

// BackendMetrics are the rolling statistics kept per backend id.
type BackendMetrics struct {
	AvgResponseTimeMs float64      `json:"avg_response_time_ms"`
	SuccessRate       float64      `json:"success_rate"`
	ErrorCount        int          `json:"error_count"`
	LastUsedAt        time.Time    `json:"last_used_at"`
	CircuitState      CircuitState `json:"circuit_state"`
}

// PipelineStats counts how requests moved through the routing phases.
type PipelineStats struct {
	Requests         int64 `json:"requests"`
	CacheHits        int64 `json:"cache_hits"`
	PatternMatches   int64 `json:"pattern_matches"`
	Decisions        int64 `json:"decisions"`
	AnalysisTimeouts int64 `json:"analysis_timeouts"`
	Retries          int64 `json:"retries"`
	Fallbacks        int64 `json:"fallbacks"`
}

// PerformanceStats is the snapshot returned by the router's stats endpoint.
type PerformanceStats struct {
	EngineMetrics map[BackendID]BackendMetrics `json:"engine_metrics"`
	CacheStats    CacheStats                   `json:"cache_stats"`
	Pipeline      PipelineStats                `json:"pipeline"`
	Config        any                          `json:"config"`
}
