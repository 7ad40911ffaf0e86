package models

import "time"

// RouteRecord is one journaled request.
type RouteRecord struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	QueryHash  string    `json:"query_hash"`
	Source     string    `json:"source"`
	Backend    BackendID `json:"backend"`
	Success    bool      `json:"success"`
	LatencyMs  float64   `json:"latency_ms"`
	Confidence float64   `json:"confidence"`
	CacheTier  string    `json:"cache_tier,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// RouteSummary aggregates journaled requests by routing source and backend.
type RouteSummary struct {
	Source       string    `json:"source"`
	Backend      BackendID `json:"backend"`
	RequestCount int       `json:"request_count"`
	SuccessCount int       `json:"success_count"`
	AvgLatencyMs float64   `json:"avg_latency_ms"`
}
