package models

// BackendID names an answer-generation backend or a metrics-only bucket.
type BackendID string

const (
	// BackendLocal is the lightweight local retrieval backend. It is the retry target.
	BackendLocal BackendID = "local"
	// BackendHeavy is the remote large-model backend.
	BackendHeavy BackendID = "heavy"
	// BackendPerformance is the latency-tuned variant.
	BackendPerformance BackendID = "performance"

	// BucketCache records cache hits in the metrics registry.
	BucketCache BackendID = "cache"
	// BucketFallback records requests answered by the static fallback.
	BucketFallback BackendID = "fallback"
)

// Backends lists the routable backends in a stable order.
var Backends = []BackendID{BackendLocal, BackendHeavy, BackendPerformance}

// Routable reports whether id names a real backend rather than a metrics bucket.
func (id BackendID) Routable() bool {
	switch id {
	case BackendLocal, BackendHeavy, BackendPerformance:
		return true
	}
	return false
}

// RouteDecision names the chosen backend and the latency it is expected to need.
type RouteDecision struct {
	Backend         BackendID `json:"backend"`
	Confidence      float64   `json:"confidence"`
	EstimatedTimeMs float64   `json:"estimated_time_ms"`
	Reasoning       string    `json:"reasoning"`
}
