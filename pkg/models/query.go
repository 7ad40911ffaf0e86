package models

// Query is a single natural-language request. It is never mutated after construction.
type Query struct {
	Text    string         `json:"query"`
	Mode    string         `json:"mode,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	RoutingSource    string         `json:"routing_source"`
	OptimizedRouting bool           `json:"optimized_routing"`
	TargetTimeMs     int64          `json:"target_time_ms"`
	Backend          BackendID      `json:"backend,omitempty"`
	Reasoning        string         `json:"reasoning,omitempty"`
	CacheTier        string         `json:"cache_tier,omitempty"`
	Fallback         bool           `json:"fallback,omitempty"`
	Error            string         `json:"error,omitempty"`
	RequestID        string         `json:"request_id,omitempty"`
	ElapsedMs        float64        `json:"elapsed_ms,omitempty"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// QueryResponse is what Route hands back to the caller.
type QueryResponse struct {
	Success          bool     `json:"success"`
	Response         string   `json:"response"`
	ProcessingTimeMs float64  `json:"processing_time_ms"`
	Source           string   `json:"source"`
	Confidence       float64  `json:"confidence"`
	Error            string   `json:"error,omitempty"`
	Metadata         Metadata `json:"metadata"`
}

// BackendResult is the raw outcome of a single backend invocation.
type BackendResult struct {
	Success          bool           `json:"success"`
	Response         string         `json:"response"`
	ProcessingTimeMs float64        `json:"processing_time_ms"`
	Confidence       float64        `json:"confidence,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}
