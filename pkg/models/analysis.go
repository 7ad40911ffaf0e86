package models

// Complexity is the scorer's coarse classification of a query.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Estimates holds expected response times per backend class, in milliseconds.
type Estimates struct {
	LocalMs float64 `json:"local"`
	HeavyMs float64 `json:"heavy"`
}

// Analysis is the output of a complexity scorer.
type Analysis struct {
	Complexity         Complexity `json:"complexity"`
	Confidence         float64    `json:"confidence"`
	RecommendedBackend BackendID  `json:"recommended_backend"`
	Estimates          Estimates  `json:"estimated_response_time"`
}
