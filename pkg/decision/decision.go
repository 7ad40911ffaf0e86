// Package decision turns a complexity analysis and circuit snapshot into a
// backend choice.
package decision

import (
	"fmt"

	"github.com/pario-ai/fastroute/pkg/models"
)

const (
	circuitOpenConfidence = 0.8
	simpleConfidenceAbove = 0.8
	performanceConfidence = 0.95
	performanceSpeedup    = 0.6
	performanceCapMs      = 70
)

// Decide applies, in order:
//  1. heavy recommended while its circuit is open: route to local
//  2. simple with confidence above 0.8: route to performance
//  3. otherwise follow the recommendation
func Decide(a models.Analysis, circuits map[models.BackendID]models.CircuitState) models.RouteDecision {
	if a.RecommendedBackend == models.BackendHeavy && circuits[models.BackendHeavy] == models.CircuitOpen {
		return models.RouteDecision{
			Backend:         models.BackendLocal,
			Confidence:      circuitOpenConfidence,
			EstimatedTimeMs: a.Estimates.LocalMs,
			Reasoning:       "heavy circuit open, using local",
		}
	}

	if a.Complexity == models.ComplexitySimple && a.Confidence > simpleConfidenceAbove {
		return models.RouteDecision{
			Backend:         models.BackendPerformance,
			Confidence:      performanceConfidence,
			EstimatedTimeMs: min(a.Estimates.LocalMs*performanceSpeedup, performanceCapMs),
			Reasoning:       "simple query, using performance backend",
		}
	}

	backend := a.RecommendedBackend
	if !backend.Routable() {
		backend = models.BackendLocal
	}
	est := a.Estimates.LocalMs
	if backend == models.BackendHeavy {
		est = a.Estimates.HeavyMs
	}
	return models.RouteDecision{
		Backend:         backend,
		Confidence:      a.Confidence,
		EstimatedTimeMs: est,
		Reasoning:       fmt.Sprintf("%s query, following scorer", a.Complexity),
	}
}
