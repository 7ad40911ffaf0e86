// Package scorer classifies query complexity for the routing decision.
package scorer

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pario-ai/fastroute/pkg/models"
)

// Scorer analyzes a query. Implementations must return promptly once ctx is done.
type Scorer interface {
	Analyze(ctx context.Context, text string) (models.Analysis, error)
}

// Func adapts a function to Scorer.
type Func func(ctx context.Context, text string) (models.Analysis, error)

// Analyze calls f.
func (f Func) Analyze(ctx context.Context, text string) (models.Analysis, error) {
	return f(ctx, text)
}

// Keyword classifies by keywords and word count.
//
// Rules, in order:
//  1. Complex: analysis, comparison or explanation keywords, or more than 15 words
//  2. Moderate: how/why/debugging keywords, or more than 10 words
//  3. Simple: everything else; five words or fewer is scored with higher confidence
type Keyword struct{}

var (
	complexKeywords = []string{
		"analyze", "analysis", "compare", "comparison", "optimize", "optimization",
		"evaluate", "explain", "architect", "trade-off",
		"분석", "비교", "최적화", "평가", "설명",
	}
	moderateKeywords = []string{
		"how", "why", "debug", "fix", "troubleshoot",
		"어떻게", "왜", "해결",
	}
)

// Analyze implements Scorer.
func (Keyword) Analyze(ctx context.Context, text string) (models.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return models.Analysis{}, err
	}

	q := strings.ToLower(text)
	words := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	wc := len(strings.Fields(q))

	switch {
	case containsAny(q, words, complexKeywords) || wc > 15:
		return models.Analysis{
			Complexity:         models.ComplexityComplex,
			Confidence:         0.75,
			RecommendedBackend: models.BackendHeavy,
			Estimates:          models.Estimates{LocalMs: 120, HeavyMs: 180},
		}, nil
	case containsAny(q, words, moderateKeywords) || wc > 10:
		return models.Analysis{
			Complexity:         models.ComplexityModerate,
			Confidence:         0.7,
			RecommendedBackend: models.BackendLocal,
			Estimates:          models.Estimates{LocalMs: 90, HeavyMs: 160},
		}, nil
	}

	confidence := 0.82
	if wc <= 5 {
		confidence = 0.9
	}
	return models.Analysis{
		Complexity:         models.ComplexitySimple,
		Confidence:         confidence,
		RecommendedBackend: models.BackendLocal,
		Estimates:          models.Estimates{LocalMs: 60, HeavyMs: 150},
	}, nil
}

// containsAny matches ASCII keywords as word prefixes and other keywords as
// substrings, since Korean attaches particles to the stem.
func containsAny(q string, words, keywords []string) bool {
	for _, kw := range keywords {
		if kw[0] >= utf8.RuneSelf {
			if strings.Contains(q, kw) {
				return true
			}
			continue
		}
		for _, w := range words {
			if strings.HasPrefix(w, kw) {
				return true
			}
		}
	}
	return false
}
