// Package pattern holds the shortcut rules that route well-known query shapes
// without consulting the complexity scorer.
package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pario-ai/fastroute/pkg/config"
	"github.com/pario-ai/fastroute/pkg/models"
)

// DefaultRules are used when no patterns are configured.
var DefaultRules = []config.PatternConfig{
	{
		Expr:        `^(server|system|서버|시스템)\s*(status|상태)`,
		Backend:     models.BackendLocal,
		Confidence:  0.9,
		EstimatedMs: 60,
		Reasoning:   "server status pattern",
	},
	{
		Expr:        `^(cpu|memory|메모리)\s*(usage|check|사용률|확인)`,
		Backend:     models.BackendPerformance,
		Confidence:  0.95,
		EstimatedMs: 50,
		Reasoning:   "resource monitoring pattern",
	},
	{
		Expr:        `^(analyze|analyse|optimize|분석|최적화)\s`,
		Backend:     models.BackendHeavy,
		Confidence:  0.85,
		EstimatedMs: 180,
		Reasoning:   "analysis request pattern",
	},
}

type rule struct {
	re       *regexp.Regexp
	decision models.RouteDecision
}

// Matcher evaluates rules in order; the first match wins.
type Matcher struct {
	rules []rule
}

// New compiles rules. An empty slice selects DefaultRules.
func New(rules []config.PatternConfig) (*Matcher, error) {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	m := &Matcher{rules: make([]rule, 0, len(rules))}
	for i, r := range rules {
		re, err := regexp.Compile(r.Expr)
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		if !r.Backend.Routable() {
			return nil, fmt.Errorf("pattern %d: unknown backend %q", i, r.Backend)
		}
		reasoning := r.Reasoning
		if reasoning == "" {
			reasoning = "pattern " + r.Expr
		}
		m.rules = append(m.rules, rule{
			re: re,
			decision: models.RouteDecision{
				Backend:         r.Backend,
				Confidence:      r.Confidence,
				EstimatedTimeMs: r.EstimatedMs,
				Reasoning:       reasoning,
			},
		})
	}
	return m, nil
}

// MustDefault returns a Matcher over DefaultRules.
func MustDefault() *Matcher {
	m, err := New(nil)
	if err != nil {
		panic(err)
	}
	return m
}

// Match tests the lowercased, trimmed text against each rule.
func (m *Matcher) Match(text string) (models.RouteDecision, bool) {
	q := strings.ToLower(strings.TrimSpace(text))
	for _, r := range m.rules {
		if r.re.MatchString(q) {
			return r.decision, true
		}
	}
	return models.RouteDecision{}, false
}

// Len returns the number of rules.
func (m *Matcher) Len() int { return len(m.rules) }

var heavyKeywords = []string{
	"analyze", "analysis", "optimize", "optimization",
	"compare", "comparison", "evaluate",
	"분석", "최적화", "비교", "평가",
}

// FastDecision is the heuristic used when the scorer misses its deadline.
func FastDecision(text string) models.RouteDecision {
	q := strings.ToLower(text)
	for _, kw := range heavyKeywords {
		if strings.Contains(q, kw) {
			return models.RouteDecision{
				Backend:         models.BackendHeavy,
				Confidence:      0.7,
				EstimatedTimeMs: 200,
				Reasoning:       "fast decision: complex keyword",
			}
		}
	}
	return models.RouteDecision{
		Backend:         models.BackendPerformance,
		Confidence:      0.8,
		EstimatedTimeMs: 70,
		Reasoning:       "fast decision: default",
	}
}
