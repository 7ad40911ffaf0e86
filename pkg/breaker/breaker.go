// Package breaker keeps rolling per-backend statistics and the circuit state
// derived from them.
package breaker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pario-ai/fastroute/pkg/models"
)

const (
	initialAvgMs       = 100
	initialSuccessRate = 0.95

	emaWeight      = 0.1
	successStep    = 0.01
	failureStep    = 0.05
	openErrorCount = 3
	openBelowRate  = 0.7
	closeAboveRate = 0.8
)

type circuit struct {
	m        models.BackendMetrics
	openedAt time.Time
	probedAt time.Time
	trial    bool
}

// Registry is safe for concurrent use.
type Registry struct {
	mu            sync.Mutex
	circuits      map[models.BackendID]*circuit
	halfOpenAfter time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithLogger sets the logger used for state transitions.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New creates a registry seeded for every routable backend and metrics
// bucket. A positive halfOpenAfter lets an open circuit admit one trial
// request per interval; zero keeps it open until the success rate recovers.
func New(halfOpenAfter time.Duration, opts ...Option) *Registry {
	r := &Registry{
		circuits:      make(map[models.BackendID]*circuit),
		halfOpenAfter: halfOpenAfter,
		now:           time.Now,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, id := range models.Backends {
		r.circuits[id] = newCircuit()
	}
	r.circuits[models.BucketCache] = newCircuit()
	r.circuits[models.BucketFallback] = newCircuit()
	return r
}

func newCircuit() *circuit {
	return &circuit{m: models.BackendMetrics{
		AvgResponseTimeMs: initialAvgMs,
		SuccessRate:       initialSuccessRate,
		CircuitState:      models.CircuitClosed,
	}}
}

// Record folds one outcome into id's statistics and advances its circuit.
func (r *Registry) Record(id models.BackendID, success bool, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.circuits[id]
	if !ok {
		c = newCircuit()
		r.circuits[id] = c
	}
	now := r.now()
	m := &c.m

	ms := float64(elapsed) / float64(time.Millisecond)
	m.AvgResponseTimeMs = m.AvgResponseTimeMs*(1-emaWeight) + ms*emaWeight
	m.LastUsedAt = now
	if success {
		m.SuccessRate = min(1, m.SuccessRate+successStep)
		m.ErrorCount = max(0, m.ErrorCount-1)
	} else {
		m.SuccessRate = max(0, m.SuccessRate-failureStep)
		m.ErrorCount++
	}

	prev := m.CircuitState
	switch {
	case c.trial && success:
		c.trial = false
		m.ErrorCount = 0
		m.CircuitState = models.CircuitClosed
	case c.trial:
		c.trial = false
		c.openedAt = now
		m.CircuitState = models.CircuitOpen
	case m.CircuitState == models.CircuitClosed && m.ErrorCount > openErrorCount && m.SuccessRate < openBelowRate:
		c.openedAt = now
		m.CircuitState = models.CircuitOpen
	case m.CircuitState == models.CircuitOpen && m.SuccessRate > closeAboveRate:
		m.CircuitState = models.CircuitClosed
	}
	if m.CircuitState != prev {
		r.logger.Warn("circuit state changed",
			zap.String("backend", string(id)),
			zap.String("from", string(prev)),
			zap.String("to", string(m.CircuitState)),
			zap.Float64("success_rate", m.SuccessRate),
			zap.Int("error_count", m.ErrorCount))
	}
}

// Snapshot returns the circuit state of every known id. An open circuit whose
// half-open interval has elapsed is reported half-open once, and its trial
// is armed until the next Record for that id.
func (r *Registry) Snapshot() map[models.BackendID]models.CircuitState {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	out := make(map[models.BackendID]models.CircuitState, len(r.circuits))
	for id, c := range r.circuits {
		state := c.m.CircuitState
		if state == models.CircuitOpen && r.probeDue(c, now) {
			c.trial = true
			c.probedAt = now
			state = models.CircuitHalfOpen
		}
		out[id] = state
	}
	return out
}

func (r *Registry) probeDue(c *circuit, now time.Time) bool {
	if r.halfOpenAfter <= 0 || now.Sub(c.openedAt) < r.halfOpenAfter {
		return false
	}
	return !c.trial || now.Sub(c.probedAt) >= r.halfOpenAfter
}

// Metrics returns a copy of every id's statistics. A circuit with an armed
// trial is reported half-open.
func (r *Registry) Metrics() map[models.BackendID]models.BackendMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[models.BackendID]models.BackendMetrics, len(r.circuits))
	for id, c := range r.circuits {
		m := c.m
		if c.trial {
			m.CircuitState = models.CircuitHalfOpen
		}
		out[id] = m
	}
	return out
}

// State returns id's stored circuit state without arming a trial.
func (r *Registry) State(id models.BackendID) models.CircuitState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.circuits[id]; ok {
		if c.trial {
			return models.CircuitHalfOpen
		}
		return c.m.CircuitState
	}
	return models.CircuitClosed
}

// AllClosed returns a snapshot reporting every known id closed.
func (r *Registry) AllClosed() map[models.BackendID]models.CircuitState {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[models.BackendID]models.CircuitState, len(r.circuits))
	for id := range r.circuits {
		out[id] = models.CircuitClosed
	}
	return out
}
