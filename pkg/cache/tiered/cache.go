// Package tiered implements the in-process three-tier response cache:
// L1 exact match, L2 pattern key, L3 similarity candidates.
package tiered

import (
	"maps"
	"sync/atomic"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/pario-ai/fastroute/pkg/config"
	"github.com/pario-ai/fastroute/pkg/models"
)

// Tier identifies which cache level served a lookup.
type Tier string

const (
	TierNone Tier = ""
	TierL1   Tier = "L1"
	TierL2   Tier = "L2"
	TierL3   Tier = "L3"
)

const (
	// DefaultCapacity is the soft per-tier entry cap.
	DefaultCapacity = 1000
	// AdmitBelow is the processing time under which a response is cached.
	AdmitBelow = 120 * time.Millisecond
	// SimilarityThreshold is the minimum Jaccard score for an L3 hit.
	SimilarityThreshold = 0.85
	// MaxCandidates bounds each L3 candidate list.
	MaxCandidates = 5
)

// Cache is safe for concurrent use.
type Cache struct {
	strategy string
	capacity int
	scripts  []*unicode.RangeTable
	now      func() time.Time
	logger   *zap.Logger

	l1 *tier[*entry]
	l2 *tier[*entry]
	l3 *tier[[]*entry]

	l1Hits    atomic.Int64
	l2Hits    atomic.Int64
	l3Hits    atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithStrategy selects which tiers are consulted.
func WithStrategy(strategy string) Option {
	return func(c *Cache) { c.strategy = strategy }
}

// WithCapacity sets the per-tier soft cap.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n >= 2 {
			c.capacity = n
		}
	}
}

// WithScripts sets the non-ASCII scripts kept by normalization.
func WithScripts(scripts ...*unicode.RangeTable) Option {
	return func(c *Cache) { c.scripts = scripts }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates an empty cache. Defaults: aggressive strategy, capacity 1000,
// Hangul syllables kept by normalization.
func New(opts ...Option) *Cache {
	c := &Cache{
		strategy: config.StrategyAggressive,
		capacity: DefaultCapacity,
		scripts:  []*unicode.RangeTable{HangulSyllables},
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	byHits := func(e *entry) int64 { return e.hits.Load() }
	c.l1 = newTier(byHits)
	c.l2 = newTier(byHits)
	c.l3 = newTier(func(list []*entry) int64 {
		var sum int64
		for _, e := range list {
			sum += e.hits.Load()
		}
		return sum
	})
	return c
}

// Normalize applies the cache's key normalization to text.
func (c *Cache) Normalize(text string) string {
	return Normalize(text, c.scripts...)
}

// Lookup returns a copy of the cached response for text, if any tier holds a
// live entry. Every hit increments that entry's hit count.
func (c *Cache) Lookup(text string) (*models.QueryResponse, Tier, bool) {
	key := c.Normalize(text)
	if key == "" {
		c.misses.Add(1)
		return nil, TierNone, false
	}
	now := c.now()

	if e, ok := c.l1.get(key); ok {
		if e.valid(now) {
			return c.hit(e, TierL1, &c.l1Hits, key)
		}
		c.l1.deleteIf(key, func(cur *entry) bool { return cur == e })
	}
	if c.strategy == config.StrategyConservative {
		c.misses.Add(1)
		return nil, TierNone, false
	}

	pk := PatternKey(key)
	if e, ok := c.l2.get(pk); ok {
		if e.valid(now) {
			return c.hit(e, TierL2, &c.l2Hits, key)
		}
		c.l2.deleteIf(pk, func(cur *entry) bool { return cur == e })
	}
	if c.strategy == config.StrategyBalanced {
		c.misses.Add(1)
		return nil, TierNone, false
	}

	candidates, _ := c.l3.get(pk)
	for i, e := range candidates {
		if i >= MaxCandidates {
			break
		}
		if e.valid(now) && Jaccard(key, e.normalized) >= SimilarityThreshold {
			return c.hit(e, TierL3, &c.l3Hits, key)
		}
	}

	c.misses.Add(1)
	return nil, TierNone, false
}

func (c *Cache) hit(e *entry, t Tier, counter *atomic.Int64, key string) (*models.QueryResponse, Tier, bool) {
	hits := e.hits.Add(1)
	counter.Add(1)
	c.logger.Debug("cache hit", zap.String("tier", string(t)), zap.String("key", key), zap.Int64("hits", hits))
	resp := e.resp
	resp.Metadata.Extra = maps.Clone(resp.Metadata.Extra)
	return &resp, t, true
}

// Admissible reports whether resp qualifies for caching.
func Admissible(resp models.QueryResponse) bool {
	return resp.Success && resp.Response != "" &&
		resp.ProcessingTimeMs < float64(AdmitBelow.Milliseconds())
}

// Insert stores resp for text in every tier the strategy enables. It returns
// false when resp is not admissible.
func (c *Cache) Insert(text string, resp models.QueryResponse) bool {
	if !Admissible(resp) {
		return false
	}
	key := c.Normalize(text)
	if key == "" {
		return false
	}
	pk := PatternKey(key)
	now := c.now()

	c.l1.set(key, newEntry(resp, now, key, pk))
	if c.strategy != config.StrategyConservative {
		c.l2.set(pk, newEntry(resp, now, key, pk))
	}
	if c.strategy == config.StrategyAggressive {
		e := newEntry(resp, now, key, pk)
		c.l3.update(pk, func(old []*entry) []*entry {
			next := make([]*entry, 0, MaxCandidates)
			next = append(next, e)
			for _, o := range old {
				if len(next) == MaxCandidates {
					break
				}
				next = append(next, o)
			}
			return next
		})
	}

	evicted := c.l1.trim(c.capacity) + c.l2.trim(c.capacity) + c.l3.trim(c.capacity)
	if evicted > 0 {
		c.evictions.Add(int64(evicted))
		c.logger.Debug("cache trimmed", zap.Int("evicted", evicted))
	}
	return true
}

// Entry returns the L1 entry for text without counting a hit.
func (c *Cache) Entry(text string) (models.CacheEntry, bool) {
	e, ok := c.l1.get(c.Normalize(text))
	if !ok {
		return models.CacheEntry{}, false
	}
	return e.snapshot(), true
}

// Clear empties all tiers. Counters are kept.
func (c *Cache) Clear() {
	c.l1.clear()
	c.l2.clear()
	c.l3.clear()
}

// Stats returns tier sizes and hit counters. PatternCount is left for the
// caller, which owns the pattern rules.
func (c *Cache) Stats() models.CacheStats {
	return models.CacheStats{
		L1Size:    c.l1.len(),
		L2Size:    c.l2.len(),
		L3Size:    c.l3.len(),
		L1Hits:    c.l1Hits.Load(),
		L2Hits:    c.l2Hits.Load(),
		L3Hits:    c.l3Hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Strategy returns the configured cache strategy.
func (c *Cache) Strategy() string { return c.strategy }
