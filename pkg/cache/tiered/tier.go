package tiered

import (
	"cmp"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pario-ai/fastroute/pkg/models"
)

// TTL returns how long an entry stays valid given its hit count.
func TTL(hits int64) time.Duration {
	switch {
	case hits > 10:
		return time.Hour
	case hits > 5:
		return 30 * time.Minute
	default:
		return 15 * time.Minute
	}
}

// entry is one tier's copy of a cached response.
type entry struct {
	resp       models.QueryResponse
	createdAt  time.Time
	hits       atomic.Int64
	patternKey string
	normalized string
}

func newEntry(resp models.QueryResponse, now time.Time, normalized, patternKey string) *entry {
	resp.Metadata.Extra = maps.Clone(resp.Metadata.Extra)
	return &entry{
		resp:       resp,
		createdAt:  now,
		patternKey: patternKey,
		normalized: normalized,
	}
}

func (e *entry) valid(now time.Time) bool {
	return now.Sub(e.createdAt) < TTL(e.hits.Load())
}

func (e *entry) snapshot() models.CacheEntry {
	return models.CacheEntry{
		Response:   e.resp,
		CreatedAt:  e.createdAt,
		HitCount:   e.hits.Load(),
		PatternKey: e.patternKey,
		Normalized: e.normalized,
	}
}

// tier is a mutex-guarded map. Values are replaced, never mutated in place,
// so a value read under RLock stays consistent after the lock is released.
type tier[V any] struct {
	mu    sync.RWMutex
	items map[string]V
	rank  func(V) int64
}

func newTier[V any](rank func(V) int64) *tier[V] {
	return &tier[V]{items: make(map[string]V), rank: rank}
}

func (t *tier[V]) get(key string) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.items[key]
	return v, ok
}

func (t *tier[V]) set(key string, v V) {
	t.mu.Lock()
	t.items[key] = v
	t.mu.Unlock()
}

// update replaces the value under key with fn(old) while holding the write lock.
func (t *tier[V]) update(key string, fn func(old V) V) {
	t.mu.Lock()
	t.items[key] = fn(t.items[key])
	t.mu.Unlock()
}

// deleteIf removes key only while it still maps to a value for which same returns true.
func (t *tier[V]) deleteIf(key string, same func(V) bool) {
	t.mu.Lock()
	if v, ok := t.items[key]; ok && same(v) {
		delete(t.items, key)
	}
	t.mu.Unlock()
}

func (t *tier[V]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func (t *tier[V]) clear() {
	t.mu.Lock()
	clear(t.items)
	t.mu.Unlock()
}

// trim keeps the capacity/2 highest-ranked entries once the tier holds more
// than capacity. It returns the number of evicted keys.
func (t *tier[V]) trim(capacity int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.items) <= capacity {
		return 0
	}

	type ranked struct {
		key  string
		rank int64
	}
	all := make([]ranked, 0, len(t.items))
	for k, v := range t.items {
		all = append(all, ranked{key: k, rank: t.rank(v)})
	}
	slices.SortFunc(all, func(a, b ranked) int { return cmp.Compare(a.rank, b.rank) })

	evict := len(all) - capacity/2
	for _, r := range all[:evict] {
		delete(t.items, r.key)
	}
	return evict
}
