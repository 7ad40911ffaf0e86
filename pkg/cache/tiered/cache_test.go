package tiered

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/fastroute/pkg/config"
	"github.com/pario-ai/fastroute/pkg/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func okResponse(text string) models.QueryResponse {
	return models.QueryResponse{
		Success:          true,
		Response:         text,
		ProcessingTimeMs: 40,
		Source:           string(models.BackendLocal),
		Confidence:       0.9,
	}
}

func TestLookupMissThenHit(t *testing.T) {
	c := New()

	_, tier, ok := c.Lookup("server status check")
	assert.False(t, ok)
	assert.Equal(t, TierNone, tier)

	require.True(t, c.Insert("server status check", okResponse("all good")))

	resp, tier, ok := c.Lookup("Server   STATUS check!")
	require.True(t, ok)
	assert.Equal(t, TierL1, tier)
	assert.Equal(t, "all good", resp.Response)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.L1Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestLookupIsIdempotent(t *testing.T) {
	c := New()
	require.True(t, c.Insert("cpu usage", okResponse("12%")))

	first, _, ok := c.Lookup("cpu usage")
	require.True(t, ok)
	second, _, ok := c.Lookup("cpu usage")
	require.True(t, ok)
	assert.Equal(t, first, second)

	e, ok := c.Entry("cpu usage")
	require.True(t, ok)
	assert.Equal(t, int64(2), e.HitCount)
}

func TestInsertAdmission(t *testing.T) {
	c := New()

	failed := okResponse("x")
	failed.Success = false
	assert.False(t, c.Insert("q one", failed))

	empty := okResponse("")
	assert.False(t, c.Insert("q two", empty))

	slow := okResponse("x")
	slow.ProcessingTimeMs = 120
	assert.False(t, c.Insert("q three", slow))

	fast := okResponse("x")
	fast.ProcessingTimeMs = 119
	assert.True(t, c.Insert("q four", fast))

	assert.Equal(t, 1, c.Stats().L1Size)
}

func TestTTLGrowsWithHits(t *testing.T) {
	assert.Equal(t, 15*time.Minute, TTL(0))
	assert.Equal(t, 15*time.Minute, TTL(5))
	assert.Equal(t, 30*time.Minute, TTL(6))
	assert.Equal(t, 30*time.Minute, TTL(10))
	assert.Equal(t, time.Hour, TTL(11))

	for h := int64(0); h < 20; h++ {
		assert.LessOrEqual(t, TTL(h), TTL(h+1))
	}
}

func TestExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	require.True(t, c.Insert("cold entry", okResponse("cold")))
	clock.Advance(16 * time.Minute)
	_, _, ok := c.Lookup("cold entry")
	assert.False(t, ok, "an unread entry expires after 15m")
	assert.Equal(t, 0, c.Stats().L1Size, "expired L1 entry is removed on access")

	require.True(t, c.Insert("warm entry", okResponse("warm")))
	for i := 0; i < 6; i++ {
		_, tier, ok := c.Lookup("warm entry")
		require.True(t, ok)
		require.Equal(t, TierL1, tier)
	}
	clock.Advance(16 * time.Minute)
	_, _, ok = c.Lookup("warm entry")
	assert.True(t, ok, "six hits extend the ttl to 30m")

	clock.Advance(15 * time.Minute)
	_, _, ok = c.Lookup("warm entry")
	assert.False(t, ok)
}

func TestPatternTierHit(t *testing.T) {
	c := New(WithStrategy(config.StrategyBalanced))
	require.True(t, c.Insert("check server status", okResponse("up")))

	resp, tier, ok := c.Lookup("server status check")
	require.True(t, ok)
	assert.Equal(t, TierL2, tier)
	assert.Equal(t, "up", resp.Response)
}

func TestSimilarityTierHit(t *testing.T) {
	c := New()
	text := "show the replication lag for database cluster alpha today please"
	require.True(t, c.Insert(text, okResponse("lag 3s")))

	// Drop L2 so only L3 can answer a reworded query.
	c.l2.clear()

	resp, tier, ok := c.Lookup("show the replication lag for database cluster alpha today")
	require.True(t, ok)
	assert.Equal(t, TierL3, tier)
	assert.Equal(t, "lag 3s", resp.Response)

	_, _, ok = c.Lookup("replication database cluster")
	assert.False(t, ok, "low similarity must not hit")
}

func TestConservativeUsesL1Only(t *testing.T) {
	c := New(WithStrategy(config.StrategyConservative))
	require.True(t, c.Insert("check server status", okResponse("up")))

	stats := c.Stats()
	assert.Equal(t, 1, stats.L1Size)
	assert.Equal(t, 0, stats.L2Size)
	assert.Equal(t, 0, stats.L3Size)

	_, _, ok := c.Lookup("server status check")
	assert.False(t, ok)
}

func TestL3CandidateListIsCapped(t *testing.T) {
	c := New()
	for i := 0; i < 8; i++ {
		require.True(t, c.Insert(fmt.Sprintf("database replication status %d", i), okResponse("x")))
	}
	list, ok := c.l3.get(PatternKey("database replication status"))
	require.True(t, ok)
	assert.Len(t, list, MaxCandidates)
	assert.Equal(t, "database replication status 7", list[0].normalized, "newest first")
}

func TestEvictionKeepsUpperHalf(t *testing.T) {
	c := New()
	for i := 0; i < DefaultCapacity; i++ {
		require.True(t, c.Insert(fmt.Sprintf("query number %d", i), okResponse(fmt.Sprint(i))))
	}
	assert.Equal(t, DefaultCapacity, c.Stats().L1Size)

	for i := 0; i < 10; i++ {
		_, tier, ok := c.Lookup(fmt.Sprintf("query number %d", i))
		require.True(t, ok)
		require.Equal(t, TierL1, tier)
	}

	require.True(t, c.Insert("query number overflow", okResponse("overflow")))
	stats := c.Stats()
	assert.Equal(t, DefaultCapacity/2, stats.L1Size)
	assert.Positive(t, stats.Evictions)

	for i := 0; i < 10; i++ {
		resp, tier, ok := c.Lookup(fmt.Sprintf("query number %d", i))
		require.True(t, ok)
		assert.Equal(t, TierL1, tier, "hit entries survive eviction")
		assert.Equal(t, fmt.Sprint(i), resp.Response)
	}
}

func TestClear(t *testing.T) {
	c := New()
	require.True(t, c.Insert("server status", okResponse("up")))
	c.Clear()
	stats := c.Stats()
	assert.Zero(t, stats.L1Size+stats.L2Size+stats.L3Size)
	_, _, ok := c.Lookup("server status")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(WithCapacity(64))
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				q := fmt.Sprintf("worker %d query %d", w, i%40)
				c.Insert(q, okResponse(q))
				c.Lookup(q)
			}
		}(w)
	}
	wg.Wait()

	stats := c.Stats()
	assert.LessOrEqual(t, stats.L1Size, 64)
}

func TestHitsDoNotShareBackendMetadata(t *testing.T) {
	c := New()
	resp := okResponse("all good")
	resp.Metadata.Extra = map[string]any{"model": "small"}
	require.True(t, c.Insert("server status check", resp))

	resp.Metadata.Extra["model"] = "changed by caller"

	first, _, ok := c.Lookup("server status check")
	require.True(t, ok)
	assert.Equal(t, "small", first.Metadata.Extra["model"])
	first.Metadata.Extra["model"] = "changed by reader"

	second, _, ok := c.Lookup("server status check")
	require.True(t, ok)
	assert.Equal(t, "small", second.Metadata.Extra["model"])
}
