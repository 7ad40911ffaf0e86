package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/fastroute/pkg/backend"
	"github.com/pario-ai/fastroute/pkg/cache/tiered"
	"github.com/pario-ai/fastroute/pkg/router"
	"github.com/pario-ai/fastroute/pkg/scorer"
)

func TestBenchQueriesHaveDistinctPatternKeys(t *testing.T) {
	seen := make(map[string]int)
	for i := range 1000 {
		pk := tiered.PatternKey(tiered.Normalize(benchQuery(i)))
		if prev, ok := seen[pk]; ok {
			t.Fatalf("queries %d and %d share pattern key %s", prev, i, pk)
		}
		seen[pk] = i
	}
}

func TestRunBenchNeverHitsCache(t *testing.T) {
	r, err := router.New(scorer.Keyword{}, backend.DefaultSimulated())
	require.NoError(t, err)
	defer r.Close()

	const n = 100
	latencies, _, err := runBench(context.Background(), r, n, 10)
	require.NoError(t, err)
	assert.Len(t, latencies, n)

	p := r.PerformanceStats().Pipeline
	assert.Equal(t, int64(n), p.Requests)
	assert.Zero(t, p.CacheHits)
	assert.Zero(t, p.PatternMatches)
	assert.Equal(t, int64(n), p.Decisions+p.AnalysisTimeouts)
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, 5.0, percentile(sorted, 0.5))
	assert.Equal(t, 10.0, percentile(sorted, 1))
	assert.Zero(t, percentile(nil, 0.5))
}
