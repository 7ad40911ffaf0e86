package scorer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/fastroute/pkg/models"
)

func TestKeywordClassify(t *testing.T) {
	tests := []struct {
		query      string
		complexity models.Complexity
		backend    models.BackendID
	}{
		{"list open incidents", models.ComplexitySimple, models.BackendLocal},
		{"show disk usage", models.ComplexitySimple, models.BackendLocal},
		{"please compare the two rollout plans", models.ComplexityComplex, models.BackendHeavy},
		{"지난 배포 분석", models.ComplexityComplex, models.BackendHeavy},
		{"how do I rotate the keys", models.ComplexityModerate, models.BackendLocal},
		{"one two three four five six seven eight nine ten eleven", models.ComplexityModerate, models.BackendLocal},
		{"a b c d e f g h i j k l m n o p", models.ComplexityComplex, models.BackendHeavy},
	}
	for _, tt := range tests {
		a, err := Keyword{}.Analyze(context.Background(), tt.query)
		require.NoError(t, err)
		assert.Equal(t, tt.complexity, a.Complexity, tt.query)
		assert.Equal(t, tt.backend, a.RecommendedBackend, tt.query)
	}
}

func TestKeywordSimpleConfidence(t *testing.T) {
	a, err := Keyword{}.Analyze(context.Background(), "show disk usage")
	require.NoError(t, err)
	assert.Greater(t, a.Confidence, 0.8)
	assert.Equal(t, 60.0, a.Estimates.LocalMs)

	a, err = Keyword{}.Analyze(context.Background(), "show me the current disk usage for node seven")
	require.NoError(t, err)
	assert.Equal(t, models.ComplexitySimple, a.Complexity)
	assert.Greater(t, a.Confidence, 0.8)
}

func TestKeywordHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Keyword{}.Analyze(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemo(t *testing.T) {
	var calls atomic.Int32
	inner := Func(func(ctx context.Context, text string) (models.Analysis, error) {
		calls.Add(1)
		if text == "broken" {
			return models.Analysis{}, errors.New("scorer down")
		}
		return Keyword{}.Analyze(ctx, text)
	})

	m, err := NewMemo(inner, 2)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = m.Analyze(ctx, "show disk usage")
	require.NoError(t, err)
	_, err = m.Analyze(ctx, "  Show disk usage ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, err = m.Analyze(ctx, "broken")
	assert.Error(t, err)
	_, err = m.Analyze(ctx, "broken")
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "errors are not remembered")

	_, _ = m.Analyze(ctx, "second query")
	_, _ = m.Analyze(ctx, "third query")
	assert.Equal(t, 2, m.Len())

	m.Purge()
	assert.Zero(t, m.Len())
}

func TestNewMemoRejectsZeroSize(t *testing.T) {
	_, err := NewMemo(Keyword{}, 0)
	assert.Error(t, err)
}

func TestMemoSharesConcurrentMisses(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	inner := Func(func(ctx context.Context, text string) (models.Analysis, error) {
		calls.Add(1)
		<-release
		return Keyword{}.Analyze(ctx, text)
	})

	m, err := NewMemo(inner, 8)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := m.Analyze(context.Background(), "show node uptime")
			assert.NoError(t, err)
			assert.Equal(t, models.ComplexitySimple, a.Complexity)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestMemoHonoursCallerContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	inner := Func(func(ctx context.Context, text string) (models.Analysis, error) {
		<-release
		return models.Analysis{}, nil
	})

	m, err := NewMemo(inner, 8)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Analyze(ctx, "slow query")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, m.Len())
}
