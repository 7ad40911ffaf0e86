package scorer

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/pario-ai/fastroute/pkg/models"
)

// Compile-time check that Memo implements Scorer.
var _ Scorer = (*Memo)(nil)

// Memo remembers successful analyses of recently seen queries. Concurrent
// misses on the same key share one call to the wrapped scorer.
type Memo struct {
	next  Scorer
	cache *lru.Cache[string, models.Analysis]
	sf    singleflight.Group
}

// NewMemo wraps next with an LRU of the given size.
func NewMemo(next Scorer, size int) (*Memo, error) {
	c, err := lru.New[string, models.Analysis](size)
	if err != nil {
		return nil, err
	}
	return &Memo{next: next, cache: c}, nil
}

// Analyze returns a remembered analysis or delegates to the wrapped scorer.
// Errors are not remembered.
func (m *Memo) Analyze(ctx context.Context, text string) (models.Analysis, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	if a, ok := m.cache.Get(key); ok {
		return a, nil
	}

	ch := m.sf.DoChan(key, func() (any, error) {
		a, err := m.next.Analyze(ctx, text)
		if err != nil {
			return nil, err
		}
		m.cache.Add(key, a)
		return a, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return models.Analysis{}, res.Err
		}
		return res.Val.(models.Analysis), nil
	case <-ctx.Done():
		return models.Analysis{}, ctx.Err()
	}
}

// Len returns the number of remembered analyses.
func (m *Memo) Len() int {
	return m.cache.Len()
}

// Purge forgets everything.
func (m *Memo) Purge() {
	m.cache.Purge()
}
