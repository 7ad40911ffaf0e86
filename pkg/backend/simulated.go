package backend

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pario-ai/fastroute/pkg/models"
)

// Simulated answers after a fixed latency and fails at a configured rate.
type Simulated struct {
	ID          models.BackendID
	Latency     time.Duration
	FailureRate float64
}

// Invoke implements Backend.
func (s *Simulated) Invoke(ctx context.Context, q models.Query, opts InvokeOptions) (*models.BackendResult, error) {
	t := time.NewTimer(s.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
	}

	ms := float64(s.Latency) / float64(time.Millisecond)
	if s.FailureRate > 0 && rand.Float64() < s.FailureRate {
		return &models.BackendResult{Success: false, ProcessingTimeMs: ms}, nil
	}
	return &models.BackendResult{
		Success:          true,
		Response:         fmt.Sprintf("[%s/%s] %s", s.ID, opts.Mode, q.Text),
		ProcessingTimeMs: ms,
		Confidence:       0.8,
	}, nil
}
