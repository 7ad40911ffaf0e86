package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pario-ai/fastroute/pkg/models"
)

const (
	deadlineSlack  = 10 * time.Millisecond
	budgetReserve  = 30 * time.Millisecond
	minimumTimeout = time.Millisecond
)

// Recorder receives the outcome of every backend attempt.
type Recorder interface {
	Record(id models.BackendID, success bool, elapsed time.Duration)
}

// Outcome describes how a decision was executed.
type Outcome struct {
	Result  *models.BackendResult
	Backend models.BackendID
	Retried bool
	Elapsed time.Duration
}

// Executor runs a decision against its backend with one bounded retry on local.
type Executor struct {
	backends     map[models.BackendID]Backend
	recorder     Recorder
	budget       time.Duration
	retryTimeout time.Duration
	logger       *zap.Logger
}

// NewExecutor creates an Executor. budget is the overall response-time
// target; retryTimeout bounds the single retry on local.
func NewExecutor(backends map[models.BackendID]Backend, rec Recorder, budget, retryTimeout time.Duration, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		backends:     backends,
		recorder:     rec,
		budget:       budget,
		retryTimeout: retryTimeout,
		logger:       logger,
	}
}

// Deadline returns min(estimate+10ms, budget-30ms), never below 1ms.
func Deadline(estimateMs float64, budget time.Duration) time.Duration {
	est := time.Duration(estimateMs*float64(time.Millisecond)) + deadlineSlack
	return max(min(est, budget-budgetReserve), minimumTimeout)
}

// Execute invokes d.Backend. On timeout or error a non-local choice is
// retried once on local. A result with Success false is returned unchanged.
func (e *Executor) Execute(ctx context.Context, q models.Query, d models.RouteDecision) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{Backend: d.Backend}, fmt.Errorf("%w: %s: %w", ErrBackendTimeout, d.Backend, err)
	}

	mode := q.Mode
	if mode == "" {
		mode = string(d.Backend)
	}

	res, elapsed, err := e.attempt(ctx, d.Backend, q, Deadline(d.EstimatedTimeMs, e.budget), mode)
	if err == nil {
		return Outcome{Result: res, Backend: d.Backend, Elapsed: elapsed}, nil
	}
	if d.Backend == models.BackendLocal || ctx.Err() != nil {
		return Outcome{Backend: d.Backend, Elapsed: elapsed}, err
	}

	e.logger.Warn("backend attempt failed, retrying on local",
		zap.String("backend", string(d.Backend)), zap.Error(err))

	retryMode := q.Mode
	if retryMode == "" {
		retryMode = string(models.BackendLocal)
	}
	res, retryElapsed, retryErr := e.attempt(ctx, models.BackendLocal, q, e.retryTimeout, retryMode)
	out := Outcome{Backend: models.BackendLocal, Retried: true, Elapsed: elapsed + retryElapsed}
	if retryErr != nil {
		return out, fmt.Errorf("%w; retry: %w", err, retryErr)
	}
	out.Result = res
	return out, nil
}

type reply struct {
	res *models.BackendResult
	err error
}

func (e *Executor) attempt(ctx context.Context, id models.BackendID, q models.Query, timeout time.Duration, mode string) (*models.BackendResult, time.Duration, error) {
	b, ok := e.backends[id]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownBackend, id)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so an abandoned call can still deliver and exit.
	ch := make(chan reply, 1)
	start := time.Now()
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- reply{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		res, err := b.Invoke(callCtx, q, InvokeOptions{Timeout: timeout, Mode: mode})
		ch <- reply{res: res, err: err}
	}()

	var r reply
	select {
	case r = <-ch:
	case <-callCtx.Done():
		elapsed := time.Since(start)
		e.recorder.Record(id, false, elapsed)
		return nil, elapsed, fmt.Errorf("%w: %s after %v", ErrBackendTimeout, id, timeout)
	}

	elapsed := time.Since(start)
	switch {
	case r.err != nil:
		e.recorder.Record(id, false, elapsed)
		if errors.Is(r.err, context.DeadlineExceeded) {
			return nil, elapsed, fmt.Errorf("%w: %s: %w", ErrBackendTimeout, id, r.err)
		}
		return nil, elapsed, fmt.Errorf("%w: %s: %w", ErrBackendFailed, id, r.err)
	case r.res == nil:
		e.recorder.Record(id, false, elapsed)
		return nil, elapsed, fmt.Errorf("%w: %s returned no result", ErrBackendFailed, id)
	}
	e.recorder.Record(id, r.res.Success, elapsed)
	return r.res, elapsed, nil
}
