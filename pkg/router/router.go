// Package router routes queries through the cache, shortcut patterns, the
// complexity decision and the backends under a response-time budget.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pario-ai/fastroute/pkg/backend"
	"github.com/pario-ai/fastroute/pkg/breaker"
	"github.com/pario-ai/fastroute/pkg/cache/tiered"
	"github.com/pario-ai/fastroute/pkg/config"
	"github.com/pario-ai/fastroute/pkg/decision"
	"github.com/pario-ai/fastroute/pkg/logging"
	"github.com/pario-ai/fastroute/pkg/models"
	"github.com/pario-ai/fastroute/pkg/pattern"
	"github.com/pario-ai/fastroute/pkg/scorer"
	"github.com/pario-ai/fastroute/pkg/stats"
	"github.com/pario-ai/fastroute/pkg/tracker"
)

var (
	// ErrAnalysisTimeout means the scorer missed the analysis deadline.
	ErrAnalysisTimeout = errors.New("analysis timeout")
	// ErrNoQuery means the query text was empty.
	ErrNoQuery = errors.New("empty query")
)

// Routing sources reported in metadata.routing_source.
const (
	SourceCache     = "cache"
	SourcePattern   = "pattern"
	SourceDecision  = "decision"
	SourceHeuristic = "heuristic"
	SourceFallback  = "fallback"
)

const (
	fallbackMessage    = "The system is temporarily overloaded. Please try again shortly."
	fallbackConfidence = 0.3
	fallbackNominalMs  = 50
	journalTimeout     = 5 * time.Second
)

// Router is safe for concurrent use.
type Router struct {
	cfg      config.RouterConfig
	cache    *tiered.Cache
	matcher  *pattern.Matcher
	scorer   scorer.Scorer
	breakers *breaker.Registry
	executor *backend.Executor
	journal  tracker.Journal
	stats    stats.Collector
	logger   *zap.Logger

	requests         atomic.Int64
	cacheHits        atomic.Int64
	patternMatches   atomic.Int64
	decisions        atomic.Int64
	analysisTimeouts atomic.Int64
	retries          atomic.Int64
	fallbacks        atomic.Int64

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// New creates a Router. sc is consulted for queries that miss the cache and
// the shortcut patterns; backends maps ids to implementations and should
// contain local, the retry target.
func New(sc scorer.Scorer, backends map[models.BackendID]backend.Backend, opts ...Option) (*Router, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	if sc == nil {
		return nil, fmt.Errorf("router: scorer is required")
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	if _, ok := backends[models.BackendLocal]; !ok {
		return nil, fmt.Errorf("router: %w: %s", backend.ErrUnknownBackend, models.BackendLocal)
	}

	matcher, err := pattern.New(o.patterns)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	logger := o.logger.Named("router")
	breakers := breaker.New(o.cfg.HalfOpenAfter,
		breaker.WithClock(o.now),
		breaker.WithLogger(logger.Named("breaker")))

	r := &Router{
		cfg: o.cfg,
		cache: tiered.New(
			tiered.WithStrategy(o.cfg.CacheStrategy),
			tiered.WithCapacity(o.cfg.CacheCapacity),
			tiered.WithClock(o.now),
			tiered.WithLogger(logger.Named("cache")),
		),
		matcher:  matcher,
		scorer:   sc,
		breakers: breakers,
		executor: backend.NewExecutor(backends, breakers, o.cfg.MaxResponseTime, o.cfg.RetryTimeout, logger.Named("executor")),
		journal:  o.journal,
		stats:    o.stats,
		logger:   logger,
	}
	return r, nil
}

// Route answers q. It never fails: every error becomes the fallback response.
func (r *Router) Route(ctx context.Context, q models.Query) models.QueryResponse {
	start := time.Now()
	requestID := uuid.NewString()
	r.count(&r.requests, stats.MetricRequests)

	if strings.TrimSpace(q.Text) == "" {
		return r.finish(q, requestID, start, r.fallback(ErrNoQuery, start), SourceFallback)
	}

	if cached, tier, ok := r.cache.Lookup(q.Text); ok {
		r.count(&r.cacheHits, stats.MetricCacheHits)
		r.breakers.Record(models.BucketCache, true, time.Since(start))
		resp := *cached
		resp.Source = SourceCache
		resp.Metadata.CacheTier = string(tier)
		return r.finish(q, requestID, start, resp, SourceCache)
	}
	r.stats.IncCounter(stats.MetricCacheMisses, 1)

	d, routing := r.pickRoute(ctx, q.Text)

	out, err := r.executor.Execute(ctx, q, d)
	if out.Retried {
		r.count(&r.retries, stats.MetricRetries)
	}
	if err != nil {
		r.logger.Warn("route failed, serving fallback",
			zap.String("request_id", requestID),
			zap.String("backend", string(d.Backend)),
			zap.Error(err))
		return r.finish(q, requestID, start, r.fallback(err, start), SourceFallback)
	}

	source := string(out.Backend)
	if routing == SourcePattern {
		source = SourcePattern
	}
	resp := models.QueryResponse{
		Success:          out.Result.Success,
		Response:         out.Result.Response,
		ProcessingTimeMs: out.Result.ProcessingTimeMs,
		Source:           source,
		Confidence:       d.Confidence,
		Metadata: models.Metadata{
			Backend:   out.Backend,
			Reasoning: d.Reasoning,
			Extra:     out.Result.Metadata,
		},
	}
	if !resp.Success {
		resp.Error = fmt.Sprintf("%s returned an unsuccessful result", out.Backend)
	}

	r.cache.Insert(q.Text, resp)
	return r.finish(q, requestID, start, resp, routing)
}

// pickRoute runs the shortcut patterns, then the timed decision.
func (r *Router) pickRoute(ctx context.Context, text string) (models.RouteDecision, string) {
	if r.cfg.PredictiveRouting {
		if d, ok := r.matcher.Match(text); ok {
			r.count(&r.patternMatches, stats.MetricPatternMatches)
			r.logger.Debug("pattern match",
				zap.String("query", logging.Truncate(text, 64)),
				zap.String("backend", string(d.Backend)),
				zap.String("reasoning", d.Reasoning))
			return d, SourcePattern
		}
	}

	d, err := r.analyze(ctx, text)
	if err != nil {
		r.count(&r.analysisTimeouts, stats.MetricAnalysisTimeouts)
		r.logger.Debug("analysis unavailable, using heuristic",
			zap.String("query", logging.Truncate(text, 64)),
			zap.Error(err))
		return pattern.FastDecision(text), SourceHeuristic
	}
	r.count(&r.decisions, stats.MetricDecisions)
	return d, SourceDecision
}

// analyze runs the scorer and the circuit snapshot against the analysis
// timeout. A late scorer keeps running but its result is discarded.
func (r *Router) analyze(ctx context.Context, text string) (models.RouteDecision, error) {
	actx, cancel := context.WithTimeout(ctx, r.cfg.AnalysisTimeout)
	defer cancel()

	var (
		analysis models.Analysis
		circuits map[models.BackendID]models.CircuitState
	)
	run := func() error {
		if !r.cfg.ParallelProcessing {
			a, err := r.scorer.Analyze(actx, text)
			if err != nil {
				return err
			}
			analysis, circuits = a, r.snapshot()
			return nil
		}
		g, gctx := errgroup.WithContext(actx)
		g.Go(func() error {
			return recovered(func() error {
				a, err := r.scorer.Analyze(gctx, text)
				analysis = a
				return err
			})
		})
		g.Go(func() error {
			return recovered(func() error {
				circuits = r.snapshot()
				return nil
			})
		})
		return g.Wait()
	}

	done := make(chan error, 1)
	go func() { done <- recovered(run) }()

	select {
	case err := <-done:
		if err != nil {
			return models.RouteDecision{}, fmt.Errorf("analyze: %w", err)
		}
		return decision.Decide(analysis, circuits), nil
	case <-actx.Done():
		return models.RouteDecision{}, fmt.Errorf("%w after %v", ErrAnalysisTimeout, r.cfg.AnalysisTimeout)
	}
}

// recovered runs fn and turns a panic into an error.
func recovered(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

func (r *Router) snapshot() map[models.BackendID]models.CircuitState {
	if !r.cfg.CircuitBreakerEnabled {
		return r.breakers.AllClosed()
	}
	return r.breakers.Snapshot()
}

func (r *Router) fallback(err error, start time.Time) models.QueryResponse {
	r.count(&r.fallbacks, stats.MetricFallbacks)
	r.breakers.Record(models.BucketFallback, false, time.Since(start))
	return models.QueryResponse{
		Success:          false,
		Response:         fallbackMessage,
		ProcessingTimeMs: fallbackNominalMs,
		Source:           SourceFallback,
		Confidence:       fallbackConfidence,
		Error:            err.Error(),
		Metadata: models.Metadata{
			Fallback: true,
			Error:    err.Error(),
		},
	}
}

// finish stamps routing metadata, publishes metrics and journals the request.
func (r *Router) finish(q models.Query, requestID string, start time.Time, resp models.QueryResponse, routing string) models.QueryResponse {
	elapsed := time.Since(start)
	elapsedMs := float64(elapsed) / float64(time.Millisecond)

	if !resp.Metadata.Fallback {
		resp.ProcessingTimeMs = elapsedMs
	}
	resp.Metadata.RoutingSource = routing
	resp.Metadata.OptimizedRouting = true
	resp.Metadata.TargetTimeMs = r.cfg.MaxResponseTime.Milliseconds()
	resp.Metadata.RequestID = requestID
	resp.Metadata.ElapsedMs = elapsedMs

	r.stats.ObserveHistogram(stats.MetricRouteSeconds, elapsed.Seconds())
	cs := r.cache.Stats()
	r.stats.SetGauge(stats.MetricCacheL1Size, int64(cs.L1Size))
	r.stats.SetGauge(stats.MetricCacheL2Size, int64(cs.L2Size))
	r.stats.SetGauge(stats.MetricCacheL3Size, int64(cs.L3Size))

	backendID := resp.Metadata.Backend
	switch routing {
	case SourceCache:
		backendID = models.BucketCache
	case SourceFallback:
		backendID = models.BucketFallback
	}
	r.record(models.RouteRecord{
		RequestID:  requestID,
		QueryHash:  tracker.HashQuery(q.Text),
		Source:     routing,
		Backend:    backendID,
		Success:    resp.Success,
		LatencyMs:  elapsedMs,
		Confidence: resp.Confidence,
		CacheTier:  resp.Metadata.CacheTier,
		CreatedAt:  time.Now().UTC(),
	})
	return resp
}

func (r *Router) record(rec models.RouteRecord) {
	if r.journal == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.pending.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		if err := r.journal.Record(ctx, rec); err != nil {
			r.logger.Warn("journal write failed", zap.String("request_id", rec.RequestID), zap.Error(err))
		}
	}()
}

func (r *Router) count(c *atomic.Int64, metric string) {
	c.Add(1)
	r.stats.IncCounter(metric, 1)
}

// PerformanceStats returns a snapshot of backend health, cache occupancy,
// pipeline counters and the active configuration.
func (r *Router) PerformanceStats() models.PerformanceStats {
	cs := r.cache.Stats()
	cs.PatternCount = r.matcher.Len()
	return models.PerformanceStats{
		EngineMetrics: r.breakers.Metrics(),
		CacheStats:    cs,
		Pipeline: models.PipelineStats{
			Requests:         r.requests.Load(),
			CacheHits:        r.cacheHits.Load(),
			PatternMatches:   r.patternMatches.Load(),
			Decisions:        r.decisions.Load(),
			AnalysisTimeouts: r.analysisTimeouts.Load(),
			Retries:          r.retries.Load(),
			Fallbacks:        r.fallbacks.Load(),
		},
		Config: r.cfg,
	}
}

// ClearCache empties every cache tier.
func (r *Router) ClearCache() {
	r.cache.Clear()
	r.logger.Info("cache cleared")
}

// Close waits for pending journal writes. Routes served afterwards are not
// journaled. The journal itself is owned by the caller.
func (r *Router) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.pending.Wait()
	return nil
}
