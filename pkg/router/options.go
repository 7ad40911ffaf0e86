package router

import (
	"time"

	"go.uber.org/zap"

	"github.com/pario-ai/fastroute/pkg/config"
	"github.com/pario-ai/fastroute/pkg/stats"
	"github.com/pario-ai/fastroute/pkg/tracker"
)

// Option configures a Router.
type Option interface {
	apply(*options)
}

type options struct {
	cfg      config.RouterConfig
	patterns []config.PatternConfig
	stats    stats.Collector
	logger   *zap.Logger
	journal  tracker.Journal
	now      func() time.Time
}

func defaultOptions() options {
	return options{
		cfg:    config.DefaultRouter(),
		stats:  stats.NewNoop(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithConfig sets the routing configuration.
// If not set, config.DefaultRouter is used.
func WithConfig(cfg config.RouterConfig) Option {
	return optionFunc(func(o *options) {
		o.cfg = cfg
	})
}

// WithPatterns replaces the default shortcut rules.
func WithPatterns(p []config.PatternConfig) Option {
	return optionFunc(func(o *options) {
		o.patterns = p
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// WithJournal records every routed request. Writes are asynchronous and
// drained by Close.
func WithJournal(j tracker.Journal) Option {
	return optionFunc(func(o *options) {
		o.journal = j
	})
}

// WithClock overrides the clock used for cache TTLs and circuit timing.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) {
		o.now = now
	})
}
