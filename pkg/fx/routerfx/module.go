// Package routerfx provides an fx module for a fastroute router and its HTTP
// server. Requires a *config.Config to be supplied.
package routerfx

import (
	"context"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/pario-ai/fastroute/pkg/backend"
	"github.com/pario-ai/fastroute/pkg/config"
	"github.com/pario-ai/fastroute/pkg/logging"
	"github.com/pario-ai/fastroute/pkg/models"
	"github.com/pario-ai/fastroute/pkg/router"
	"github.com/pario-ai/fastroute/pkg/scorer"
	"github.com/pario-ai/fastroute/pkg/server"
	"github.com/pario-ai/fastroute/pkg/stats"
	"github.com/pario-ai/fastroute/pkg/stats/prometheus"
	"github.com/pario-ai/fastroute/pkg/stats/zaplog"
	"github.com/pario-ai/fastroute/pkg/tracker"
)

// Module provides the logger, stats collector, journal, backends, scorer,
// router and HTTP server.
var Module = fx.Module("fastroute",
	fx.Provide(
		newLogger,
		newMetrics,
		newJournal,
		newBackends,
		newScorer,
		newRouter,
		newServer,
	),
)

// Logger routes fx's own lifecycle events through the provided zap logger.
var Logger = fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: log.Named("fx")}
})

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel)
}

// MetricsResult holds the stats collector and, when Prometheus export is
// enabled, the handler serving the registry.
type MetricsResult struct {
	fx.Out

	Collector stats.Collector
	Handler   http.Handler `name:"metrics"`
}

func newMetrics(cfg *config.Config, log *zap.Logger) MetricsResult {
	if !cfg.Metrics.Enabled {
		return MetricsResult{Collector: zaplog.New(log.Named("fastroute.stats"))}
	}
	reg := promclient.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return MetricsResult{
		Collector: prometheus.New(reg),
		Handler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
}

func newJournal(cfg *config.Config, lc fx.Lifecycle, log *zap.Logger) (tracker.Journal, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	j, err := tracker.New(cfg.DBPath, cfg.Journal.RetentionDays)
	if err != nil {
		return nil, err
	}
	log.Info("route journal opened", zap.String("path", cfg.DBPath))
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return j.Close()
		},
	})
	return j, nil
}

func newBackends(cfg *config.Config, log *zap.Logger) (map[models.BackendID]backend.Backend, error) {
	if len(cfg.Backends) == 0 {
		log.Warn("no backends configured, using simulated backends")
		return backend.DefaultSimulated(), nil
	}
	return backend.FromConfig(cfg.Backends, &http.Client{})
}

func newScorer(cfg *config.Config) (scorer.Scorer, error) {
	m, err := scorer.NewMemo(scorer.Keyword{}, cfg.Router.MemoSize)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RouterParams holds dependencies for creating the router.
type RouterParams struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	Collector stats.Collector
	Journal   tracker.Journal
	Scorer    scorer.Scorer
	Backends  map[models.BackendID]backend.Backend
	Lifecycle fx.Lifecycle
}

func newRouter(p RouterParams) (*router.Router, error) {
	r, err := router.New(p.Scorer, p.Backends,
		router.WithConfig(p.Config.Router),
		router.WithPatterns(p.Config.Patterns),
		router.WithStats(p.Collector),
		router.WithJournal(p.Journal),
		router.WithLogger(p.Logger),
	)
	if err != nil {
		return nil, err
	}

	// Appended after the journal hook, so pending writes drain before the
	// journal closes.
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.Close()
		},
	})
	return r, nil
}

// ServerParams holds dependencies for creating the HTTP server.
type ServerParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Router  *router.Router
	Journal tracker.Journal
	Metrics http.Handler `name:"metrics" optional:"true"`
}

func newServer(p ServerParams) *server.Server {
	return server.New(p.Config, p.Router, p.Journal, p.Metrics, p.Logger)
}

// Serve runs the HTTP server for the lifetime of the application. A listener
// failure shuts the application down with exit code 1.
func Serve(lc fx.Lifecycle, srv *server.Server, sd fx.Shutdowner, log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := srv.ListenAndServe(ctx); err != nil {
					log.Error("server stopped", zap.Error(err))
					_ = sd.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
