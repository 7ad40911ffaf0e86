package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/pario-ai/fastroute/pkg/config"
	"github.com/pario-ai/fastroute/pkg/fx/routerfx"
	"github.com/pario-ai/fastroute/pkg/router"
	"github.com/pario-ai/fastroute/pkg/tracker"
)

// withRouter builds the router in-process, runs fn and stops the app so
// pending journal writes land before returning.
func withRouter(ctx context.Context, cfg *config.Config, fn func(context.Context, *router.Router, tracker.Journal) error) error {
	var (
		r *router.Router
		j tracker.Journal
	)
	app := fx.New(
		fx.Supply(cfg),
		routerfx.Module,
		fx.NopLogger,
		fx.Populate(&r, &j),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start router: %w", err)
	}

	runErr := fn(ctx, r, j)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("stop router: %w", err)
	}
	return runErr
}
