package main

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pario-ai/fastroute/pkg/backend"
	"github.com/pario-ai/fastroute/pkg/config"
	"github.com/pario-ai/fastroute/pkg/models"
	"github.com/pario-ai/fastroute/pkg/router"
	"github.com/pario-ai/fastroute/pkg/scorer"
)

func newBenchCmd() *cobra.Command {
	var (
		n           int
		concurrency int
		sequential  bool
		strategy    string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Replay distinct simple queries against simulated backends",
		Long: `bench routes N distinct simple queries through an in-process router
backed by simulated backends and reports how many were decided by the
decision phase versus its timeout heuristic.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 {
				return fmt.Errorf("-n must be positive")
			}
			if concurrency <= 0 {
				concurrency = 1
			}

			cfg := config.Default()
			cfg.Router.ParallelProcessing = !sequential
			cfg.Router.CacheStrategy = strategy
			if err := cfg.Validate(); err != nil {
				return err
			}

			r, err := router.New(scorer.Keyword{}, backend.DefaultSimulated(), router.WithConfig(cfg.Router))
			if err != nil {
				return err
			}
			defer r.Close()

			start := time.Now()
			latencies, failed, err := runBench(cmd.Context(), r, n, concurrency)
			if err != nil {
				return err
			}
			wall := time.Since(start)

			p := r.PerformanceStats().Pipeline

			fmt.Printf("fastroute bench\n")
			fmt.Printf("===============\n\n")
			fmt.Printf("Queries:      %s (concurrency %d, parallel analysis %t)\n",
				humanize.Comma(int64(n)), concurrency, !sequential)
			fmt.Printf("Wall time:    %s\n\n", wall.Round(time.Millisecond))
			fmt.Printf("Decided:      %s (%.1f%%)\n", humanize.Comma(p.Decisions), pct(p.Decisions, n))
			fmt.Printf("Heuristic:    %s (%.1f%%)\n", humanize.Comma(p.AnalysisTimeouts), pct(p.AnalysisTimeouts, n))
			fmt.Printf("Pattern:      %s\n", humanize.Comma(p.PatternMatches))
			fmt.Printf("Cache hits:   %s\n", humanize.Comma(p.CacheHits))
			fmt.Printf("Retries:      %s\n", humanize.Comma(p.Retries))
			fmt.Printf("Fallbacks:    %s\n", humanize.Comma(p.Fallbacks))
			fmt.Printf("Failed:       %d\n\n", failed)
			fmt.Printf("Latency p50:  %.1fms\n", percentile(latencies, 0.50))
			fmt.Printf("Latency p95:  %.1fms\n", percentile(latencies, 0.95))
			fmt.Printf("Latency p99:  %.1fms\n", percentile(latencies, 0.99))
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "count", "n", 1000, "number of distinct queries")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "concurrent routes")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "run scoring and circuit snapshot sequentially")
	cmd.Flags().StringVar(&strategy, "cache-strategy", config.StrategyAggressive, "cache strategy: aggressive, balanced, conservative")
	return cmd
}

// benchQuery returns the i-th bench query. The index is part of a word long
// enough to change the pattern key, so no query is answered from cache.
func benchQuery(i int) string {
	return fmt.Sprintf("show node%d uptime", i)
}

// runBench routes n distinct simple queries and returns their sorted
// processing times and the number that failed.
func runBench(ctx context.Context, r *router.Router, n, concurrency int) ([]float64, int, error) {
	var (
		mu        sync.Mutex
		latencies = make([]float64, 0, n)
		failed    int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i := range n {
		g.Go(func() error {
			resp := r.Route(ctx, models.Query{Text: benchQuery(i)})
			mu.Lock()
			latencies = append(latencies, resp.ProcessingTimeMs)
			if !resp.Success {
				failed++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	slices.Sort(latencies)
	return latencies, failed, nil
}

func pct(v int64, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(v) / float64(total) * 100
}

// percentile expects sorted input.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}
