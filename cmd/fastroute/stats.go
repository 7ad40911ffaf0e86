package main

import (
	"fmt"
	"net/http"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pario-ai/fastroute/pkg/models"
)

func newStatsCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show backend health, cache and pipeline statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ps models.PerformanceStats
			if err := newAPIClient(addr).do(cmd.Context(), http.MethodGet, "/v1/stats", nil, &ps); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "BACKEND\tCIRCUIT\tAVG (MS)\tSUCCESS\tERRORS\tLAST USED")
			ids := make([]models.BackendID, 0, len(ps.EngineMetrics))
			for id := range ps.EngineMetrics {
				ids = append(ids, id)
			}
			slices.Sort(ids)
			for _, id := range ids {
				m := ps.EngineMetrics[id]
				lastUsed := "never"
				if !m.LastUsedAt.IsZero() {
					lastUsed = humanize.Time(m.LastUsedAt)
				}
				fmt.Fprintf(w, "%s\t%s\t%.1f\t%.0f%%\t%d\t%s\n",
					id, m.CircuitState, m.AvgResponseTimeMs, m.SuccessRate*100, m.ErrorCount, lastUsed)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			cs := ps.CacheStats
			fmt.Println()
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIER\tENTRIES\tHITS")
			fmt.Fprintf(w, "L1\t%s\t%s\n", humanize.Comma(int64(cs.L1Size)), humanize.Comma(cs.L1Hits))
			fmt.Fprintf(w, "L2\t%s\t%s\n", humanize.Comma(int64(cs.L2Size)), humanize.Comma(cs.L2Hits))
			fmt.Fprintf(w, "L3\t%s\t%s\n", humanize.Comma(int64(cs.L3Size)), humanize.Comma(cs.L3Hits))
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("misses: %s  hit rate: %.1f%%  patterns: %d\n",
				humanize.Comma(cs.Misses), cs.HitRate(), cs.PatternCount)

			p := ps.Pipeline
			fmt.Println()
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "REQUESTS\tCACHE\tPATTERN\tDECISION\tTIMEOUT\tRETRIES\tFALLBACKS")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				humanize.Comma(p.Requests), humanize.Comma(p.CacheHits), humanize.Comma(p.PatternMatches),
				humanize.Comma(p.Decisions), humanize.Comma(p.AnalysisTimeouts), humanize.Comma(p.Retries),
				humanize.Comma(p.Fallbacks))
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "fastroute server address")
	return cmd
}
