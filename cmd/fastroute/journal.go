package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pario-ai/fastroute/pkg/tracker"
)

func newJournalCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		summary    bool
		since      time.Duration
		cleanup    bool
	)

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the route journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, configPath)
			if err != nil {
				return err
			}

			retention := 0
			if cleanup {
				retention = cfg.Journal.RetentionDays
			}
			j, err := tracker.New(cfg.DBPath, retention)
			if err != nil {
				return err
			}
			defer func() { _ = j.Close() }()

			ctx := cmd.Context()

			if cleanup {
				n, err := j.Cleanup(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Removed %s records older than %d days.\n", humanize.Comma(n), cfg.Journal.RetentionDays)
				return nil
			}

			if summary {
				var from time.Time
				if since > 0 {
					from = time.Now().UTC().Add(-since)
				}
				rows, err := j.Summary(ctx, from)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Println("No routes journaled.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SOURCE\tBACKEND\tREQUESTS\tSUCCESS\tAVG LATENCY")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1fms\n",
						r.Source, r.Backend, humanize.Comma(int64(r.RequestCount)), humanize.Comma(int64(r.SuccessCount)), r.AvgLatencyMs)
				}
				return w.Flush()
			}

			recs, err := j.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("No routes journaled.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tREQUEST ID\tSOURCE\tBACKEND\tSUCCESS\tLATENCY\tTIER")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%.1fms\t%s\n",
					humanize.Time(r.CreatedAt), r.RequestID, r.Source, r.Backend, r.Success, r.LatencyMs, r.CacheTier)
			}
			return w.Flush()
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of recent records")
	cmd.Flags().BoolVar(&summary, "summary", false, "aggregate by routing source and backend")
	cmd.Flags().DurationVar(&since, "since", 0, "summary window, e.g. 24h (default: all)")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "delete records past the configured retention")
	return cmd
}
