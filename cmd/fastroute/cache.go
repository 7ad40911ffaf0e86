package main

import (
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pario-ai/fastroute/pkg/models"
)

func newCacheCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache of a running server",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ps models.PerformanceStats
			if err := newAPIClient(addr).do(cmd.Context(), http.MethodGet, "/v1/stats", nil, &ps); err != nil {
				return err
			}
			cs := ps.CacheStats
			fmt.Printf("Entries:  L1 %s, L2 %s, L3 %s\n",
				humanize.Comma(int64(cs.L1Size)), humanize.Comma(int64(cs.L2Size)), humanize.Comma(int64(cs.L3Size)))
			fmt.Printf("Hits:     L1 %s, L2 %s, L3 %s\n",
				humanize.Comma(cs.L1Hits), humanize.Comma(cs.L2Hits), humanize.Comma(cs.L3Hits))
			fmt.Printf("Misses:   %s\n", humanize.Comma(cs.Misses))
			fmt.Printf("Hit rate: %.1f%%\n", cs.HitRate())
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear every cache tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newAPIClient(addr).do(cmd.Context(), http.MethodDelete, "/v1/cache", nil, nil); err != nil {
				return err
			}
			fmt.Println("All cache entries cleared.")
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&addr, "addr", defaultAddr, "fastroute server address")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
