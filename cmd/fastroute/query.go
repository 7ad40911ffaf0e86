package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pario-ai/fastroute/pkg/models"
	"github.com/pario-ai/fastroute/pkg/router"
	"github.com/pario-ai/fastroute/pkg/tracker"
)

func newQueryCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		mode       string
		local      bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Route a query and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := models.Query{Text: strings.Join(args, " "), Mode: mode}
			ctx := cmd.Context()

			var resp models.QueryResponse
			if local {
				cfg, err := loadConfig(cmd, configPath)
				if err != nil {
					return err
				}
				err = withRouter(ctx, cfg, func(ctx context.Context, r *router.Router, _ tracker.Journal) error {
					resp = r.Route(ctx, q)
					return nil
				})
				if err != nil {
					return err
				}
			} else {
				if err := newAPIClient(addr).do(ctx, http.MethodPost, "/v1/route", q, &resp); err != nil {
					return err
				}
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			printResponse(resp)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "fastroute server address")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "backend mode hint")
	cmd.Flags().BoolVar(&local, "local", false, "route in-process instead of calling a server")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw response")
	return cmd
}

func printResponse(r models.QueryResponse) {
	fmt.Println(r.Response)
	fmt.Println()
	fmt.Printf("source:     %s\n", r.Source)
	fmt.Printf("routing:    %s\n", r.Metadata.RoutingSource)
	if r.Metadata.Backend != "" {
		fmt.Printf("backend:    %s\n", r.Metadata.Backend)
	}
	if r.Metadata.CacheTier != "" {
		fmt.Printf("cache tier: %s\n", r.Metadata.CacheTier)
	}
	fmt.Printf("confidence: %.2f\n", r.Confidence)
	fmt.Printf("time:       %.1fms (target %dms)\n", r.ProcessingTimeMs, r.Metadata.TargetTimeMs)
	if r.Error != "" {
		fmt.Printf("error:      %s\n", r.Error)
	}
}
