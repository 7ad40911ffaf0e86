package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pario-ai/fastroute/pkg/models"
)

type routeArgs struct {
	Query string `json:"query"`
	Mode  string `json:"mode"`
}

type journalArgs struct {
	Limit   int    `json:"limit"`
	Summary bool   `json:"summary"`
	Since   string `json:"since"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"fastroute_route":       handleRoute,
	"fastroute_stats":       handleStats,
	"fastroute_clear_cache": handleClearCache,
	"fastroute_journal":     handleJournal,
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "fastroute_route",
		Description: "Route a natural-language query to the best backend and return its answer with routing metadata.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"query"},
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The query text",
				},
				"mode": map[string]any{
					"type":        "string",
					"description": "Backend mode hint (optional)",
				},
			},
		},
	},
	{
		Name:        "fastroute_stats",
		Description: "Show backend health, circuit states, cache occupancy and pipeline counters.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "fastroute_clear_cache",
		Description: "Empty every response cache tier.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "fastroute_journal",
		Description: "Show recently routed requests, or a per-source summary of the route journal.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Number of recent records (optional, default 20)",
				},
				"summary": map[string]any{
					"type":        "boolean",
					"description": "Aggregate by routing source and backend instead of listing records",
				},
				"since": map[string]any{
					"type":        "string",
					"description": "Summary window as a Go duration, e.g. 24h (optional)",
				},
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func handleRoute(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args routeArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("query is required")
	}
	resp := s.router.Route(ctx, models.Query{Text: args.Query, Mode: args.Mode})
	result := textResult(formatRouteResponse(resp))
	result.IsError = !resp.Success
	return result
}

func handleStats(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	return textResult(formatStats(s.router.PerformanceStats()))
}

func handleClearCache(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	s.router.ClearCache()
	return textResult("Cache cleared.")
}

func handleJournal(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.journal == nil {
		return textResult("Route journal is not configured.")
	}
	var args journalArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}

	if args.Summary {
		var since time.Time
		if args.Since != "" {
			d, err := time.ParseDuration(args.Since)
			if err != nil {
				return errorResult("Invalid since duration (use e.g. 24h): " + err.Error())
			}
			since = time.Now().UTC().Add(-d)
		}
		rows, err := s.journal.Summary(ctx, since)
		if err != nil {
			return errorResult("Error fetching journal summary: " + err.Error())
		}
		return textResult(formatSummary(rows))
	}

	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}
	recs, err := s.journal.Recent(ctx, limit)
	if err != nil {
		return errorResult("Error fetching journal: " + err.Error())
	}
	return textResult(formatRecords(recs))
}
