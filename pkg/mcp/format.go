package mcp

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pario-ai/fastroute/pkg/models"
)

// formatRouteResponse formats a routed answer followed by its routing metadata.
func formatRouteResponse(r models.QueryResponse) string {
	var b strings.Builder
	b.WriteString(r.Response)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "source=%s routing=%s backend=%s confidence=%.2f time=%.1fms",
		r.Source, r.Metadata.RoutingSource, r.Metadata.Backend, r.Confidence, r.ProcessingTimeMs)
	if r.Metadata.CacheTier != "" {
		fmt.Fprintf(&b, " cache=%s", r.Metadata.CacheTier)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "\nerror: %s", r.Error)
	}
	return b.String()
}

// formatStats formats performance stats as text tables.
func formatStats(ps models.PerformanceStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-10s %10s %8s %6s\n", "Backend", "Circuit", "Avg (ms)", "Success", "Errors")
	b.WriteString(strings.Repeat("-", 50) + "\n")

	ids := make([]models.BackendID, 0, len(ps.EngineMetrics))
	for id := range ps.EngineMetrics {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		m := ps.EngineMetrics[id]
		fmt.Fprintf(&b, "%-12s %-10s %10.1f %7.0f%% %6d\n",
			id, m.CircuitState, m.AvgResponseTimeMs, m.SuccessRate*100, m.ErrorCount)
	}

	cs := ps.CacheStats
	fmt.Fprintf(&b, "\nCache\n"+
		"  Entries:  L1 %d, L2 %d, L3 %d\n"+
		"  Hits:     L1 %d, L2 %d, L3 %d\n"+
		"  Misses:   %d\n"+
		"  Hit Rate: %.1f%%\n"+
		"  Patterns: %d\n",
		cs.L1Size, cs.L2Size, cs.L3Size, cs.L1Hits, cs.L2Hits, cs.L3Hits, cs.Misses, cs.HitRate(), cs.PatternCount)

	p := ps.Pipeline
	fmt.Fprintf(&b, "\nPipeline\n"+
		"  Requests:          %d\n"+
		"  Cache hits:        %d\n"+
		"  Pattern matches:   %d\n"+
		"  Decisions:         %d\n"+
		"  Analysis timeouts: %d\n"+
		"  Retries:           %d\n"+
		"  Fallbacks:         %d\n",
		p.Requests, p.CacheHits, p.PatternMatches, p.Decisions, p.AnalysisTimeouts, p.Retries, p.Fallbacks)
	return b.String()
}

// formatRecords formats journaled routes as a text table.
func formatRecords(recs []models.RouteRecord) string {
	if len(recs) == 0 {
		return "No routes journaled."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-10s %-12s %-7s %10s %5s\n",
		"Time", "Source", "Backend", "Success", "Latency", "Tier")
	b.WriteString(strings.Repeat("-", 70) + "\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "%-20s %-10s %-12s %-7t %8.1fms %5s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Source, r.Backend, r.Success, r.LatencyMs, r.CacheTier)
	}
	return b.String()
}

// formatSummary formats journal summaries as a text table.
func formatSummary(rows []models.RouteSummary) string {
	if len(rows) == 0 {
		return "No routes journaled."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-12s %8s %8s %12s\n",
		"Source", "Backend", "Requests", "Success", "Avg Latency")
	b.WriteString(strings.Repeat("-", 54) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-10s %-12s %8d %8d %10.1fms\n",
			r.Source, r.Backend, r.RequestCount, r.SuccessCount, r.AvgLatencyMs)
	}
	return b.String()
}
