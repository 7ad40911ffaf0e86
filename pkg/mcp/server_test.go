package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pario-ai/fastroute/pkg/models"
)

// fakeRouter implements Router for testing.
type fakeRouter struct {
	queries []models.Query
	cleared int
	stats   models.PerformanceStats
	fail    bool
}

func (f *fakeRouter) Route(_ context.Context, q models.Query) models.QueryResponse {
	f.queries = append(f.queries, q)
	if f.fail {
		return models.QueryResponse{
			Success:    false,
			Response:   "overloaded",
			Source:     "fallback",
			Confidence: 0.3,
			Error:      "backend timeout",
			Metadata:   models.Metadata{RoutingSource: "fallback", Fallback: true},
		}
	}
	return models.QueryResponse{
		Success:          true,
		Response:         "all systems nominal",
		ProcessingTimeMs: 42,
		Source:           "pattern",
		Confidence:       0.9,
		Metadata:         models.Metadata{RoutingSource: "pattern", Backend: models.BackendLocal},
	}
}

func (f *fakeRouter) PerformanceStats() models.PerformanceStats { return f.stats }
func (f *fakeRouter) ClearCache()                               { f.cleared++ }

// fakeJournal implements tracker.Journal for testing.
type fakeJournal struct {
	records   []models.RouteRecord
	summaries []models.RouteSummary
	limit     int
	since     time.Time
}

func (f *fakeJournal) Record(_ context.Context, rec models.RouteRecord) error {
	f.records = append(f.records, rec)
	return nil
}
func (f *fakeJournal) Recent(_ context.Context, limit int) ([]models.RouteRecord, error) {
	f.limit = limit
	return f.records, nil
}
func (f *fakeJournal) Summary(_ context.Context, since time.Time) ([]models.RouteSummary, error) {
	f.since = since
	return f.summaries, nil
}
func (f *fakeJournal) Cleanup(_ context.Context) (int64, error) { return 0, nil }
func (f *fakeJournal) Close() error                             { return nil }

func sendAndReceive(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	line = append(line, '\n')

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, out.String())
	}
	return resp
}

func callTool(t *testing.T, srv *Server, name, args string) ToolCallResult {
	t.Helper()
	params, _ := json.Marshal(ToolCallParams{Name: name, Arguments: json.RawMessage(args)})
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`3`),
		Method:  "tools/call",
		Params:  params,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolCallResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
	return result
}

func TestInitialize(t *testing.T) {
	srv := New(&fakeRouter{}, nil, "test", nil)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "initialize",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result InitializeResult
	json.Unmarshal(data, &result)

	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocol version = %s, want 2024-11-05", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "fastroute" {
		t.Errorf("server name = %s, want fastroute", result.ServerInfo.Name)
	}
	if result.ServerInfo.Version != "test" {
		t.Errorf("server version = %s, want test", result.ServerInfo.Version)
	}
}

func TestToolsList(t *testing.T) {
	srv := New(&fakeRouter{}, nil, "test", nil)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`2`),
		Method:  "tools/list",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolsListResult
	json.Unmarshal(data, &result)

	if len(result.Tools) != 4 {
		t.Errorf("got %d tools, want 4", len(result.Tools))
	}

	names := make(map[string]bool)
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"fastroute_route", "fastroute_stats", "fastroute_clear_cache", "fastroute_journal"} {
		if !names[want] {
			t.Errorf("missing tool: %s", want)
		}
	}
}

func TestUnknownMethod(t *testing.T) {
	srv := New(&fakeRouter{}, nil, "test", nil)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`9`),
		Method:  "resources/list",
	})
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", resp.Error)
	}
}

func TestRejectsWrongVersion(t *testing.T) {
	srv := New(&fakeRouter{}, nil, "test", nil)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "1.0",
		ID:      json.RawMessage(`10`),
		Method:  "ping",
	})
	if resp.Error == nil || resp.Error.Code != CodeInvalidRequest {
		t.Fatalf("expected invalid request, got %+v", resp.Error)
	}
}

func TestParseError(t *testing.T) {
	srv := New(&fakeRouter{}, nil, "test", nil)
	var out bytes.Buffer
	if err := srv.Run(context.Background(), strings.NewReader("{not json\n"), &out); err != nil {
		t.Fatal(err)
	}
	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Fatalf("expected parse error, got %+v", resp.Error)
	}
}

func TestInitializedNotificationHasNoReply(t *testing.T) {
	srv := New(&fakeRouter{}, nil, "test", nil)
	var out bytes.Buffer
	in := `{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n"
	if err := srv.Run(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %s", out.String())
	}
}

func TestToolCallRoute(t *testing.T) {
	r := &fakeRouter{}
	srv := New(r, nil, "test", nil)

	result := callTool(t, srv, "fastroute_route", `{"query":"server status check","mode":"brief"}`)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content[0].Text)
	}
	if len(r.queries) != 1 || r.queries[0].Text != "server status check" || r.queries[0].Mode != "brief" {
		t.Errorf("unexpected routed queries: %+v", r.queries)
	}
	text := result.Content[0].Text
	if !strings.Contains(text, "all systems nominal") || !strings.Contains(text, "routing=pattern") {
		t.Errorf("unexpected output: %s", text)
	}
}

func TestToolCallRouteFallbackIsError(t *testing.T) {
	srv := New(&fakeRouter{fail: true}, nil, "test", nil)

	result := callTool(t, srv, "fastroute_route", `{"query":"anything"}`)
	if !result.IsError {
		t.Error("expected fallback to be reported as a tool error")
	}
	if !strings.Contains(result.Content[0].Text, "backend timeout") {
		t.Errorf("expected error text, got: %s", result.Content[0].Text)
	}
}

func TestToolCallRouteRequiresQuery(t *testing.T) {
	r := &fakeRouter{}
	srv := New(r, nil, "test", nil)

	result := callTool(t, srv, "fastroute_route", `{"query":"   "}`)
	if !result.IsError {
		t.Error("expected error for empty query")
	}
	if len(r.queries) != 0 {
		t.Error("router should not be called")
	}
}

func TestToolCallStats(t *testing.T) {
	r := &fakeRouter{stats: models.PerformanceStats{
		EngineMetrics: map[models.BackendID]models.BackendMetrics{
			models.BackendHeavy: {AvgResponseTimeMs: 180, SuccessRate: 0.6, ErrorCount: 5, CircuitState: models.CircuitOpen},
			models.BackendLocal: {AvgResponseTimeMs: 55, SuccessRate: 1, CircuitState: models.CircuitClosed},
		},
		CacheStats: models.CacheStats{L1Size: 3, L1Hits: 3, Misses: 1},
		Pipeline:   models.PipelineStats{Requests: 4, CacheHits: 3},
	}}
	srv := New(r, nil, "test", nil)

	text := callTool(t, srv, "fastroute_stats", `{}`).Content[0].Text
	for _, want := range []string{"heavy", "open", "Hit Rate: 75.0%", "Fallbacks:"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
	if strings.Index(text, "heavy") > strings.Index(text, "local") {
		t.Error("backends should be listed in id order")
	}
}

func TestToolCallClearCache(t *testing.T) {
	r := &fakeRouter{}
	srv := New(r, nil, "test", nil)

	result := callTool(t, srv, "fastroute_clear_cache", `{}`)
	if result.IsError || r.cleared != 1 {
		t.Errorf("expected one clear, got %d (error=%v)", r.cleared, result.IsError)
	}
}

func TestToolCallJournalNotConfigured(t *testing.T) {
	srv := New(&fakeRouter{}, nil, "test", nil)

	text := callTool(t, srv, "fastroute_journal", `{}`).Content[0].Text
	if !strings.Contains(text, "not configured") {
		t.Errorf("expected 'not configured', got: %s", text)
	}
}

func TestToolCallJournalRecent(t *testing.T) {
	j := &fakeJournal{records: []models.RouteRecord{
		{Source: "cache", Backend: "cache", Success: true, LatencyMs: 0.4, CacheTier: "L1", CreatedAt: time.Now()},
		{Source: "heavy", Backend: models.BackendHeavy, Success: true, LatencyMs: 131, CreatedAt: time.Now()},
	}}
	srv := New(&fakeRouter{}, j, "test", nil)

	text := callTool(t, srv, "fastroute_journal", `{}`).Content[0].Text
	if j.limit != 20 {
		t.Errorf("default limit = %d, want 20", j.limit)
	}
	if !strings.Contains(text, "L1") || !strings.Contains(text, "131.0ms") {
		t.Errorf("unexpected output:\n%s", text)
	}

	callTool(t, srv, "fastroute_journal", `{"limit":5}`)
	if j.limit != 5 {
		t.Errorf("limit = %d, want 5", j.limit)
	}
}

func TestToolCallJournalSummary(t *testing.T) {
	j := &fakeJournal{summaries: []models.RouteSummary{
		{Source: "pattern", Backend: models.BackendLocal, RequestCount: 12, SuccessCount: 11, AvgLatencyMs: 48.5},
	}}
	srv := New(&fakeRouter{}, j, "test", nil)

	before := time.Now().UTC()
	text := callTool(t, srv, "fastroute_journal", `{"summary":true,"since":"1h"}`).Content[0].Text
	if !strings.Contains(text, "pattern") || !strings.Contains(text, "48.5ms") {
		t.Errorf("unexpected output:\n%s", text)
	}
	if j.since.Before(before.Add(-time.Hour-time.Minute)) || j.since.After(before) {
		t.Errorf("since = %v, want about an hour before %v", j.since, before)
	}

	result := callTool(t, srv, "fastroute_journal", `{"summary":true,"since":"yesterday"}`)
	if !result.IsError {
		t.Error("expected error for bad duration")
	}
}

func TestToolCallUnknown(t *testing.T) {
	srv := New(&fakeRouter{}, nil, "test", nil)

	result := callTool(t, srv, "fastroute_budget", `{}`)
	if !result.IsError {
		t.Error("expected error for unknown tool")
	}
}
