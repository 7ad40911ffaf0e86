// Package server exposes the router over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pario-ai/fastroute/pkg/config"
	"github.com/pario-ai/fastroute/pkg/models"
	"github.com/pario-ai/fastroute/pkg/tracker"
)

const maxBodyBytes = 1 << 20

// Router is the subset of router.Router the server needs.
type Router interface {
	Route(ctx context.Context, q models.Query) models.QueryResponse
	PerformanceStats() models.PerformanceStats
	ClearCache()
}

// Server is the fastroute HTTP API.
type Server struct {
	cfg     *config.Config
	router  Router
	journal tracker.Journal
	logger  *zap.Logger
	mux     *http.ServeMux
}

// New creates a Server. journal and metrics may be nil; their endpoints are
// then not served.
func New(cfg *config.Config, r Router, j tracker.Journal, metrics http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		router:  r,
		journal: j,
		logger:  logger.Named("server"),
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /v1/route", s.handleRoute)
	s.mux.HandleFunc("GET /v1/stats", s.handleStats)
	s.mux.HandleFunc("DELETE /v1/cache", s.handleClearCache)
	s.mux.HandleFunc("GET /v1/journal", s.handleJournal)
	s.mux.HandleFunc("GET /v1/journal/summary", s.handleJournalSummary)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if metrics != nil && cfg.Metrics.Enabled && cfg.Metrics.Path != "" {
		s.mux.Handle("GET "+cfg.Metrics.Path, metrics)
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("fastroute listening", zap.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var q models.Query
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&q); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(q.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "query is required")
		return
	}

	resp := s.router.Route(r.Context(), q)
	w.Header().Set("X-Fastroute-Source", resp.Source)
	w.Header().Set("X-Fastroute-Request-Id", resp.Metadata.RequestID)
	if resp.Metadata.CacheTier != "" {
		w.Header().Set("X-Fastroute-Cache", resp.Metadata.CacheTier)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.router.PerformanceStats())
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.router.ClearCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSONError(w, http.StatusNotFound, "journal disabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	recs, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("journal query failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "journal query failed")
		return
	}
	if recs == nil {
		recs = []models.RouteRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleJournalSummary(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSONError(w, http.StatusNotFound, "journal disabled")
		return
	}
	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid since duration")
			return
		}
		since = time.Now().UTC().Add(-d)
	}
	sums, err := s.journal.Summary(r.Context(), since)
	if err != nil {
		s.logger.Error("journal summary failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "journal summary failed")
		return
	}
	if sums == nil {
		sums = []models.RouteSummary{}
	}
	writeJSON(w, http.StatusOK, sums)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    "fastroute_error",
			"code":    code,
		},
	})
}
