// Package tracker journals routed requests in SQLite.
package tracker

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/fastroute/pkg/models"
)

// Journal records and queries routed requests.
type Journal interface {
	// Record stores one routed request.
	Record(ctx context.Context, rec models.RouteRecord) error
	// Recent returns the newest records, newest first.
	Recent(ctx context.Context, limit int) ([]models.RouteRecord, error)
	// Summary aggregates records created at or after since by source and backend.
	Summary(ctx context.Context, since time.Time) ([]models.RouteSummary, error)
	// Cleanup deletes records older than the retention period.
	Cleanup(ctx context.Context) (int64, error)
	// Close releases resources.
	Close() error
}

// SQLiteJournal implements Journal with a SQLite database.
type SQLiteJournal struct {
	db            *sql.DB
	retentionDays int
	done          chan struct{}
	wg            sync.WaitGroup
}

const createTable = `
CREATE TABLE IF NOT EXISTS route_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	query_hash TEXT NOT NULL,
	source TEXT NOT NULL,
	backend TEXT NOT NULL,
	success INTEGER NOT NULL,
	latency_ms REAL NOT NULL,
	confidence REAL NOT NULL,
	cache_tier TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_route_created ON route_records(created_at);
CREATE INDEX IF NOT EXISTS idx_route_source ON route_records(source, backend);
`

// New opens the journal and runs auto-migration. A positive retentionDays
// starts an hourly cleanup loop that Close stops.
func New(dbPath string, retentionDays int) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal db: %w", err)
	}

	j := &SQLiteJournal{
		db:            db,
		retentionDays: retentionDays,
		done:          make(chan struct{}),
	}
	if retentionDays > 0 {
		j.wg.Add(1)
		go j.retentionLoop()
	}
	return j, nil
}

// HashQuery returns the SHA-256 hex digest of a query so the journal never
// stores query text.
func HashQuery(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Record stores a routed request.
func (j *SQLiteJournal) Record(ctx context.Context, rec models.RouteRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO route_records (request_id, query_hash, source, backend, success, latency_ms, confidence, cache_tier, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.QueryHash, rec.Source, string(rec.Backend), rec.Success,
		rec.LatencyMs, rec.Confidence, rec.CacheTier, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record route: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]models.RouteRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, request_id, query_hash, source, backend, success, latency_ms, confidence, cache_tier, created_at
		 FROM route_records ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent routes: %w", err)
	}
	defer rows.Close()

	var records []models.RouteRecord
	for rows.Next() {
		var r models.RouteRecord
		var backend string
		if err := rows.Scan(&r.ID, &r.RequestID, &r.QueryHash, &r.Source, &backend, &r.Success,
			&r.LatencyMs, &r.Confidence, &r.CacheTier, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		r.Backend = models.BackendID(backend)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Summary returns aggregated routes grouped by source and backend.
func (j *SQLiteJournal) Summary(ctx context.Context, since time.Time) ([]models.RouteSummary, error) {
	query := `SELECT source, backend, COUNT(*), SUM(success), AVG(latency_ms)
		 FROM route_records`
	var args []any
	if !since.IsZero() {
		query += ` WHERE created_at >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY source, backend ORDER BY source, backend`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.RouteSummary
	for rows.Next() {
		var s models.RouteSummary
		var backend string
		if err := rows.Scan(&s.Source, &backend, &s.RequestCount, &s.SuccessCount, &s.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Backend = models.BackendID(backend)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Cleanup deletes records older than the retention period. It is a no-op
// when retention is disabled.
func (j *SQLiteJournal) Cleanup(ctx context.Context) (int64, error) {
	if j.retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)
	res, err := j.db.ExecContext(ctx, `DELETE FROM route_records WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("journal cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (j *SQLiteJournal) Close() error {
	close(j.done)
	j.wg.Wait()
	return j.db.Close()
}

func (j *SQLiteJournal) retentionLoop() {
	defer j.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			_, _ = j.Cleanup(context.Background())
		}
	}
}
