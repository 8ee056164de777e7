package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"propsweep/internal/logging"
	"propsweep/internal/report"
)

// RunRecord is one discovery run as stored in the history database.
type RunRecord struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Total       int
	Expected    *int
	Interrupted bool
	Yields      []report.StrategyYield
	Failures    []report.StrategyFailure
}

// RecordFromReport builds a RunRecord for r.
func RecordFromReport(r report.Report, started, finished time.Time, interrupted bool) RunRecord {
	return RunRecord{
		StartedAt:   started,
		FinishedAt:  finished,
		Total:       r.Total,
		Expected:    r.Expected,
		Interrupted: interrupted,
		Yields:      r.Ranked,
		Failures:    r.Failures,
	}
}

// History stores run records in SQLite.
type History struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open creates or opens the history database at path.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	h := &History{db: db, dbPath: path}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return h, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *History) Path() string {
	return h.dbPath
}

func (h *History) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		total INTEGER NOT NULL,
		expected INTEGER,
		interrupted INTEGER NOT NULL DEFAULT 0,
		yields_json TEXT,
		failures_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Record stores rec and returns its id, generating one if rec has none.
func (h *History) Record(ctx context.Context, rec RunRecord) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = rec.StartedAt
	}

	yieldsJSON, err := json.Marshal(rec.Yields)
	if err != nil {
		return "", fmt.Errorf("failed to encode yields: %w", err)
	}
	failuresJSON, err := json.Marshal(rec.Failures)
	if err != nil {
		return "", fmt.Errorf("failed to encode failures: %w", err)
	}

	var expected sql.NullInt64
	if rec.Expected != nil {
		expected = sql.NullInt64{Int64: int64(*rec.Expected), Valid: true}
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, total, expected, interrupted, yields_json, failures_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.StartedAt.UTC(), rec.FinishedAt.UTC(), rec.Total, expected, rec.Interrupted,
		string(yieldsJSON), string(failuresJSON))
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}

	logging.Export("recorded run %s (%d entities)", rec.ID, rec.Total)
	return rec.ID, nil
}

// List returns the most recent runs, newest first.
func (h *History) List(ctx context.Context, limit int) ([]RunRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, total, expected, interrupted, yields_json, failures_json
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var expected sql.NullInt64
		var yieldsJSON, failuresJSON sql.NullString
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.FinishedAt, &rec.Total, &expected,
			&rec.Interrupted, &yieldsJSON, &failuresJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if expected.Valid {
			n := int(expected.Int64)
			rec.Expected = &n
		}
		if yieldsJSON.Valid {
			if err := json.Unmarshal([]byte(yieldsJSON.String), &rec.Yields); err != nil {
				logging.ExportError("run %s: bad yields_json: %v", rec.ID, err)
			}
		}
		if failuresJSON.Valid {
			if err := json.Unmarshal([]byte(failuresJSON.String), &rec.Failures); err != nil {
				logging.ExportError("run %s: bad failures_json: %v", rec.ID, err)
			}
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}
