// Package db persists an audit trail of model loads and evaluations in
// SQLite. Patient attributes are never written.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ModelLoad is one attempt to load the model artifact at startup.
type ModelLoad struct {
	ModelType string    `json:"model_type"`
	Path      string    `json:"path"`
	SHA256    string    `json:"sha256"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Evaluation is one evaluation attempt. Category is empty on failure and
// Stage is empty on success.
type Evaluation struct {
	AssessmentID string
	Status       string
	Category     string
	Stage        string
	Latency      time.Duration
	EvaluatedAt  time.Time
}

// Summary aggregates the audit trail for the monitoring endpoints.
type Summary struct {
	ModelLoads    int            `json:"model_loads"`
	LastModelLoad *ModelLoad     `json:"last_model_load,omitempty"`
	Evaluations   map[string]int `json:"evaluations"`
	Categories    map[string]int `json:"categories"`
	Stages        map[string]int `json:"failure_stages"`
}

type AuditLog struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string) (*AuditLog, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create audit directory: %w", err)
			}
		}
		dsn += "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases alive across calls.
	conn.SetMaxOpenConns(1)

	if _, err := migrateDB(conn, -1); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &AuditLog{db: conn}, nil
}

func (a *AuditLog) Close() error {
	return a.db.Close()
}

func (a *AuditLog) RecordModelLoad(ctx context.Context, load ModelLoad) error {
	if load.LoadedAt.IsZero() {
		load.LoadedAt = time.Now()
	}
	_, err := a.db.ExecContext(ctx, `
        INSERT INTO model_loads (model_type, path, sha256, status, error, loaded_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		load.ModelType, load.Path, load.SHA256, load.Status, load.Error, load.LoadedAt.UTC())
	if err != nil {
		return fmt.Errorf("record model load: %w", err)
	}
	return nil
}

func (a *AuditLog) RecordEvaluation(ctx context.Context, ev Evaluation) error {
	if ev.EvaluatedAt.IsZero() {
		ev.EvaluatedAt = time.Now()
	}
	_, err := a.db.ExecContext(ctx, `
        INSERT INTO evaluations (assessment_id, status, category, stage, latency_ms, evaluated_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		ev.AssessmentID, ev.Status, ev.Category, ev.Stage,
		float64(ev.Latency)/float64(time.Millisecond), ev.EvaluatedAt.UTC())
	if err != nil {
		return fmt.Errorf("record evaluation: %w", err)
	}
	return nil
}

func (a *AuditLog) Summary(ctx context.Context) (*Summary, error) {
	s := &Summary{
		Evaluations: make(map[string]int),
		Categories:  make(map[string]int),
		Stages:      make(map[string]int),
	}

	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM model_loads`).Scan(&s.ModelLoads); err != nil {
		return nil, fmt.Errorf("count model loads: %w", err)
	}
	if s.ModelLoads > 0 {
		var load ModelLoad
		err := a.db.QueryRowContext(ctx, `
            SELECT model_type, path, sha256, status, error, loaded_at
            FROM model_loads ORDER BY id DESC LIMIT 1`).
			Scan(&load.ModelType, &load.Path, &load.SHA256, &load.Status, &load.Error, &load.LoadedAt)
		if err != nil {
			return nil, fmt.Errorf("query last model load: %w", err)
		}
		s.LastModelLoad = &load
	}

	if err := a.countBy(ctx, "status", "", s.Evaluations); err != nil {
		return nil, err
	}
	if err := a.countBy(ctx, "category", StatusOK, s.Categories); err != nil {
		return nil, err
	}
	if err := a.countBy(ctx, "stage", StatusFailed, s.Stages); err != nil {
		return nil, err
	}
	return s, nil
}

// countBy groups evaluations by column, optionally restricted to one status.
// column is always a constant from this file.
func (a *AuditLog) countBy(ctx context.Context, column, status string, into map[string]int) error {
	query := `SELECT ` + column + `, COUNT(*) FROM evaluations`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` GROUP BY ` + column

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("count evaluations by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}
