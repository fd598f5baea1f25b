// Package history archives optimization results in SQLite. This is
// caller-side persistence: the engine itself is stateless, and nothing in
// the optimization pass reads the archive.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dkalosis/flowplan/internal/workflow"
	_ "modernc.org/sqlite"
)

// Summary is a compact listing row for an archived result.
type Summary struct {
	ID                string
	WorkflowID        string
	CompletionMinutes int
	Score             float64
	EntryCount        int
	GeneratedAt       time.Time
}

// Store is a SQLite-backed result archive.
type Store struct {
	db *sql.DB
}

// Open creates or opens the archive at the given path, creating parent
// directories and bootstrapping the schema. Enables WAL mode and a busy
// timeout.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Required for modernc.org/sqlite; the connection string form is ignored
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save archives a result and its schedule entries. Idempotent: saving the
// same result ID twice replaces the previous row.
func (s *Store) Save(ctx context.Context, r *workflow.Result) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	criticalPath, err := json.Marshal(r.CriticalPath)
	if err != nil {
		return fmt.Errorf("marshaling critical path: %w", err)
	}
	bottlenecks, err := json.Marshal(r.Bottlenecks)
	if err != nil {
		return fmt.Errorf("marshaling bottlenecks: %w", err)
	}
	utilization, err := json.Marshal(r.Utilization)
	if err != nil {
		return fmt.Errorf("marshaling utilization: %w", err)
	}
	recommendations, err := json.Marshal(r.Recommendations)
	if err != nil {
		return fmt.Errorf("marshaling recommendations: %w", err)
	}
	warnings, err := json.Marshal(r.Warnings)
	if err != nil {
		return fmt.Errorf("marshaling warnings: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO results (id, workflow_id, completion_mins, score, critical_path, bottlenecks, utilization, recommendations, warnings, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workflow_id = excluded.workflow_id,
			completion_mins = excluded.completion_mins,
			score = excluded.score,
			critical_path = excluded.critical_path,
			bottlenecks = excluded.bottlenecks,
			utilization = excluded.utilization,
			recommendations = excluded.recommendations,
			warnings = excluded.warnings,
			generated_at = excluded.generated_at
	`, r.ID, r.WorkflowID, r.CompletionMinutes, r.Score, string(criticalPath), string(bottlenecks), string(utilization), string(recommendations), string(warnings), r.GeneratedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert result: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_entries WHERE result_id = ?`, r.ID); err != nil {
		return fmt.Errorf("failed to delete old entries: %w", err)
	}

	for _, e := range r.Entries {
		depsMet := 0
		if e.DependenciesMet {
			depsMet = 1
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO schedule_entries (result_id, task_id, agent_id, start_minute, end_minute, duration_minutes, priority, dependencies_met)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, e.TaskID, e.AgentID, e.StartMinute, e.EndMinute, e.DurationMinutes, string(e.Priority), depsMet)
		if err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", e.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get retrieves an archived result by ID.
func (s *Store) Get(ctx context.Context, id string) (*workflow.Result, error) {
	r := &workflow.Result{ID: id}
	var criticalPath, bottlenecks, utilization, recommendations, warnings string

	err := s.db.QueryRowContext(ctx, `
		SELECT workflow_id, completion_mins, score, critical_path, bottlenecks, utilization, recommendations, warnings, generated_at
		FROM results WHERE id = ?
	`, id).Scan(&r.WorkflowID, &r.CompletionMinutes, &r.Score, &criticalPath, &bottlenecks, &utilization, &recommendations, &warnings, &r.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("result not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load result: %w", err)
	}

	if err := json.Unmarshal([]byte(criticalPath), &r.CriticalPath); err != nil {
		return nil, fmt.Errorf("unmarshaling critical path: %w", err)
	}
	if err := json.Unmarshal([]byte(bottlenecks), &r.Bottlenecks); err != nil {
		return nil, fmt.Errorf("unmarshaling bottlenecks: %w", err)
	}
	if err := json.Unmarshal([]byte(utilization), &r.Utilization); err != nil {
		return nil, fmt.Errorf("unmarshaling utilization: %w", err)
	}
	if err := json.Unmarshal([]byte(recommendations), &r.Recommendations); err != nil {
		return nil, fmt.Errorf("unmarshaling recommendations: %w", err)
	}
	if err := json.Unmarshal([]byte(warnings), &r.Warnings); err != nil {
		return nil, fmt.Errorf("unmarshaling warnings: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, agent_id, start_minute, end_minute, duration_minutes, priority, dependencies_met
		FROM schedule_entries WHERE result_id = ?
		ORDER BY start_minute, task_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	defer rows.Close()

	r.Entries = []workflow.ScheduleEntry{}
	for rows.Next() {
		var e workflow.ScheduleEntry
		var priority string
		var depsMet int
		if err := rows.Scan(&e.TaskID, &e.AgentID, &e.StartMinute, &e.EndMinute, &e.DurationMinutes, &priority, &depsMet); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Priority = workflow.Priority(priority)
		e.DependenciesMet = depsMet == 1
		r.Entries = append(r.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	return r, nil
}

// List returns summaries of archived results, newest first, capped at
// limit (default 20 when <= 0).
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.workflow_id, r.completion_mins, r.score, r.generated_at,
		       (SELECT COUNT(*) FROM schedule_entries e WHERE e.result_id = r.id)
		FROM results r
		ORDER BY r.generated_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.WorkflowID, &s.CompletionMinutes, &s.Score, &s.GeneratedAt, &s.EntryCount); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
