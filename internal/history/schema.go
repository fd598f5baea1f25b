package history

import (
	"context"
	"fmt"
)

// initSchema creates the archive tables if they don't exist.
func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id               TEXT PRIMARY KEY,
		workflow_id      TEXT NOT NULL,
		completion_mins  INTEGER NOT NULL,
		score            REAL NOT NULL,
		critical_path    TEXT NOT NULL,
		bottlenecks      TEXT NOT NULL,
		utilization      TEXT NOT NULL,
		recommendations  TEXT NOT NULL,
		warnings         TEXT NOT NULL,
		generated_at     TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schedule_entries (
		result_id        TEXT NOT NULL REFERENCES results(id) ON DELETE CASCADE,
		task_id          TEXT NOT NULL,
		agent_id         TEXT NOT NULL,
		start_minute     INTEGER NOT NULL,
		end_minute       INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL,
		priority         TEXT NOT NULL,
		dependencies_met INTEGER NOT NULL,
		PRIMARY KEY (result_id, task_id)
	);

	CREATE INDEX IF NOT EXISTS idx_results_workflow ON results(workflow_id);
	CREATE INDEX IF NOT EXISTS idx_results_generated ON results(generated_at);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
