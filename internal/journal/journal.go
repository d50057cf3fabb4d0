// Package journal persists task records and the full progress-event
// stream to SQLite for later audit.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/openclaw/autopilot/internal/logging"
	"github.com/openclaw/autopilot/internal/plan"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	goal       TEXT NOT NULL,
	mode       TEXT NOT NULL,
	status     TEXT NOT NULL,
	steps      INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id     TEXT NOT NULL,
	step_id     TEXT,
	from_status TEXT NOT NULL,
	to_status   TEXT NOT NULL,
	detail      TEXT,
	at          TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_task ON events(task_id, id);
`

// TaskRecord is one row of the task history.
type TaskRecord struct {
	ID        string
	Goal      string
	Mode      string
	Status    string
	Steps     int
	CreatedAt time.Time
}

// Journal is the SQLite-backed audit store. Its sink methods never return
// errors into the scheduling path; write failures are logged.
type Journal struct {
	db     *sql.DB
	logger *logging.Logger
}

// Open creates or opens the journal database and ensures the schema.
func Open(path string, logger *logging.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing journal schema: %w", err)
	}
	return &Journal{db: db, logger: logger.WithComponent("journal")}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordTask inserts the task row at submission time.
func (j *Journal) RecordTask(task plan.Task, stepCount int) {
	_, err := j.db.Exec(
		`INSERT INTO tasks (id, goal, mode, status, steps, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.GoalText, string(task.Mode), string(task.Status), stepCount, task.CreatedAt,
	)
	if err != nil {
		j.logger.Warn("task insert failed", map[string]interface{}{
			"task":  task.ID,
			"error": err.Error(),
		})
	}
}

// RecordEvent appends one transition. Task-level events also refresh the
// task row's status.
func (j *Journal) RecordEvent(ev plan.ProgressEvent) {
	_, err := j.db.Exec(
		`INSERT INTO events (task_id, step_id, from_status, to_status, detail, at) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.TaskID, ev.StepID, ev.From, ev.To, ev.Detail, ev.Timestamp,
	)
	if err != nil {
		j.logger.Warn("event insert failed", map[string]interface{}{
			"task":  ev.TaskID,
			"error": err.Error(),
		})
		return
	}

	if ev.StepID == "" {
		if _, err := j.db.Exec(`UPDATE tasks SET status = ? WHERE id = ?`, ev.To, ev.TaskID); err != nil {
			j.logger.Warn("task status update failed", map[string]interface{}{
				"task":  ev.TaskID,
				"error": err.Error(),
			})
		}
	}
}

// Tasks returns the most recent task records, newest first.
func (j *Journal) Tasks(limit int) ([]TaskRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.Query(
		`SELECT id, goal, mode, status, steps, created_at FROM tasks ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskRecord
	for rows.Next() {
		var r TaskRecord
		if err := rows.Scan(&r.ID, &r.Goal, &r.Mode, &r.Status, &r.Steps, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Events returns a task's transitions in emission order.
func (j *Journal) Events(taskID string) ([]plan.ProgressEvent, error) {
	rows, err := j.db.Query(
		`SELECT task_id, step_id, from_status, to_status, detail, at FROM events WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []plan.ProgressEvent
	for rows.Next() {
		var ev plan.ProgressEvent
		if err := rows.Scan(&ev.TaskID, &ev.StepID, &ev.From, &ev.To, &ev.Detail, &ev.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
