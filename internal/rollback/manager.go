// Package rollback records inverse actions for completed steps and plays
// them back, newest first, when a task ends badly.
package rollback

import (
	"fmt"
	"sync"

	"github.com/openclaw/autopilot/internal/logging"
	"github.com/openclaw/autopilot/internal/plan"
)

// ErrorKind classifies why a single step could not be reversed.
type ErrorKind string

const (
	// Irreversible means the step never produced an inverse action.
	Irreversible ErrorKind = "irreversible"
	// InverseActionFailed means the inverse action ran and returned an error.
	InverseActionFailed ErrorKind = "inverse_action_failed"
)

// Error reports one step the sweep could not reverse. The sweep never
// stops on these; callers get the full list.
type Error struct {
	StepID string
	Kind   ErrorKind
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == Irreversible {
		return fmt.Sprintf("step %s cannot be reversed", e.StepID)
	}
	return fmt.Sprintf("reversing step %s failed: %v", e.StepID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type entry struct {
	stepID  string
	inverse *plan.InverseAction
}

// Manager accumulates inverse actions in completion order for one task.
// Unwind is best effort: every recorded entry is attempted exactly once,
// in reverse order, regardless of earlier failures.
type Manager struct {
	mu      sync.Mutex
	taskID  string
	entries []entry
	logger  *logging.Logger
}

// NewManager creates a manager scoped to one task.
func NewManager(taskID string, logger *logging.Logger) *Manager {
	return &Manager{
		taskID: taskID,
		logger: logger.WithComponent("rollback"),
	}
}

// Record stores the inverse action for a step that just succeeded. A nil
// inverse is recorded too; it surfaces as an Irreversible error at unwind
// time so the report shows which effects remain.
func (m *Manager) Record(stepID string, inverse *plan.InverseAction) {
	m.mu.Lock()
	m.entries = append(m.entries, entry{stepID: stepID, inverse: inverse})
	m.mu.Unlock()
}

// Len returns the number of recorded entries.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Unwind runs every recorded inverse action newest first and drains the
// record. It returns one Error per entry that could not be reversed.
func (m *Manager) Unwind() []*Error {
	m.mu.Lock()
	entries := m.entries
	m.entries = nil
	m.mu.Unlock()

	var errs []*Error
	reversed, failed, irreversible := 0, 0, 0

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.inverse == nil || e.inverse.Undo == nil {
			irreversible++
			errs = append(errs, &Error{StepID: e.stepID, Kind: Irreversible})
			continue
		}
		if err := e.inverse.Undo(); err != nil {
			failed++
			errs = append(errs, &Error{StepID: e.stepID, Kind: InverseActionFailed, Err: err})
			m.logger.Warn("inverse action failed", map[string]interface{}{
				"task":  m.taskID,
				"step":  e.stepID,
				"error": err.Error(),
			})
			continue
		}
		reversed++
		m.logger.Debug("reversed step", map[string]interface{}{
			"task":   m.taskID,
			"step":   e.stepID,
			"action": e.inverse.Description,
		})
	}

	m.logger.RollbackSwept(m.taskID, reversed, failed, irreversible)
	return errs
}
