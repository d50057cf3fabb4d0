package plan

import (
	"fmt"
	"time"
)

// PlanningError means a goal could not be decomposed into a valid plan.
// Planning errors reject the task synchronously; no step is ever created.
type PlanningError struct {
	Goal   string
	Reason string
}

func (e *PlanningError) Error() string {
	if e.Goal != "" {
		return fmt.Sprintf("planning failed for %q: %s", e.Goal, e.Reason)
	}
	return fmt.Sprintf("planning failed: %s", e.Reason)
}

// UnknownCapabilityError means no registered agent handles an operation
// type the plan requires.
type UnknownCapabilityError struct {
	Operation string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("no agent registered for operation %q", e.Operation)
}

// ModeDisabledError rejects task submission while the engine mode is
// disabled.
type ModeDisabledError struct{}

func (e *ModeDisabledError) Error() string {
	return "autonomous execution is disabled"
}

// ValidationError carries the blocking violations that stopped a step.
type ValidationError struct {
	StepID     string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("step %s blocked: %s", e.StepID, e.Violations[0].Detail)
	}
	return fmt.Sprintf("step %s blocked by %d safety violations", e.StepID, len(e.Violations))
}

// ExecutionError wraps an agent-reported failure. Transient failures may
// be retried per the operation's retry policy.
type ExecutionError struct {
	StepID    string
	Operation string
	Transient bool
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("step %s (%s) failed: %v", e.StepID, e.Operation, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// TimeoutError means a step's agent call exceeded its deadline. The call
// is abandoned, not killed; it may still be running underneath.
type TimeoutError struct {
	StepID string
	Limit  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("step %s exceeded its %s deadline", e.StepID, e.Limit)
}

// ApprovalDeniedError means the approval gate resolved against running a
// step, either explicitly or by timing out.
type ApprovalDeniedError struct {
	StepID   string
	TimedOut bool
}

func (e *ApprovalDeniedError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("approval for step %s timed out", e.StepID)
	}
	return fmt.Sprintf("approval for step %s denied", e.StepID)
}

// ErrTaskNotFound is returned for handles the controller does not know.
var ErrTaskNotFound = fmt.Errorf("task not found")
