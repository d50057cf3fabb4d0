// Package plan defines the task, step, and execution-plan model shared by
// the planner, validator, and controller.
package plan

import (
	"time"
)

// OperationMode governs when a step needs human approval before it runs.
type OperationMode string

const (
	ModeDisabled       OperationMode = "disabled"
	ModeInteractive    OperationMode = "interactive"
	ModeSemiAutonomous OperationMode = "semi_autonomous"
	ModeAutonomous     OperationMode = "autonomous"
)

// ParseMode maps a user-facing mode string to an OperationMode.
func ParseMode(s string) (OperationMode, bool) {
	switch s {
	case "disabled", "off":
		return ModeDisabled, true
	case "interactive":
		return ModeInteractive, true
	case "semi", "semi_autonomous", "semi-autonomous":
		return ModeSemiAutonomous, true
	case "auto", "autonomous":
		return ModeAutonomous, true
	}
	return "", false
}

// StepStatus represents the lifecycle state of a single step.
type StepStatus string

const (
	StepPending          StepStatus = "pending"
	StepAwaitingApproval StepStatus = "awaiting_approval"
	StepRunning          StepStatus = "running"
	StepSucceeded        StepStatus = "succeeded"
	StepFailed           StepStatus = "failed"
	StepCancelled        StepStatus = "cancelled"
	StepRolledBack       StepStatus = "rolled_back"
)

// Terminal reports whether a step in this status will never run again.
func (s StepStatus) Terminal() bool {
	switch s {
	case StepSucceeded, StepFailed, StepCancelled, StepRolledBack:
		return true
	}
	return false
}

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskPlanning   TaskStatus = "planning"
	TaskValidating TaskStatus = "validating"
	TaskExecuting  TaskStatus = "executing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether the task can no longer change status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

// RiskLevel classifies how dangerous a step is to the target document.
type RiskLevel string

const (
	RiskNormal      RiskLevel = "normal"
	RiskDestructive RiskLevel = "destructive"
)

// Step is one atomic operation in a plan. Status and Result are mutated
// only by the execution controller.
type Step struct {
	ID            string
	OperationType string
	Description   string
	Parameters    map[string]any
	DependsOn     []string
	Risk          RiskLevel
	Status        StepStatus
	Result        *Result
	Err           error
}

// Task is one submitted goal with its autonomy policy.
type Task struct {
	ID        string
	GoalText  string
	Mode      OperationMode
	CreatedAt time.Time
	Status    TaskStatus

	// AutoApproveSafe lets RequiresApproval violations on non-destructive
	// steps run without a human decision, even outside Autonomous mode.
	AutoApproveSafe bool

	// Resource names the external target the task mutates. Tasks sharing a
	// resource are serialized; the empty string means the default document.
	Resource string
}

// Result is what an Agent reports back for an executed step.
type Result struct {
	Success         bool
	Data            map[string]any
	CreatedObjects  []string
	ModifiedObjects []string

	// Inverse, when non-nil, can undo this step's effects. A nil Inverse
	// marks the step irreversible.
	Inverse *InverseAction

	Duration time.Duration
}

// InverseAction undoes the effect of a completed step.
type InverseAction struct {
	Description string
	Undo        func() error
}

// Severity ranks a safety violation.
type Severity string

const (
	// SeverityBlocking means the step cannot run regardless of mode.
	SeverityBlocking Severity = "blocking"
	// SeverityRequiresApproval forces an approval gate even in
	// autonomous mode.
	SeverityRequiresApproval Severity = "requires_approval"
)

// Violation is a single finding from the safety validator.
type Violation struct {
	Rule     string
	Severity Severity
	Detail   string
}

// ApprovalRequest asks a human to sign off on one step.
type ApprovalRequest struct {
	TaskID    string
	StepID    string
	Operation string
	Rationale string
	Risk      RiskLevel
}

// ApprovalDecision is the human's answer to an ApprovalRequest.
type ApprovalDecision struct {
	Approved    bool
	RespondedAt time.Time
	// TimedOut distinguishes gate expiry from an explicit denial.
	TimedOut bool
}

// ProgressEvent records one status transition. StepID is empty for
// task-level transitions.
type ProgressEvent struct {
	TaskID    string
	StepID    string
	From      string
	To        string
	Timestamp time.Time
	Detail    string
}

// StepStatusReport is one step's slice of a task status report.
type StepStatusReport struct {
	ID            string
	OperationType string
	Description   string
	Risk          RiskLevel
	Status        StepStatus
	Error         string
	Result        *Result
}

// StatusReport is the caller-facing snapshot of a task and its steps.
type StatusReport struct {
	TaskID    string
	GoalText  string
	Mode      OperationMode
	Status    TaskStatus
	CreatedAt time.Time
	Steps     []StepStatusReport
	// RollbackErrors accumulates best-effort rollback failures; it never
	// aborts the sweep.
	RollbackErrors []string
}
