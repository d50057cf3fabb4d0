package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/openclaw/autopilot/internal/logging"
	"github.com/openclaw/autopilot/internal/plan"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), logging.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestTaskRoundTrip(t *testing.T) {
	j := openTemp(t)

	j.RecordTask(plan.Task{
		ID:        "t1",
		GoalText:  "create a 1x2x3 box",
		Mode:      plan.ModeInteractive,
		Status:    plan.TaskPlanning,
		CreatedAt: time.Now(),
	}, 1)

	tasks, err := j.Tasks(10)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks))
	}
	if tasks[0].ID != "t1" || tasks[0].Goal != "create a 1x2x3 box" || tasks[0].Steps != 1 {
		t.Errorf("record = %+v", tasks[0])
	}
}

func TestEventsPreserveOrder(t *testing.T) {
	j := openTemp(t)
	now := time.Now()

	j.RecordTask(plan.Task{ID: "t1", GoalText: "g", Mode: plan.ModeAutonomous, Status: plan.TaskPlanning, CreatedAt: now}, 2)
	transitions := []plan.ProgressEvent{
		{TaskID: "t1", StepID: "step-1", From: "pending", To: "running", Timestamp: now},
		{TaskID: "t1", StepID: "step-1", From: "running", To: "succeeded", Timestamp: now},
		{TaskID: "t1", From: "executing", To: "completed", Timestamp: now},
	}
	for _, ev := range transitions {
		j.RecordEvent(ev)
	}

	events, err := j.Events("t1")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != len(transitions) {
		t.Fatalf("events = %d, want %d", len(events), len(transitions))
	}
	for i, ev := range events {
		if ev.To != transitions[i].To {
			t.Errorf("event %d = %q, want %q", i, ev.To, transitions[i].To)
		}
	}
}

func TestTaskStatusFollowsTaskEvents(t *testing.T) {
	j := openTemp(t)
	now := time.Now()

	j.RecordTask(plan.Task{ID: "t1", GoalText: "g", Mode: plan.ModeAutonomous, Status: plan.TaskPlanning, CreatedAt: now}, 1)
	j.RecordEvent(plan.ProgressEvent{TaskID: "t1", From: "planning", To: "executing", Timestamp: now})
	j.RecordEvent(plan.ProgressEvent{TaskID: "t1", From: "executing", To: "failed", Timestamp: now})
	// Step events must not touch the task row.
	j.RecordEvent(plan.ProgressEvent{TaskID: "t1", StepID: "step-1", From: "running", To: "failed", Timestamp: now})

	tasks, err := j.Tasks(1)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if tasks[0].Status != "failed" {
		t.Errorf("status = %q, want failed", tasks[0].Status)
	}
}
