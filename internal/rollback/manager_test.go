package rollback

import (
	"fmt"
	"testing"

	"github.com/openclaw/autopilot/internal/logging"
	"github.com/openclaw/autopilot/internal/plan"
)

func inverse(log *[]string, label string, fail bool) *plan.InverseAction {
	return &plan.InverseAction{
		Description: label,
		Undo: func() error {
			if fail {
				return fmt.Errorf("undo %s failed", label)
			}
			*log = append(*log, label)
			return nil
		},
	}
}

func TestUnwindRunsInReverseOrder(t *testing.T) {
	m := NewManager("t1", logging.New())
	var log []string

	m.Record("step-1", inverse(&log, "one", false))
	m.Record("step-2", inverse(&log, "two", false))
	m.Record("step-3", inverse(&log, "three", false))

	errs := m.Unwind()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := []string{"three", "two", "one"}
	if len(log) != len(want) {
		t.Fatalf("undo log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("undo[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestNilInverseIsIrreversible(t *testing.T) {
	m := NewManager("t1", logging.New())
	var log []string

	m.Record("step-1", inverse(&log, "one", false))
	m.Record("step-2", nil)

	errs := m.Unwind()
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want one", errs)
	}
	if errs[0].StepID != "step-2" || errs[0].Kind != Irreversible {
		t.Errorf("error = %v, want irreversible step-2", errs[0])
	}
	// The sweep continued past the irreversible step.
	if len(log) != 1 || log[0] != "one" {
		t.Errorf("undo log = %v, want [one]", log)
	}
}

func TestFailuresDoNotStopTheSweep(t *testing.T) {
	m := NewManager("t1", logging.New())
	var log []string

	m.Record("step-1", inverse(&log, "one", false))
	m.Record("step-2", inverse(&log, "two", true))
	m.Record("step-3", inverse(&log, "three", false))

	errs := m.Unwind()
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want one", errs)
	}
	if errs[0].StepID != "step-2" || errs[0].Kind != InverseActionFailed {
		t.Errorf("error = %v, want inverse_action_failed step-2", errs[0])
	}
	if len(log) != 2 || log[0] != "three" || log[1] != "one" {
		t.Errorf("undo log = %v, want [three one]", log)
	}
}

func TestUnwindDrainsTheRecord(t *testing.T) {
	m := NewManager("t1", logging.New())
	var log []string
	m.Record("step-1", inverse(&log, "one", false))

	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
	m.Unwind()
	if m.Len() != 0 {
		t.Errorf("Len after unwind = %d, want 0", m.Len())
	}
	if errs := m.Unwind(); len(errs) != 0 {
		t.Errorf("second unwind produced errors: %v", errs)
	}
}
