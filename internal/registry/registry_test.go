package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/openclaw/autopilot/internal/document"
	"github.com/openclaw/autopilot/internal/plan"
)

type fakeAgent struct {
	name string
	ops  []string
}

func (f *fakeAgent) Name() string           { return f.name }
func (f *fakeAgent) Capabilities() []string { return f.ops }
func (f *fakeAgent) Validate(context.Context, *plan.Step, document.ExecutionContext) []plan.Violation {
	return nil
}
func (f *fakeAgent) Execute(context.Context, *plan.Step, document.ExecutionContext) (*plan.Result, error) {
	return &plan.Result{Success: true}, nil
}

func TestRegisterAndResolve(t *testing.T) {
	reg := New()
	agent := &fakeAgent{name: "geometry", ops: []string{"create_box", "remove_object"}}
	reg.Register(agent)

	got, err := reg.Resolve("create_box")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != agent {
		t.Error("resolved a different agent")
	}
	if !reg.Has("remove_object") {
		t.Error("Has missed a registered operation")
	}
}

func TestResolveUnknownOperation(t *testing.T) {
	reg := New()
	_, err := reg.Resolve("optimize_topology")

	var unknownErr *plan.UnknownCapabilityError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownCapabilityError, got %v", err)
	}
	if unknownErr.Operation != "optimize_topology" {
		t.Errorf("operation = %q, want optimize_topology", unknownErr.Operation)
	}
}

func TestLaterRegistrationWins(t *testing.T) {
	reg := New()
	first := &fakeAgent{name: "first", ops: []string{"create_box"}}
	second := &fakeAgent{name: "second", ops: []string{"create_box"}}
	reg.Register(first)
	reg.Register(second)

	got, err := reg.Resolve("create_box")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name() != "second" {
		t.Errorf("resolved %q, want second", got.Name())
	}
}

func TestOperationsSorted(t *testing.T) {
	reg := New()
	reg.Register(&fakeAgent{name: "a", ops: []string{"zeta_op", "alpha_op"}})

	ops := reg.Operations()
	if len(ops) != 2 || ops[0] != "alpha_op" || ops[1] != "zeta_op" {
		t.Errorf("operations = %v, want sorted [alpha_op zeta_op]", ops)
	}
}

func TestByAgentGroups(t *testing.T) {
	reg := New()
	reg.Register(&fakeAgent{name: "geometry", ops: []string{"create_box", "add_fillet"}})
	reg.Register(&fakeAgent{name: "sketch", ops: []string{"create_sketch"}})

	byAgent := reg.ByAgent()
	if len(byAgent) != 2 {
		t.Fatalf("groups = %d, want 2", len(byAgent))
	}
	geo := byAgent["geometry"]
	if len(geo) != 2 || geo[0] != "add_fillet" || geo[1] != "create_box" {
		t.Errorf("geometry ops = %v, want sorted [add_fillet create_box]", geo)
	}
}
