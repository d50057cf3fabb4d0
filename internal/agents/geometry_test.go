package agents

import (
	"context"
	"testing"

	"github.com/openclaw/autopilot/internal/document"
	"github.com/openclaw/autopilot/internal/logging"
	"github.com/openclaw/autopilot/internal/plan"
)

func geomStep(op string, params map[string]any) *plan.Step {
	return &plan.Step{ID: "step-1", OperationType: op, Parameters: params}
}

func TestCreateBoxAndInverse(t *testing.T) {
	doc := document.New("Test")
	g := NewGeometry(doc, logging.New())

	res, err := g.Execute(context.Background(), geomStep("create_box", map[string]any{
		"name": "Box", "length": 10.0, "width": 20.0, "height": 30.0,
	}), doc.Snapshot())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatal("result not successful")
	}
	if len(res.CreatedObjects) != 1 || res.CreatedObjects[0] != "Box" {
		t.Errorf("created = %v, want [Box]", res.CreatedObjects)
	}

	obj, ok := doc.Object("Box")
	if !ok {
		t.Fatal("box not in document")
	}
	if obj.Params["length"] != 10 {
		t.Errorf("length = %v, want 10", obj.Params["length"])
	}

	if res.Inverse == nil {
		t.Fatal("creation has no inverse")
	}
	if err := res.Inverse.Undo(); err != nil {
		t.Fatalf("inverse: %v", err)
	}
	if doc.ObjectCount() != 0 {
		t.Error("inverse did not remove the box")
	}
}

func TestCreateBoxDuplicateNameFails(t *testing.T) {
	doc := document.New("Test")
	g := NewGeometry(doc, logging.New())
	params := map[string]any{"name": "Box", "length": 1.0, "width": 1.0, "height": 1.0}

	if _, err := g.Execute(context.Background(), geomStep("create_box", params), doc.Snapshot()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := g.Execute(context.Background(), geomStep("create_box", params), doc.Snapshot()); err == nil {
		t.Error("duplicate name accepted")
	}
}

func TestFilletModifiesAndRestores(t *testing.T) {
	doc := document.New("Test")
	if err := doc.AddObject(document.Object{Name: "Box", Type: "box", Params: map[string]float64{"length": 10}}); err != nil {
		t.Fatalf("seeding: %v", err)
	}
	g := NewGeometry(doc, logging.New())

	res, err := g.Execute(context.Background(), geomStep("add_fillet", map[string]any{
		"object": "Box", "radius": 2.0,
	}), doc.Snapshot())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	obj, _ := doc.Object("Box")
	if obj.Params["fillet_radius"] != 2 {
		t.Errorf("fillet_radius = %v, want 2", obj.Params["fillet_radius"])
	}

	if err := res.Inverse.Undo(); err != nil {
		t.Fatalf("inverse: %v", err)
	}
	obj, _ = doc.Object("Box")
	if _, has := obj.Params["fillet_radius"]; has {
		t.Error("inverse did not restore parameters")
	}
}

func TestBooleanConsumesToolAndRestores(t *testing.T) {
	doc := document.New("Test")
	for _, name := range []string{"Box", "Cylinder"} {
		if err := doc.AddObject(document.Object{Name: name, Type: "box", Params: map[string]float64{"length": 5}}); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}
	g := NewGeometry(doc, logging.New())

	res, err := g.Execute(context.Background(), geomStep("boolean_difference", map[string]any{
		"base": "Box", "tool": "Cylinder",
	}), doc.Snapshot())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if _, ok := doc.Object("Cylinder"); ok {
		t.Error("tool object still present after boolean")
	}
	if _, ok := doc.Object("Box"); !ok {
		t.Error("base object missing after boolean")
	}

	if err := res.Inverse.Undo(); err != nil {
		t.Fatalf("inverse: %v", err)
	}
	if _, ok := doc.Object("Cylinder"); !ok {
		t.Error("inverse did not restore the tool object")
	}
}

func TestBooleanValidateRejectsSameOperand(t *testing.T) {
	doc := document.New("Test")
	g := NewGeometry(doc, logging.New())

	out := g.Validate(context.Background(), geomStep("boolean_union", map[string]any{
		"base": "Box", "tool": "Box",
	}), doc.Snapshot())
	if len(out) != 1 || out[0].Rule != "distinct_operands" {
		t.Errorf("violations = %v, want distinct_operands", out)
	}
}

func TestRemoveObjectAndRestore(t *testing.T) {
	doc := document.New("Test")
	if err := doc.AddObject(document.Object{Name: "Box", Type: "box", Params: map[string]float64{"length": 7}}); err != nil {
		t.Fatalf("seeding: %v", err)
	}
	g := NewGeometry(doc, logging.New())

	res, err := g.Execute(context.Background(), geomStep("remove_object", map[string]any{"object": "Box"}), doc.Snapshot())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if doc.ObjectCount() != 0 {
		t.Fatal("object still present")
	}

	if err := res.Inverse.Undo(); err != nil {
		t.Fatalf("inverse: %v", err)
	}
	obj, ok := doc.Object("Box")
	if !ok || obj.Params["length"] != 7 {
		t.Error("inverse did not restore the object with its parameters")
	}
}

func TestAnalysisHasNoInverse(t *testing.T) {
	doc := document.New("Test")
	if err := doc.AddObject(document.Object{Name: "Box", Type: "box", Params: map[string]float64{"length": 2, "width": 3, "height": 4}}); err != nil {
		t.Fatalf("seeding: %v", err)
	}
	a := NewAnalysis(logging.New())

	res, err := a.Execute(context.Background(), geomStep("geometric_properties", nil), doc.Snapshot())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Inverse != nil {
		t.Error("read-only analysis carries an inverse action")
	}
	if got := res.Data["total_volume"]; got != 24.0 {
		t.Errorf("total_volume = %v, want 24", got)
	}
}

func TestSketchLifecycle(t *testing.T) {
	doc := document.New("Test")
	s := NewSketch(doc, logging.New())
	ctx := context.Background()

	if _, err := s.Execute(ctx, geomStep("create_sketch", map[string]any{"name": "Sketch"}), doc.Snapshot()); err != nil {
		t.Fatalf("create_sketch: %v", err)
	}
	if _, err := s.Execute(ctx, geomStep("add_rectangle", map[string]any{"sketch": "Sketch", "width": 10.0, "height": 5.0}), doc.Snapshot()); err != nil {
		t.Fatalf("add_rectangle: %v", err)
	}
	if _, err := s.Execute(ctx, geomStep("close_sketch", map[string]any{"sketch": "Sketch"}), doc.Snapshot()); err != nil {
		t.Fatalf("close_sketch: %v", err)
	}

	// Closed sketches reject further primitives.
	if _, err := s.Execute(ctx, geomStep("add_circle", map[string]any{"sketch": "Sketch", "radius": 3.0}), doc.Snapshot()); err == nil {
		t.Error("primitive added to a closed sketch")
	}

	obj, _ := doc.Object("Sketch")
	if obj.Params["rectangles"] != 1 {
		t.Errorf("rectangles = %v, want 1", obj.Params["rectangles"])
	}
}

func TestSketchValidateRejectsWrongType(t *testing.T) {
	doc := document.New("Test")
	if err := doc.AddObject(document.Object{Name: "Box", Type: "box"}); err != nil {
		t.Fatalf("seeding: %v", err)
	}
	s := NewSketch(doc, logging.New())

	out := s.Validate(context.Background(), geomStep("add_circle", map[string]any{"sketch": "Box", "radius": 1.0}), doc.Snapshot())
	if len(out) != 1 || out[0].Rule != "target_type" {
		t.Errorf("violations = %v, want target_type", out)
	}
}
