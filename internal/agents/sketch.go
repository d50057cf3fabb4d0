package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/openclaw/autopilot/internal/document"
	"github.com/openclaw/autopilot/internal/logging"
	"github.com/openclaw/autopilot/internal/plan"
)

// Sketch creates 2D sketches and adds primitives to them. A sketch is a
// document object of type "sketch"; primitives are counted on its
// parameters rather than modeled individually.
type Sketch struct {
	doc    *document.Document
	logger *logging.Logger
}

// NewSketch creates the sketch agent bound to a document.
func NewSketch(doc *document.Document, logger *logging.Logger) *Sketch {
	return &Sketch{doc: doc, logger: logger.WithComponent("agent.sketch")}
}

func (s *Sketch) Name() string { return "sketch" }

func (s *Sketch) Capabilities() []string {
	return []string{
		"create_sketch",
		"add_rectangle",
		"add_circle",
		"close_sketch",
	}
}

func (s *Sketch) Validate(_ context.Context, step *plan.Step, snap document.ExecutionContext) []plan.Violation {
	if step.OperationType == "create_sketch" {
		return nil
	}
	// Primitive operations must target an object that really is a sketch.
	name, ok := paramString(step, "sketch")
	if !ok {
		return nil // required_parameter is reported by the global rules
	}
	for _, obj := range snap.Objects() {
		if obj.Name == name && obj.Type != "sketch" {
			return []plan.Violation{{
				Rule:     "target_type",
				Severity: plan.SeverityBlocking,
				Detail:   fmt.Sprintf("object %q is a %s, not a sketch", name, obj.Type),
			}}
		}
	}
	return nil
}

func (s *Sketch) Execute(_ context.Context, step *plan.Step, _ document.ExecutionContext) (*plan.Result, error) {
	start := time.Now()
	var res *plan.Result
	var err error

	switch step.OperationType {
	case "create_sketch":
		res, err = s.create(step)
	case "add_rectangle":
		res, err = s.addPrimitive(step, "rectangles")
	case "add_circle":
		res, err = s.addPrimitive(step, "circles")
	case "close_sketch":
		res, err = s.close(step)
	default:
		return nil, fmt.Errorf("sketch agent cannot handle %q", step.OperationType)
	}

	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (s *Sketch) create(step *plan.Step) (*plan.Result, error) {
	name, ok := paramString(step, "name")
	if !ok {
		return nil, fmt.Errorf("create_sketch requires a name")
	}

	if err := s.doc.AddObject(document.Object{
		Name:      name,
		Type:      "sketch",
		Params:    map[string]float64{"closed": 0},
		CreatedBy: step.ID,
	}); err != nil {
		return nil, err
	}

	doc := s.doc
	return &plan.Result{
		Success:        true,
		Data:           map[string]any{"sketch": name},
		CreatedObjects: []string{name},
		Inverse: &plan.InverseAction{
			Description: fmt.Sprintf("delete created sketch %s", name),
			Undo: func() error {
				_, err := doc.RemoveObject(name)
				return err
			},
		},
	}, nil
}

// addPrimitive bumps the per-kind primitive count on the sketch.
func (s *Sketch) addPrimitive(step *plan.Step, counter string) (*plan.Result, error) {
	name, ok := paramString(step, "sketch")
	if !ok {
		return nil, fmt.Errorf("%s requires a sketch", step.OperationType)
	}

	obj, found := s.doc.Object(name)
	if !found {
		return nil, fmt.Errorf("sketch %q not found", name)
	}
	if obj.Params["closed"] != 0 {
		return nil, fmt.Errorf("sketch %q is closed", name)
	}

	next := make(map[string]float64, len(obj.Params)+1)
	for k, v := range obj.Params {
		next[k] = v
	}
	next[counter] = next[counter] + 1

	prev, err := s.doc.SetParams(name, next)
	if err != nil {
		return nil, err
	}

	doc := s.doc
	return &plan.Result{
		Success:         true,
		Data:            map[string]any{"sketch": name},
		ModifiedObjects: []string{name},
		Inverse: &plan.InverseAction{
			Description: fmt.Sprintf("remove primitive from %s", name),
			Undo: func() error {
				_, err := doc.SetParams(name, prev)
				return err
			},
		},
	}, nil
}

func (s *Sketch) close(step *plan.Step) (*plan.Result, error) {
	name, ok := paramString(step, "sketch")
	if !ok {
		return nil, fmt.Errorf("close_sketch requires a sketch")
	}

	obj, found := s.doc.Object(name)
	if !found {
		return nil, fmt.Errorf("sketch %q not found", name)
	}

	next := make(map[string]float64, len(obj.Params))
	for k, v := range obj.Params {
		next[k] = v
	}
	next["closed"] = 1

	prev, err := s.doc.SetParams(name, next)
	if err != nil {
		return nil, err
	}

	doc := s.doc
	return &plan.Result{
		Success:         true,
		Data:            map[string]any{"sketch": name},
		ModifiedObjects: []string{name},
		Inverse: &plan.InverseAction{
			Description: fmt.Sprintf("reopen sketch %s", name),
			Undo: func() error {
				_, err := doc.SetParams(name, prev)
				return err
			},
		},
	}, nil
}
