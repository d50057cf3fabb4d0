// Package agents provides the built-in capability providers operating on
// the in-memory document model.
package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/openclaw/autopilot/internal/document"
	"github.com/openclaw/autopilot/internal/logging"
	"github.com/openclaw/autopilot/internal/plan"
)

// Geometry creates and modifies solid objects. It holds no per-step
// state; everything arrives in the step and the snapshot.
type Geometry struct {
	doc    *document.Document
	logger *logging.Logger
}

// NewGeometry creates the geometry agent bound to a document.
func NewGeometry(doc *document.Document, logger *logging.Logger) *Geometry {
	return &Geometry{doc: doc, logger: logger.WithComponent("agent.geometry")}
}

func (g *Geometry) Name() string { return "geometry" }

func (g *Geometry) Capabilities() []string {
	return []string{
		"create_box",
		"create_cylinder",
		"create_sphere",
		"add_fillet",
		"add_chamfer",
		"boolean_union",
		"boolean_difference",
		"remove_object",
		"translate_object",
	}
}

// Validate adds geometry-specific findings on top of the global safety
// rules. Target existence and dimension ranges are already covered there.
func (g *Geometry) Validate(_ context.Context, step *plan.Step, _ document.ExecutionContext) []plan.Violation {
	switch step.OperationType {
	case "create_box", "create_cylinder", "create_sphere":
		if name, _ := paramString(step, "name"); name == "" {
			return []plan.Violation{{
				Rule:     "required_parameter",
				Severity: plan.SeverityBlocking,
				Detail:   fmt.Sprintf("%s requires parameter %q", step.OperationType, "name"),
			}}
		}
	case "boolean_union", "boolean_difference":
		base, _ := paramString(step, "base")
		tool, _ := paramString(step, "tool")
		if base != "" && base == tool {
			return []plan.Violation{{
				Rule:     "distinct_operands",
				Severity: plan.SeverityBlocking,
				Detail:   fmt.Sprintf("%s needs distinct base and tool, both are %q", step.OperationType, base),
			}}
		}
	}
	return nil
}

func (g *Geometry) Execute(ctx context.Context, step *plan.Step, snap document.ExecutionContext) (*plan.Result, error) {
	start := time.Now()
	var res *plan.Result
	var err error

	switch step.OperationType {
	case "create_box":
		res, err = g.createSolid(step, "box", "length", "width", "height")
	case "create_cylinder":
		res, err = g.createSolid(step, "cylinder", "radius", "height")
	case "create_sphere":
		res, err = g.createSolid(step, "sphere", "radius")
	case "add_fillet":
		res, err = g.dressUp(step, "fillet_radius", "radius")
	case "add_chamfer":
		res, err = g.dressUp(step, "chamfer_size", "size")
	case "boolean_union", "boolean_difference":
		res, err = g.boolean(step)
	case "remove_object":
		res, err = g.remove(step)
	case "translate_object":
		res, err = g.translate(step)
	default:
		return nil, fmt.Errorf("geometry agent cannot handle %q", step.OperationType)
	}

	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

// createSolid adds a new object with the named dimension parameters.
func (g *Geometry) createSolid(step *plan.Step, objType string, dims ...string) (*plan.Result, error) {
	name, ok := paramString(step, "name")
	if !ok {
		return nil, fmt.Errorf("%s requires a name", step.OperationType)
	}

	params := make(map[string]float64, len(dims))
	for _, d := range dims {
		v, ok := paramFloat(step, d)
		if !ok {
			return nil, fmt.Errorf("%s requires numeric parameter %q", step.OperationType, d)
		}
		params[d] = v
	}

	if err := g.doc.AddObject(document.Object{
		Name:      name,
		Type:      objType,
		Params:    params,
		CreatedBy: step.ID,
	}); err != nil {
		return nil, err
	}

	g.logger.Debug("object created", map[string]interface{}{
		"object": name,
		"type":   objType,
	})

	doc := g.doc
	return &plan.Result{
		Success:        true,
		Data:           map[string]any{"object": name, "type": objType},
		CreatedObjects: []string{name},
		Inverse: &plan.InverseAction{
			Description: fmt.Sprintf("delete created object %s", name),
			Undo: func() error {
				_, err := doc.RemoveObject(name)
				return err
			},
		},
	}, nil
}

// dressUp applies a fillet or chamfer by stamping the size onto the
// target's parameters.
func (g *Geometry) dressUp(step *plan.Step, docParam, stepParam string) (*plan.Result, error) {
	target, ok := paramString(step, "object")
	if !ok {
		return nil, fmt.Errorf("%s requires an object", step.OperationType)
	}
	size, ok := paramFloat(step, stepParam)
	if !ok {
		return nil, fmt.Errorf("%s requires numeric parameter %q", step.OperationType, stepParam)
	}

	obj, found := g.doc.Object(target)
	if !found {
		return nil, fmt.Errorf("object %q not found", target)
	}

	next := make(map[string]float64, len(obj.Params)+1)
	for k, v := range obj.Params {
		next[k] = v
	}
	next[docParam] = size

	prev, err := g.doc.SetParams(target, next)
	if err != nil {
		return nil, err
	}

	doc := g.doc
	return &plan.Result{
		Success:         true,
		Data:            map[string]any{"object": target, docParam: size},
		ModifiedObjects: []string{target},
		Inverse: &plan.InverseAction{
			Description: fmt.Sprintf("restore parameters of %s", target),
			Undo: func() error {
				_, err := doc.SetParams(target, prev)
				return err
			},
		},
	}, nil
}

// boolean consumes the tool object into the base. The tool is removed;
// the inverse re-adds it.
func (g *Geometry) boolean(step *plan.Step) (*plan.Result, error) {
	base, ok := paramString(step, "base")
	if !ok {
		return nil, fmt.Errorf("%s requires a base object", step.OperationType)
	}
	tool, ok := paramString(step, "tool")
	if !ok {
		return nil, fmt.Errorf("%s requires a tool object", step.OperationType)
	}

	if _, found := g.doc.Object(base); !found {
		return nil, fmt.Errorf("object %q not found", base)
	}
	removed, err := g.doc.RemoveObject(tool)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("boolean applied", map[string]interface{}{
		"op":   step.OperationType,
		"base": base,
		"tool": tool,
	})

	doc := g.doc
	return &plan.Result{
		Success:         true,
		Data:            map[string]any{"base": base, "tool": tool},
		ModifiedObjects: []string{base},
		Inverse: &plan.InverseAction{
			Description: fmt.Sprintf("restore consumed object %s", tool),
			Undo: func() error {
				return doc.AddObject(removed)
			},
		},
	}, nil
}

func (g *Geometry) remove(step *plan.Step) (*plan.Result, error) {
	target, ok := paramString(step, "object")
	if !ok {
		return nil, fmt.Errorf("remove_object requires an object")
	}

	removed, err := g.doc.RemoveObject(target)
	if err != nil {
		return nil, err
	}

	doc := g.doc
	return &plan.Result{
		Success:         true,
		Data:            map[string]any{"object": target},
		ModifiedObjects: []string{target},
		Inverse: &plan.InverseAction{
			Description: fmt.Sprintf("restore removed object %s", target),
			Undo: func() error {
				return doc.AddObject(removed)
			},
		},
	}, nil
}

// translate stores the offset on the object's parameters.
func (g *Geometry) translate(step *plan.Step) (*plan.Result, error) {
	target, ok := paramString(step, "object")
	if !ok {
		return nil, fmt.Errorf("translate_object requires an object")
	}

	obj, found := g.doc.Object(target)
	if !found {
		return nil, fmt.Errorf("object %q not found", target)
	}

	next := make(map[string]float64, len(obj.Params)+3)
	for k, v := range obj.Params {
		next[k] = v
	}
	for _, axis := range []string{"x", "y", "z"} {
		if v, ok := paramFloat(step, axis); ok {
			next["pos_"+axis] = next["pos_"+axis] + v
		}
	}

	prev, err := g.doc.SetParams(target, next)
	if err != nil {
		return nil, err
	}

	doc := g.doc
	return &plan.Result{
		Success:         true,
		Data:            map[string]any{"object": target},
		ModifiedObjects: []string{target},
		Inverse: &plan.InverseAction{
			Description: fmt.Sprintf("restore position of %s", target),
			Undo: func() error {
				_, err := doc.SetParams(target, prev)
				return err
			},
		},
	}, nil
}

func paramString(step *plan.Step, key string) (string, bool) {
	s, ok := step.Parameters[key].(string)
	return s, ok && s != ""
}

func paramFloat(step *plan.Step, key string) (float64, bool) {
	switch v := step.Parameters[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
