package agents

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/openclaw/autopilot/internal/document"
	"github.com/openclaw/autopilot/internal/logging"
	"github.com/openclaw/autopilot/internal/plan"
)

// Analysis computes read-only reports over the document. Its results carry
// no inverse action: there is nothing to undo, and a rollback sweep
// records them as irreversible.
type Analysis struct {
	logger *logging.Logger
}

// NewAnalysis creates the analysis agent.
func NewAnalysis(logger *logging.Logger) *Analysis {
	return &Analysis{logger: logger.WithComponent("agent.analysis")}
}

func (a *Analysis) Name() string { return "analysis" }

func (a *Analysis) Capabilities() []string {
	return []string{
		"geometric_properties",
		"mass_properties",
		"printability_analysis",
	}
}

func (a *Analysis) Validate(_ context.Context, _ *plan.Step, _ document.ExecutionContext) []plan.Violation {
	return nil
}

func (a *Analysis) Execute(_ context.Context, step *plan.Step, snap document.ExecutionContext) (*plan.Result, error) {
	start := time.Now()

	var data map[string]any
	switch step.OperationType {
	case "geometric_properties":
		data = geometricProperties(snap)
	case "mass_properties":
		data = geometricProperties(snap)
		// Uniform density placeholder; real material data is out of scope.
		data["mass"] = data["total_volume"].(float64) * 0.00785
	case "printability_analysis":
		data = printability(snap)
	default:
		return nil, fmt.Errorf("analysis agent cannot handle %q", step.OperationType)
	}

	return &plan.Result{
		Success:  true,
		Data:     data,
		Duration: time.Since(start),
	}, nil
}

// geometricProperties sums approximate volumes over all solids.
func geometricProperties(snap document.ExecutionContext) map[string]any {
	total := 0.0
	perObject := make(map[string]any)
	for _, obj := range snap.Objects() {
		v := volume(obj)
		if v > 0 {
			perObject[obj.Name] = v
			total += v
		}
	}
	return map[string]any{
		"object_count": snap.ObjectCount(),
		"total_volume": total,
		"volumes":      perObject,
	}
}

// printability flags thin or oversized solids against common FDM limits.
func printability(snap document.ExecutionContext) map[string]any {
	var warnings []string
	for _, obj := range snap.Objects() {
		for name, v := range obj.Params {
			if !lengthParam(name) {
				continue
			}
			if v > 0 && v < 0.8 {
				warnings = append(warnings, fmt.Sprintf("%s: %s %.2fmm below minimum wall thickness", obj.Name, name, v))
			}
			if v > 250 {
				warnings = append(warnings, fmt.Sprintf("%s: %s %.0fmm exceeds typical build volume", obj.Name, name, v))
			}
		}
	}
	return map[string]any{
		"printable": len(warnings) == 0,
		"warnings":  warnings,
	}
}

func volume(obj document.Object) float64 {
	p := obj.Params
	switch obj.Type {
	case "box":
		return p["length"] * p["width"] * p["height"]
	case "cylinder":
		return math.Pi * p["radius"] * p["radius"] * p["height"]
	case "sphere":
		return 4.0 / 3.0 * math.Pi * math.Pow(p["radius"], 3)
	}
	return 0
}

func lengthParam(name string) bool {
	switch name {
	case "length", "width", "height", "radius":
		return true
	}
	return false
}
