// Package safety validates proposed steps against configurable limits and
// consistency rules before they are allowed to run.
package safety

import (
	"fmt"
	"sort"
	"sync"

	"github.com/openclaw/autopilot/internal/document"
	"github.com/openclaw/autopilot/internal/plan"
)

// Limits bound what any single plan may do to the target document.
type Limits struct {
	MaxDimension    float64  `toml:"max_dimension"`     // largest accepted length parameter, in mm
	MaxObjects      int      `toml:"max_objects"`       // document object ceiling
	MaxStepsPerPlan int      `toml:"max_steps_per_plan"`
	DestructiveOps  []string `toml:"destructive_ops"`   // extends the built-in destructive set
}

// DefaultLimits returns the limits used when no config overrides them.
func DefaultLimits() Limits {
	return Limits{
		MaxDimension:    10000,
		MaxObjects:      100,
		MaxStepsPerPlan: 50,
	}
}

// requiredParams lists the parameters an operation cannot run without.
var requiredParams = map[string][]string{
	"create_box":      {"length", "width", "height"},
	"create_cylinder": {"radius", "height"},
	"create_sphere":   {"radius"},
	"add_fillet":      {"object", "radius"},
	"add_chamfer":     {"object", "size"},
	"add_rectangle":   {"sketch", "width", "height"},
	"add_circle":      {"sketch", "radius"},
}

// builtinDestructive are operations that delete or replace existing state.
var builtinDestructive = map[string]bool{
	"boolean_difference": true,
	"boolean_union":      true,
	"remove_object":      true,
	"clear_document":     true,
}

// Validator inspects a proposed step against limits and rules. It never
// mutates state and is re-run immediately before each step executes,
// since the document may have changed after planning.
type Validator struct {
	mu     sync.RWMutex
	limits Limits
}

// NewValidator creates a validator with the given limits.
func NewValidator(limits Limits) *Validator {
	return &Validator{limits: limits}
}

// Limits returns the current limits.
func (v *Validator) Limits() Limits {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.limits
}

// SetLimits atomically replaces the limits (used by the config watcher).
func (v *Validator) SetLimits(l Limits) {
	v.mu.Lock()
	v.limits = l
	v.mu.Unlock()
}

// IsDestructive reports whether the operation deletes or replaces state.
func (v *Validator) IsDestructive(operationType string) bool {
	if builtinDestructive[operationType] {
		return true
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, op := range v.limits.DestructiveOps {
		if op == operationType {
			return true
		}
	}
	return false
}

// Check validates one step against the fresh snapshot and the results of
// already-completed steps. It returns all findings, worst first.
func (v *Validator) Check(step *plan.Step, snap document.ExecutionContext, prior map[string]*plan.Result) []plan.Violation {
	var out []plan.Violation

	out = append(out, v.checkParameters(step)...)
	out = append(out, v.checkTargets(step, snap, prior)...)
	out = append(out, v.checkResources(step, snap, prior)...)

	if v.IsDestructive(step.OperationType) {
		out = append(out, plan.Violation{
			Rule:     "destructive_operation",
			Severity: plan.SeverityRequiresApproval,
			Detail:   fmt.Sprintf("%s deletes or replaces existing state", step.OperationType),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity == plan.SeverityBlocking && out[j].Severity != plan.SeverityBlocking
	})
	return out
}

// checkParameters verifies required parameters exist and dimensions are
// positive and within limits.
func (v *Validator) checkParameters(step *plan.Step) []plan.Violation {
	var out []plan.Violation

	for _, name := range requiredParams[step.OperationType] {
		if _, ok := step.Parameters[name]; !ok {
			out = append(out, plan.Violation{
				Rule:     "required_parameter",
				Severity: plan.SeverityBlocking,
				Detail:   fmt.Sprintf("%s requires parameter %q", step.OperationType, name),
			})
		}
	}

	limit := v.Limits().MaxDimension
	// Deterministic order over the parameter map.
	keys := make([]string, 0, len(step.Parameters))
	for k := range step.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		val, ok := asFloat(step.Parameters[k])
		if !ok {
			continue
		}
		if isDimension(k) {
			if val <= 0 {
				out = append(out, plan.Violation{
					Rule:     "positive_dimension",
					Severity: plan.SeverityBlocking,
					Detail:   fmt.Sprintf("%s must be > 0, got %g", k, val),
				})
			} else if limit > 0 && val > limit {
				out = append(out, plan.Violation{
					Rule:     "dimension_limit",
					Severity: plan.SeverityBlocking,
					Detail:   fmt.Sprintf("%s=%g exceeds the %gmm limit", k, val, limit),
				})
			}
		}
	}
	return out
}

// checkTargets verifies cross-step consistency: objects a step modifies
// must exist in the snapshot or have been created by a prior step, and
// objects a step creates must not collide with existing names.
func (v *Validator) checkTargets(step *plan.Step, snap document.ExecutionContext, prior map[string]*plan.Result) []plan.Violation {
	var out []plan.Violation

	created := make(map[string]bool)
	for _, res := range prior {
		for _, name := range res.CreatedObjects {
			created[name] = true
		}
	}
	exists := func(name string) bool {
		return snap.HasObject(name) || created[name]
	}

	for _, key := range []string{"object", "sketch", "base", "tool"} {
		if name, ok := step.Parameters[key].(string); ok && name != "" {
			if !exists(name) {
				out = append(out, plan.Violation{
					Rule:     "target_exists",
					Severity: plan.SeverityBlocking,
					Detail:   fmt.Sprintf("target object %q does not exist", name),
				})
			}
		}
	}
	if names, ok := step.Parameters["objects"].([]string); ok {
		for _, name := range names {
			if !exists(name) {
				out = append(out, plan.Violation{
					Rule:     "target_exists",
					Severity: plan.SeverityBlocking,
					Detail:   fmt.Sprintf("target object %q does not exist", name),
				})
			}
		}
	}

	if isCreation(step.OperationType) {
		if name, ok := step.Parameters["name"].(string); ok && name != "" && exists(name) {
			out = append(out, plan.Violation{
				Rule:     "name_collision",
				Severity: plan.SeverityBlocking,
				Detail:   fmt.Sprintf("object %q already exists", name),
			})
		}
	}
	return out
}

// checkResources enforces the document object ceiling for creation steps.
func (v *Validator) checkResources(step *plan.Step, snap document.ExecutionContext, prior map[string]*plan.Result) []plan.Violation {
	if !isCreation(step.OperationType) {
		return nil
	}
	max := v.Limits().MaxObjects
	if max <= 0 {
		return nil
	}

	count := snap.ObjectCount()
	for _, res := range prior {
		count += len(res.CreatedObjects)
	}
	if count >= max {
		return []plan.Violation{{
			Rule:     "object_limit",
			Severity: plan.SeverityBlocking,
			Detail:   fmt.Sprintf("document already holds %d of %d allowed objects", count, max),
		}}
	}
	return nil
}

func isCreation(op string) bool {
	switch op {
	case "create_box", "create_cylinder", "create_sphere", "create_sketch":
		return true
	}
	return false
}

// isDimension reports whether a parameter name denotes a length-like value.
func isDimension(name string) bool {
	switch name {
	case "length", "width", "height", "radius", "size", "distance", "depth":
		return true
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
