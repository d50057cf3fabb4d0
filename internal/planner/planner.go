// Package planner decomposes a goal into a dependency-ordered execution
// plan. Decomposition is deterministic: the same goal against the same
// snapshot always yields a structurally identical plan.
package planner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/openclaw/autopilot/internal/document"
	"github.com/openclaw/autopilot/internal/logging"
	"github.com/openclaw/autopilot/internal/plan"
	"github.com/openclaw/autopilot/internal/registry"
)

// RiskClassifier tags a decomposed operation with a risk level. Pluggable
// so deployments can widen the destructive set without touching the
// planner.
type RiskClassifier func(operationType string, params map[string]any) plan.RiskLevel

// DefaultClassifier marks operations that delete or replace existing
// state as destructive.
func DefaultClassifier(operationType string, _ map[string]any) plan.RiskLevel {
	switch operationType {
	case "boolean_union", "boolean_difference", "remove_object", "clear_document":
		return plan.RiskDestructive
	}
	return plan.RiskNormal
}

// Planner turns goal text into plans. It consults the registry only to
// confirm feasibility; resolution happens at dispatch time.
type Planner struct {
	registry   *registry.Registry
	classifier RiskClassifier
	recipes    []Recipe
	logger     *logging.Logger
}

// New creates a planner. A nil classifier uses DefaultClassifier.
func New(reg *registry.Registry, classifier RiskClassifier, logger *logging.Logger) *Planner {
	if classifier == nil {
		classifier = DefaultClassifier
	}
	return &Planner{
		registry:   reg,
		classifier: classifier,
		logger:     logger.WithComponent("planner"),
	}
}

// UseRecipes installs named plan templates, matched before the lexical
// rules.
func (p *Planner) UseRecipes(recipes []Recipe) {
	p.recipes = recipes
}

var (
	dimsRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:x|×)\s*(\d+(?:\.\d+)?)\s*(?:x|×)\s*(\d+(?:\.\d+)?)`)
	dims2Re   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:x|×)\s*(\d+(?:\.\d+)?)`)
	radiusRe  = regexp.MustCompile(`radius\s+(?:of\s+)?(\d+(?:\.\d+)?)`)
	heightRe  = regexp.MustCompile(`height\s+(?:of\s+)?(\d+(?:\.\d+)?)`)
	byValRe   = regexp.MustCompile(`by\s+(\d+(?:\.\d+)?)`)
	numRe     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*mm`)
	clauseSep = regexp.MustCompile(`\s*(?:,?\s*then\s+|;\s*)`)
	// opIdentRe matches a clause that names an operation type directly,
	// e.g. "optimize_topology".
	opIdentRe = regexp.MustCompile(`^[a-z][a-z0-9]*(?:_[a-z0-9]+)+$`)
)

// Plan decomposes the goal into steps and infers dependency edges. Clauses
// joined by "then" or ";" run sequentially; a step targeting an object not
// present in the snapshot depends on the step that produces it.
func (p *Planner) Plan(taskID, goal string, snap document.ExecutionContext) (*plan.Plan, error) {
	text := strings.ToLower(strings.TrimSpace(goal))
	if text == "" {
		return nil, &plan.PlanningError{Goal: goal, Reason: "empty goal"}
	}

	b := newBuilder(snap)

	clauses := clauseSep.Split(text, -1)
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		if err := p.decomposeClause(clause, goal, b); err != nil {
			return nil, err
		}
		b.endClause()
	}

	if len(b.steps) == 0 {
		return nil, &plan.PlanningError{Goal: goal, Reason: "no recognizable operations in goal"}
	}

	for _, s := range b.steps {
		if !p.registry.Has(s.OperationType) {
			return nil, &plan.UnknownCapabilityError{Operation: s.OperationType}
		}
		s.Risk = p.classifier(s.OperationType, s.Parameters)
	}

	pl, err := plan.New(taskID, b.steps)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("plan built", map[string]interface{}{
		"task":  taskID,
		"steps": len(pl.Steps),
	})
	return pl, nil
}

// decomposeClause appends the steps for one clause to the builder.
func (p *Planner) decomposeClause(clause, goal string, b *builder) error {
	for _, r := range p.recipes {
		if r.Matches(clause) {
			return r.expand(b)
		}
	}

	switch {
	case strings.Contains(clause, "box"):
		return p.parseBox(clause, goal, b)
	case strings.Contains(clause, "cylinder"):
		return p.parseCylinder(clause, b)
	case strings.Contains(clause, "sphere"):
		return p.parseSphere(clause, b)
	case strings.Contains(clause, "fillet"):
		return p.parseDressUp(clause, goal, b, "add_fillet", "radius", 1)
	case strings.Contains(clause, "chamfer"):
		return p.parseDressUp(clause, goal, b, "add_chamfer", "size", 1)
	case strings.Contains(clause, "sketch"):
		return p.parseSketch(clause, b)
	case strings.Contains(clause, "subtract") || strings.Contains(clause, "difference") || strings.Contains(clause, "cut"):
		return p.parseBoolean(clause, goal, b, "boolean_difference")
	case strings.Contains(clause, "union") || strings.Contains(clause, "combine") || strings.Contains(clause, "fuse"):
		return p.parseBoolean(clause, goal, b, "boolean_union")
	case strings.Contains(clause, "remove") || strings.Contains(clause, "delete"):
		return p.parseRemove(clause, goal, b)
	case strings.Contains(clause, "printab"):
		b.add("printability_analysis", "analyze printability", map[string]any{})
		return nil
	case strings.Contains(clause, "mass"):
		b.add("mass_properties", "compute mass properties", map[string]any{})
		return nil
	case strings.Contains(clause, "analy") || strings.Contains(clause, "properties") || strings.Contains(clause, "measure"):
		b.add("geometric_properties", "compute geometric properties", map[string]any{})
		return nil
	}

	// A clause naming an operation type directly becomes a single step;
	// feasibility against the registry is checked afterwards.
	if opIdentRe.MatchString(clause) {
		b.add(clause, clause, map[string]any{})
		return nil
	}

	return &plan.PlanningError{Goal: goal, Reason: fmt.Sprintf("cannot decompose clause %q", clause)}
}

func (p *Planner) parseBox(clause, goal string, b *builder) error {
	m := dimsRe.FindStringSubmatch(clause)
	if m == nil {
		return &plan.PlanningError{Goal: goal, Reason: "box requires LxWxH dimensions"}
	}
	length, _ := strconv.ParseFloat(m[1], 64)
	width, _ := strconv.ParseFloat(m[2], 64)
	height, _ := strconv.ParseFloat(m[3], 64)

	name := b.uniqueName("Box")
	b.add("create_box", fmt.Sprintf("create box %gx%gx%g", length, width, height), map[string]any{
		"name":   name,
		"length": length,
		"width":  width,
		"height": height,
	})
	b.produced(name)
	return nil
}

func (p *Planner) parseCylinder(clause string, b *builder) error {
	radius := matchFloat(radiusRe, clause, 5)
	height := matchFloat(heightRe, clause, 10)

	name := b.uniqueName("Cylinder")
	b.add("create_cylinder", fmt.Sprintf("create cylinder r=%g h=%g", radius, height), map[string]any{
		"name":   name,
		"radius": radius,
		"height": height,
	})
	b.produced(name)
	return nil
}

func (p *Planner) parseSphere(clause string, b *builder) error {
	radius := matchFloat(radiusRe, clause, 5)
	if radius == 5 {
		radius = matchFloat(numRe, clause, 5)
	}

	name := b.uniqueName("Sphere")
	b.add("create_sphere", fmt.Sprintf("create sphere r=%g", radius), map[string]any{
		"name":   name,
		"radius": radius,
	})
	b.produced(name)
	return nil
}

// parseDressUp handles fillet and chamfer clauses. The target is a named
// object mentioned in the clause, else the most recently produced object.
func (p *Planner) parseDressUp(clause, goal string, b *builder, op, sizeParam string, sizeDefault float64) error {
	size := matchFloat(byValRe, clause, 0)
	if size == 0 {
		size = matchFloat(radiusRe, clause, sizeDefault)
	}

	target, ok := b.resolveTarget(clause)
	if !ok {
		return &plan.PlanningError{Goal: goal, Reason: fmt.Sprintf("%s has no target object", op)}
	}

	verb := strings.TrimPrefix(op, "add_")
	b.add(op, fmt.Sprintf("%s %s by %g", verb, target, size), map[string]any{
		"object":  target,
		"edges":   "all",
		sizeParam: size,
	})
	return nil
}

func (p *Planner) parseSketch(clause string, b *builder) error {
	name := b.uniqueName("Sketch")
	b.add("create_sketch", "create sketch", map[string]any{
		"name":  name,
		"plane": "XY",
	})
	b.produced(name)

	if m := dims2Re.FindStringSubmatch(clause); m != nil && strings.Contains(clause, "rectangle") {
		w, _ := strconv.ParseFloat(m[1], 64)
		h, _ := strconv.ParseFloat(m[2], 64)
		b.add("add_rectangle", fmt.Sprintf("add %gx%g rectangle", w, h), map[string]any{
			"sketch": name,
			"width":  w,
			"height": h,
		})
	} else if strings.Contains(clause, "rectangle") {
		b.add("add_rectangle", "add rectangle", map[string]any{
			"sketch": name,
			"width":  10.0,
			"height": 10.0,
		})
	}
	if strings.Contains(clause, "circle") {
		b.add("add_circle", "add circle", map[string]any{
			"sketch": name,
			"radius": matchFloat(radiusRe, clause, 5),
		})
	}
	return nil
}

// parseBoolean resolves base and tool from named objects in the clause,
// falling back to the two most recently available objects.
func (p *Planner) parseBoolean(clause, goal string, b *builder, op string) error {
	base, tool, ok := b.resolvePair(clause)
	if !ok {
		return &plan.PlanningError{Goal: goal, Reason: fmt.Sprintf("%s requires two objects", op)}
	}
	b.add(op, fmt.Sprintf("%s of %s and %s", strings.TrimPrefix(op, "boolean_"), base, tool), map[string]any{
		"base": base,
		"tool": tool,
	})
	return nil
}

func (p *Planner) parseRemove(clause, goal string, b *builder) error {
	target, ok := b.resolveTarget(clause)
	if !ok {
		return &plan.PlanningError{Goal: goal, Reason: "remove has no target object"}
	}
	b.add("remove_object", fmt.Sprintf("remove %s", target), map[string]any{
		"object": target,
	})
	return nil
}

func matchFloat(re *regexp.Regexp, s string, fallback float64) float64 {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return fallback
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return fallback
	}
	return v
}
