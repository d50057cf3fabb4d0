package planner

import (
	"fmt"
	"strings"

	"github.com/openclaw/autopilot/internal/document"
	"github.com/openclaw/autopilot/internal/plan"
)

// builder accumulates steps for one plan and infers dependency edges as
// they are added. It tracks which step produces which object so a later
// step targeting that object depends on its producer, and links clause
// boundaries sequentially.
type builder struct {
	steps []*plan.Step

	// producers maps object name -> id of the step that creates it.
	producers map[string]string
	// producedOrder lists produced names oldest first.
	producedOrder []string
	// available lists snapshot names in document order, extended as steps
	// produce new objects.
	available []string

	snap document.ExecutionContext

	// prevClauseEnd is the id of the previous clause's last step; the next
	// clause's first step depends on it.
	prevClauseEnd string
	clauseStart   int
}

func newBuilder(snap document.ExecutionContext) *builder {
	b := &builder{
		producers: make(map[string]string),
		snap:      snap,
	}
	for _, obj := range snap.Objects() {
		b.available = append(b.available, obj.Name)
	}
	return b
}

// add appends a step, inferring dependencies from its target parameters
// and from clause sequencing.
func (b *builder) add(op, description string, params map[string]any) *plan.Step {
	s := &plan.Step{
		ID:            fmt.Sprintf("step-%d", len(b.steps)+1),
		OperationType: op,
		Description:   description,
		Parameters:    params,
		Status:        plan.StepPending,
	}

	deps := make(map[string]bool)
	for _, key := range []string{"object", "sketch", "base", "tool"} {
		name, ok := params[key].(string)
		if !ok || name == "" {
			continue
		}
		if producer, produced := b.producers[name]; produced {
			deps[producer] = true
		}
	}
	if b.prevClauseEnd != "" && len(b.steps) == b.clauseStart {
		deps[b.prevClauseEnd] = true
	}

	for _, prior := range b.steps {
		if deps[prior.ID] {
			s.DependsOn = append(s.DependsOn, prior.ID)
		}
	}

	b.steps = append(b.steps, s)
	return s
}

// produced records that the last added step creates the named object.
func (b *builder) produced(name string) {
	last := b.steps[len(b.steps)-1]
	b.producers[name] = last.ID
	b.producedOrder = append(b.producedOrder, name)
	b.available = append(b.available, name)
}

// endClause marks a clause boundary for sequential dependency linking.
func (b *builder) endClause() {
	if len(b.steps) > 0 {
		b.prevClauseEnd = b.steps[len(b.steps)-1].ID
	}
	b.clauseStart = len(b.steps)
}

// uniqueName returns base, or base2, base3... if taken.
func (b *builder) uniqueName(base string) string {
	taken := func(name string) bool {
		if b.snap.HasObject(name) {
			return true
		}
		_, produced := b.producers[name]
		return produced
	}
	if !taken(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if !taken(candidate) {
			return candidate
		}
	}
}

// mentioned returns known object names that appear in the clause, ordered
// by position of first appearance.
func (b *builder) mentioned(clause string) []string {
	type hit struct {
		name string
		pos  int
	}
	var hits []hit
	for _, name := range b.available {
		if pos := strings.Index(clause, strings.ToLower(name)); pos >= 0 {
			hits = append(hits, hit{name: name, pos: pos})
		}
	}
	// Stable insertion sort by position; ties keep availability order.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

// resolveTarget picks the object a clause operates on: a name mentioned in
// the clause, else the most recently produced object, else the last object
// already in the document.
func (b *builder) resolveTarget(clause string) (string, bool) {
	if names := b.mentioned(clause); len(names) > 0 {
		return names[0], true
	}
	if n := len(b.producedOrder); n > 0 {
		return b.producedOrder[n-1], true
	}
	if n := len(b.available); n > 0 {
		return b.available[n-1], true
	}
	return "", false
}

// resolvePair picks base and tool for a boolean operation: the first two
// names mentioned in the clause, else the two most recently available
// objects (older as base, newer as tool).
func (b *builder) resolvePair(clause string) (string, string, bool) {
	names := b.mentioned(clause)
	if len(names) >= 2 {
		return names[0], names[1], true
	}
	if n := len(b.available); n >= 2 {
		return b.available[n-2], b.available[n-1], true
	}
	return "", "", false
}
