package plan

import (
	"fmt"
	"sort"
)

// Plan is the dependency-ordered set of steps derived from a goal. It is
// immutable once execution begins; re-planning creates a new task.
type Plan struct {
	TaskID string
	Steps  []*Step

	byID map[string]*Step
}

// New builds a plan and rejects structural defects: duplicate or unknown
// step ids and dependency cycles.
func New(taskID string, steps []*Step) (*Plan, error) {
	p := &Plan{
		TaskID: taskID,
		Steps:  steps,
		byID:   make(map[string]*Step, len(steps)),
	}

	for _, s := range steps {
		if _, dup := p.byID[s.ID]; dup {
			return nil, &PlanningError{Reason: fmt.Sprintf("duplicate step id %q", s.ID)}
		}
		if s.Status == "" {
			s.Status = StepPending
		}
		p.byID[s.ID] = s
	}

	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if _, ok := p.byID[dep]; !ok {
				return nil, &PlanningError{Reason: fmt.Sprintf("step %q depends on unknown step %q", s.ID, dep)}
			}
		}
	}

	if cycle := p.findCycle(); cycle != "" {
		return nil, &PlanningError{Reason: fmt.Sprintf("dependency cycle through step %q", cycle)}
	}

	return p, nil
}

// Step returns the step with the given id, or nil.
func (p *Plan) Step(id string) *Step {
	return p.byID[id]
}

// NextReady returns the first step (in plan order) that is pending and
// whose dependencies have all succeeded, or nil if none is ready.
func (p *Plan) NextReady() *Step {
	for _, s := range p.Steps {
		if s.Status != StepPending {
			continue
		}
		ready := true
		for _, dep := range s.DependsOn {
			if p.byID[dep].Status != StepSucceeded {
				ready = false
				break
			}
		}
		if ready {
			return s
		}
	}
	return nil
}

// Active reports whether any step could still make progress.
func (p *Plan) Active() bool {
	for _, s := range p.Steps {
		if !s.Status.Terminal() {
			return true
		}
	}
	return false
}

// AllSucceeded reports whether every step succeeded.
func (p *Plan) AllSucceeded() bool {
	for _, s := range p.Steps {
		if s.Status != StepSucceeded {
			return false
		}
	}
	return true
}

// AnyFailed reports whether any step failed.
func (p *Plan) AnyFailed() bool {
	for _, s := range p.Steps {
		if s.Status == StepFailed {
			return true
		}
	}
	return false
}

// Dependents returns ids of all steps that transitively depend on the
// given step, sorted for deterministic iteration.
func (p *Plan) Dependents(id string) []string {
	direct := make(map[string][]string, len(p.Steps))
	for _, s := range p.Steps {
		for _, dep := range s.DependsOn {
			direct[dep] = append(direct[dep], s.ID)
		}
	}

	seen := make(map[string]bool)
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range direct[cur] {
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Succeeded returns ids of succeeded steps in execution (plan) order.
func (p *Plan) Succeeded() []string {
	var out []string
	for _, s := range p.Steps {
		if s.Status == StepSucceeded {
			out = append(out, s.ID)
		}
	}
	return out
}

// findCycle runs Kahn's algorithm and returns a step id on a cycle, or "".
func (p *Plan) findCycle() string {
	indegree := make(map[string]int, len(p.Steps))
	for _, s := range p.Steps {
		indegree[s.ID] = len(s.DependsOn)
	}

	var ready []string
	for _, s := range p.Steps {
		if indegree[s.ID] == 0 {
			ready = append(ready, s.ID)
		}
	}

	processed := 0
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		processed++
		for _, s := range p.Steps {
			for _, dep := range s.DependsOn {
				if dep == cur {
					indegree[s.ID]--
					if indegree[s.ID] == 0 {
						ready = append(ready, s.ID)
					}
				}
			}
		}
	}

	if processed == len(p.Steps) {
		return ""
	}
	for _, s := range p.Steps {
		if indegree[s.ID] > 0 {
			return s.ID
		}
	}
	return ""
}
