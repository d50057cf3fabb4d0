// Package registry maps operation types to the agents that perform them.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/openclaw/autopilot/internal/document"
	"github.com/openclaw/autopilot/internal/plan"
)

// Agent is a capability provider for one domain of operations. Agents are
// registered once at startup and hold no mutable state between calls;
// everything they need arrives in the step and the context snapshot.
type Agent interface {
	// Name returns a human-readable agent name.
	Name() string
	// Capabilities returns the operation types this agent handles.
	Capabilities() []string
	// Validate checks a step against the snapshot without mutating
	// anything.
	Validate(ctx context.Context, step *plan.Step, snap document.ExecutionContext) []plan.Violation
	// Execute performs the step against the target.
	Execute(ctx context.Context, step *plan.Step, snap document.ExecutionContext) (*plan.Result, error)
}

// Registry holds all registered agents keyed by operation type.
// Resolution is a pure lookup; adding a new capability domain means
// registering a new agent, never touching the controller.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register binds every operation type the agent declares. Later
// registrations win, which lets tests shadow built-ins.
func (r *Registry) Register(agent Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, op := range agent.Capabilities() {
		r.agents[op] = agent
	}
}

// Resolve returns the agent for an operation type.
func (r *Registry) Resolve(operationType string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[operationType]
	if !ok {
		return nil, &plan.UnknownCapabilityError{Operation: operationType}
	}
	return agent, nil
}

// Has reports whether an operation type is registered.
func (r *Registry) Has(operationType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[operationType]
	return ok
}

// Operations returns all registered operation types, sorted.
func (r *Registry) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ops := make([]string, 0, len(r.agents))
	for op := range r.agents {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// ByAgent groups registered operation types by agent name, sorted.
func (r *Registry) ByAgent() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]string)
	for op, agent := range r.agents {
		out[agent.Name()] = append(out[agent.Name()], op)
	}
	for name := range out {
		sort.Strings(out[name])
	}
	return out
}
