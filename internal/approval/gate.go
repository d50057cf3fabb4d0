// Package approval provides the request/response channel used for human
// sign-off on individual steps.
package approval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openclaw/autopilot/internal/logging"
	"github.com/openclaw/autopilot/internal/plan"
)

// DefaultTimeout bounds how long an unanswered request stays open.
const DefaultTimeout = 5 * time.Minute

// Gate mediates between the controller, which blocks awaiting a decision,
// and a responder (console, UI, or test auto-responder) that resolves it.
// Requests left unresolved past the timeout resolve to denied and are
// logged distinctly from an explicit denial.
type Gate struct {
	mu      sync.Mutex
	pending map[pendingKey]chan plan.ApprovalDecision

	requests chan plan.ApprovalRequest
	timeout  time.Duration
	logger   *logging.Logger
}

// pendingKey scopes a request to its task; step ids are plan-scoped
// ordinals, so concurrent tasks share them.
type pendingKey struct {
	taskID string
	stepID string
}

// NewGate creates a gate with the given per-request timeout. A timeout of
// zero uses DefaultTimeout.
func NewGate(timeout time.Duration, logger *logging.Logger) *Gate {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gate{
		pending:  make(map[pendingKey]chan plan.ApprovalDecision),
		requests: make(chan plan.ApprovalRequest, 16),
		timeout:  timeout,
		logger:   logger.WithComponent("approval"),
	}
}

// Requests exposes the stream a responder consumes.
func (g *Gate) Requests() <-chan plan.ApprovalRequest {
	return g.requests
}

// RequestApproval publishes the request and blocks until a decision
// arrives, the timeout expires, or the context is cancelled.
func (g *Gate) RequestApproval(ctx context.Context, req plan.ApprovalRequest) plan.ApprovalDecision {
	ch := make(chan plan.ApprovalDecision, 1)
	key := pendingKey{taskID: req.TaskID, stepID: req.StepID}

	g.mu.Lock()
	g.pending[key] = ch
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, key)
		g.mu.Unlock()
	}()

	select {
	case g.requests <- req:
	default:
		g.logger.Warn("no responder consuming approval requests", map[string]interface{}{
			"task": req.TaskID,
			"step": req.StepID,
		})
	}

	select {
	case dec := <-ch:
		g.logger.ApprovalDecision(req.TaskID, req.StepID, dec.Approved, false)
		return dec
	case <-time.After(g.timeout):
		g.logger.ApprovalDecision(req.TaskID, req.StepID, false, true)
		return plan.ApprovalDecision{Approved: false, TimedOut: true, RespondedAt: time.Now()}
	case <-ctx.Done():
		return plan.ApprovalDecision{Approved: false, RespondedAt: time.Now()}
	}
}

// Respond resolves the pending request for a task's step.
func (g *Gate) Respond(taskID, stepID string, approved bool) error {
	g.mu.Lock()
	ch, ok := g.pending[pendingKey{taskID: taskID, stepID: stepID}]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending approval for task %s step %s", taskID, stepID)
	}

	select {
	case ch <- plan.ApprovalDecision{Approved: approved, RespondedAt: time.Now()}:
	default:
		// Already resolved (raced with timeout); nothing to do.
	}
	return nil
}
