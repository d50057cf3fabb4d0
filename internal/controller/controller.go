// Package controller walks an execution plan step by step: validate,
// gate, dispatch, record, and on failure cancel dependents and unwind.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/openclaw/autopilot/internal/approval"
	"github.com/openclaw/autopilot/internal/document"
	"github.com/openclaw/autopilot/internal/logging"
	"github.com/openclaw/autopilot/internal/plan"
	"github.com/openclaw/autopilot/internal/planner"
	"github.com/openclaw/autopilot/internal/registry"
	"github.com/openclaw/autopilot/internal/rollback"
	"github.com/openclaw/autopilot/internal/safety"
)

// Sink receives task records and progress events for persistence or
// relay. Sink failures are logged, never propagated into scheduling.
type Sink interface {
	RecordTask(task plan.Task, stepCount int)
	RecordEvent(ev plan.ProgressEvent)
}

// Options wires the controller's collaborators and policies.
type Options struct {
	Registry  *registry.Registry
	Planner   *planner.Planner
	Validator *safety.Validator
	Gate      *approval.Gate
	Provider  document.Provider
	Logger    *logging.Logger

	StepTimeout     time.Duration
	EventBuffer     int
	AutoApproveSafe bool

	// RetryAttempts maps an operation type to its attempt budget; nil
	// means one attempt, no retry.
	RetryAttempts func(operationType string) int
	RetryInterval time.Duration

	Sinks []Sink
}

// Controller owns every submitted task until it reaches a terminal
// status. Each task runs its scheduling loop on a dedicated worker; the
// submitting caller never blocks.
type Controller struct {
	opts   Options
	logger *logging.Logger

	mu    sync.Mutex
	tasks map[string]*taskState
	locks map[string]*sync.Mutex // resource name -> document-level lock
}

type taskState struct {
	task *plan.Task
	plan *plan.Plan

	mu          sync.Mutex
	subscribers []chan plan.ProgressEvent
	rbErrors    []string
	cancelled   bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a controller.
func New(opts Options) (*Controller, error) {
	if opts.Registry == nil || opts.Planner == nil || opts.Validator == nil ||
		opts.Gate == nil || opts.Provider == nil || opts.Logger == nil {
		return nil, fmt.Errorf("controller: missing collaborator")
	}
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 30 * time.Second
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 200 * time.Millisecond
	}
	return &Controller{
		opts:   opts,
		logger: opts.Logger.WithComponent("controller"),
		tasks:  make(map[string]*taskState),
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// SubmitTask plans the goal and starts its worker. Planning errors reject
// the task synchronously; no task is created. A disabled mode rejects
// before planning.
func (c *Controller) SubmitTask(goal string, mode plan.OperationMode) (string, error) {
	if mode == plan.ModeDisabled {
		return "", &plan.ModeDisabledError{}
	}

	snap := c.opts.Provider.Snapshot()
	taskID := uuid.NewString()

	pl, err := c.opts.Planner.Plan(taskID, goal, snap)
	if err != nil {
		return "", err
	}
	if max := c.opts.Validator.Limits().MaxStepsPerPlan; max > 0 && len(pl.Steps) > max {
		return "", &plan.PlanningError{
			Goal:   goal,
			Reason: fmt.Sprintf("plan has %d steps, limit is %d", len(pl.Steps), max),
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	st := &taskState{
		task: &plan.Task{
			ID:              taskID,
			GoalText:        goal,
			Mode:            mode,
			CreatedAt:       time.Now(),
			Status:          plan.TaskPlanning,
			AutoApproveSafe: c.opts.AutoApproveSafe,
			Resource:        snap.DocumentName,
		},
		plan:   pl,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	c.tasks[taskID] = st
	c.mu.Unlock()

	c.logger.TaskSubmitted(taskID, string(mode), len(pl.Steps))
	for _, sink := range c.opts.Sinks {
		sink.RecordTask(*st.task, len(pl.Steps))
	}

	go c.run(ctx, st)
	return taskID, nil
}

// GetStatus reports the task and every step. Late event subscribers use
// it to resynchronize.
func (c *Controller) GetStatus(taskID string) (plan.StatusReport, error) {
	st, err := c.lookup(taskID)
	if err != nil {
		return plan.StatusReport{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	report := plan.StatusReport{
		TaskID:         st.task.ID,
		GoalText:       st.task.GoalText,
		Mode:           st.task.Mode,
		Status:         st.task.Status,
		CreatedAt:      st.task.CreatedAt,
		RollbackErrors: append([]string(nil), st.rbErrors...),
	}
	for _, s := range st.plan.Steps {
		sr := plan.StepStatusReport{
			ID:            s.ID,
			OperationType: s.OperationType,
			Description:   s.Description,
			Risk:          s.Risk,
			Status:        s.Status,
			Result:        s.Result,
		}
		if s.Err != nil {
			sr.Error = s.Err.Error()
		}
		report.Steps = append(report.Steps, sr)
	}
	return report, nil
}

// Cancel requests cooperative cancellation. A step already running is
// allowed to finish or time out first.
func (c *Controller) Cancel(taskID string) error {
	st, err := c.lookup(taskID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	st.cancelled = true
	st.mu.Unlock()
	st.cancel()
	return nil
}

// Subscribe returns an ordered stream of this task's progress events.
// Events before the subscription are missed; the channel closes when the
// task reaches a terminal status.
func (c *Controller) Subscribe(taskID string) (<-chan plan.ProgressEvent, error) {
	st, err := c.lookup(taskID)
	if err != nil {
		return nil, err
	}
	ch := make(chan plan.ProgressEvent, c.opts.EventBuffer)
	st.mu.Lock()
	select {
	case <-st.done:
		close(ch)
	default:
		st.subscribers = append(st.subscribers, ch)
	}
	st.mu.Unlock()
	return ch, nil
}

// Wait blocks until the task reaches a terminal status.
func (c *Controller) Wait(taskID string) error {
	st, err := c.lookup(taskID)
	if err != nil {
		return err
	}
	<-st.done
	return nil
}

func (c *Controller) lookup(taskID string) (*taskState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.tasks[taskID]
	if !ok {
		return nil, plan.ErrTaskNotFound
	}
	return st, nil
}

// lockFor returns the document-level lock serializing tasks that share a
// resource.
func (c *Controller) lockFor(resource string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[resource]
	if !ok {
		l = &sync.Mutex{}
		c.locks[resource] = l
	}
	return l
}

// run is the per-task scheduling loop. It is the only goroutine that
// mutates the task's steps.
func (c *Controller) run(ctx context.Context, st *taskState) {
	start := time.Now()
	ctx, span := startTaskSpan(ctx, st.task, len(st.plan.Steps))
	defer span.End()

	rb := rollback.NewManager(st.task.ID, c.opts.Logger)
	prior := make(map[string]*plan.Result)

	c.setTaskStatus(st, plan.TaskValidating)
	c.setTaskStatus(st, plan.TaskExecuting)

	aborted := false
	for !aborted {
		if st.isCancelled() {
			break
		}
		step := st.nextReady()
		if step == nil {
			break
		}
		aborted = c.runStep(ctx, st, step, prior, rb)
	}

	final := c.finish(st, rb)
	c.logger.TaskComplete(st.task.ID, string(final), time.Since(start))
}

// runStep takes one ready step through validate, gate, and dispatch. It
// returns true when the task must abort.
func (c *Controller) runStep(ctx context.Context, st *taskState, step *plan.Step, prior map[string]*plan.Result, rb *rollback.Manager) bool {
	_, span := startStepSpan(ctx, step)
	defer endStepSpan(span, step)

	agent, err := c.opts.Registry.Resolve(step.OperationType)
	if err != nil {
		c.failStep(st, step, err)
		return true
	}

	// Fresh snapshot: the document may have changed since planning.
	snap := c.opts.Provider.Snapshot()

	violations := c.opts.Validator.Check(step, snap, prior)
	violations = append(violations, agent.Validate(ctx, step, snap)...)

	if blocking := Blocking(violations); len(blocking) > 0 {
		c.failStep(st, step, &plan.ValidationError{StepID: step.ID, Violations: blocking})
		return true
	}

	if Escalate(st.task.Mode, step.Risk, violations, st.task.AutoApproveSafe) {
		if st.isCancelled() {
			return true
		}
		c.setStepStatus(st, step, plan.StepAwaitingApproval, "")

		dec := c.opts.Gate.RequestApproval(ctx, plan.ApprovalRequest{
			TaskID:    st.task.ID,
			StepID:    step.ID,
			Operation: step.OperationType,
			Rationale: c.rationale(step, violations),
			Risk:      step.Risk,
		})
		if !dec.Approved {
			denied := &plan.ApprovalDeniedError{StepID: step.ID, TimedOut: dec.TimedOut}
			st.mu.Lock()
			step.Err = denied
			st.mu.Unlock()
			c.setStepStatus(st, step, plan.StepCancelled, denied.Error())
			c.cancelDependents(st, step)
			return true
		}
	}

	// The document-level lock is held across the Running transition so
	// that no two steps sharing a resource are ever observed Running.
	lock := c.lockFor(st.task.Resource)
	lock.Lock()
	c.setStepStatus(st, step, plan.StepRunning, "")

	res, err := c.dispatch(step, agent, snap)
	if err != nil {
		c.failStep(st, step, err)
		lock.Unlock()
		return true
	}

	st.mu.Lock()
	step.Result = res
	st.mu.Unlock()
	prior[step.ID] = res
	rb.Record(step.ID, res.Inverse)
	c.setStepStatus(st, step, plan.StepSucceeded, "")
	lock.Unlock()
	return false
}

// dispatch runs the agent call under the per-step timeout, retrying
// transient failures per the operation's retry policy. A timed-out call
// is abandoned, not killed; it may still be running underneath.
func (c *Controller) dispatch(step *plan.Step, agent registry.Agent, snap document.ExecutionContext) (*plan.Result, error) {
	attempts := 1
	if c.opts.RetryAttempts != nil {
		if n := c.opts.RetryAttempts(step.OperationType); n > 0 {
			attempts = n
		}
	}

	// One deadline covers every attempt and the backoff waits between
	// them; retries never extend the step's wall-clock budget.
	stepCtx, cancel := context.WithTimeout(context.Background(), c.opts.StepTimeout)
	defer cancel()

	operation := func() (*plan.Result, error) {
		type outcome struct {
			res *plan.Result
			err error
		}
		ch := make(chan outcome, 1)

		go func() {
			res, err := agent.Execute(stepCtx, step, snap)
			ch <- outcome{res: res, err: err}
		}()

		select {
		case out := <-ch:
			if out.err != nil {
				var execErr *plan.ExecutionError
				if errors.As(out.err, &execErr) && execErr.Transient {
					return nil, out.err
				}
				return nil, backoff.Permanent(out.err)
			}
			if out.res == nil || !out.res.Success {
				return nil, backoff.Permanent(fmt.Errorf("agent reported failure"))
			}
			return out.res, nil
		case <-stepCtx.Done():
			return nil, backoff.Permanent(&plan.TimeoutError{StepID: step.ID, Limit: c.opts.StepTimeout})
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.RetryInterval

	res, err := backoff.Retry(stepCtx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(attempts)))
	if err != nil {
		var timeoutErr *plan.TimeoutError
		var execErr *plan.ExecutionError
		switch {
		case errors.As(err, &timeoutErr):
		case errors.Is(err, context.DeadlineExceeded):
			err = &plan.TimeoutError{StepID: step.ID, Limit: c.opts.StepTimeout}
		case errors.As(err, &execErr):
		default:
			err = &plan.ExecutionError{StepID: step.ID, Operation: step.OperationType, Err: err}
		}
		return nil, err
	}
	return res, nil
}

// failStep marks the step failed and cancels everything downstream.
func (c *Controller) failStep(st *taskState, step *plan.Step, err error) {
	st.mu.Lock()
	step.Err = err
	st.mu.Unlock()
	c.setStepStatus(st, step, plan.StepFailed, err.Error())
	c.cancelDependents(st, step)
}

// cancelDependents moves all transitive dependents to Cancelled without
// execution.
func (c *Controller) cancelDependents(st *taskState, step *plan.Step) {
	for _, id := range st.plan.Dependents(step.ID) {
		dep := st.plan.Step(id)
		if dep.Status.Terminal() {
			continue
		}
		c.setStepStatus(st, dep, plan.StepCancelled, fmt.Sprintf("dependency %s did not succeed", step.ID))
	}
}

// finish cancels leftover pending steps, unwinds on a bad ending, settles
// the task status, and closes subscriber channels.
func (c *Controller) finish(st *taskState, rb *rollback.Manager) plan.TaskStatus {
	for _, s := range st.plan.Steps {
		if !s.Status.Terminal() {
			c.setStepStatus(st, s, plan.StepCancelled, "task ended before step ran")
		}
	}

	var final plan.TaskStatus
	switch {
	case st.plan.AllSucceeded():
		final = plan.TaskCompleted
	case st.plan.AnyFailed():
		final = plan.TaskFailed
	default:
		final = plan.TaskCancelled
	}

	if final != plan.TaskCompleted && rb.Len() > 0 {
		errs := rb.Unwind()
		unrecovered := make(map[string]bool, len(errs))
		var lines []string
		for _, e := range errs {
			unrecovered[e.StepID] = true
			lines = append(lines, e.Error())
		}
		st.mu.Lock()
		st.rbErrors = append(st.rbErrors, lines...)
		st.mu.Unlock()

		for _, s := range st.plan.Steps {
			if s.Status == plan.StepSucceeded && !unrecovered[s.ID] {
				c.setStepStatus(st, s, plan.StepRolledBack, "")
			}
		}
	}

	c.setTaskStatus(st, final)

	st.mu.Lock()
	close(st.done)
	for _, ch := range st.subscribers {
		close(ch)
	}
	st.subscribers = nil
	st.mu.Unlock()

	return final
}

func (c *Controller) setTaskStatus(st *taskState, to plan.TaskStatus) {
	st.mu.Lock()
	from := st.task.Status
	st.task.Status = to
	st.mu.Unlock()

	c.emit(st, plan.ProgressEvent{
		TaskID:    st.task.ID,
		From:      string(from),
		To:        string(to),
		Timestamp: time.Now(),
	})
}

func (c *Controller) setStepStatus(st *taskState, step *plan.Step, to plan.StepStatus, detail string) {
	st.mu.Lock()
	from := step.Status
	step.Status = to
	st.mu.Unlock()

	c.logger.StepTransition(st.task.ID, step.ID, string(from), string(to), detail)
	c.emit(st, plan.ProgressEvent{
		TaskID:    st.task.ID,
		StepID:    step.ID,
		From:      string(from),
		To:        string(to),
		Timestamp: time.Now(),
		Detail:    detail,
	})
}

// emit delivers one event, in transition order, to every current
// subscriber and every sink. Sends block when a subscriber's buffer is
// full; consumers are expected to keep draining.
func (c *Controller) emit(st *taskState, ev plan.ProgressEvent) {
	st.mu.Lock()
	subs := append([]chan plan.ProgressEvent(nil), st.subscribers...)
	st.mu.Unlock()

	for _, ch := range subs {
		ch <- ev
	}
	for _, sink := range c.opts.Sinks {
		sink.RecordEvent(ev)
	}
}

func (c *Controller) rationale(step *plan.Step, violations []plan.Violation) string {
	var parts []string
	if step.Risk == plan.RiskDestructive {
		parts = append(parts, "destructive operation")
	}
	for _, v := range violations {
		if v.Severity == plan.SeverityRequiresApproval {
			parts = append(parts, v.Detail)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, step.Description)
	}
	return strings.Join(parts, "; ")
}

func (st *taskState) isCancelled() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cancelled
}

func (st *taskState) nextReady() *plan.Step {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.plan.NextReady()
}
