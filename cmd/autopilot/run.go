// Package main provides the run command: submit, watch, approve.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/openclaw/autopilot/internal/approval"
	"github.com/openclaw/autopilot/internal/plan"
)

var (
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleFail    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	stylePrompt  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	promptIndent = "  "
)

// Run submits the goal, renders progress, and answers approval requests
// from the console. Exit status is non-zero unless the task completes.
func (r *RunCmd) Run() error {
	mode, ok := plan.ParseMode(r.Mode)
	if !ok {
		return fmt.Errorf("unknown mode %q", r.Mode)
	}

	eng, err := buildEngine(r.Config, r.Doc, r.Recipes, r.Yes, r.Debug)
	if err != nil {
		return err
	}
	defer eng.close()

	taskID, err := eng.ctrl.SubmitTask(r.Goal, mode)
	if err != nil {
		return err
	}

	events, err := eng.ctrl.Subscribe(taskID)
	if err != nil {
		return err
	}

	stopApprover := startConsoleApprover(eng.gate, r.Yes)
	defer stopApprover()

	for ev := range events {
		renderEvent(ev)
	}

	report, err := eng.ctrl.GetStatus(taskID)
	if err != nil {
		return err
	}
	renderSummary(report)

	if report.Status != plan.TaskCompleted {
		return fmt.Errorf("task %s", report.Status)
	}
	return nil
}

// startConsoleApprover answers approval requests from stdin, or approves
// everything when yes is set. The returned stop function ends the loop.
func startConsoleApprover(gate *approval.Gate, yes bool) func() {
	done := make(chan struct{})
	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			select {
			case req, ok := <-gate.Requests():
				if !ok {
					return
				}
				approved := yes || promptApproval(reader, req)
				// The gate may have timed out meanwhile; ignore that race.
				_ = gate.Respond(req.TaskID, req.StepID, approved)
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

func promptApproval(reader *bufio.Reader, req plan.ApprovalRequest) bool {
	header := fmt.Sprintf("approval needed: %s (%s)", req.Operation, req.StepID)
	if req.Risk == plan.RiskDestructive {
		header = styleWarn.Render(header + "  [destructive]")
	} else {
		header = stylePrompt.Render(header)
	}
	fmt.Println(header)
	fmt.Println(promptIndent + wordwrap.String(styleDim.Render(req.Rationale), 72))
	fmt.Print(stylePrompt.Render("proceed? [y/N] "))

	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func renderEvent(ev plan.ProgressEvent) {
	if ev.StepID == "" {
		fmt.Println(styleDim.Render(fmt.Sprintf("task: %s -> %s", ev.From, ev.To)))
		return
	}

	line := fmt.Sprintf("%s: %s -> %s", ev.StepID, ev.From, ev.To)
	switch plan.StepStatus(ev.To) {
	case plan.StepSucceeded:
		line = styleOK.Render(line)
	case plan.StepFailed:
		line = styleFail.Render(line)
	case plan.StepCancelled, plan.StepRolledBack:
		line = styleWarn.Render(line)
	default:
		line = styleDim.Render(line)
	}
	if ev.Detail != "" {
		line += styleDim.Render("  " + ev.Detail)
	}
	fmt.Println(line)
}

func renderSummary(report plan.StatusReport) {
	fmt.Println()
	status := string(report.Status)
	switch report.Status {
	case plan.TaskCompleted:
		status = styleOK.Render(status)
	case plan.TaskFailed:
		status = styleFail.Render(status)
	default:
		status = styleWarn.Render(status)
	}
	fmt.Printf("%s  %s\n", status, report.GoalText)

	for _, s := range report.Steps {
		mark := " "
		switch s.Status {
		case plan.StepSucceeded:
			mark = styleOK.Render("+")
		case plan.StepFailed:
			mark = styleFail.Render("x")
		case plan.StepCancelled:
			mark = styleWarn.Render("-")
		case plan.StepRolledBack:
			mark = styleWarn.Render("~")
		}
		line := fmt.Sprintf("%s %s %s (%s)", mark, s.ID, s.Description, s.Status)
		if s.Error != "" {
			line += "\n" + promptIndent + styleFail.Render(wordwrap.String(s.Error, 72))
		}
		fmt.Println(line)
	}

	for _, e := range report.RollbackErrors {
		fmt.Println(styleWarn.Render("rollback: " + e))
	}
}
