package controller

import (
	"github.com/openclaw/autopilot/internal/plan"
)

// Escalate decides whether a step must pass the approval gate before it
// runs. Pure function of the mode, the step's risk, the validator's
// findings, and the task's auto-approve flag.
//
// Interactive gates every step. SemiAutonomous gates destructive steps.
// Any RequiresApproval violation gates the step in every mode, unless the
// task's AutoApproveSafe flag covers it and the step is not destructive.
func Escalate(mode plan.OperationMode, risk plan.RiskLevel, violations []plan.Violation, autoApproveSafe bool) bool {
	requires := false
	for _, v := range violations {
		if v.Severity == plan.SeverityRequiresApproval {
			requires = true
			break
		}
	}
	if requires && autoApproveSafe && risk != plan.RiskDestructive {
		requires = false
	}

	switch mode {
	case plan.ModeInteractive:
		return true
	case plan.ModeSemiAutonomous:
		return requires || risk == plan.RiskDestructive
	case plan.ModeAutonomous:
		return requires
	}
	return true
}

// Blocking filters the findings that stop a step regardless of mode.
func Blocking(violations []plan.Violation) []plan.Violation {
	var out []plan.Violation
	for _, v := range violations {
		if v.Severity == plan.SeverityBlocking {
			out = append(out, v)
		}
	}
	return out
}
