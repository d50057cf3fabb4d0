// Package main provides the plan preview command.
package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openclaw/autopilot/internal/logging"
	"github.com/openclaw/autopilot/internal/plan"
)

// Run prints the decomposed plan without executing anything.
func (p *PlanCmd) Run() error {
	logger := logging.New()

	doc, err := loadDocument(p.Doc)
	if err != nil {
		return err
	}
	reg := buildRegistry(doc, logger)
	pl, err := buildPlanner(reg, p.Recipes, logger)
	if err != nil {
		return err
	}

	decomposed, err := pl.Plan("preview", p.Goal, doc.Snapshot())
	if err != nil {
		return err
	}

	fmt.Printf("goal: %s\n", p.Goal)
	fmt.Printf("steps: %d\n\n", len(decomposed.Steps))
	for _, s := range decomposed.Steps {
		agent, resolveErr := reg.Resolve(s.OperationType)
		agentName := "?"
		if resolveErr == nil {
			agentName = agent.Name()
		}

		risk := ""
		if s.Risk == plan.RiskDestructive {
			risk = "  " + styleWarn.Render("[destructive]")
		}
		fmt.Printf("%s  %s%s\n", stylePrompt.Render(s.ID), s.Description, risk)
		fmt.Printf("    operation: %s (agent: %s)\n", s.OperationType, agentName)
		if len(s.DependsOn) > 0 {
			fmt.Printf("    depends on: %s\n", strings.Join(s.DependsOn, ", "))
		}
		if len(s.Parameters) > 0 {
			fmt.Printf("    parameters: %s\n", styleDim.Render(formatParams(s.Parameters)))
		}
	}
	return nil
}

func formatParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return strings.Join(parts, " ")
}
