// Package main defines the CLI structure using kong.
package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Run          RunCmd          `cmd:"" help:"Submit a goal and execute its plan"`
	Plan         PlanCmd         `cmd:"" help:"Preview the plan for a goal without executing"`
	Capabilities CapabilitiesCmd `cmd:"" help:"List registered operation types per agent"`
	History      HistoryCmd      `cmd:"" help:"Show recent tasks from the audit journal"`
	Version      VersionCmd      `cmd:"" help:"Show version information"`
}

// RunCmd submits a goal and drives it to a terminal status.
type RunCmd struct {
	Goal    string `arg:"" help:"Goal text, e.g. 'create a 10x20x30 box, then fillet all edges by 2'"`
	Mode    string `default:"interactive" help:"Autonomy mode: disabled|interactive|semi|auto"`
	Config  string `help:"Config file path (TOML)"`
	Doc     string `help:"Document seed file (YAML)"`
	Recipes string `help:"Plan recipe file (YAML)"`
	Yes     bool   `short:"y" help:"Auto-approve all approval requests"`
	Debug   bool   `help:"Enable debug logging"`
}

// PlanCmd prints the decomposed steps, dependencies, and risk levels.
type PlanCmd struct {
	Goal    string `arg:"" help:"Goal text"`
	Doc     string `help:"Document seed file (YAML)"`
	Recipes string `help:"Plan recipe file (YAML)"`
}

// CapabilitiesCmd lists operation types per registered agent.
type CapabilitiesCmd struct{}

// HistoryCmd shows recent tasks from the journal.
type HistoryCmd struct {
	Config string `help:"Config file path (TOML)"`
	Limit  int    `default:"20" help:"Number of tasks to show"`
	Task   string `help:"Show the event stream for one task id"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
