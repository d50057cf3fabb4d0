// Package main is the entry point for the autopilot CLI.
package main

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func init() {
	// Load .env for local overrides (NATS URLs and the like).
	_ = godotenv.Load()
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("autopilot"),
		kong.Description("Turn a high-level goal into a validated, ordered plan and execute it."),
		kong.UsageOnError(),
		kongVars(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}

// Run prints version information.
func (v *VersionCmd) Run() error {
	fmt.Printf("autopilot %s (commit %s, built %s)\n", version, commit, buildTime)
	return nil
}
