// Package main provides the capabilities listing command.
package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openclaw/autopilot/internal/document"
	"github.com/openclaw/autopilot/internal/logging"
)

// Run lists operation types grouped by registered agent.
func (c *CapabilitiesCmd) Run() error {
	logger := logging.New()
	reg := buildRegistry(document.New("Unnamed"), logger)

	byAgent := reg.ByAgent()
	names := make([]string, 0, len(byAgent))
	for name := range byAgent {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Println(stylePrompt.Render(name))
		fmt.Printf("  %s\n", strings.Join(byAgent[name], ", "))
	}
	return nil
}
