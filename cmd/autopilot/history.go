// Package main provides the journal history command.
package main

import (
	"fmt"

	"github.com/openclaw/autopilot/internal/config"
	"github.com/openclaw/autopilot/internal/journal"
	"github.com/openclaw/autopilot/internal/logging"
)

// Run prints recent tasks, or one task's event stream with --task.
func (h *HistoryCmd) Run() error {
	cfg, err := config.Load(h.Config)
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled {
		return fmt.Errorf("journal is disabled in the configuration")
	}

	j, err := journal.Open(cfg.Journal.Path, logging.New())
	if err != nil {
		return err
	}
	defer j.Close()

	if h.Task != "" {
		events, err := j.Events(h.Task)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return fmt.Errorf("no events recorded for task %s", h.Task)
		}
		for _, ev := range events {
			renderEvent(ev)
		}
		return nil
	}

	tasks, err := j.Tasks(h.Limit)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		status := t.Status
		switch status {
		case "completed":
			status = styleOK.Render(status)
		case "failed":
			status = styleFail.Render(status)
		}
		fmt.Printf("%s  %s  %s  %d steps  %s\n",
			t.CreatedAt.Format("2006-01-02 15:04:05"),
			styleDim.Render(t.ID),
			status,
			t.Steps,
			t.Goal,
		)
	}
	return nil
}
