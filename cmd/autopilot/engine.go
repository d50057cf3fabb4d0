// Package main provides engine wiring shared by the commands.
package main

import (
	"fmt"

	"github.com/openclaw/autopilot/internal/agents"
	"github.com/openclaw/autopilot/internal/approval"
	"github.com/openclaw/autopilot/internal/config"
	"github.com/openclaw/autopilot/internal/controller"
	"github.com/openclaw/autopilot/internal/document"
	"github.com/openclaw/autopilot/internal/journal"
	"github.com/openclaw/autopilot/internal/logging"
	"github.com/openclaw/autopilot/internal/planner"
	"github.com/openclaw/autopilot/internal/registry"
	"github.com/openclaw/autopilot/internal/relay"
	"github.com/openclaw/autopilot/internal/safety"
)

// engine bundles a fully wired controller and its collaborators.
type engine struct {
	cfg       *config.Config
	logger    *logging.Logger
	doc       *document.Document
	registry  *registry.Registry
	validator *safety.Validator
	gate      *approval.Gate
	planner   *planner.Planner
	ctrl      *controller.Controller

	journal   *journal.Journal
	relay     *relay.Relay
	stopWatch func()
}

// loadDocument builds the target document, optionally from a YAML seed.
func loadDocument(path string) (*document.Document, error) {
	if path == "" {
		return document.New("Unnamed"), nil
	}
	return document.LoadSeed(path)
}

// buildRegistry registers the built-in capability domains.
func buildRegistry(doc *document.Document, logger *logging.Logger) *registry.Registry {
	reg := registry.New()
	reg.Register(agents.NewGeometry(doc, logger))
	reg.Register(agents.NewSketch(doc, logger))
	reg.Register(agents.NewAnalysis(logger))
	return reg
}

// buildPlanner creates the planner, with recipes when a file is given.
func buildPlanner(reg *registry.Registry, recipesPath string, logger *logging.Logger) (*planner.Planner, error) {
	p := planner.New(reg, nil, logger)
	if recipesPath != "" {
		recipes, err := planner.LoadRecipes(recipesPath)
		if err != nil {
			return nil, err
		}
		p.UseRecipes(recipes)
	}
	return p, nil
}

// buildEngine wires everything the run command needs.
func buildEngine(configPath, docPath, recipesPath string, autoApprove, debug bool) (*engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := logging.New()
	if debug {
		logger.SetLevel(logging.LevelDebug)
	}

	doc, err := loadDocument(docPath)
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}

	reg := buildRegistry(doc, logger)
	pl, err := buildPlanner(reg, recipesPath, logger)
	if err != nil {
		return nil, err
	}

	validator := safety.NewValidator(cfg.Limits)
	gate := approval.NewGate(cfg.Engine.ApprovalTimeout.Std(), logger)

	e := &engine{
		cfg:       cfg,
		logger:    logger,
		doc:       doc,
		registry:  reg,
		validator: validator,
		gate:      gate,
		planner:   pl,
	}

	var sinks []controller.Sink
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			return nil, err
		}
		e.journal = j
		sinks = append(sinks, j)
	}
	if cfg.Relay.Enabled {
		r, err := relay.Connect(cfg.Relay.URL, cfg.Relay.SubjectPrefix, logger)
		if err != nil {
			e.close()
			return nil, err
		}
		e.relay = r
		sinks = append(sinks, r)
	}

	ctrl, err := controller.New(controller.Options{
		Registry:        reg,
		Planner:         pl,
		Validator:       validator,
		Gate:            gate,
		Provider:        doc,
		Logger:          logger,
		StepTimeout:     cfg.Engine.StepTimeout.Std(),
		EventBuffer:     cfg.Engine.EventBuffer,
		AutoApproveSafe: cfg.Engine.AutoApproveSafe || autoApprove,
		RetryAttempts:   cfg.RetryAttempts,
		RetryInterval:   cfg.Retry.InitialInterval.Std(),
		Sinks:           sinks,
	})
	if err != nil {
		e.close()
		return nil, err
	}
	e.ctrl = ctrl

	if configPath != "" {
		stop, err := validator.WatchLimits(configPath, config.LoadLimits, logger)
		if err != nil {
			logger.Warn("limits watcher unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			e.stopWatch = stop
		}
	}

	return e, nil
}

func (e *engine) close() {
	if e.stopWatch != nil {
		e.stopWatch()
	}
	if e.relay != nil {
		e.relay.Close()
	}
	if e.journal != nil {
		e.journal.Close()
	}
}
