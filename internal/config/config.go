// Package config loads engine configuration from TOML, with defaults that
// make a bare `autopilot run` work without any file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/openclaw/autopilot/internal/plan"
	"github.com/openclaw/autopilot/internal/safety"
)

// Duration wraps time.Duration so TOML files can say "30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// EngineConfig controls scheduling behavior.
type EngineConfig struct {
	Mode            string   `toml:"mode"`              // disabled | interactive | semi_autonomous | autonomous
	StepTimeout     Duration `toml:"step_timeout"`      // per-step wall-clock budget
	ApprovalTimeout Duration `toml:"approval_timeout"`  // unanswered requests resolve to denied
	EventBuffer     int      `toml:"event_buffer"`      // per-subscriber channel depth
	AutoApproveSafe bool     `toml:"auto_approve_safe"` // skip the gate for non-destructive steps
}

// JournalConfig controls the SQLite audit journal.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// RelayConfig controls progress-event publishing over NATS.
type RelayConfig struct {
	Enabled       bool   `toml:"enabled"`
	URL           string `toml:"url"`
	SubjectPrefix string `toml:"subject_prefix"`
}

// RetryConfig controls retry of transient execution failures.
type RetryConfig struct {
	MaxAttempts     int            `toml:"max_attempts"`
	InitialInterval Duration       `toml:"initial_interval"`
	PerOp           map[string]int `toml:"per_op"` // operation type -> attempts override
}

// Config is the full engine configuration.
type Config struct {
	Engine  EngineConfig  `toml:"engine"`
	Limits  safety.Limits `toml:"limits"`
	Journal JournalConfig `toml:"journal"`
	Relay   RelayConfig   `toml:"relay"`
	Retry   RetryConfig   `toml:"retry"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Mode:            "interactive",
			StepTimeout:     Duration(30 * time.Second),
			ApprovalTimeout: Duration(5 * time.Minute),
			EventBuffer:     64,
		},
		Limits: safety.DefaultLimits(),
		Journal: JournalConfig{
			Enabled: true,
			Path:    "autopilot.db",
		},
		Relay: RelayConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "autopilot",
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: Duration(200 * time.Millisecond),
		},
	}
}

// Load reads a TOML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets a few keys be overridden without a config file. Env wins
// over the file so deployments can pin mode and endpoints.
func (c *Config) applyEnv() {
	if v := os.Getenv("AUTOPILOT_MODE"); v != "" {
		c.Engine.Mode = v
	}
	if v := os.Getenv("AUTOPILOT_JOURNAL_PATH"); v != "" {
		c.Journal.Path = v
	}
	if v := os.Getenv("AUTOPILOT_NATS_URL"); v != "" {
		c.Relay.URL = v
	}
}

// LoadLimits re-reads only the [limits] table; the safety watcher uses it
// for hot reload.
func LoadLimits(path string) (safety.Limits, error) {
	var partial struct {
		Limits safety.Limits `toml:"limits"`
	}
	partial.Limits = safety.DefaultLimits()
	if _, err := toml.DecodeFile(path, &partial); err != nil {
		return safety.Limits{}, err
	}
	return partial.Limits, nil
}

func (c *Config) validate() error {
	if _, ok := plan.ParseMode(c.Engine.Mode); !ok {
		return fmt.Errorf("engine.mode: unknown mode %q", c.Engine.Mode)
	}
	if c.Engine.StepTimeout <= 0 {
		return fmt.Errorf("engine.step_timeout must be positive")
	}
	if c.Engine.EventBuffer <= 0 {
		return fmt.Errorf("engine.event_buffer must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	return nil
}

// RetryAttempts returns the attempt budget for an operation type.
func (c *Config) RetryAttempts(operationType string) int {
	if n, ok := c.Retry.PerOp[operationType]; ok && n >= 1 {
		return n
	}
	return c.Retry.MaxAttempts
}
