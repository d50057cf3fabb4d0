package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autopilot.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Mode != "interactive" {
		t.Errorf("mode = %q, want interactive", cfg.Engine.Mode)
	}
	if cfg.Engine.StepTimeout.Std() != 30*time.Second {
		t.Errorf("step_timeout = %v, want 30s", cfg.Engine.StepTimeout.Std())
	}
	if cfg.Limits.MaxObjects != 100 {
		t.Errorf("max_objects = %d, want 100", cfg.Limits.MaxObjects)
	}
	if !cfg.Journal.Enabled {
		t.Error("journal disabled by default")
	}
	if cfg.Relay.Enabled {
		t.Error("relay enabled by default")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[engine]
mode = "autonomous"
step_timeout = "5s"
approval_timeout = "1m"
auto_approve_safe = true

[limits]
max_dimension = 500.0
max_objects = 10
destructive_ops = ["translate_object"]

[relay]
enabled = true
url = "nats://example:4222"

[retry]
max_attempts = 4
initial_interval = "50ms"

[retry.per_op]
create_box = 1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Mode != "autonomous" {
		t.Errorf("mode = %q, want autonomous", cfg.Engine.Mode)
	}
	if cfg.Engine.StepTimeout.Std() != 5*time.Second {
		t.Errorf("step_timeout = %v, want 5s", cfg.Engine.StepTimeout.Std())
	}
	if !cfg.Engine.AutoApproveSafe {
		t.Error("auto_approve_safe not set")
	}
	if cfg.Limits.MaxDimension != 500 {
		t.Errorf("max_dimension = %v, want 500", cfg.Limits.MaxDimension)
	}
	if len(cfg.Limits.DestructiveOps) != 1 || cfg.Limits.DestructiveOps[0] != "translate_object" {
		t.Errorf("destructive_ops = %v", cfg.Limits.DestructiveOps)
	}
	if !cfg.Relay.Enabled || cfg.Relay.URL != "nats://example:4222" {
		t.Errorf("relay = %+v", cfg.Relay)
	}
	// Untouched sections keep their defaults.
	if cfg.Journal.Path != "autopilot.db" {
		t.Errorf("journal path = %q, want default", cfg.Journal.Path)
	}
}

func TestRetryAttemptsPerOp(t *testing.T) {
	path := writeConfig(t, `
[retry]
max_attempts = 3

[retry.per_op]
create_box = 1
sync_mesh = 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.RetryAttempts("create_box"); got != 1 {
		t.Errorf("create_box attempts = %d, want 1", got)
	}
	if got := cfg.RetryAttempts("sync_mesh"); got != 5 {
		t.Errorf("sync_mesh attempts = %d, want 5", got)
	}
	if got := cfg.RetryAttempts("anything_else"); got != 3 {
		t.Errorf("default attempts = %d, want 3", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[engine]
mode = "interactive"

[relay]
url = "nats://file:4222"
`)
	t.Setenv("AUTOPILOT_MODE", "autonomous")
	t.Setenv("AUTOPILOT_NATS_URL", "nats://env:4222")
	t.Setenv("AUTOPILOT_JOURNAL_PATH", "override.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Mode != "autonomous" {
		t.Errorf("mode = %q, want autonomous", cfg.Engine.Mode)
	}
	if cfg.Relay.URL != "nats://env:4222" {
		t.Errorf("relay url = %q, want env value", cfg.Relay.URL)
	}
	if cfg.Journal.Path != "override.db" {
		t.Errorf("journal path = %q, want override.db", cfg.Journal.Path)
	}
}

func TestLoadRejectsBadMode(t *testing.T) {
	path := writeConfig(t, `
[engine]
mode = "yolo"
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadLimitsOnly(t *testing.T) {
	path := writeConfig(t, `
[engine]
mode = "interactive"

[limits]
max_dimension = 123.0
`)

	limits, err := LoadLimits(path)
	if err != nil {
		t.Fatalf("LoadLimits: %v", err)
	}
	if limits.MaxDimension != 123 {
		t.Errorf("max_dimension = %v, want 123", limits.MaxDimension)
	}
	// Unset fields fall back to defaults.
	if limits.MaxObjects != 100 {
		t.Errorf("max_objects = %d, want 100", limits.MaxObjects)
	}
}
