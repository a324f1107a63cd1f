package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Agents.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, want %q", cfg.Agents.BaseURL, "http://localhost:8080")
	}
	if cfg.Agents.Default != "food-recommender" {
		t.Errorf("Default = %q, want %q", cfg.Agents.Default, "food-recommender")
	}
	if cfg.Agents.Timeout != 30*time.Second || cfg.Agents.ReadTimeout != 25*time.Second {
		t.Errorf("timeouts = %s/%s, want 30s/25s", cfg.Agents.Timeout, cfg.Agents.ReadTimeout)
	}
	if cfg.Orchestrator.SelectionThreshold != 0.2 {
		t.Errorf("SelectionThreshold = %v, want 0.2", cfg.Orchestrator.SelectionThreshold)
	}
	if cfg.Orchestrator.StructuredThreshold != 0.3 {
		t.Errorf("StructuredThreshold = %v, want 0.3", cfg.Orchestrator.StructuredThreshold)
	}
	if cfg.Store.MaxConversations != 50 {
		t.Errorf("MaxConversations = %d, want 50", cfg.Store.MaxConversations)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, "info")
	}
}

func TestLoadNonExistentReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agents.Timeout != 30*time.Second {
		t.Errorf("expected defaults, got Timeout=%s", cfg.Agents.Timeout)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
agents:
  base_url: "http://agents.internal:9000"
  timeout: 10s
  read_timeout: 8s
orchestrator:
  selection_threshold: 0.25
  max_parallel: 4
mode:
  agent_only: true
logger:
  level: "debug"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agents.BaseURL != "http://agents.internal:9000" {
		t.Errorf("BaseURL = %q", cfg.Agents.BaseURL)
	}
	if cfg.Agents.ReadTimeout != 8*time.Second {
		t.Errorf("ReadTimeout = %s, want 8s", cfg.Agents.ReadTimeout)
	}
	if cfg.Orchestrator.SelectionThreshold != 0.25 {
		t.Errorf("SelectionThreshold = %v, want 0.25", cfg.Orchestrator.SelectionThreshold)
	}
	if cfg.Orchestrator.MaxParallel != 4 {
		t.Errorf("MaxParallel = %d, want 4", cfg.Orchestrator.MaxParallel)
	}
	if !cfg.Mode.AgentOnly {
		t.Error("AgentOnly should be true")
	}
	// untouched sections keep their defaults
	if cfg.Orchestrator.StructuredThreshold != 0.3 {
		t.Errorf("StructuredThreshold = %v, want 0.3", cfg.Orchestrator.StructuredThreshold)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q, want debug", cfg.Logger.Level)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("agents: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadRejectsInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logger:\n  level: info\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0666); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected permission error")
	}
}

func TestLoadValidationFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
orchestrator:
  selection_threshold: 1.5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Errorf("error type = %T, want *ValidationError", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MARHABA_AGENTS_BASE_URL", "https://agents.example.com")
	t.Setenv("MARHABA_AGENTS_TIMEOUT", "12s")
	t.Setenv("MARHABA_SELECTION_THRESHOLD", "0.3")
	t.Setenv("MARHABA_AGENT_ONLY", "true")
	t.Setenv("MARHABA_DEMO_MODE", "true")
	t.Setenv("MARHABA_GATEWAY_TOKENS", "abc, def")
	t.Setenv("MARHABA_LOGGER_LEVEL", "warn")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	if cfg.Agents.BaseURL != "https://agents.example.com" {
		t.Errorf("BaseURL = %q", cfg.Agents.BaseURL)
	}
	if cfg.Agents.Timeout != 12*time.Second {
		t.Errorf("Timeout = %s, want 12s", cfg.Agents.Timeout)
	}
	if cfg.Orchestrator.SelectionThreshold != 0.3 {
		t.Errorf("SelectionThreshold = %v, want 0.3", cfg.Orchestrator.SelectionThreshold)
	}
	if !cfg.Mode.AgentOnly || !cfg.Mode.Demo {
		t.Errorf("Mode = %+v, want both set", cfg.Mode)
	}
	if cfg.Gateway.Auth.Type != "static" || len(cfg.Gateway.Auth.Tokens) != 2 {
		t.Fatalf("Auth = %+v", cfg.Gateway.Auth)
	}
	if cfg.Gateway.Auth.Tokens[1].Token != "def" {
		t.Errorf("Tokens[1] = %q, want def", cfg.Gateway.Auth.Tokens[1].Token)
	}
	if cfg.Logger.Level != "warn" {
		t.Errorf("Logger.Level = %q, want warn", cfg.Logger.Level)
	}
}

func TestEnvOverridesIgnoresBadValues(t *testing.T) {
	t.Setenv("MARHABA_AGENTS_TIMEOUT", "soon")
	t.Setenv("MARHABA_SELECTION_THRESHOLD", "high")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	if cfg.Agents.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want default 30s", cfg.Agents.Timeout)
	}
	if cfg.Orchestrator.SelectionThreshold != 0.2 {
		t.Errorf("SelectionThreshold = %v, want default 0.2", cfg.Orchestrator.SelectionThreshold)
	}
}
