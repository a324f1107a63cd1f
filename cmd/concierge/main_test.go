package main

import (
	"os"
	"testing"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"marhaba"}, args...)
	t.Cleanup(func() { os.Args = old })
}

func TestConfigPath(t *testing.T) {
	t.Setenv("MARHABA_CONFIG", "")

	withArgs(t, "ask", "--config", "/etc/marhaba.yaml", "hi")
	if got := configPath(); got != "/etc/marhaba.yaml" {
		t.Errorf("configPath() = %q", got)
	}

	withArgs(t, "--config=alt.yaml")
	if got := configPath(); got != "alt.yaml" {
		t.Errorf("configPath() = %q", got)
	}

	withArgs(t)
	t.Setenv("MARHABA_CONFIG", "env.yaml")
	if got := configPath(); got != "env.yaml" {
		t.Errorf("configPath() = %q", got)
	}
}

func TestPositionalSkipsFlags(t *testing.T) {
	withArgs(t, "ask", "--plain", "--config", "c.yaml", "best", "tagine", "--config=x.yaml", "in", "Fez")
	if got := positional(); got != "best tagine in Fez" {
		t.Errorf("positional() = %q", got)
	}
	if !hasFlag("--plain") {
		t.Error("hasFlag(--plain) = false")
	}
}

func TestScenariosListed(t *testing.T) {
	if n := len(demoMatcher(nil).Scenarios()); n != 3 {
		t.Errorf("scenarios = %d, want 3", n)
	}
}
