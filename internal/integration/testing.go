package integration

import (
	"context"
	"os"
	"testing"
	"time"
)

// Config holds integration test configuration from environment
type Config struct {
	AgentsURL   string
	Token       string
	TestTimeout time.Duration
	SkipSlow    bool
}

// LoadConfig loads integration test configuration from environment
func LoadConfig() *Config {
	return &Config{
		AgentsURL:   os.Getenv("MARHABA_IT_AGENTS_URL"),
		Token:       os.Getenv("MARHABA_IT_TOKEN"),
		TestTimeout: 90 * time.Second,
		SkipSlow:    os.Getenv("SKIP_SLOW_TESTS") == "1",
	}
}

// SkipIfNoAgents skips the test unless a live agent service is configured.
func SkipIfNoAgents(t *testing.T, cfg *Config) {
	t.Helper()
	if cfg.AgentsURL == "" {
		t.Skip("Skipping live agent test: MARHABA_IT_AGENTS_URL not set")
	}
}

// SkipIfShort skips integration tests in short mode
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// NewTestContext creates a context with timeout for integration tests
func NewTestContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
