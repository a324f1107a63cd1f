package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Agents       AgentsConfig       `yaml:"agents"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Mode         ModeConfig         `yaml:"mode"`
	Gateway      GatewayConfig      `yaml:"gateway"`
	Store        StoreConfig        `yaml:"store"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Logger       LoggerConfig       `yaml:"logger"`
	Tracer       TracerConfig       `yaml:"tracer"`
}

// AgentsConfig holds settings for the remote agent services.
type AgentsConfig struct {
	BaseURL        string               `yaml:"base_url"`
	Default        string               `yaml:"default"`         // fallback agent when none is relevant
	Timeout        time.Duration        `yaml:"timeout"`         // overall deadline per call
	ReadTimeout    time.Duration        `yaml:"read_timeout"`    // deadline for reading the response stream
	MaxStreamBytes int64                `yaml:"max_stream_bytes"` // 0 = unlimited
	Pool           PoolConfig           `yaml:"pool"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// PoolConfig holds HTTP connection pool settings for agent calls.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// CircuitBreakerConfig holds per-agent circuit breaker settings.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// OrchestratorConfig holds routing thresholds.
type OrchestratorConfig struct {
	SelectionThreshold  float64 `yaml:"selection_threshold"`
	StructuredThreshold float64 `yaml:"structured_threshold"`
	MaxParallel         int     `yaml:"max_parallel"`      // 0 = unbounded
	StructuredSource    string  `yaml:"structured_source"` // "agent" or "local"
}

// ModeConfig selects alternate response providers.
type ModeConfig struct {
	AgentOnly bool `yaml:"agent_only"` // never fall back to the mock provider
	Demo      bool `yaml:"demo"`       // answer from the demo scenario table
}

// GatewayConfig holds HTTP/WebSocket gateway settings.
type GatewayConfig struct {
	Addr      string          `yaml:"addr"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig holds WebSocket authentication settings.
type AuthConfig struct {
	Type   string        `yaml:"type"` // "static" or ""
	Tokens []TokenConfig `yaml:"tokens,omitempty"`
}

// TokenConfig holds a single gateway auth token.
type TokenConfig struct {
	Token string `yaml:"token"`
	Name  string `yaml:"name"`
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// StoreConfig holds conversation persistence settings.
type StoreConfig struct {
	Path             string `yaml:"path"` // SQLite file; ":memory:" for an ephemeral store
	MaxConversations int    `yaml:"max_conversations"`
}

// SchedulerConfig holds background task settings.
type SchedulerConfig struct {
	Enabled bool                  `yaml:"enabled"`
	Tasks   []ScheduledTaskConfig `yaml:"tasks"`
}

// ScheduledTaskConfig defines a single scheduled task.
type ScheduledTaskConfig struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"` // cron expression or duration string
	Action   string `yaml:"action"`   // "agent_probe" or "conversation_prune"
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// defaultDataDir returns the persistent data directory under $HOME/.marhaba.
// Falls back to "./data" if $HOME cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".marhaba")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Agents: AgentsConfig{
			BaseURL:     "http://localhost:8080",
			Default:     "food-recommender",
			Timeout:     30 * time.Second,
			ReadTimeout: 25 * time.Second,
			Pool: PoolConfig{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Orchestrator: OrchestratorConfig{
			SelectionThreshold:  0.2,
			StructuredThreshold: 0.3,
			StructuredSource:    "agent",
		},
		Gateway: GatewayConfig{
			Addr: "127.0.0.1:8787",
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             10,
			},
		},
		Store: StoreConfig{
			Path:             filepath.Join(defaultDataDir(), "conversations.db"),
			MaxConversations: 50,
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Tasks: []ScheduledTaskConfig{
				{Name: "agent-probe", Schedule: "@every 5m", Action: "agent_probe"},
				{Name: "conversation-prune", Schedule: "0 3 * * *", Action: "conversation_prune"},
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Exporter:    "noop",
			ServiceName: "marhaba",
			SampleRatio: 1,
		},
	}
}

// Load reads a YAML config file, applies env overrides and validates the
// result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := validatePermissions(path); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps MARHABA_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MARHABA_AGENTS_BASE_URL"); v != "" {
		cfg.Agents.BaseURL = v
	}
	if v := os.Getenv("MARHABA_AGENTS_DEFAULT"); v != "" {
		cfg.Agents.Default = v
	}
	if v := os.Getenv("MARHABA_AGENTS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Agents.Timeout = d
		}
	}
	if v := os.Getenv("MARHABA_AGENTS_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Agents.ReadTimeout = d
		}
	}
	if v := os.Getenv("MARHABA_AGENTS_CIRCUIT_BREAKER_ENABLED"); v != "" {
		cfg.Agents.CircuitBreaker.Enabled = v == "true"
	}
	if v := os.Getenv("MARHABA_SELECTION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Orchestrator.SelectionThreshold = f
		}
	}
	if v := os.Getenv("MARHABA_STRUCTURED_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Orchestrator.StructuredThreshold = f
		}
	}
	if v := os.Getenv("MARHABA_STRUCTURED_SOURCE"); v != "" {
		cfg.Orchestrator.StructuredSource = v
	}
	if v := os.Getenv("MARHABA_AGENT_ONLY"); v != "" {
		cfg.Mode.AgentOnly = v == "true"
	}
	if v := os.Getenv("MARHABA_DEMO_MODE"); v != "" {
		cfg.Mode.Demo = v == "true"
	}
	if v := os.Getenv("MARHABA_GATEWAY_ADDR"); v != "" {
		cfg.Gateway.Addr = v
	}
	if v := os.Getenv("MARHABA_GATEWAY_TOKENS"); v != "" {
		cfg.Gateway.Auth.Type = "static"
		cfg.Gateway.Auth.Tokens = nil
		for i, tok := range splitAndTrim(v, ",") {
			if tok == "" {
				continue
			}
			cfg.Gateway.Auth.Tokens = append(cfg.Gateway.Auth.Tokens, TokenConfig{
				Token: tok, Name: fmt.Sprintf("env-%d", i),
			})
		}
	}
	if v := os.Getenv("MARHABA_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("MARHABA_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("MARHABA_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("MARHABA_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("MARHABA_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// splitAndTrim splits s by sep and trims whitespace from each element.
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// validatePermissions rejects config files writable by group or others,
// since they may carry gateway tokens.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
