package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateAgents(cfg, ve)
	validateOrchestrator(cfg, ve)
	validateGateway(cfg, ve)
	validateStore(cfg, ve)
	validateScheduler(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateAgents(cfg *Config, ve *ValidationError) {
	a := cfg.Agents
	if a.BaseURL == "" {
		ve.Add("agents.base_url must not be empty")
	} else if u, err := url.Parse(a.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		ve.Add("agents.base_url %q must be an absolute http(s) URL", a.BaseURL)
	}
	if a.Default == "" {
		ve.Add("agents.default must not be empty")
	}
	if a.Timeout <= 0 {
		ve.Add("agents.timeout must be > 0")
	}
	if a.ReadTimeout <= 0 {
		ve.Add("agents.read_timeout must be > 0")
	}
	if a.Timeout > 0 && a.ReadTimeout > a.Timeout {
		ve.Add("agents.read_timeout (%s) must not exceed agents.timeout (%s)", a.ReadTimeout, a.Timeout)
	}
	if a.MaxStreamBytes < 0 {
		ve.Add("agents.max_stream_bytes must be >= 0")
	}
	if a.CircuitBreaker.Enabled {
		if a.CircuitBreaker.MaxFailures == 0 {
			ve.Add("agents.circuit_breaker.max_failures must be > 0 when enabled")
		}
		if a.CircuitBreaker.Timeout <= 0 {
			ve.Add("agents.circuit_breaker.timeout must be > 0 when enabled")
		}
	}
}

func validateOrchestrator(cfg *Config, ve *ValidationError) {
	o := cfg.Orchestrator
	if o.SelectionThreshold <= 0 || o.SelectionThreshold > 1 {
		ve.Add("orchestrator.selection_threshold %v must be in (0, 1]", o.SelectionThreshold)
	}
	if o.StructuredThreshold < 0 || o.StructuredThreshold >= 1 {
		ve.Add("orchestrator.structured_threshold %v must be in [0, 1)", o.StructuredThreshold)
	}
	if o.MaxParallel < 0 {
		ve.Add("orchestrator.max_parallel must be >= 0")
	}
	switch o.StructuredSource {
	case "agent", "local":
	default:
		ve.Add("orchestrator.structured_source %q is invalid (want: agent, local)", o.StructuredSource)
	}
	if cfg.Mode.AgentOnly && o.StructuredSource == "local" {
		ve.Add("orchestrator.structured_source must be \"agent\" when mode.agent_only is set")
	}
}

func validateGateway(cfg *Config, ve *ValidationError) {
	g := cfg.Gateway
	if g.Addr == "" {
		ve.Add("gateway.addr must not be empty")
	} else if _, _, err := net.SplitHostPort(g.Addr); err != nil {
		ve.Add("gateway.addr %q is not a valid host:port", g.Addr)
	}
	switch g.Auth.Type {
	case "":
	case "static":
		if len(g.Auth.Tokens) == 0 {
			ve.Add("gateway.auth.tokens must not be empty when auth type is static")
		}
		for i, tok := range g.Auth.Tokens {
			if tok.Token == "" {
				ve.Add("gateway.auth.tokens[%d].token must not be empty", i)
			}
		}
	default:
		ve.Add("gateway.auth.type %q is invalid (want: static)", g.Auth.Type)
	}
	if g.RateLimit.Enabled {
		if g.RateLimit.RequestsPerMinute <= 0 {
			ve.Add("gateway.rate_limit.requests_per_minute must be > 0 when enabled")
		}
		if g.RateLimit.Burst <= 0 {
			ve.Add("gateway.rate_limit.burst must be > 0 when enabled")
		}
	}
}

func validateStore(cfg *Config, ve *ValidationError) {
	if cfg.Store.Path == "" {
		ve.Add("store.path must not be empty")
	}
	if cfg.Store.MaxConversations <= 0 {
		ve.Add("store.max_conversations must be > 0")
	}
}

var validTaskActions = map[string]bool{
	"agent_probe":        true,
	"conversation_prune": true,
}

func validateScheduler(cfg *Config, ve *ValidationError) {
	if !cfg.Scheduler.Enabled {
		return
	}
	seen := make(map[string]bool)
	for i, t := range cfg.Scheduler.Tasks {
		if t.Name == "" {
			ve.Add("scheduler.tasks[%d].name is required", i)
		} else if seen[t.Name] {
			ve.Add("scheduler.tasks[%d]: duplicate task name %q", i, t.Name)
		}
		seen[t.Name] = true
		if t.Schedule == "" {
			ve.Add("scheduler.tasks[%d].schedule is required", i)
		}
		if !validTaskActions[t.Action] {
			ve.Add("scheduler.tasks[%d].action %q is invalid (want: agent_probe, conversation_prune)", i, t.Action)
		}
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", cfg.Logger.Level)
	}
	switch cfg.Logger.Format {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q is invalid (want: text, json)", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is invalid (want: noop, stdout)", cfg.Tracer.Exporter)
	}
	if cfg.Tracer.SampleRatio < 0 || cfg.Tracer.SampleRatio > 1 {
		ve.Add("tracer.sample_ratio %v must be in [0, 1]", cfg.Tracer.SampleRatio)
	}
}
