package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"marhaba/internal/domain"
	"marhaba/internal/infra/config"
)

const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 30 * time.Second
	defaultBreakerInterval           = 60 * time.Second
)

// BreakerCaller wraps an AgentCaller with one circuit breaker per agent, so a
// dead agent fails fast without holding up the fan-out for its full deadline.
type BreakerCaller struct {
	inner  domain.AgentCaller
	cfg    config.CircuitBreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[string]
}

// NewBreakerCaller wraps inner. Zero config fields fall back to defaults.
func NewBreakerCaller(inner domain.AgentCaller, cfg config.CircuitBreakerConfig, logger *slog.Logger) *BreakerCaller {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = defaultBreakerMaxFailures
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultBreakerTimeout
	}
	if cfg.Interval == 0 {
		cfg.Interval = defaultBreakerInterval
	}
	return &BreakerCaller{
		inner:    inner,
		cfg:      cfg,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[string]),
	}
}

func (b *BreakerCaller) breaker(agentName string) *gobreaker.CircuitBreaker[string] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[agentName]; ok {
		return cb
	}
	maxFailures := b.cfg.MaxFailures
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "agent:" + agentName,
		MaxRequests: 1,
		Interval:    b.cfg.Interval,
		Timeout:     b.cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// A caller giving up is not the agent's fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	b.breakers[agentName] = cb
	return cb
}

// Call implements domain.AgentCaller.
func (b *BreakerCaller) Call(ctx context.Context, agentName, input string) (string, error) {
	out, err := b.breaker(agentName).Execute(func() (string, error) {
		return b.inner.Call(ctx, agentName, input)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", domain.NewSubSystemError("agent", "agent.Call", domain.ErrCircuitOpen,
			fmt.Sprintf("%s: %v", agentName, err))
	}
	return out, err
}

// State returns the breaker state for agentName. Agents never called are closed.
func (b *BreakerCaller) State(agentName string) gobreaker.State {
	b.mu.Lock()
	cb, ok := b.breakers[agentName]
	b.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

// CircuitState is State rendered as "closed", "half-open" or "open".
func (b *BreakerCaller) CircuitState(agentName string) string {
	return b.State(agentName).String()
}

var _ domain.AgentCaller = (*BreakerCaller)(nil)
