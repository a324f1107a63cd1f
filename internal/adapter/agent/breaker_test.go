package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marhaba/internal/domain"
	"marhaba/internal/infra/config"
)

type scriptedCaller struct {
	calls atomic.Int32
	err   error
	reply string
}

func (s *scriptedCaller) Call(context.Context, string, string) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestBreakerPassesThrough(t *testing.T) {
	inner := &scriptedCaller{reply: "sunny, 24°C"}
	b := NewBreakerCaller(inner, config.CircuitBreakerConfig{}, quietLogger())

	out, err := b.Call(context.Background(), "weather-agent", "q")
	require.NoError(t, err)
	assert.Equal(t, "sunny, 24°C", out)
	assert.Equal(t, gobreaker.StateClosed, b.State("weather-agent"))
}

func TestBreakerOpensPerAgent(t *testing.T) {
	inner := &scriptedCaller{err: domain.ErrConnectionRefused}
	b := NewBreakerCaller(inner, config.CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute}, quietLogger())

	for range 2 {
		_, err := b.Call(context.Background(), "hotel-agent", "q")
		require.ErrorIs(t, err, domain.ErrConnectionRefused)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State("hotel-agent"))
	assert.Equal(t, "open", b.CircuitState("hotel-agent"))

	_, err := b.Call(context.Background(), "hotel-agent", "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCircuitOpen))
	assert.Equal(t, domain.CodeCircuitOpen, domain.ErrorCodeOf(err))
	assert.Equal(t, int32(2), inner.calls.Load(), "open breaker must not reach the agent")

	// another agent has its own breaker
	assert.Equal(t, gobreaker.StateClosed, b.State("flight-agent"))
	_, err = b.Call(context.Background(), "flight-agent", "q")
	assert.ErrorIs(t, err, domain.ErrConnectionRefused)
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	inner := &scriptedCaller{err: context.Canceled}
	b := NewBreakerCaller(inner, config.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute}, quietLogger())

	for range 3 {
		_, err := b.Call(context.Background(), "food-recommender", "q")
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State("food-recommender"))
}

func TestBreakerOverClientIgnoresCallerCancellation(t *testing.T) {
	srv := stallingServer(t, false)
	client := NewClient(srv.URL, WithTimeouts(5*time.Second, 5*time.Second))
	b := NewBreakerCaller(client, config.CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute}, quietLogger())

	for range 3 {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)
		_, err := b.Call(ctx, "food-recommender", "q")
		cancel()
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State("food-recommender"))
}

func TestBreakerOverClientTripsOnTimeouts(t *testing.T) {
	srv := stallingServer(t, false)
	client := NewClient(srv.URL, WithTimeouts(30*time.Millisecond, 30*time.Millisecond))
	b := NewBreakerCaller(client, config.CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute}, quietLogger())

	for range 2 {
		_, err := b.Call(context.Background(), "food-recommender", "q")
		require.ErrorIs(t, err, domain.ErrTimeout)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State("food-recommender"))
}
