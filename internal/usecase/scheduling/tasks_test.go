package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marhaba/internal/domain"
)

type fakeProber struct {
	down map[string]bool
}

func (f fakeProber) Probe(_ context.Context, name string) domain.AgentStatus {
	st := domain.AgentStatus{Name: name, CheckedAt: time.Now(), Reachable: !f.down[name]}
	if f.down[name] {
		st.Error = "connection refused"
	}
	return st
}

type countingBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *countingBus) Publish(_ context.Context, ev domain.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}
func (b *countingBus) Subscribe(domain.EventType, domain.EventHandler) func() { return func() {} }
func (b *countingBus) SubscribeAll(domain.EventHandler) func()                { return func() {} }
func (b *countingBus) Close()                                                  {}

func TestStatusBoardProbeAll(t *testing.T) {
	bus := &countingBus{}
	names := []string{"flight-agent", "hotel-agent", "weather-agent"}
	board := NewStatusBoard(fakeProber{down: map[string]bool{"hotel-agent": true}}, names, bus, newTestLogger())

	assert.Empty(t, board.Snapshot())
	require.NoError(t, board.ProbeAll(context.Background()))

	snap := board.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "flight-agent", snap[0].Name)
	assert.True(t, snap[0].Reachable)

	st, ok := board.Status("hotel-agent")
	require.True(t, ok)
	assert.False(t, st.Reachable)
	assert.Equal(t, "connection refused", st.Error)

	assert.Len(t, bus.events, 3)
	assert.Equal(t, domain.EventAgentProbed, bus.events[0].Type)
}

func TestStatusBoardProbeAllCancelled(t *testing.T) {
	board := NewStatusBoard(fakeProber{}, []string{"flight-agent"}, nil, newTestLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, board.ProbeAll(ctx), context.Canceled)
}

type pruneStore struct {
	domain.ConversationStore
	keep    int
	removed int
	err     error
}

func (p *pruneStore) Prune(_ context.Context, keep int) (int, error) {
	p.keep = keep
	return p.removed, p.err
}

func TestPruneConversations(t *testing.T) {
	store := &pruneStore{removed: 3}
	require.NoError(t, PruneConversations(store, 50, newTestLogger())(context.Background()))
	assert.Equal(t, 50, store.keep)

	failing := &pruneStore{err: errors.New("disk full")}
	assert.Error(t, PruneConversations(failing, 50, newTestLogger())(context.Background()))
}
