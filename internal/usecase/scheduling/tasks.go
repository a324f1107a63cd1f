package scheduling

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"marhaba/internal/domain"
)

// StatusBoard probes agents and keeps the latest result for each.
type StatusBoard struct {
	prober domain.AgentProber
	names  []string
	bus    domain.EventBus
	logger *slog.Logger

	mu     sync.RWMutex
	latest map[string]domain.AgentStatus
}

// NewStatusBoard creates a board for the named agents. bus may be nil.
func NewStatusBoard(prober domain.AgentProber, names []string, bus domain.EventBus, logger *slog.Logger) *StatusBoard {
	return &StatusBoard{
		prober: prober,
		names:  slices.Clone(names),
		bus:    bus,
		logger: logger,
		latest: make(map[string]domain.AgentStatus),
	}
}

// ProbeAll probes every agent concurrently and records the results. It only
// fails when ctx is done.
func (b *StatusBoard) ProbeAll(ctx context.Context) error {
	results := make([]domain.AgentStatus, len(b.names))
	var g errgroup.Group
	for i, name := range b.names {
		g.Go(func() error {
			results[i] = b.prober.Probe(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	b.mu.Lock()
	for _, st := range results {
		b.latest[st.Name] = st
	}
	b.mu.Unlock()

	up := 0
	for _, st := range results {
		if st.Reachable {
			up++
		} else {
			b.logger.Warn("agent unreachable", "agent", st.Name, "error", st.Error)
		}
		if b.bus != nil {
			b.bus.Publish(ctx, domain.NewEvent(domain.EventAgentProbed, "", st))
		}
	}
	b.logger.Info("agents probed", "reachable", up, "total", len(results))
	return ctx.Err()
}

// Status returns the last probe result for agentName.
func (b *StatusBoard) Status(agentName string) (domain.AgentStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.latest[agentName]
	return st, ok
}

// Snapshot returns the last probe result of every agent, in board order.
// Agents never probed are absent.
func (b *StatusBoard) Snapshot() []domain.AgentStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.AgentStatus, 0, len(b.latest))
	for _, name := range b.names {
		if st, ok := b.latest[name]; ok {
			out = append(out, st)
		}
	}
	return out
}

// PruneConversations returns an action that trims the store to keep conversations.
func PruneConversations(store domain.ConversationStore, keep int, logger *slog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		n, err := store.Prune(ctx, keep)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("conversations pruned", "removed", n, "kept", keep)
		}
		return nil
	}
}
