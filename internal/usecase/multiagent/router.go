package multiagent

import (
	"io"
	"log/slog"

	"marhaba/internal/domain"
)

// Default relevance thresholds.
const (
	DefaultSelectionThreshold  = 0.2
	DefaultStructuredThreshold = 0.3
)

// discardLogger returns a no-op logger for components created without one.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Selection is an agent chosen for a query together with its relevance.
type Selection struct {
	Agent domain.AgentDescriptor
	Score float64
}

// RelevanceRouter scores a query against every registered agent and picks the
// ones at or above the selection threshold.
type RelevanceRouter struct {
	registry  *Registry
	threshold float64
	logger    *slog.Logger
}

// NewRelevanceRouter creates a router with the given selection threshold.
func NewRelevanceRouter(registry *Registry, threshold float64) *RelevanceRouter {
	return &RelevanceRouter{registry: registry, threshold: threshold, logger: discardLogger()}
}

// NewRelevanceRouterWithLogger creates a RelevanceRouter with debug logging.
func NewRelevanceRouterWithLogger(registry *Registry, threshold float64, logger *slog.Logger) *RelevanceRouter {
	return &RelevanceRouter{registry: registry, threshold: threshold, logger: logger}
}

// Registry returns the registry the router selects from.
func (r *RelevanceRouter) Registry() *Registry { return r.registry }

// Threshold returns the selection threshold.
func (r *RelevanceRouter) Threshold() float64 { return r.threshold }

// Rank scores every agent, in registry order.
func (r *RelevanceRouter) Rank(query string) []Selection {
	agents := r.registry.All()
	out := make([]Selection, len(agents))
	for i, a := range agents {
		out[i] = Selection{Agent: a, Score: a.Score(query)}
	}
	return out
}

// Select returns the agents whose score reaches the threshold, in registry
// order. When none does, the default agent is returned with the threshold as
// its score.
func (r *RelevanceRouter) Select(query string) []Selection {
	var picked []Selection
	for _, s := range r.Rank(query) {
		if s.Score >= r.threshold {
			picked = append(picked, s)
		}
	}
	if len(picked) == 0 {
		def := r.registry.Default()
		r.logger.Debug("no relevant agent, using default", "agent", def.Name)
		return []Selection{{Agent: def, Score: r.threshold}}
	}
	names := make([]string, len(picked))
	for i, s := range picked {
		names[i] = s.Agent.Name
	}
	r.logger.Debug("agents selected", "agents", names)
	return picked
}

// Participation is the combined relevance of a family's members, capped at 1.
func (r *RelevanceRouter) Participation(query string, family domain.Family) float64 {
	var sum float64
	for _, name := range r.registry.Members(family) {
		if d, ok := r.registry.ByName(name); ok {
			sum += d.Score(query)
		}
	}
	if sum > 1 {
		return 1
	}
	return sum
}
