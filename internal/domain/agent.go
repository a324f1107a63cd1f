package domain

import (
	"context"
	"time"
)

// ResponseKind says whether an agent replies with free text or a structured payload.
type ResponseKind string

const (
	KindText       ResponseKind = "text"
	KindStructured ResponseKind = "structured"
)

// Family groups agents whose combined relevance decides whether a structured
// card is attached to the reply.
type Family string

const (
	FamilyFood          Family = "food"
	FamilyAccommodation Family = "accommodation"
)

// ContextFunc turns a raw query into the agent-scoped instruction for one agent.
// It must be total and deterministic for a fixed now.
type ContextFunc func(query string, now time.Time) string

// RelevanceFunc rates how strongly query matches keywords, in [0, 1].
type RelevanceFunc func(query string, keywords []string) float64

// AgentDescriptor is the static description of one specialised agent.
// Descriptors are never mutated after the registry is built.
type AgentDescriptor struct {
	Name      string        `json:"name"`
	Label     string        `json:"label"`
	Keywords  []string      `json:"keywords"`
	Kind      ResponseKind  `json:"kind"`
	Family    Family        `json:"family,omitempty"`
	Extract   ContextFunc   `json:"-"`
	Relevance RelevanceFunc `json:"-"`
}

// Score is the agent's relevance to query. A descriptor without a
// RelevanceFunc scores 0.
func (d AgentDescriptor) Score(query string) float64 {
	if d.Relevance == nil {
		return 0
	}
	return d.Relevance(query, d.Keywords)
}

// AgentCallResult is the outcome of one agent call within an orchestration.
type AgentCallResult struct {
	AgentName      string  `json:"agent_name"`
	Content        string  `json:"content"`
	RelevanceScore float64 `json:"relevance_score"`
	Succeeded      bool    `json:"succeeded"`
	Err            error   `json:"-"`
}

// ErrorString is the failure text, or "" on success.
func (r AgentCallResult) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// OrchestrationResult is the merged outcome of one query.
type OrchestrationResult struct {
	PerAgentResults []AgentCallResult `json:"per_agent_results"`
	CombinedText    string            `json:"combined_text"`
	// Failures lists agents whose call failed; kept for diagnostics only.
	Failures []AgentCallResult `json:"-"`
	// Cards holds structured payloads attached for participating families.
	Cards []Message `json:"cards,omitempty"`
}

// AgentCaller performs one call to a named agent and returns its final text.
type AgentCaller interface {
	Call(ctx context.Context, agentName, input string) (string, error)
}

// StructuredFetcher produces the structured card for an agent family.
type StructuredFetcher interface {
	FetchStructured(ctx context.Context, family Family, query string) (Payload, error)
}

// AgentStatus is the outcome of the most recent availability probe of one agent.
type AgentStatus struct {
	Name       string        `json:"name"`
	Reachable  bool          `json:"reachable"`
	StatusCode int           `json:"status_code,omitempty"`
	Latency    time.Duration `json:"latency_ns"`
	Error      string        `json:"error,omitempty"`
	CheckedAt  time.Time     `json:"checked_at"`
}

// AgentProber checks whether an agent endpoint answers.
type AgentProber interface {
	Probe(ctx context.Context, agentName string) AgentStatus
}
