package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventOrchestrationStarted   EventType = "orchestration.started"
	EventOrchestrationCompleted EventType = "orchestration.completed"
	EventAgentCallCompleted     EventType = "agent.call.completed"
	EventAgentCallFailed        EventType = "agent.call.failed"
	EventStructuredFallback     EventType = "structured.fallback"
	EventConversationCreated    EventType = "conversation.created"
	EventConversationDeleted    EventType = "conversation.deleted"
	EventAgentProbed            EventType = "agent.probed"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event with a JSON payload. A payload that fails to
// marshal is dropped rather than failing the publisher.
func NewEvent(t EventType, sessionID string, payload any) Event {
	ev := Event{Type: t, Timestamp: time.Now(), SessionID: sessionID}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			ev.Payload = raw
		}
	}
	return ev
}

// AgentCallEvent is the payload of agent.call.* events.
type AgentCallEvent struct {
	Agent     string  `json:"agent"`
	Relevance float64 `json:"relevance"`
	Error     string  `json:"error,omitempty"`
	Code      string  `json:"code,omitempty"`
}

// OrchestrationEvent is the payload of orchestration.* events.
type OrchestrationEvent struct {
	Query    string   `json:"query"`
	Agents   []string `json:"agents"`
	Failures int      `json:"failures,omitempty"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}
