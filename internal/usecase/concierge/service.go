// Package concierge answers traveller requests by running them through a
// chain of response providers and recording the exchange.
package concierge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"marhaba/internal/domain"
	"marhaba/internal/infra/tracer"
	"marhaba/internal/usecase/multiagent"
)

// Request is one traveller message, either free text or a travel-plan form.
type Request struct {
	Query          string             `json:"query"`
	SessionID      string             `json:"session_id,omitempty"`
	ConversationID string             `json:"conversation_id,omitempty"`
	Form           *domain.TravelForm `json:"form,omitempty"`
}

// Response is the reply to a Request.
type Response struct {
	ConversationID string           `json:"conversation_id,omitempty"`
	Provider       string           `json:"provider"`
	Messages       []domain.Message `json:"messages"`
}

// Mode selects the provider chain.
type Mode struct {
	// AgentOnly disables the sample-reply fallback.
	AgentOnly bool
	// Demo answers from the scenario table instead of the agents.
	Demo bool
}

// Chain builds the providers for mode. Demo mode needs a matcher; without one
// the agent chain is used.
func Chain(mode Mode, orch Orchestrator, demo DemoMatcher) []Provider {
	if mode.Demo && demo != nil {
		return []Provider{NewDemoProvider(demo)}
	}
	chain := []Provider{NewAgentProvider(orch)}
	if !mode.AgentOnly {
		chain = append(chain, MockProvider{})
	}
	return chain
}

// Option configures a Service.
type Option func(*Service)

// WithStore records every exchange in store.
func WithStore(store domain.ConversationStore) Option {
	return func(s *Service) { s.store = store }
}

// WithEventBus publishes conversation events on bus.
func WithEventBus(bus domain.EventBus) Option {
	return func(s *Service) { s.bus = bus }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service answers requests through its provider chain.
type Service struct {
	providers []Provider
	store     domain.ConversationStore
	bus       domain.EventBus
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a Service that tries providers in order.
func NewService(providers []Provider, opts ...Option) *Service {
	s := &Service{
		providers: providers,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Respond answers req. A form is validated first and, when no query text is
// given, rendered into one. The first provider that handles the request
// wins; if none does, the last non-empty reply is used, and failing that the
// apology text.
func (s *Service) Respond(ctx context.Context, req Request) (*Response, error) {
	ctx, span := tracer.StartSpan(ctx, "concierge.respond")
	defer span.End()

	if req.SessionID != "" {
		ctx = domain.ContextWithSessionID(ctx, req.SessionID)
	}

	query := strings.TrimSpace(req.Query)
	if req.Form != nil {
		if err := ValidateForm(*req.Form); err != nil {
			tracer.RecordError(span, err)
			return nil, err
		}
		if query == "" {
			query = req.Form.Prompt()
		}
	}

	convID, err := s.conversation(ctx, req)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	s.record(ctx, convID, domain.ConversationEntry{Role: domain.RoleUser, Text: query, Timestamp: s.now()})

	resp := &Response{ConversationID: convID}
	for _, p := range s.providers {
		msgs, handled, err := p.Provide(ctx, req, query)
		if err != nil {
			s.logger.Warn("provider failed", "provider", p.Name(), "error", err)
			continue
		}
		if len(msgs) > 0 {
			resp.Messages, resp.Provider = msgs, p.Name()
		}
		if handled {
			break
		}
		s.logger.Info("provider declined, trying next", "provider", p.Name())
	}
	if len(resp.Messages) == 0 {
		resp.Messages, resp.Provider = []domain.Message{domain.TextMessage(multiagent.ApologyText)}, "none"
	}

	s.record(ctx, convID, domain.ConversationEntry{Role: domain.RoleAssistant, Messages: resp.Messages, Timestamp: s.now()})

	span.SetAttributes(
		tracer.StringAttr("concierge.provider", resp.Provider),
		tracer.IntAttr("concierge.messages", len(resp.Messages)),
	)
	tracer.SetOK(span)
	return resp, nil
}

// conversation resolves the conversation a request belongs to, creating one
// when the request names none.
func (s *Service) conversation(ctx context.Context, req Request) (string, error) {
	if s.store == nil {
		return req.ConversationID, nil
	}
	if req.ConversationID != "" {
		conv, err := s.store.Get(ctx, req.ConversationID)
		if err != nil {
			return "", fmt.Errorf("concierge: %w", err)
		}
		return conv.ID, nil
	}
	conv, err := s.store.Create(ctx)
	if err != nil {
		return "", fmt.Errorf("concierge: create conversation: %w", err)
	}
	s.publish(ctx, domain.EventConversationCreated, req.SessionID, map[string]string{"id": conv.ID})
	return conv.ID, nil
}

// record appends entry to the conversation. Storage failures are logged and
// never fail the reply.
func (s *Service) record(ctx context.Context, convID string, entry domain.ConversationEntry) {
	if s.store == nil || convID == "" {
		return
	}
	if err := s.store.Append(ctx, convID, entry); err != nil {
		s.logger.Warn("failed to record conversation entry", "conversation", convID, "role", entry.Role, "error", err)
	}
}

// DeleteConversation removes a conversation and announces it.
func (s *Service) DeleteConversation(ctx context.Context, id string) error {
	if s.store == nil {
		return domain.NewSubSystemError("store", "concierge.DeleteConversation", domain.ErrNotFound, id)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, domain.EventConversationDeleted, "", map[string]string{"id": id})
	return nil
}

func (s *Service) publish(ctx context.Context, t domain.EventType, sessionID string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, domain.NewEvent(t, sessionID, payload))
}
