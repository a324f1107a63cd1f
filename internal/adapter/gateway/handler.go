package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"marhaba/internal/domain"
	"marhaba/internal/usecase/concierge"
	"marhaba/internal/usecase/multiagent"
)

// maxBodyBytes caps REST request bodies.
const maxBodyBytes = 1 << 20

// Responder answers traveller requests and manages their conversations.
type Responder interface {
	Respond(ctx context.Context, req concierge.Request) (*concierge.Response, error)
	DeleteConversation(ctx context.Context, id string) error
}

// StatusSource reports the latest availability probe of an agent.
type StatusSource interface {
	Status(agentName string) (domain.AgentStatus, bool)
}

// CircuitInspector reports an agent's circuit-breaker state.
type CircuitInspector interface {
	CircuitState(agentName string) string
}

// Deps holds what the gateway routes and RPC handlers call into.
type Deps struct {
	Concierge     Responder
	Conversations domain.ConversationStore // can be nil (history disabled)
	Registry      *multiagent.Registry
	Status        StatusSource     // can be nil (probing disabled)
	Circuits      CircuitInspector // can be nil (breaker disabled)
	Bus           domain.EventBus  // can be nil
	Logger        *slog.Logger
}

// askRequest is the body of POST /api/concierge and the concierge.send RPC.
type askRequest struct {
	Query          string `json:"query"`
	SessionID      string `json:"sessionId"`
	ConversationID string `json:"conversationId,omitempty"`
}

// planRequest is the body of POST /api/plan.
type planRequest struct {
	Form           domain.TravelForm `json:"form"`
	Query          string            `json:"query,omitempty"`
	SessionID      string            `json:"sessionId"`
	ConversationID string            `json:"conversationId,omitempty"`
}

// answer is the reply body shared by the ask and plan routes.
type answer struct {
	Messages       []domain.Message `json:"messages"`
	ConversationID string           `json:"conversationId,omitempty"`
	Provider       string           `json:"provider"`
}

func toAnswer(resp *concierge.Response) answer {
	return answer{Messages: resp.Messages, ConversationID: resp.ConversationID, Provider: resp.Provider}
}

// agentView is one entry of GET /api/agents.
type agentView struct {
	Name     string              `json:"name"`
	Label    string              `json:"label"`
	Kind     domain.ResponseKind `json:"kind"`
	Family   domain.Family       `json:"family,omitempty"`
	Keywords []string            `json:"keywords"`
	Default  bool                `json:"default"`
	Status   *domain.AgentStatus `json:"status,omitempty"`
	Circuit  string              `json:"circuit,omitempty"`
}

func (s *Server) agentViews() []agentView {
	if s.deps.Registry == nil {
		return []agentView{}
	}
	def := s.deps.Registry.Default().Name
	var out []agentView
	for _, d := range s.deps.Registry.All() {
		v := agentView{
			Name: d.Name, Label: d.Label, Kind: d.Kind, Family: d.Family,
			Keywords: d.Keywords, Default: d.Name == def,
		}
		if s.deps.Status != nil {
			if st, ok := s.deps.Status.Status(d.Name); ok {
				v.Status = &st
			}
		}
		if s.deps.Circuits != nil {
			v.Circuit = s.deps.Circuits.CircuitState(d.Name)
		}
		out = append(out, v)
	}
	return out
}

func (s *Server) handleConcierge(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, invalid("query must not be empty"))
		return
	}
	resp, err := s.deps.Concierge.Respond(r.Context(), concierge.Request{
		Query: req.Query, SessionID: req.SessionID, ConversationID: req.ConversationID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnswer(resp))
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.deps.Concierge.Respond(r.Context(), concierge.Request{
		Query: req.Query, SessionID: req.SessionID, ConversationID: req.ConversationID, Form: &req.Form,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnswer(resp))
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	if s.deps.Conversations == nil {
		writeJSON(w, http.StatusOK, []domain.Conversation{})
		return
	}
	list, err := s.deps.Conversations.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []domain.Conversation{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	if s.deps.Conversations == nil {
		writeError(w, domain.NewSubSystemError("store", "gateway.GetConversation", domain.ErrNotFound, "history disabled"))
		return
	}
	conv, err := s.deps.Conversations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Concierge.DeleteConversation(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearConversations(w http.ResponseWriter, r *http.Request) {
	if s.deps.Conversations != nil {
		if err := s.deps.Conversations.Clear(r.Context()); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.agentViews())
}

// --- RPC ---

func registerRPCHandlers(s *Server) {
	s.RegisterHandler("concierge.send", conciergeSendHandler(s))
	s.RegisterHandler("conversations.list", conversationsListHandler(s))
	s.RegisterHandler("conversations.get", conversationsGetHandler(s))
	s.RegisterHandler("conversations.delete", conversationsDeleteHandler(s))
	s.RegisterHandler("agents.list", agentsListHandler(s))
}

func conciergeSendHandler(s *Server) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req struct {
			askRequest
			Form *domain.TravelForm `json:"form,omitempty"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, domain.ErrRPCInvalidPayload
		}
		if strings.TrimSpace(req.Query) == "" && req.Form == nil {
			return nil, domain.ErrRPCInvalidPayload
		}
		resp, err := s.deps.Concierge.Respond(ctx, concierge.Request{
			Query: req.Query, SessionID: req.SessionID, ConversationID: req.ConversationID, Form: req.Form,
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(toAnswer(resp))
	}
}

func conversationsListHandler(s *Server) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		if s.deps.Conversations == nil {
			return json.Marshal([]domain.Conversation{})
		}
		list, err := s.deps.Conversations.List(ctx)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []domain.Conversation{}
		}
		return json.Marshal(list)
	}
}

type conversationIDRequest struct {
	ID string `json:"id"`
}

func conversationsGetHandler(s *Server) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req conversationIDRequest
		if err := json.Unmarshal(payload, &req); err != nil || req.ID == "" {
			return nil, domain.ErrRPCInvalidPayload
		}
		if s.deps.Conversations == nil {
			return nil, domain.NewSubSystemError("store", "gateway.GetConversation", domain.ErrNotFound, req.ID)
		}
		conv, err := s.deps.Conversations.Get(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(conv)
	}
}

func conversationsDeleteHandler(s *Server) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req conversationIDRequest
		if err := json.Unmarshal(payload, &req); err != nil || req.ID == "" {
			return nil, domain.ErrRPCInvalidPayload
		}
		if err := s.deps.Concierge.DeleteConversation(ctx, req.ID); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"deleted": true})
	}
}

func agentsListHandler(s *Server) RPCHandler {
	return func(context.Context, *ClientInfo, json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(s.agentViews())
	}
}

// --- helpers ---

func invalid(detail string) error {
	return domain.NewSubSystemError("gateway", "gateway.decode", domain.ErrInvalidInput, detail)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return invalid("empty body")
		}
		return invalid(err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusOf maps an error onto the HTTP status a client should see.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, domain.ErrRPCInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrConversationNotFound),
		errors.Is(err, domain.ErrRPCMethodNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimit):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// publicError is the message and code shown to clients. Internal failures
// are reduced to a generic message.
func publicError(err error) (string, string) {
	code := string(domain.ErrorCodeOf(err))
	if statusOf(err) == http.StatusInternalServerError {
		return "internal error", code
	}
	return err.Error(), code
}

func writeError(w http.ResponseWriter, err error) {
	msg, code := publicError(err)
	writeJSON(w, statusOf(err), errorBody{Error: msg, Code: code})
}
