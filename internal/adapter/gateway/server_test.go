package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"marhaba/internal/adapter/store"
	"marhaba/internal/domain"
	"marhaba/internal/infra/config"
	"marhaba/internal/infra/logger"
	"marhaba/internal/usecase/concierge"
	"marhaba/internal/usecase/eventbus"
	"marhaba/internal/usecase/multiagent"
)

const testToken = "s3cret"

type stubOrchestrator struct{ text string }

func (o stubOrchestrator) Orchestrate(_ context.Context, query string) domain.OrchestrationResult {
	return domain.OrchestrationResult{
		PerAgentResults: []domain.AgentCallResult{{AgentName: "flight-agent", Content: o.text, RelevanceScore: 0.4, Succeeded: true}},
		CombinedText:    o.text,
	}
}

type stubStatus map[string]domain.AgentStatus

func (s stubStatus) Status(name string) (domain.AgentStatus, bool) {
	st, ok := s[name]
	return st, ok
}

type stubCircuits struct{}

func (stubCircuits) CircuitState(string) string { return "closed" }

type fixture struct {
	srv   *Server
	http  *httptest.Server
	store *store.SQLiteConversationStore
	bus   *eventbus.Bus
}

func newFixture(t *testing.T, gw config.GatewayConfig) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st, err := store.NewSQLiteConversationStore(filepath.Join(t.TempDir(), "c.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	bus := eventbus.New(logger.Discard())
	t.Cleanup(bus.Close)

	svc := concierge.NewService(
		concierge.Chain(concierge.Mode{}, stubOrchestrator{text: "Royal Air Maroc, €190"}, nil),
		concierge.WithStore(st), concierge.WithEventBus(bus),
	)
	srv := NewServer(ctx, Deps{
		Concierge:     svc,
		Conversations: st,
		Registry:      multiagent.NewRegistry(),
		Status:        stubStatus{"flight-agent": {Name: "flight-agent", Reachable: true, StatusCode: 200}},
		Circuits:      stubCircuits{},
		Bus:           bus,
		Logger:        logger.Discard(),
	}, gw, logger.Discard())

	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	t.Cleanup(func() { srv.Stop(context.Background()) })
	return &fixture{srv: srv, http: hs, store: st, bus: bus}
}

func staticAuth() config.GatewayConfig {
	return config.GatewayConfig{
		Addr: "127.0.0.1:0",
		Auth: config.AuthConfig{Type: "static", Tokens: []config.TokenConfig{{Token: testToken, Name: "web"}}},
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.http.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	f := newFixture(t, staticAuth())
	resp, err := http.Get(f.http.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestAPIRequiresToken(t *testing.T) {
	f := newFixture(t, staticAuth())
	resp, err := http.Post(f.http.URL+"/api/concierge", "application/json", strings.NewReader(`{"query":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[errorBody](t, resp)
	assert.Equal(t, string(domain.CodeGatewayAuth), body.Code)
}

func TestConciergeRoute(t *testing.T) {
	f := newFixture(t, staticAuth())
	resp := f.do(t, http.MethodPost, "/api/concierge", askRequest{Query: "Find me flights to Casablanca", SessionID: "s1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[answer](t, resp)
	assert.Equal(t, "agents", got.Provider)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, domain.TextPayload{Content: "Royal Air Maroc, €190"}, got.Messages[0].Payload)
	require.NotEmpty(t, got.ConversationID)

	conv, err := f.store.Get(context.Background(), got.ConversationID)
	require.NoError(t, err)
	assert.Len(t, conv.Entries, 2)
}

func TestConciergeRouteRejectsBadBodies(t *testing.T) {
	f := newFixture(t, staticAuth())
	for name, body := range map[string]string{
		"empty query": `{"query":"   "}`,
		"not json":    `{"query":`,
		"empty body":  ``,
	} {
		t.Run(name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPost, f.http.URL+"/api/concierge", strings.NewReader(body))
			req.Header.Set("Authorization", "Bearer "+testToken)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestPlanRoute(t *testing.T) {
	f := newFixture(t, staticAuth())

	resp := f.do(t, http.MethodPost, "/api/plan", planRequest{Form: domain.TravelForm{Destination: "Marrakech"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "agents", decode[answer](t, resp).Provider)

	bad := f.do(t, http.MethodPost, "/api/plan", planRequest{Form: domain.TravelForm{PhysicalLevel: "extreme"}})
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
	assert.Equal(t, string(domain.CodeFormInvalid), decode[errorBody](t, bad).Code)
}

func TestConversationRoutes(t *testing.T) {
	f := newFixture(t, staticAuth())
	first := decode[answer](t, f.do(t, http.MethodPost, "/api/concierge", askRequest{Query: "hotel in Fez"}))

	list := decode[[]domain.Conversation](t, f.do(t, http.MethodGet, "/api/conversations", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "hotel in Fez", list[0].Title)

	conv := decode[domain.Conversation](t, f.do(t, http.MethodGet, "/api/conversations/"+first.ConversationID, nil))
	assert.Len(t, conv.Entries, 2)

	missing := f.do(t, http.MethodGet, "/api/conversations/nope", nil)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
	assert.Equal(t, string(domain.CodeConversationNotFound), decode[errorBody](t, missing).Code)

	del := f.do(t, http.MethodDelete, "/api/conversations/"+first.ConversationID, nil)
	assert.Equal(t, http.StatusNoContent, del.StatusCode)
	again := f.do(t, http.MethodDelete, "/api/conversations/"+first.ConversationID, nil)
	assert.Equal(t, http.StatusNotFound, again.StatusCode)

	f.do(t, http.MethodPost, "/api/concierge", askRequest{Query: "one more"})
	clear := f.do(t, http.MethodDelete, "/api/conversations", nil)
	assert.Equal(t, http.StatusNoContent, clear.StatusCode)
	assert.Empty(t, decode[[]domain.Conversation](t, f.do(t, http.MethodGet, "/api/conversations", nil)))
}

func TestAgentsRoute(t *testing.T) {
	f := newFixture(t, staticAuth())
	views := decode[[]agentView](t, f.do(t, http.MethodGet, "/api/agents", nil))
	require.Len(t, views, len(multiagent.DefaultAgents()))

	byName := map[string]agentView{}
	for _, v := range views {
		byName[v.Name] = v
	}
	assert.True(t, byName[multiagent.DefaultAgent].Default)
	require.NotNil(t, byName["flight-agent"].Status)
	assert.True(t, byName["flight-agent"].Status.Reachable)
	assert.Nil(t, byName["weather-agent"].Status)
	assert.Equal(t, "closed", byName["weather-agent"].Circuit)
}

func TestMetricsCountEvents(t *testing.T) {
	f := newFixture(t, staticAuth())
	f.do(t, http.MethodPost, "/api/concierge", askRequest{Query: "flights"})

	require.Eventually(t, func() bool { return f.srv.metrics.ConversationsCreated.Load() == 1 },
		time.Second, 10*time.Millisecond)

	resp := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), "marhaba_conversations_created_total 1")
}

func TestRateLimit(t *testing.T) {
	gw := staticAuth()
	gw.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 2}
	f := newFixture(t, gw)

	var codes []int
	for range 3 {
		resp, err := http.Get(f.http.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func dialWS(t *testing.T, f *fixture, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws?token=" + token
	return websocket.Dial(ctx, url, nil)
}

func rpc(t *testing.T, c *websocket.Conn, id uint64, method string, payload any) Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	raw, _ := json.Marshal(payload)
	require.NoError(t, wsjson.Write(ctx, c, Frame{Type: FrameTypeRequest, ID: id, Method: method, Payload: raw}))
	for {
		var f Frame
		require.NoError(t, wsjson.Read(ctx, c, &f))
		if f.Type == FrameTypeResponse && f.ID == id {
			return f
		}
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	f := newFixture(t, staticAuth())
	_, resp, err := dialWS(t, f, "wrong")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketRPC(t *testing.T) {
	f := newFixture(t, staticAuth())
	c, _, err := dialWS(t, f, testToken)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	resp := rpc(t, c, 1, "concierge.send", map[string]string{"query": "flights to Rabat", "sessionId": "ws1"})
	require.Empty(t, resp.Error)
	var got answer
	require.NoError(t, json.Unmarshal(resp.Payload, &got))
	assert.Equal(t, "Royal Air Maroc, €190", got.Messages[0].Payload.(domain.TextPayload).Content)

	list := rpc(t, c, 2, "conversations.list", nil)
	var convs []domain.Conversation
	require.NoError(t, json.Unmarshal(list.Payload, &convs))
	assert.Len(t, convs, 1)

	bad := rpc(t, c, 3, "concierge.send", map[string]string{"query": ""})
	assert.Equal(t, string(domain.CodeRPCInvalidPayload), bad.Code)

	unknown := rpc(t, c, 4, "flights.book", nil)
	assert.Equal(t, string(domain.CodeRPCMethodNotFound), unknown.Code)
}

func TestWebSocketPushesEvents(t *testing.T) {
	f := newFixture(t, staticAuth())
	c, _, err := dialWS(t, f, testToken)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	// A round trip guarantees the connection is registered for events.
	rpc(t, c, 1, "agents.list", nil)

	f.bus.Publish(context.Background(), domain.NewEvent(domain.EventAgentProbed, "", domain.AgentStatus{Name: "hotel-agent"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		var fr Frame
		require.NoError(t, wsjson.Read(ctx, c, &fr))
		if fr.Type != FrameTypeEvent {
			continue
		}
		var ev domain.Event
		require.NoError(t, json.Unmarshal(fr.Payload, &ev))
		if ev.Type == domain.EventAgentProbed {
			assert.Contains(t, string(ev.Payload), "hotel-agent")
			return
		}
	}
}
