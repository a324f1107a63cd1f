// Package gateway exposes the concierge over HTTP and a WebSocket RPC channel.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"marhaba/internal/domain"
	"marhaba/internal/infra/config"
	"marhaba/internal/infra/middleware"
)

// RPCHandler handles a single RPC method call.
type RPCHandler func(ctx context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error)

// clientConn tracks a single WebSocket connection.
type clientConn struct {
	info      *ClientInfo
	ws        *websocket.Conn
	sendCh    chan Frame // buffered outbound queue
	done      chan struct{}
	closeOnce sync.Once
}

// Server is the HTTP gateway: REST routes, the /ws RPC endpoint and event
// forwarding to connected WebSocket clients.
type Server struct {
	deps       Deps
	auth       Authenticator
	limiter    *middleware.ClientLimiter
	metrics    *Metrics
	clients    sync.Map // connID (uint64) -> *clientConn
	handlersMu sync.RWMutex
	handlers   map[string]RPCHandler
	logger     *slog.Logger
	addr       string
	handler    http.Handler
	httpSrv    *http.Server
	boundAddr  string
	nextID     atomic.Uint64

	eventsMu sync.Mutex
	unsubAll func()
}

// NewServer creates a gateway and registers its routes and RPC methods. ctx
// bounds the rate limiter's background sweeper.
func NewServer(ctx context.Context, deps Deps, cfg config.GatewayConfig, logger *slog.Logger) *Server {
	s := &Server{
		deps:     deps,
		auth:     NewAuthenticator(cfg.Auth),
		metrics:  NewMetrics(deps.Bus),
		handlers: make(map[string]RPCHandler),
		logger:   logger,
		addr:     cfg.Addr,
	}
	if cfg.RateLimit.Enabled {
		s.limiter = middleware.NewClientLimiter(ctx, middleware.RateLimitConfig{
			RequestsPerMin: cfg.RateLimit.RequestsPerMinute,
			Burst:          cfg.RateLimit.Burst,
		})
	}
	registerRPCHandlers(s)
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer, middleware.SecurityHeaders)
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	// The upgrade needs the raw ResponseWriter, so /ws sits outside the
	// request logger and HTTP instrumentation.
	r.Get("/ws", s.handleUpgrade)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	api := chi.NewRouter()
	api.Use(middleware.RequestLog(s.logger), s.requireAuth)
	api.Post("/concierge", s.handleConcierge)
	api.Post("/plan", s.handlePlan)
	api.Get("/conversations", s.handleListConversations)
	api.Delete("/conversations", s.handleClearConversations)
	api.Get("/conversations/{id}", s.handleGetConversation)
	api.Delete("/conversations/{id}", s.handleDeleteConversation)
	api.Get("/agents", s.handleAgents)
	r.Mount("/api", otelhttp.NewHandler(api, "gateway",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	))

	r.With(s.requireAuth).Method(http.MethodGet, "/metrics", s.metrics)
	return r
}

// Handler returns the gateway's root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// RegisterHandler adds an RPC handler for the given method name.
// Safe to call concurrently with active connections.
func (s *Server) RegisterHandler(method string, handler RPCHandler) {
	s.handlersMu.Lock()
	s.handlers[method] = handler
	s.handlersMu.Unlock()
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.boundAddr = listener.Addr().String()

	s.httpSrv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.forwardEvents()

	s.logger.Info("gateway started", "addr", s.boundAddr)

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway serve: %w", err)
	}
	return nil
}

// forwardEvents pushes every bus event to connected WebSocket clients.
func (s *Server) forwardEvents() {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	if s.deps.Bus == nil || s.unsubAll != nil {
		return
	}
	s.unsubAll = s.deps.Bus.SubscribeAll(func(_ context.Context, event domain.Event) {
		frame, err := eventFrame(event)
		if err != nil {
			return
		}
		s.clients.Range(func(_, value any) bool {
			cc := value.(*clientConn)
			select {
			case cc.sendCh <- frame:
			default:
				s.logger.Warn("gateway: dropped event for slow client", "event", event.Type)
			}
			return true
		})
	})
}

// Stop gracefully shuts down the gateway server.
func (s *Server) Stop(ctx context.Context) error {
	s.eventsMu.Lock()
	if s.unsubAll != nil {
		s.unsubAll()
		s.unsubAll = nil
	}
	s.eventsMu.Unlock()
	s.metrics.Close()

	s.clients.Range(func(key, value any) bool {
		cc := value.(*clientConn)
		cc.closeOnce.Do(func() { close(cc.done) })
		cc.ws.Close(websocket.StatusGoingAway, "server shutting down")
		s.clients.Delete(key)
		return true
	})

	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// BoundAddr returns the actual address the server bound to. Only valid after Start.
func (s *Server) BoundAddr() string { return s.boundAddr }

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	clientInfo, err := s.auth.Authenticate(requestToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{
			"localhost",
			"localhost:*",
			"127.0.0.1",
			"127.0.0.1:*",
			"[::1]",
			"[::1]:*",
		},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	// Event forwarding also runs for handlers served without Start.
	s.forwardEvents()

	connID := s.nextID.Add(1)
	cc := &clientConn{
		info:   clientInfo,
		ws:     ws,
		sendCh: make(chan Frame, 64),
		done:   make(chan struct{}),
	}
	s.clients.Store(connID, cc)
	s.logger.Info("gateway client connected", "conn_id", connID, "client", clientInfo.Name)

	go s.writeLoop(cc)
	s.readLoop(r.Context(), cc)

	cc.closeOnce.Do(func() { close(cc.done) })
	s.clients.Delete(connID)
	ws.Close(websocket.StatusNormalClosure, "")
	s.logger.Info("gateway client disconnected", "conn_id", connID)
}

func (s *Server) readLoop(ctx context.Context, cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		default:
		}

		var frame Frame
		if err := wsjson.Read(ctx, cc.ws, &frame); err != nil {
			return // connection closed or error
		}
		if frame.Type != FrameTypeRequest {
			continue
		}
		go s.dispatchRPC(ctx, cc, frame)
	}
}

func (s *Server) writeLoop(cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		case frame := <-cc.sendCh:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := wsjson.Write(ctx, cc.ws, frame)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) dispatchRPC(ctx context.Context, cc *clientConn, req Frame) {
	s.handlersMu.RLock()
	handler, ok := s.handlers[req.Method]
	s.handlersMu.RUnlock()
	if !ok {
		s.sendResponse(cc, req.ID, nil, domain.ErrRPCMethodNotFound)
		return
	}
	result, err := handler(ctx, cc.info, req.Payload)
	s.sendResponse(cc, req.ID, result, err)
}

func (s *Server) sendResponse(cc *clientConn, id uint64, result json.RawMessage, err error) {
	resp := responseFrame(id, result, err)
	select {
	case cc.sendCh <- resp:
	default:
		s.logger.Warn("gateway: dropped RPC response for slow client", "frame_id", id)
	}
}
