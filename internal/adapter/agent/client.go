// Package agent calls the remote travel agents over HTTP.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"marhaba/internal/domain"
	"marhaba/internal/infra/config"
	"marhaba/internal/infra/tracer"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultReadTimeout = 25 * time.Second
	errorBodyLimit     = 4096
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the pooled, traced HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeouts sets the overall and read-phase deadlines of each call.
func WithTimeouts(overall, read time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = overall
		c.readTimeout = read
	}
}

// WithMaxStreamBytes caps how much of a response stream is buffered. 0 = unlimited.
func WithMaxStreamBytes(n int64) ClientOption {
	return func(c *Client) { c.maxStreamBytes = n }
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// Client calls agents at {baseURL}/agent/{name}. It implements domain.AgentCaller.
type Client struct {
	baseURL        string
	http           *http.Client
	timeout        time.Duration
	readTimeout    time.Duration
	maxStreamBytes int64
	logger         *slog.Logger
}

// NewClient creates a Client for the agent service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		timeout:     defaultTimeout,
		readTimeout: defaultReadTimeout,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = NewHTTPClient(config.PoolConfig{})
	}
	return c
}

// NewClientFromConfig creates a Client from the agents config section.
func NewClientFromConfig(cfg config.AgentsConfig, logger *slog.Logger) *Client {
	return NewClient(cfg.BaseURL,
		WithHTTPClient(NewHTTPClient(cfg.Pool)),
		WithTimeouts(cfg.Timeout, cfg.ReadTimeout),
		WithMaxStreamBytes(cfg.MaxStreamBytes),
		WithLogger(logger),
	)
}

// Endpoint returns the URL an agent is called at.
func (c *Client) Endpoint(agentName string) string {
	return c.baseURL + "/agent/" + url.PathEscape(agentName)
}

// Call posts input to the named agent and returns the content of the first
// response in the stream's final "done" event.
func (c *Client) Call(ctx context.Context, agentName, input string) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "agent.call")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("agent.name", agentName))

	content, err := c.call(ctx, agentName, input)
	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}
	tracer.SetOK(span)
	return content, nil
}

func (c *Client) call(ctx context.Context, agentName, input string) (string, error) {
	const op = "agent.Call"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(callRequest{Input: input})
	if err != nil {
		return "", domain.NewSubSystemError("agent", op, domain.ErrFetchFailed, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(agentName), bytes.NewReader(body))
	if err != nil {
		return "", domain.NewSubSystemError("agent", op, domain.ErrFetchFailed, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyTransportError(ctx, agentName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return "", domain.NewSubSystemError("agent", op, domain.ErrHTTPStatus,
			fmt.Sprintf("%s: status %d: %s", agentName, resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	data, err := c.readStream(ctx, resp.Body)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return "", domain.NewSubSystemError("agent", op, cancelled(), agentName+": reading stream")
		case errors.Is(err, domain.ErrTimeout):
			return "", domain.NewSubSystemError("agent", op, domain.ErrTimeout, agentName+": reading stream")
		}
		return "", domain.NewSubSystemError("agent", op, domain.ErrFetchFailed, fmt.Sprintf("%s: %v", agentName, err))
	}

	ev, err := parseFinalEvent(data)
	if err != nil {
		return "", domain.NewSubSystemError("agent", op, err, agentName)
	}

	usage := ev.Query.Status.TokenUsage
	c.logger.Debug("agent call completed",
		"agent", agentName,
		"duration", time.Since(start),
		"stream_bytes", len(data),
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"total_tokens", usage.TotalTokens,
	)
	return ev.Query.Status.Responses[0].Content, nil
}

// readStream reads body to EOF under the read-phase deadline. When the
// deadline or the caller's context ends the body is closed, which unblocks
// the pending read. A caller cancellation is returned as context.Canceled.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser) ([]byte, error) {
	readCtx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()
	stop := context.AfterFunc(readCtx, func() { body.Close() })
	defer stop()

	var r io.Reader = body
	if c.maxStreamBytes > 0 {
		r = io.LimitReader(body, c.maxStreamBytes)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, context.Canceled
		}
		if readCtx.Err() != nil {
			return nil, domain.ErrTimeout
		}
		return nil, err
	}
	return data, nil
}

// classifyTransportError maps a failed round trip to the agent failure taxonomy.
func classifyTransportError(ctx context.Context, agentName string, err error) error {
	const op = "agent.Call"
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return domain.NewSubSystemError("agent", op, cancelled(), agentName)
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		return domain.NewSubSystemError("agent", op, domain.ErrTimeout, agentName)
	case errors.Is(err, syscall.ECONNREFUSED):
		return domain.NewSubSystemError("agent", op, domain.ErrConnectionRefused, agentName)
	default:
		return domain.NewSubSystemError("agent", op, domain.ErrFetchFailed, fmt.Sprintf("%s: %v", agentName, err))
	}
}

// cancelled is the failure of a call the caller abandoned. It keeps
// context.Canceled in the chain so breakers can tell it from an agent fault.
func cancelled() error {
	return fmt.Errorf("%w: %w", domain.ErrFetchFailed, context.Canceled)
}

var _ domain.AgentCaller = (*Client)(nil)
