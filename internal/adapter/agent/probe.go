package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"marhaba/internal/domain"
)

const probeInput = "test connection"

// Probe posts a test input to agentName and reports it reachable once the
// status line and the first chunk of the body arrive. The stream is not
// read to completion.
func (c *Client) Probe(ctx context.Context, agentName string) domain.AgentStatus {
	start := time.Now()
	st := domain.AgentStatus{Name: agentName, CheckedAt: start}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, _ := json.Marshal(callRequest{Input: probeInput})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(agentName), bytes.NewReader(body))
	if err != nil {
		st.Error = err.Error()
		return st
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		st.Error = classifyTransportError(ctx, agentName, err).Error()
		st.Latency = time.Since(start)
		return st
	}
	defer resp.Body.Close()

	st.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		st.Error = http.StatusText(resp.StatusCode)
		st.Latency = time.Since(start)
		return st
	}

	_, err = io.ReadAtLeast(resp.Body, make([]byte, 1), 1)
	st.Latency = time.Since(start)
	if err != nil {
		st.Error = "empty response stream"
		return st
	}
	st.Reachable = true
	return st
}

var _ domain.AgentProber = (*Client)(nil)
