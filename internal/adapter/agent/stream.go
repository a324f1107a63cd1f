package agent

import (
	"bytes"
	"encoding/json"
	"fmt"

	"marhaba/internal/domain"
)

var dataPrefix = []byte("data: ")

// callRequest is the body posted to an agent endpoint.
type callRequest struct {
	Input string `json:"input"`
}

// streamEvent is one decoded "data: " line of an agent response stream.
type streamEvent struct {
	Phase *string `json:"phase"`
	Type  string  `json:"type"`
	Query struct {
		Status struct {
			Phase      string           `json:"phase"`
			Responses  []streamResponse `json:"responses"`
			TokenUsage tokenUsage       `json:"tokenUsage"`
		} `json:"status"`
	} `json:"query"`
}

type streamResponse struct {
	Target struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"target"`
	Content string `json:"content"`
}

type tokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// lastDataLine returns the payload of the final "data: " line in body.
func lastDataLine(body []byte) ([]byte, bool) {
	var last []byte
	found := false
	for len(body) > 0 {
		var line []byte
		line, body, _ = bytes.Cut(body, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		if bytes.HasPrefix(line, dataPrefix) {
			last = line[len(dataPrefix):]
			found = true
		}
	}
	return last, found
}

// parseFinalEvent decodes the authoritative last event of a stream and
// returns it when it is a completed response.
func parseFinalEvent(body []byte) (*streamEvent, error) {
	data, ok := lastDataLine(body)
	if !ok {
		return nil, fmt.Errorf("%w: no data lines in %d byte stream", domain.ErrMalformedStream, len(body))
	}
	var ev streamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: decode final event: %v", domain.ErrMalformedStream, err)
	}
	if ev.Phase == nil {
		return nil, fmt.Errorf("%w: final event has no phase", domain.ErrMalformedStream)
	}
	if *ev.Phase != "done" {
		return nil, fmt.Errorf("%w: stream ended in phase %q", domain.ErrMalformedStream, *ev.Phase)
	}
	if len(ev.Query.Status.Responses) == 0 {
		return nil, fmt.Errorf("%w: done event carries no responses", domain.ErrMalformedStream)
	}
	return &ev, nil
}
