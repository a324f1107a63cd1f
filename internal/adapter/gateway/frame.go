package gateway

import (
	"encoding/json"

	"marhaba/internal/domain"
)

// FrameType tells request, response and event frames apart on the socket.
type FrameType string

const (
	FrameTypeRequest  FrameType = "request"
	FrameTypeResponse FrameType = "response"
	FrameTypeEvent    FrameType = "event"
)

// Frame is one WebSocket message. Requests carry Method and their params in
// Payload; the matching response echoes ID and carries either the result or
// Error and Code. Events carry the bus event in Payload and no ID.
type Frame struct {
	Type    FrameType       `json:"type"`
	ID      uint64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

func responseFrame(id uint64, result json.RawMessage, err error) Frame {
	f := Frame{Type: FrameTypeResponse, ID: id, Payload: result}
	if err != nil {
		f.Payload = nil
		f.Error, f.Code = publicError(err)
	}
	return f
}

func eventFrame(ev domain.Event) (Frame, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: FrameTypeEvent, Payload: payload}, nil
}
