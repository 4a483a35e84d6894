package protocol

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the kind of payload an envelope carries.
type MessageType string

const (
	MessageTypeToolCall          MessageType = "tool_call"
	MessageTypeToolResult        MessageType = "tool_result"
	MessageTypeDiscoveryRequest  MessageType = "discovery_request"
	MessageTypeDiscoveryResponse MessageType = "discovery_response"
	MessageTypeError             MessageType = "error"
)

// Message is the envelope that carries every payload between fabric
// components. The transport owns envelope construction and destruction;
// callers and the registry only ever see the payloads.
//
// CorrelationID echoes the call ID for tool_call/tool_result pairs and is
// empty for discovery traffic.
type Message struct {
	ID            string            `json:"message_id"`
	Sender        string            `json:"sender"`
	Receiver      string            `json:"receiver"`
	Type          MessageType       `json:"message_type"`
	Payload       any               `json:"payload"`
	Timestamp     time.Time         `json:"timestamp"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ErrorPayload is the payload shape for MessageTypeError envelopes.
type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (msg *Message) IsToolCall() bool {
	return msg.Type == MessageTypeToolCall
}

func (msg *Message) IsToolResult() bool {
	return msg.Type == MessageTypeToolResult
}

func (msg *Message) IsDiscovery() bool {
	return msg.Type == MessageTypeDiscoveryRequest || msg.Type == MessageTypeDiscoveryResponse
}

// ToolCall returns the payload as a *ToolCall when the envelope carries one.
func (msg *Message) ToolCall() (*ToolCall, bool) {
	call, ok := msg.Payload.(*ToolCall)
	return call, ok
}

// ToolResult returns the payload as a *ToolResult when the envelope carries one.
func (msg *Message) ToolResult() (*ToolResult, bool) {
	result, ok := msg.Payload.(*ToolResult)
	return result, ok
}

// DiscoveryRequest returns the payload as a *DiscoveryRequest when the
// envelope carries one.
func (msg *Message) DiscoveryRequest() (*DiscoveryRequest, bool) {
	req, ok := msg.Payload.(*DiscoveryRequest)
	return req, ok
}

// DiscoveryResponse returns the payload as a *DiscoveryResponse when the
// envelope carries one.
func (msg *Message) DiscoveryResponse() (*DiscoveryResponse, bool) {
	resp, ok := msg.Payload.(*DiscoveryResponse)
	return resp, ok
}

func (msg *Message) Clone() *Message {
	clone := *msg
	clone.Metadata = maps.Clone(msg.Metadata)
	return &clone
}

func (msg *Message) String() string {
	return fmt.Sprintf(
		"Message{ID: %s, Sender: %s, Receiver: %s, Type: %s, CorrelationID: %s}",
		msg.ID,
		msg.Sender,
		msg.Receiver,
		msg.Type,
		msg.CorrelationID,
	)
}

// UnmarshalJSON decodes the envelope and resolves the payload into the
// concrete type named by message_type. Unknown message types keep the raw
// payload as a map so routing code can still log and drop them.
func (msg *Message) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID            string            `json:"message_id"`
		Sender        string            `json:"sender"`
		Receiver      string            `json:"receiver"`
		Type          MessageType       `json:"message_type"`
		Payload       json.RawMessage   `json:"payload"`
		Timestamp     time.Time         `json:"timestamp"`
		CorrelationID string            `json:"correlation_id"`
		Metadata      map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	msg.ID = wire.ID
	msg.Sender = wire.Sender
	msg.Receiver = wire.Receiver
	msg.Type = wire.Type
	msg.Timestamp = wire.Timestamp
	msg.CorrelationID = wire.CorrelationID
	msg.Metadata = wire.Metadata

	if len(wire.Payload) == 0 {
		msg.Payload = nil
		return nil
	}

	payload, err := decodePayload(wire.Type, wire.Payload)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", wire.Type, err)
	}
	msg.Payload = payload
	return nil
}

func decodePayload(messageType MessageType, raw json.RawMessage) (any, error) {
	switch messageType {
	case MessageTypeToolCall:
		var call ToolCall
		if err := json.Unmarshal(raw, &call); err != nil {
			return nil, err
		}
		return &call, nil
	case MessageTypeToolResult:
		var result ToolResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, err
		}
		return &result, nil
	case MessageTypeDiscoveryRequest:
		var req DiscoveryRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		return &req, nil
	case MessageTypeDiscoveryResponse:
		var resp DiscoveryResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	case MessageTypeError:
		var ep ErrorPayload
		if err := json.Unmarshal(raw, &ep); err != nil {
			return nil, err
		}
		return &ep, nil
	default:
		var generic map[string]any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, err
		}
		return generic, nil
	}
}

func generateID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewCallID generates a fresh caller-side call identifier. Every invocation
// attempt needs its own ID; reusing one while the first call is in flight is
// rejected by the transport.
func NewCallID() string {
	return generateID()
}
