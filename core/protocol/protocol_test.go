package protocol_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/agent-fabric/fabric/core/protocol"
)

func TestMessageType_Constants(t *testing.T) {
	tests := []struct {
		name        string
		messageType protocol.MessageType
		expected    string
	}{
		{"ToolCall", protocol.MessageTypeToolCall, "tool_call"},
		{"ToolResult", protocol.MessageTypeToolResult, "tool_result"},
		{"DiscoveryRequest", protocol.MessageTypeDiscoveryRequest, "discovery_request"},
		{"DiscoveryResponse", protocol.MessageTypeDiscoveryResponse, "discovery_response"},
		{"Error", protocol.MessageTypeError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.messageType) != tt.expected {
				t.Errorf("got %s, want %s", string(tt.messageType), tt.expected)
			}
		})
	}
}

func TestNewToolCallMessage(t *testing.T) {
	call := protocol.NewToolCall("summarize", map[string]any{"text": "hello"})
	msg := protocol.NewToolCallMessage("agent-a", "agent-b", call).Build()

	if msg.ID == "" {
		t.Error("message ID should not be empty")
	}
	if msg.Sender != "agent-a" {
		t.Errorf("got sender %q, want %q", msg.Sender, "agent-a")
	}
	if msg.Receiver != "agent-b" {
		t.Errorf("got receiver %q, want %q", msg.Receiver, "agent-b")
	}
	if msg.Type != protocol.MessageTypeToolCall {
		t.Errorf("got type %q, want %q", msg.Type, protocol.MessageTypeToolCall)
	}
	if msg.CorrelationID != call.CallID {
		t.Errorf("got correlation %q, want call ID %q", msg.CorrelationID, call.CallID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
	if !msg.IsToolCall() {
		t.Error("IsToolCall() should be true")
	}
}

func TestNewToolResultMessage(t *testing.T) {
	result := protocol.NewToolResult("call-1", "done", 25*time.Millisecond)
	msg := protocol.NewToolResultMessage("agent-b", "agent-a", result).Build()

	if msg.Type != protocol.MessageTypeToolResult {
		t.Errorf("got type %q, want %q", msg.Type, protocol.MessageTypeToolResult)
	}
	if msg.CorrelationID != "call-1" {
		t.Errorf("got correlation %q, want %q", msg.CorrelationID, "call-1")
	}
	if !msg.IsToolResult() {
		t.Error("IsToolResult() should be true")
	}
}

func TestMessageBuilder_Metadata(t *testing.T) {
	req := &protocol.DiscoveryRequest{Requester: "agent-a"}
	msg := protocol.NewDiscoveryRequestMessage("agent-a", "fabric", req).
		Metadata(map[string]string{"trace_id": "abc"}).
		Build()

	if msg.Metadata["trace_id"] != "abc" {
		t.Errorf("got metadata %v, want trace_id=abc", msg.Metadata)
	}
	if !msg.IsDiscovery() {
		t.Error("IsDiscovery() should be true")
	}
}

func TestNewToolCall_GeneratesDistinctCallIDs(t *testing.T) {
	first := protocol.NewToolCall("echo", nil)
	second := protocol.NewToolCall("echo", nil)

	if first.CallID == "" {
		t.Fatal("call ID should not be empty")
	}
	if first.CallID == second.CallID {
		t.Errorf("consecutive calls share ID %q", first.CallID)
	}
}

func TestMessage_UnmarshalJSON_ToolCall(t *testing.T) {
	data := `{
		"message_id": "m-1",
		"sender": "agent-a",
		"receiver": "agent-b",
		"message_type": "tool_call",
		"payload": {
			"tool_name": "search",
			"parameters": {"query": "go"},
			"call_id": "c-1",
			"timeout": 2.5
		},
		"timestamp": "2025-06-01T12:00:00Z",
		"correlation_id": "c-1"
	}`

	var msg protocol.Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	call, ok := msg.ToolCall()
	if !ok {
		t.Fatalf("payload is not *ToolCall: %T", msg.Payload)
	}
	if call.ToolName != "search" {
		t.Errorf("got tool %q, want %q", call.ToolName, "search")
	}
	if call.CallID != "c-1" {
		t.Errorf("got call ID %q, want %q", call.CallID, "c-1")
	}
	if call.Timeout != 2500*time.Millisecond {
		t.Errorf("got timeout %v, want 2.5s", call.Timeout)
	}
	if call.Parameters["query"] != "go" {
		t.Errorf("got parameters %v, want query=go", call.Parameters)
	}
}

func TestMessage_UnmarshalJSON_ToolResult(t *testing.T) {
	data := `{
		"message_id": "m-2",
		"sender": "agent-b",
		"receiver": "agent-a",
		"message_type": "tool_result",
		"payload": {
			"call_id": "c-1",
			"success": false,
			"error": "boom",
			"execution_time": 0.125
		},
		"timestamp": "2025-06-01T12:00:01Z",
		"correlation_id": "c-1"
	}`

	var msg protocol.Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	result, ok := msg.ToolResult()
	if !ok {
		t.Fatalf("payload is not *ToolResult: %T", msg.Payload)
	}
	if result.Success {
		t.Error("success should be false")
	}
	if result.Error != "boom" {
		t.Errorf("got error %q, want %q", result.Error, "boom")
	}
	if result.ExecutionTime != 125*time.Millisecond {
		t.Errorf("got execution time %v, want 125ms", result.ExecutionTime)
	}
}

func TestMessage_UnmarshalJSON_DiscoveryResponse(t *testing.T) {
	data := `{
		"message_id": "m-3",
		"sender": "fabric",
		"receiver": "agent-a",
		"message_type": "discovery_response",
		"payload": {
			"tools": [
				{"name": "echo", "description": "echoes input", "agent_name": "agent-b"}
			],
			"count": 1
		},
		"timestamp": "2025-06-01T12:00:02Z"
	}`

	var msg protocol.Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	resp, ok := msg.DiscoveryResponse()
	if !ok {
		t.Fatalf("payload is not *DiscoveryResponse: %T", msg.Payload)
	}
	if resp.Count != 1 || len(resp.Tools) != 1 {
		t.Fatalf("got count=%d tools=%d, want 1/1", resp.Count, len(resp.Tools))
	}
	if resp.Tools[0].Name != "echo" {
		t.Errorf("got tool %q, want %q", resp.Tools[0].Name, "echo")
	}
}

func TestMessage_UnmarshalJSON_UnknownType(t *testing.T) {
	data := `{
		"message_id": "m-4",
		"sender": "a",
		"receiver": "b",
		"message_type": "heartbeat",
		"payload": {"beat": 7},
		"timestamp": "2025-06-01T12:00:03Z"
	}`

	var msg protocol.Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	generic, ok := msg.Payload.(map[string]any)
	if !ok {
		t.Fatalf("unknown payload should stay a map, got %T", msg.Payload)
	}
	if generic["beat"] != float64(7) {
		t.Errorf("got payload %v, want beat=7", generic)
	}
}

func TestMessage_JSON_OmitsEmptyCorrelationID(t *testing.T) {
	req := &protocol.DiscoveryRequest{Requester: "agent-a"}
	msg := protocol.NewDiscoveryRequestMessage("agent-a", "fabric", req).Build()

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, exists := raw["correlation_id"]; exists {
		t.Error("correlation_id should be omitted when empty")
	}
	if _, exists := raw["metadata"]; exists {
		t.Error("metadata should be omitted when empty")
	}
}

func TestToolCall_MarshalJSON_TimeoutSeconds(t *testing.T) {
	call := protocol.NewToolCall("echo", nil).WithTimeout(30 * time.Second)

	data, err := json.Marshal(call)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if raw["timeout"] != float64(30) {
		t.Errorf("got timeout %v, want 30", raw["timeout"])
	}
}

func TestToolCall_MarshalJSON_NullTimeout(t *testing.T) {
	call := protocol.NewToolCall("echo", nil)

	data, err := json.Marshal(call)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	value, exists := raw["timeout"]
	if !exists {
		t.Fatal("timeout field should be present")
	}
	if value != nil {
		t.Errorf("got timeout %v, want null", value)
	}
}

func TestToolResult_JSON_RoundTrip(t *testing.T) {
	original := protocol.NewToolResult("c-9", map[string]any{"n": float64(3)}, 1500*time.Millisecond)
	original.Metadata = map[string]string{"agent": "agent-b"}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var restored protocol.ToolResult
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if restored.CallID != "c-9" {
		t.Errorf("got call ID %q, want %q", restored.CallID, "c-9")
	}
	if !restored.Success {
		t.Error("success should survive the round trip")
	}
	if restored.ExecutionTime != 1500*time.Millisecond {
		t.Errorf("got execution time %v, want 1.5s", restored.ExecutionTime)
	}
	if restored.Metadata["agent"] != "agent-b" {
		t.Errorf("got metadata %v, want agent=agent-b", restored.Metadata)
	}
}

func TestToolDescriptor_ValidateParameters(t *testing.T) {
	desc := &protocol.ToolDescriptor{
		Name:      "translate",
		AgentName: "agent-b",
		Parameters: protocol.ParameterSchema{
			"text":   {Type: "string", Required: true},
			"target": {Type: "string", Required: true},
			"tone":   {Type: "string", Required: false},
		},
	}

	tests := []struct {
		name        string
		params      map[string]any
		wantMissing []string
	}{
		{
			"all required present",
			map[string]any{"text": "hi", "target": "fr"},
			nil,
		},
		{
			"optional absent is fine",
			map[string]any{"text": "hi", "target": "fr"},
			nil,
		},
		{
			"one missing",
			map[string]any{"text": "hi"},
			[]string{"target"},
		},
		{
			"all missing sorted",
			map[string]any{"tone": "formal"},
			[]string{"target", "text"},
		},
		{
			"nil params",
			nil,
			[]string{"target", "text"},
		},
		{
			"unknown params accepted",
			map[string]any{"text": "hi", "target": "fr", "extra": true},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := desc.ValidateParameters(tt.params)
			if tt.wantMissing == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *protocol.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Tool != "translate" {
				t.Errorf("got tool %q, want %q", verr.Tool, "translate")
			}
			if len(verr.Missing) != len(tt.wantMissing) {
				t.Fatalf("got missing %v, want %v", verr.Missing, tt.wantMissing)
			}
			for i, name := range tt.wantMissing {
				if verr.Missing[i] != name {
					t.Errorf("missing[%d] = %q, want %q", i, verr.Missing[i], name)
				}
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &protocol.ValidationError{Tool: "echo", Missing: []string{"text"}}
	want := `tool "echo": missing required parameters: text`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestToolDescriptor_MatchesCapability(t *testing.T) {
	desc := &protocol.ToolDescriptor{
		Name:        "word_count",
		Description: "Counts words in a block of text",
		AgentName:   "agent-b",
	}

	tests := []struct {
		name     string
		keyword  string
		expected bool
	}{
		{"exact name", "word_count", true},
		{"name substring", "count", true},
		{"description substring", "text", true},
		{"case insensitive", "WORDS", true},
		{"no match", "weather", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := desc.MatchesCapability(tt.keyword); got != tt.expected {
				t.Errorf("MatchesCapability(%q) = %v, want %v", tt.keyword, got, tt.expected)
			}
		})
	}
}

func TestToolDescriptor_Clone(t *testing.T) {
	original := &protocol.ToolDescriptor{
		Name:       "echo",
		AgentName:  "agent-b",
		Parameters: protocol.ParameterSchema{"text": {Type: "string", Required: true}},
		Metadata:   map[string]string{"category": "utility"},
	}

	clone := original.Clone()
	clone.Parameters["text"] = protocol.ParameterSpec{Type: "number"}
	clone.Metadata["category"] = "mutated"

	if original.Parameters["text"].Type != "string" {
		t.Error("clone mutation leaked into original parameters")
	}
	if original.Metadata["category"] != "utility" {
		t.Error("clone mutation leaked into original metadata")
	}
}

func TestParameterSchema_RequiredParameters(t *testing.T) {
	schema := protocol.ParameterSchema{
		"zeta":  {Type: "string", Required: true},
		"alpha": {Type: "string", Required: true},
		"opt":   {Type: "string"},
	}

	required := schema.RequiredParameters()
	if len(required) != 2 {
		t.Fatalf("got %d required, want 2", len(required))
	}
	if required[0] != "alpha" || required[1] != "zeta" {
		t.Errorf("got %v, want sorted [alpha zeta]", required)
	}
}

func TestDiscoveryRequest_Matches(t *testing.T) {
	desc := &protocol.ToolDescriptor{
		Name:        "fetch_page",
		Description: "Fetches a web page",
		AgentName:   "browser-agent",
		Metadata:    map[string]string{"category": "web"},
	}

	tests := []struct {
		name     string
		request  protocol.DiscoveryRequest
		expected bool
	}{
		{"empty request matches", protocol.DiscoveryRequest{}, true},
		{"agent filter match", protocol.DiscoveryRequest{AgentFilter: "browser-agent"}, true},
		{"agent filter mismatch", protocol.DiscoveryRequest{AgentFilter: "other"}, false},
		{"tool substring match", protocol.DiscoveryRequest{ToolFilter: "page"}, true},
		{"tool filter case insensitive", protocol.DiscoveryRequest{ToolFilter: "FETCH"}, true},
		{"tool filter mismatch", protocol.DiscoveryRequest{ToolFilter: "weather"}, false},
		{"category match", protocol.DiscoveryRequest{CategoryFilter: "web"}, true},
		{"category mismatch", protocol.DiscoveryRequest{CategoryFilter: "math"}, false},
		{
			"filters are ANDed",
			protocol.DiscoveryRequest{AgentFilter: "browser-agent", CategoryFilter: "math"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.request.Matches(desc); got != tt.expected {
				t.Errorf("Matches() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNewDiscoveryResponse(t *testing.T) {
	tools := []*protocol.ToolDescriptor{
		{Name: "a", AgentName: "x"},
		{Name: "b", AgentName: "y"},
	}

	resp := protocol.NewDiscoveryResponse(tools)
	if resp.Count != 2 {
		t.Errorf("got count %d, want 2", resp.Count)
	}
}

func TestMessage_Clone(t *testing.T) {
	msg := protocol.NewToolCallMessage("a", "b", protocol.NewToolCall("echo", nil)).
		Metadata(map[string]string{"k": "v"}).
		Build()

	clone := msg.Clone()
	clone.Metadata["k"] = "changed"

	if msg.Metadata["k"] != "v" {
		t.Error("clone mutation leaked into original metadata")
	}
	if clone.ID != msg.ID {
		t.Errorf("clone ID %q should equal original %q", clone.ID, msg.ID)
	}
}
