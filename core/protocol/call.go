package protocol

import (
	"encoding/json"
	"time"
)

// ToolCall asks a remote agent to execute one of its registered tools.
// CallID correlates the eventual ToolResult back to the caller; Timeout
// bounds how long the caller will wait (zero means the transport default).
type ToolCall struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
	CallID     string         `json:"call_id"`
	Timeout    time.Duration  `json:"-"`
}

// NewToolCall builds a call with a fresh CallID.
func NewToolCall(toolName string, parameters map[string]any) *ToolCall {
	return &ToolCall{
		ToolName:   toolName,
		Parameters: parameters,
		CallID:     generateID(),
	}
}

// WithTimeout sets a per-call timeout and returns the call for chaining.
func (tc *ToolCall) WithTimeout(timeout time.Duration) *ToolCall {
	tc.Timeout = timeout
	return tc
}

// wireToolCall carries Timeout as seconds, null when unset.
type wireToolCall struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
	CallID     string         `json:"call_id"`
	Timeout    *float64       `json:"timeout"`
}

func (tc *ToolCall) MarshalJSON() ([]byte, error) {
	w := wireToolCall{
		ToolName:   tc.ToolName,
		Parameters: tc.Parameters,
		CallID:     tc.CallID,
	}
	if tc.Timeout > 0 {
		secs := tc.Timeout.Seconds()
		w.Timeout = &secs
	}
	return json.Marshal(w)
}

func (tc *ToolCall) UnmarshalJSON(data []byte) error {
	var w wireToolCall
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	tc.ToolName = w.ToolName
	tc.Parameters = w.Parameters
	tc.CallID = w.CallID
	if w.Timeout != nil {
		tc.Timeout = time.Duration(*w.Timeout * float64(time.Second))
	} else {
		tc.Timeout = 0
	}
	return nil
}

// ToolResult reports the outcome of a ToolCall. Exactly one of Result or
// Error is meaningful, selected by Success.
type ToolResult struct {
	CallID        string            `json:"call_id"`
	Success       bool              `json:"success"`
	Result        any               `json:"result,omitempty"`
	Error         string            `json:"error,omitempty"`
	ExecutionTime time.Duration     `json:"-"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewToolResult builds a successful result for the given call.
func NewToolResult(callID string, result any, executionTime time.Duration) *ToolResult {
	return &ToolResult{
		CallID:        callID,
		Success:       true,
		Result:        result,
		ExecutionTime: executionTime,
	}
}

// NewToolResultError builds a failed result carrying the error text.
func NewToolResultError(callID string, errMsg string, executionTime time.Duration) *ToolResult {
	return &ToolResult{
		CallID:        callID,
		Success:       false,
		Error:         errMsg,
		ExecutionTime: executionTime,
	}
}

// wireToolResult carries ExecutionTime as seconds.
type wireToolResult struct {
	CallID        string            `json:"call_id"`
	Success       bool              `json:"success"`
	Result        any               `json:"result,omitempty"`
	Error         string            `json:"error,omitempty"`
	ExecutionTime float64           `json:"execution_time"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (tr *ToolResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireToolResult{
		CallID:        tr.CallID,
		Success:       tr.Success,
		Result:        tr.Result,
		Error:         tr.Error,
		ExecutionTime: tr.ExecutionTime.Seconds(),
		Metadata:      tr.Metadata,
	})
}

func (tr *ToolResult) UnmarshalJSON(data []byte) error {
	var w wireToolResult
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	tr.CallID = w.CallID
	tr.Success = w.Success
	tr.Result = w.Result
	tr.Error = w.Error
	tr.ExecutionTime = time.Duration(w.ExecutionTime * float64(time.Second))
	tr.Metadata = w.Metadata
	return nil
}
