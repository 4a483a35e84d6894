// Package protocol defines the wire types exchanged between agents on the
// fabric.
//
// Every exchange travels inside a Message envelope that names its sender
// and receiver, carries a typed payload, and records a correlation ID so
// responses can be matched to the requests that caused them.
//
// # Message Types
//
// The envelope distinguishes five payload types:
//
//   - MessageTypeToolCall: a request to execute a remote tool
//   - MessageTypeToolResult: the outcome of a previous tool call
//   - MessageTypeDiscoveryRequest: a query for available tools
//   - MessageTypeDiscoveryResponse: the descriptors matching a query
//   - MessageTypeError: a transport-level failure report
//
// # Message Construction
//
// Messages are built with a fluent builder that stamps a UUIDv7 ID and
// the creation timestamp:
//
//	call := protocol.NewToolCall("summarize", map[string]any{"text": doc})
//	msg := protocol.NewToolCallMessage("agent-a", "agent-b", call).
//	    Metadata(map[string]string{"trace_id": traceID}).
//	    Build()
//
// Tool-call and tool-result builders set the envelope's CorrelationID to
// the payload's CallID automatically, so transports can route replies
// without inspecting payloads.
//
// # Correlation
//
// A ToolCall carries a CallID generated at construction. The responding
// agent copies that CallID into its ToolResult, and the envelope's
// CorrelationID mirrors it in both directions. Receivers match results
// to pending calls by CallID alone.
//
// # Tool Descriptors
//
// A ToolDescriptor advertises one callable tool: its name, description,
// parameter schema, and owning agent. Descriptors validate incoming
// parameters before execution:
//
//	if err := desc.ValidateParameters(call.Parameters); err != nil {
//	    var verr *protocol.ValidationError
//	    errors.As(err, &verr) // verr.Missing lists absent parameters
//	}
//
// # Wire Format
//
// All types marshal to JSON. Durations cross the wire as seconds
// (ToolCall.Timeout as a nullable number, ToolResult.ExecutionTime as a
// number) so non-Go peers never parse Go duration strings. Message
// implements json.Unmarshaler and decodes payloads into their concrete
// types based on the envelope's message_type field.
package protocol
