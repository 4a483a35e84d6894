// Package transport routes protocol envelopes between agents that share
// a process and pairs every tool call with the result that answers it.
//
// The transport is the delivery layer of the fabric: agents never hold
// references to each other, they hand envelopes to the transport and the
// transport's routing loop dispatches each one to the handler registered
// for its message type.
//
// # Routing
//
// All traffic flows through a single buffered inbox. A dedicated
// goroutine drains it and dispatches every envelope concurrently, so one
// slow handler never stalls delivery for the rest:
//
//	tr := transport.New(ctx, transport.DefaultConfig())
//	tr.RegisterHandler(protocol.MessageTypeToolCall, handleCall)
//
// Envelopes with no registered handler are logged and dropped; the drop
// is visible through the configured Recorder as a routing failure.
//
// # Call Correlation
//
// SendToolCall is the synchronous request path. It registers a pending
// entry keyed by CallID before enqueueing the envelope, then blocks on
// the entry's result channel:
//
//	call := protocol.NewToolCall("summarize", params).WithTimeout(5 * time.Second)
//	result, err := tr.SendToolCall(ctx, "planner", "writer", call)
//
// The serving side answers with SendToolResult; the transport's own
// tool_result handler resolves the pending entry. Each call is resolved
// at most once: duplicate results, and results arriving after a timeout
// or cancellation, are dropped and counted rather than delivered.
//
// # Timeouts
//
// Every call waits at most its ToolCall.Timeout, falling back to the
// configured DefaultTimeout. A timed-out call returns an error wrapping
// ErrTimeout and removes its pending entry; the executing handler is not
// interrupted.
//
// # Discovery
//
// Discover short-circuits the inbox: the discovery handler runs
// synchronously on the caller's goroutine and its response is returned
// directly, with no correlation entry and no timeout bookkeeping.
//
// # Lifecycle
//
// Shutdown cancels the transport context, wakes every in-flight
// SendToolCall with ErrShutdown and waits for the routing loop to exit:
//
//	err := tr.Shutdown(5 * time.Second)
//
// Once the loop is down the inbox is closed and drained; envelopes that
// were enqueued but never dispatched are counted as routing failures.
//
// A background sweeper removes resolved pending entries that were never
// collected; unresolved entries are owned by their waiters and are never
// swept.
package transport
