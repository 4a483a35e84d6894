package server

import "github.com/agent-fabric/fabric/observability"

// Dispatcher event types emitted across the lifecycle of one tool call.
const (
	EventCallReceived  observability.EventType = "fabric.call.received"
	EventCallValidated observability.EventType = "fabric.call.validated"
	EventCallCompleted observability.EventType = "fabric.call.completed"
	EventCallFailed    observability.EventType = "fabric.call.failed"
)
