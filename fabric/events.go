package fabric

import "github.com/agent-fabric/fabric/observability"

// Fabric event types emitted for lifecycle and discovery activity.
// Call-level events are emitted by the server package.
const (
	EventStart     observability.EventType = "fabric.transport.start"
	EventShutdown  observability.EventType = "fabric.transport.shutdown"
	EventDiscovery observability.EventType = "fabric.discovery"
)
