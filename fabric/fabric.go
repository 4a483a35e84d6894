package fabric

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/agent-fabric/fabric/client"
	"github.com/agent-fabric/fabric/core/protocol"
	"github.com/agent-fabric/fabric/monitor"
	"github.com/agent-fabric/fabric/observability"
	"github.com/agent-fabric/fabric/server"
	"github.com/agent-fabric/fabric/tools"
	"github.com/agent-fabric/fabric/transport"
)

// Fabric assembles the registry, monitor and transport into one
// in-process tool-calling plane and hands out clients and servers bound
// to it. Every collaborator is constructed or injected here; there is
// no package-level shared state, so isolated fabrics can run side by
// side in one process.
type Fabric struct {
	config   Config
	logger   *slog.Logger
	observer observability.Observer

	registry  *tools.Registry
	monitor   *monitor.Monitor
	transport *transport.Transport

	ownsMonitor bool

	mu      sync.RWMutex
	servers map[string]*server.Server
}

// Option configures a Fabric.
type Option func(*Fabric)

// WithLogger sets the logger propagated to the transport, monitor and
// every client and server the fabric creates.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fabric) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithObserver sets the observer receiving fabric and call lifecycle
// events.
func WithObserver(observer observability.Observer) Option {
	return func(f *Fabric) {
		if observer != nil {
			f.observer = observer
		}
	}
}

// WithRegistry installs a caller-owned registry instead of a fresh one.
func WithRegistry(registry *tools.Registry) Option {
	return func(f *Fabric) {
		if registry != nil {
			f.registry = registry
		}
	}
}

// WithMonitor installs a caller-owned monitor. The fabric will not
// close it on shutdown.
func WithMonitor(m *monitor.Monitor) Option {
	return func(f *Fabric) {
		if m != nil {
			f.monitor = m
		}
	}
}

// New creates a Fabric and starts its transport. Zero fields in cfg
// fall back to DefaultConfig values; the fabric's logger replaces the
// subsystem loggers in cfg.
func New(ctx context.Context, cfg Config, opts ...Option) *Fabric {
	defaults := DefaultConfig()
	defaults.Merge(&cfg)

	f := &Fabric{
		config:  defaults,
		logger:  slog.Default(),
		servers: make(map[string]*server.Server),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.observer == nil {
		observer, err := observability.GetObserver(f.config.Observer)
		if err != nil {
			f.logger.WarnContext(
				ctx,
				"failed to resolve observer, events disabled",
				slog.String("observer", f.config.Observer),
			)
			observer = observability.NoOpObserver{}
		}
		f.observer = observer
	}

	if f.monitor == nil {
		monitorCfg := f.config.Monitor
		monitorCfg.Logger = f.logger
		f.monitor = monitor.New(monitorCfg)
		f.ownsMonitor = true
	}
	if f.registry == nil {
		f.registry = tools.NewRegistry()
	}
	f.registry.SetDiscoveryRecorder(f.monitor)

	transportCfg := f.config.Transport
	transportCfg.Logger = f.logger
	transportCfg.Recorder = f.monitor
	f.transport = transport.New(ctx, transportCfg)

	f.transport.RegisterHandler(protocol.MessageTypeToolCall, f.routeToolCall)
	f.transport.RegisterHandler(protocol.MessageTypeDiscoveryRequest, f.handleDiscovery)
	f.transport.RegisterHandler(protocol.MessageTypeError, f.handleError)

	f.emit(ctx, EventStart, observability.LevelInfo, map[string]any{
		"transport": f.transport.Name(),
	})
	f.logger.DebugContext(ctx, "fabric started", slog.String("transport", f.transport.Name()))

	return f
}

// NewClient returns a client calling under the given agent name.
func (f *Fabric) NewClient(agentName string) *client.Client {
	return client.New(agentName, f.transport, client.WithLogger(f.logger))
}

// NewServer creates the serving side of an agent. Agent names are
// unique per fabric because tool calls route to servers by receiver
// name.
func (f *Fabric) NewServer(agentName string) (*server.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.servers[agentName]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentExists, agentName)
	}

	srv := server.New(
		agentName,
		f.transport,
		f.registry,
		server.WithLogger(f.logger),
		server.WithObserver(f.observer),
	)
	f.servers[agentName] = srv
	return srv, nil
}

// Agents returns the sorted names of agents serving on this fabric.
func (f *Fabric) Agents() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.servers))
	for name := range f.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry returns the shared tool registry.
func (f *Fabric) Registry() *tools.Registry {
	return f.registry
}

// Monitor returns the call monitor.
func (f *Fabric) Monitor() *monitor.Monitor {
	return f.monitor
}

// Transport returns the message transport.
func (f *Fabric) Transport() *transport.Transport {
	return f.transport
}

// Stats is a point-in-time snapshot across all fabric subsystems.
type Stats struct {
	Overall         monitor.OverallStats         `json:"overall"`
	PerTool         map[string]monitor.ToolStats `json:"per_tool"`
	RegisteredTools int                          `json:"registered_tools"`
	Agents          int                          `json:"agents"`
	PendingCalls    int                          `json:"pending_calls"`
}

// Stats drains queued monitor events, then snapshots the fabric.
func (f *Fabric) Stats() Stats {
	f.monitor.Flush()

	f.mu.RLock()
	agents := len(f.servers)
	f.mu.RUnlock()

	return Stats{
		Overall:         f.monitor.OverallStats(),
		PerTool:         f.monitor.AllToolStats(),
		RegisteredTools: f.registry.Len(),
		Agents:          agents,
		PendingCalls:    f.transport.PendingCalls(),
	}
}

// Shutdown stops the transport and, when the fabric created it, the
// monitor. Callers still blocked on tool calls are woken with
// transport.ErrShutdown.
func (f *Fabric) Shutdown(timeout time.Duration) error {
	f.emit(context.Background(), EventShutdown, observability.LevelInfo, map[string]any{
		"transport": f.transport.Name(),
	})

	err := f.transport.Shutdown(timeout)
	if f.ownsMonitor {
		f.monitor.Close()
	}
	if err != nil {
		return fmt.Errorf("fabric shutdown: %w", err)
	}
	return nil
}

// routeToolCall hands a tool_call envelope to the server owning the
// receiver name. An unknown receiver is a routing failure; the caller
// sees it as a timeout, matching the fire-and-forget envelope model.
func (f *Fabric) routeToolCall(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
	f.mu.RLock()
	srv, ok := f.servers[msg.Receiver]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no agent %q on this fabric", msg.Receiver)
	}
	return srv.HandleToolCall(ctx, msg)
}

// handleDiscovery answers discovery requests from the shared registry.
func (f *Fabric) handleDiscovery(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
	req, ok := msg.DiscoveryRequest()
	if !ok {
		return nil, fmt.Errorf("discovery_request envelope %s carries %T", msg.ID, msg.Payload)
	}

	resp := f.registry.Discover(req)
	f.emit(ctx, EventDiscovery, observability.LevelVerbose, map[string]any{
		"requester": req.Requester,
		"tools":     resp.Count,
	})
	return protocol.NewDiscoveryResponseMessage(f.transport.Name(), msg.Sender, resp).Build(), nil
}

// handleError logs error envelopes; they carry no correlation and need
// no reply.
func (f *Fabric) handleError(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
	if payload, ok := msg.Payload.(*protocol.ErrorPayload); ok {
		f.logger.WarnContext(
			ctx,
			"error envelope received",
			slog.String("from", msg.Sender),
			slog.String("code", payload.Code),
			slog.String("error", payload.Message),
		)
		return nil, nil
	}
	f.logger.WarnContext(ctx, "error envelope received", slog.String("from", msg.Sender))
	return nil, nil
}

func (f *Fabric) emit(ctx context.Context, eventType observability.EventType, level observability.Level, data map[string]any) {
	f.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "fabric",
		Data:      data,
	})
}
