package server

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/agent-fabric/fabric/core/protocol"
	"github.com/agent-fabric/fabric/observability"
	"github.com/agent-fabric/fabric/tools"
	"github.com/agent-fabric/fabric/transport"
)

// Server is the serving side of an agent: it publishes handler
// functions as tools and dispatches incoming tool calls to them.
//
// A Server only executes calls for tools it registered itself. Calls
// for anything else are answered with an error result, so a misrouted
// envelope fails fast at the caller instead of running someone else's
// tool under the wrong agent name.
type Server struct {
	agentName string
	transport *transport.Transport
	registry  *tools.Registry
	observer  observability.Observer
	logger    *slog.Logger

	mu    sync.RWMutex
	owned map[string]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver sets the observer receiving call lifecycle events.
func WithObserver(observer observability.Observer) Option {
	return func(s *Server) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// New creates a Server publishing tools under the given agent name.
// HandleToolCall must be wired to the transport's tool_call envelopes,
// either directly or through a receiver-aware router.
func New(agentName string, tr *transport.Transport, registry *tools.Registry, opts ...Option) *Server {
	s := &Server{
		agentName: agentName,
		transport: tr,
		registry:  registry,
		observer:  observability.NoOpObserver{},
		logger:    slog.Default(),
		owned:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the agent name this server publishes under.
func (s *Server) Name() string {
	return s.agentName
}

// RegisterTool publishes one handler as a tool. The descriptor's agent
// name is forced to this server's name, whatever the caller set.
func (s *Server) RegisterTool(descriptor *protocol.ToolDescriptor, handler tools.Handler) error {
	if descriptor == nil {
		return s.registry.Register(nil, handler)
	}

	owned := descriptor.Clone()
	owned.AgentName = s.agentName
	if err := s.registry.Register(owned, handler); err != nil {
		return err
	}

	s.mu.Lock()
	s.owned[owned.Name] = struct{}{}
	s.mu.Unlock()

	s.logger.DebugContext(
		context.Background(),
		"tool registered",
		slog.String("agent", s.agentName),
		slog.String("tool", owned.Name),
	)
	return nil
}

// RegisterTools publishes a batch of tools, stopping at the first
// failure. Tools registered before the failure stay registered.
func (s *Server) RegisterTools(registrations []tools.Registration) error {
	for i, registration := range registrations {
		if err := s.RegisterTool(registration.Descriptor, registration.Handler); err != nil {
			if registration.Descriptor != nil {
				return fmt.Errorf("register %q: %w", registration.Descriptor.Name, err)
			}
			return fmt.Errorf("register tool %d: %w", i, err)
		}
	}
	return nil
}

// UnregisterTool withdraws a tool this server registered.
func (s *Server) UnregisterTool(name string) error {
	if !s.Owns(name) {
		return fmt.Errorf("%w: %s", ErrNotOwned, name)
	}
	if err := s.registry.Unregister(name); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.owned, name)
	s.mu.Unlock()
	return nil
}

// Owns reports whether this server registered the named tool.
func (s *Server) Owns(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.owned[name]
	return ok
}

// OwnedTools returns the sorted names of tools this server registered.
func (s *Server) OwnedTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.owned))
	for name := range s.owned {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HandleToolCall dispatches one tool_call envelope: decode, check
// ownership, validate parameters, execute, send exactly one result back
// to the envelope's sender. Handler errors and panics become error
// results; they never propagate into the routing layer. Only a result
// that cannot be sent is reported as an error.
func (s *Server) HandleToolCall(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
	call, ok := msg.ToolCall()
	if !ok {
		return nil, fmt.Errorf("tool_call envelope %s carries %T", msg.ID, msg.Payload)
	}

	s.emit(ctx, EventCallReceived, observability.LevelVerbose, map[string]any{
		"call_id": call.CallID,
		"tool":    call.ToolName,
		"caller":  msg.Sender,
	})

	if !s.Owns(call.ToolName) {
		s.emit(ctx, EventCallFailed, observability.LevelWarning, map[string]any{
			"call_id": call.CallID,
			"tool":    call.ToolName,
			"error":   "not owned",
		})
		result := protocol.NewToolResultError(
			call.CallID,
			fmt.Sprintf("tool %q is not served by agent %s", call.ToolName, s.agentName),
			0,
		)
		return nil, s.sendResult(ctx, msg.Sender, result)
	}

	descriptor, ok := s.registry.Get(call.ToolName)
	handler, handlerOK := s.registry.Handler(call.ToolName)
	if !ok || !handlerOK {
		// Owned but gone from the registry: withdrawn under our feet.
		result := protocol.NewToolResultError(
			call.CallID,
			fmt.Sprintf("tool %q is no longer registered", call.ToolName),
			0,
		)
		return nil, s.sendResult(ctx, msg.Sender, result)
	}

	if err := descriptor.ValidateParameters(call.Parameters); err != nil {
		s.emit(ctx, EventCallFailed, observability.LevelWarning, map[string]any{
			"call_id": call.CallID,
			"tool":    call.ToolName,
			"error":   err.Error(),
		})
		result := protocol.NewToolResultError(call.CallID, fmt.Sprintf("invalid parameters: %v", err), 0)
		return nil, s.sendResult(ctx, msg.Sender, result)
	}

	s.emit(ctx, EventCallValidated, observability.LevelVerbose, map[string]any{
		"call_id": call.CallID,
		"tool":    call.ToolName,
	})

	started := time.Now()
	value, execErr := s.execute(ctx, handler, call.Parameters)
	elapsed := time.Since(started)

	var result *protocol.ToolResult
	if execErr != nil {
		result = protocol.NewToolResultError(call.CallID, execErr.Error(), elapsed)
		s.emit(ctx, EventCallFailed, observability.LevelWarning, map[string]any{
			"call_id":     call.CallID,
			"tool":        call.ToolName,
			"error":       execErr.Error(),
			"duration_ms": elapsed.Milliseconds(),
		})
		s.logger.DebugContext(
			ctx,
			"tool call failed",
			slog.String("agent", s.agentName),
			slog.String("tool", call.ToolName),
			slog.String("call_id", call.CallID),
			slog.String("error", execErr.Error()),
		)
	} else {
		result = protocol.NewToolResult(call.CallID, value, elapsed)
		s.emit(ctx, EventCallCompleted, observability.LevelVerbose, map[string]any{
			"call_id":     call.CallID,
			"tool":        call.ToolName,
			"duration_ms": elapsed.Milliseconds(),
		})
	}
	result.Metadata = map[string]string{"agent": s.agentName}

	return nil, s.sendResult(ctx, msg.Sender, result)
}

// execute runs the handler, converting a panic into an error so one bad
// tool cannot take the dispatcher down.
func (s *Server) execute(ctx context.Context, handler tools.Handler, params map[string]any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, params)
}

func (s *Server) sendResult(ctx context.Context, receiver string, result *protocol.ToolResult) error {
	if err := s.transport.SendToolResult(ctx, s.agentName, receiver, result); err != nil {
		return fmt.Errorf("send result for call %s: %w", result.CallID, err)
	}
	return nil
}

func (s *Server) emit(ctx context.Context, eventType observability.EventType, level observability.Level, data map[string]any) {
	s.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    s.agentName,
		Data:      data,
	})
}
