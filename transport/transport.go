package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agent-fabric/fabric/core/protocol"
)

// Transport routes protocol envelopes between agents in one process and
// correlates each tool call with the result that answers it. All
// cross-agent traffic flows through a single inbox channel; a routing
// loop dispatches each envelope to the handler registered for its type.
type Transport struct {
	name string

	inbox *MessageChannel[*protocol.Message]

	handlers   map[protocol.MessageType]Handler
	handlersMu sync.RWMutex

	pending   map[string]*pendingCall
	pendingMu sync.Mutex

	defaultTimeout time.Duration

	logger   *slog.Logger
	recorder Recorder

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Transport and starts its routing loop and pending-call
// sweeper. Zero fields in cfg fall back to DefaultConfig values. The
// transport runs until Shutdown or until ctx is cancelled.
func New(ctx context.Context, cfg Config) *Transport {
	defaults := DefaultConfig()
	defaults.Merge(&cfg)

	transportCtx, cancel := context.WithCancel(ctx)

	t := &Transport{
		name:           defaults.Name,
		handlers:       make(map[protocol.MessageType]Handler),
		pending:        make(map[string]*pendingCall),
		defaultTimeout: defaults.DefaultTimeout,
		logger:         defaults.Logger,
		recorder:       defaults.Recorder,
		ctx:            transportCtx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
	if t.recorder == nil {
		t.recorder = noopRecorder{}
	}
	t.inbox = NewMessageChannel[*protocol.Message](transportCtx, defaults.ChannelBufferSize)

	// Result correlation is part of the transport itself, not an
	// application handler.
	t.handlers[protocol.MessageTypeToolResult] = t.handleToolResult

	go t.messageLoop()
	go t.cleanupLoop(defaults.CleanupInterval, defaults.CleanupMaxAge)

	return t
}

// Name returns the transport's configured name.
func (t *Transport) Name() string {
	return t.name
}

// RegisterHandler installs the handler for a message type, replacing any
// previous one. The transport owns the tool_result type; replacing that
// handler breaks call correlation.
func (t *Transport) RegisterHandler(messageType protocol.MessageType, handler Handler) {
	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()
	t.handlers[messageType] = handler
}

// SendToolCall routes a call to its serving agent and blocks until the
// result arrives. The correlation entry is inserted before the envelope
// is enqueued, so an arbitrarily fast result still finds its waiter.
//
// The wait is bounded by call.Timeout, or the configured default when
// unset. On timeout the entry is removed and the error wraps ErrTimeout;
// the executing handler is not interrupted, and its late result is
// dropped and counted when it eventually arrives.
func (t *Transport) SendToolCall(ctx context.Context, sender, receiver string, call *protocol.ToolCall) (*protocol.ToolResult, error) {
	if call == nil {
		return nil, fmt.Errorf("nil tool call")
	}
	if err := t.ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShutdown, err)
	}
	if call.CallID == "" {
		call.CallID = protocol.NewCallID()
	}

	entry, err := t.addPending(call)
	if err != nil {
		return nil, err
	}

	timeout := call.Timeout
	if timeout <= 0 {
		timeout = t.defaultTimeout
	}

	t.recorder.RecordCallStart(call.CallID, call.ToolName, sender, receiver)

	message := protocol.NewToolCallMessage(sender, receiver, call).Build()
	if err := t.inbox.Send(ctx, message); err != nil {
		t.removePending(call.CallID)
		t.recorder.RecordCallEnd(call.CallID, false, err.Error())
		if t.ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrShutdown, err)
		}
		return nil, fmt.Errorf("enqueue tool call %s: %w", call.CallID, err)
	}

	t.logger.DebugContext(
		ctx,
		"tool call sent",
		slog.String("transport", t.name),
		slog.String("call_id", call.CallID),
		slog.String("tool", call.ToolName),
		slog.String("from", sender),
		slog.String("to", receiver),
	)

	select {
	case result := <-entry.result:
		t.removePending(call.CallID)
		t.recorder.RecordCallEnd(call.CallID, result.Success, result.Error)
		return result, nil

	case <-time.After(timeout):
		// A result may have been resolved in the same instant; prefer
		// it over reporting a timeout.
		if result, ok := t.takeResolved(call.CallID); ok {
			t.recorder.RecordCallEnd(call.CallID, result.Success, result.Error)
			return result, nil
		}
		t.recorder.RecordCallEnd(call.CallID, false, "timeout")
		t.logger.WarnContext(
			ctx,
			"tool call timed out",
			slog.String("transport", t.name),
			slog.String("call_id", call.CallID),
			slog.String("tool", call.ToolName),
			slog.String("timeout", timeout.String()),
		)
		return nil, fmt.Errorf("%w: call %s to %s after %v", ErrTimeout, call.CallID, receiver, timeout)

	case <-ctx.Done():
		if result, ok := t.takeResolved(call.CallID); ok {
			t.recorder.RecordCallEnd(call.CallID, result.Success, result.Error)
			return result, nil
		}
		t.recorder.RecordCallEnd(call.CallID, false, "cancelled")
		return nil, fmt.Errorf("tool call %s cancelled: %w", call.CallID, ctx.Err())

	case <-t.ctx.Done():
		t.removePending(call.CallID)
		t.recorder.RecordCallEnd(call.CallID, false, "transport shut down")
		return nil, fmt.Errorf("%w: call %s abandoned", ErrShutdown, call.CallID)
	}
}

// SendToolResult routes a result envelope back toward its caller.
// Delivery happens in the transport's tool_result handler; a result
// whose caller stopped waiting is dropped there and never reported as an
// error to the sender.
func (t *Transport) SendToolResult(ctx context.Context, sender, receiver string, result *protocol.ToolResult) error {
	if result == nil {
		return fmt.Errorf("nil tool result")
	}

	message := protocol.NewToolResultMessage(sender, receiver, result).Build()
	if err := t.inbox.Send(ctx, message); err != nil {
		if t.ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrShutdown, err)
		}
		return fmt.Errorf("enqueue tool result %s: %w", result.CallID, err)
	}
	return nil
}

// Discover dispatches a discovery request synchronously to the handler
// registered for discovery_request envelopes and returns its response.
// Discovery never suspends the caller: no correlation entry, no timeout
// bookkeeping.
func (t *Transport) Discover(ctx context.Context, sender string, req *protocol.DiscoveryRequest) (*protocol.DiscoveryResponse, error) {
	if err := t.ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShutdown, err)
	}

	t.handlersMu.RLock()
	handler, exists := t.handlers[protocol.MessageTypeDiscoveryRequest]
	t.handlersMu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, protocol.MessageTypeDiscoveryRequest)
	}

	if req == nil {
		req = &protocol.DiscoveryRequest{}
	}
	if req.Requester == "" {
		req.Requester = sender
	}

	message := protocol.NewDiscoveryRequestMessage(sender, t.name, req).Build()
	t.recorder.RecordMessageRouted(string(message.Type))

	response, err := handler(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("discovery for %s failed: %w", sender, err)
	}
	if response == nil {
		return nil, fmt.Errorf("discovery handler returned no response")
	}
	discovered, ok := response.DiscoveryResponse()
	if !ok {
		return nil, fmt.Errorf("discovery handler returned %T payload", response.Payload)
	}
	return discovered, nil
}

// HandleIncoming enqueues an envelope for routing. It is the entry point
// for externally produced messages as well as handler responses.
func (t *Transport) HandleIncoming(msg *protocol.Message) error {
	if msg == nil {
		return fmt.Errorf("nil message")
	}
	if err := t.inbox.Send(t.ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrShutdown, err)
	}
	return nil
}

// Shutdown stops the routing loop and sweeper, waiting up to timeout for
// the loop to exit. In-flight SendToolCall waiters are woken with
// ErrShutdown. Once the loop is down the inbox is closed and drained;
// every undelivered envelope counts as a routing failure.
func (t *Transport) Shutdown(timeout time.Duration) error {
	t.logger.DebugContext(t.ctx, "shutting down transport", slog.String("transport", t.name))
	t.cancel()

	select {
	case <-t.done:
	case <-time.After(timeout):
		return fmt.Errorf("transport shutdown timeout after %v", timeout)
	}

	t.inbox.Close()
	if dropped := t.drainInbox(); dropped > 0 {
		t.logger.WarnContext(
			t.ctx,
			"dropped undelivered messages at shutdown",
			slog.String("transport", t.name),
			slog.Int("dropped", dropped),
		)
	}
	return nil
}

// drainInbox empties the closed inbox, recording each undelivered
// envelope as a routing failure.
func (t *Transport) drainInbox() int {
	dropped := 0
	for {
		message, ok := t.inbox.TryReceive()
		if !ok {
			return dropped
		}
		t.recorder.RecordRoutingFailure(string(message.Type))
		dropped++
	}
}

func (t *Transport) messageLoop() {
	defer close(t.done)

	for {
		message, err := t.inbox.Receive(t.ctx)
		if err != nil {
			return
		}
		// Dispatch concurrently so one slow handler cannot stall the
		// loop and deadlock handlers that send while handling.
		go t.dispatch(message)
	}
}

func (t *Transport) dispatch(msg *protocol.Message) {
	t.handlersMu.RLock()
	handler, exists := t.handlers[msg.Type]
	t.handlersMu.RUnlock()

	if !exists {
		t.recorder.RecordRoutingFailure(string(msg.Type))
		t.logger.WarnContext(
			t.ctx,
			"dropping message with no handler",
			slog.String("transport", t.name),
			slog.String("message_type", string(msg.Type)),
			slog.String("message_id", msg.ID),
		)
		return
	}

	t.recorder.RecordMessageRouted(string(msg.Type))

	response, err := handler(t.ctx, msg)
	if err != nil {
		t.recorder.RecordRoutingFailure(string(msg.Type))
		t.logger.ErrorContext(
			t.ctx,
			"message handler failed",
			slog.String("transport", t.name),
			slog.String("message_type", string(msg.Type)),
			slog.String("message_id", msg.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if response != nil {
		if err := t.HandleIncoming(response); err != nil {
			t.logger.WarnContext(
				t.ctx,
				"failed to route handler response",
				slog.String("transport", t.name),
				slog.String("message_id", response.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// handleToolResult resolves the pending call a result answers. Results
// for unknown or already answered calls are dropped and counted.
func (t *Transport) handleToolResult(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
	result, ok := msg.ToolResult()
	if !ok {
		return nil, fmt.Errorf("tool_result envelope %s carries %T", msg.ID, msg.Payload)
	}

	if !t.resolvePending(result) {
		t.recorder.RecordDroppedResult(result.CallID)
		t.logger.DebugContext(
			ctx,
			"dropping result with no waiting call",
			slog.String("transport", t.name),
			slog.String("call_id", result.CallID),
			slog.String("from", msg.Sender),
		)
	}
	return nil, nil
}

func (t *Transport) cleanupLoop(interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			if removed := t.CleanupPendingCalls(maxAge); removed > 0 {
				t.logger.DebugContext(
					t.ctx,
					"swept abandoned pending calls",
					slog.String("transport", t.name),
					slog.Int("removed", removed),
				)
			}
		}
	}
}
