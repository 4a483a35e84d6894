package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type eventKind int

const (
	eventCallStart eventKind = iota
	eventCallEnd
	eventMessageRouted
	eventRoutingFailure
	eventDroppedResult
	eventDiscoveryRequest
	eventFlush
)

type event struct {
	kind        eventKind
	at          time.Time
	callID      string
	toolName    string
	fromAgent   string
	toAgent     string
	success     bool
	errMsg      string
	messageType string
	requester   string
	ack         chan struct{}
}

type inflightCall struct {
	toolName  string
	fromAgent string
	toAgent   string
	startedAt time.Time
}

// Monitor aggregates per-tool and fabric-wide call statistics. Record
// methods enqueue onto a buffered channel consumed by a single worker
// goroutine; when the queue is full the event is dropped and counted, so
// recording never blocks a caller and never changes a call's outcome.
type Monitor struct {
	logger        *slog.Logger
	latencyWindow int

	events        chan event
	droppedEvents atomic.Int64

	mu                sync.Mutex
	inflight          map[string]inflightCall
	tools             map[string]*toolAggregate
	latencies         []time.Duration
	interactions      map[string]int64
	messagesRouted    int64
	routingFailures   int64
	droppedResults    int64
	discoveryRequests int64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Monitor and starts its worker goroutine. Call Close to
// stop it.
func New(cfg Config) *Monitor {
	defaults := DefaultConfig()
	defaults.Merge(&cfg)

	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		logger:        defaults.Logger,
		latencyWindow: defaults.LatencyWindow,
		events:        make(chan event, defaults.BufferSize),
		inflight:      make(map[string]inflightCall),
		tools:         make(map[string]*toolAggregate),
		interactions:  make(map[string]int64),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	go m.run()

	return m
}

// RecordCallStart marks a tool call as in flight. Latency is measured
// between this record and the matching RecordCallEnd.
func (m *Monitor) RecordCallStart(callID, toolName, fromAgent, toAgent string) {
	m.enqueue(event{
		kind:      eventCallStart,
		at:        time.Now(),
		callID:    callID,
		toolName:  toolName,
		fromAgent: fromAgent,
		toAgent:   toAgent,
	})
}

// RecordCallEnd completes an in-flight call. An end without a matching
// start is logged and ignored.
func (m *Monitor) RecordCallEnd(callID string, success bool, errMsg string) {
	m.enqueue(event{
		kind:    eventCallEnd,
		at:      time.Now(),
		callID:  callID,
		success: success,
		errMsg:  errMsg,
	})
}

// RecordMessageRouted counts one successfully routed envelope.
func (m *Monitor) RecordMessageRouted(messageType string) {
	m.enqueue(event{kind: eventMessageRouted, at: time.Now(), messageType: messageType})
}

// RecordRoutingFailure counts an envelope that could not be dispatched.
func (m *Monitor) RecordRoutingFailure(messageType string) {
	m.enqueue(event{kind: eventRoutingFailure, at: time.Now(), messageType: messageType})
}

// RecordDroppedResult counts a tool result that arrived after its caller
// stopped waiting.
func (m *Monitor) RecordDroppedResult(callID string) {
	m.enqueue(event{kind: eventDroppedResult, at: time.Now(), callID: callID})
}

// RecordDiscoveryRequest counts one served discovery query.
func (m *Monitor) RecordDiscoveryRequest(requester string) {
	m.enqueue(event{kind: eventDiscoveryRequest, at: time.Now(), requester: requester})
}

// DroppedEvents returns how many records were discarded because the event
// queue was full.
func (m *Monitor) DroppedEvents() int64 {
	return m.droppedEvents.Load()
}

// Flush blocks until every event enqueued before the call has been
// applied. Intended for tests and shutdown sequencing.
func (m *Monitor) Flush() {
	ack := make(chan struct{})
	select {
	case m.events <- event{kind: eventFlush, ack: ack}:
	case <-m.ctx.Done():
		return
	}
	select {
	case <-ack:
	case <-m.ctx.Done():
	}
}

// Reset clears all aggregates. Events already queued but not yet consumed
// still apply afterwards; call Flush first for full isolation.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inflight = make(map[string]inflightCall)
	m.tools = make(map[string]*toolAggregate)
	m.latencies = nil
	m.interactions = make(map[string]int64)
	m.messagesRouted = 0
	m.routingFailures = 0
	m.droppedResults = 0
	m.discoveryRequests = 0
	m.droppedEvents.Store(0)
}

// Close stops the worker goroutine. Events still queued when Close is
// called are discarded. Safe to call more than once.
func (m *Monitor) Close() {
	m.cancel()
	<-m.done
}

func (m *Monitor) enqueue(ev event) {
	select {
	case m.events <- ev:
	default:
		m.droppedEvents.Add(1)
	}
}

func (m *Monitor) run() {
	defer close(m.done)

	for {
		select {
		case <-m.ctx.Done():
			return
		case ev := <-m.events:
			m.apply(ev)
		}
	}
}

func (m *Monitor) apply(ev event) {
	if ev.kind == eventFlush {
		close(ev.ack)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.kind {
	case eventCallStart:
		m.inflight[ev.callID] = inflightCall{
			toolName:  ev.toolName,
			fromAgent: ev.fromAgent,
			toAgent:   ev.toAgent,
			startedAt: ev.at,
		}
		m.interactions[ev.fromAgent+"->"+ev.toAgent]++

	case eventCallEnd:
		call, exists := m.inflight[ev.callID]
		if !exists {
			m.logger.DebugContext(
				m.ctx,
				"call end without matching start",
				slog.String("call_id", ev.callID),
			)
			return
		}
		delete(m.inflight, ev.callID)

		duration := ev.at.Sub(call.startedAt)
		agg, exists := m.tools[call.toolName]
		if !exists {
			agg = &toolAggregate{}
			m.tools[call.toolName] = agg
		}
		agg.record(duration, ev.success)
		// Only the newest LatencyWindow durations feed the median.
		m.latencies = append(m.latencies, duration)
		if len(m.latencies) > m.latencyWindow {
			m.latencies = m.latencies[len(m.latencies)-m.latencyWindow:]
		}

		if !ev.success {
			m.logger.DebugContext(
				m.ctx,
				"tool call failed",
				slog.String("call_id", ev.callID),
				slog.String("tool", call.toolName),
				slog.String("error", ev.errMsg),
			)
		}

	case eventMessageRouted:
		m.messagesRouted++

	case eventRoutingFailure:
		m.routingFailures++

	case eventDroppedResult:
		m.droppedResults++
		m.logger.DebugContext(
			m.ctx,
			"late result dropped",
			slog.String("call_id", ev.callID),
		)

	case eventDiscoveryRequest:
		m.discoveryRequests++
	}
}
