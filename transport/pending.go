package transport

import (
	"fmt"
	"time"

	"github.com/agent-fabric/fabric/core/protocol"
)

// pendingCall is the waiting side of an in-flight tool call. The result
// channel is buffered so resolution never blocks on the waiter, and the
// resolved flag guarantees at most one send ever happens.
type pendingCall struct {
	callID    string
	toolName  string
	result    chan *protocol.ToolResult
	createdAt time.Time
	resolved  bool
}

// addPending inserts a correlation entry before the call envelope is
// enqueued, closing the window where a fast result could arrive with no
// waiter registered. A CallID that is already in flight is rejected.
func (t *Transport) addPending(call *protocol.ToolCall) (*pendingCall, error) {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()

	if _, exists := t.pending[call.CallID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCallID, call.CallID)
	}

	entry := &pendingCall{
		callID:    call.CallID,
		toolName:  call.ToolName,
		result:    make(chan *protocol.ToolResult, 1),
		createdAt: time.Now(),
	}
	t.pending[call.CallID] = entry
	return entry, nil
}

// resolvePending delivers a result to its waiting call. It returns false
// when no unresolved entry exists, which covers both results for unknown
// calls and duplicate results for calls already answered. The entry
// stays in the map until the waiter collects it.
func (t *Transport) resolvePending(result *protocol.ToolResult) bool {
	t.pendingMu.Lock()
	entry, exists := t.pending[result.CallID]
	if !exists || entry.resolved {
		t.pendingMu.Unlock()
		return false
	}
	entry.resolved = true
	t.pendingMu.Unlock()

	// Single send into a buffered channel, guarded by resolved above.
	entry.result <- result
	return true
}

// removePending drops the correlation entry for a call, if any.
func (t *Transport) removePending(callID string) {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	delete(t.pending, callID)
}

// takeResolved removes the entry for a call and, when it was resolved
// concurrently, collects the buffered result. SendToolCall uses it on
// the timeout and cancellation paths so a result that raced the deadline
// is returned instead of discarded.
func (t *Transport) takeResolved(callID string) (*protocol.ToolResult, bool) {
	t.pendingMu.Lock()
	entry, exists := t.pending[callID]
	if exists {
		delete(t.pending, callID)
	}
	t.pendingMu.Unlock()

	if !exists || !entry.resolved {
		return nil, false
	}
	// resolved means the send already happened or is about to.
	return <-entry.result, true
}

// CleanupPendingCalls removes resolved entries older than maxAge and
// returns how many were dropped. Unresolved entries are never touched:
// their waiters own removal through the timeout and cancellation paths.
// The sweeper is a backstop for callers that abandoned a resolved entry
// without collecting it.
func (t *Transport) CleanupPendingCalls(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()

	removed := 0
	for callID, entry := range t.pending {
		if entry.resolved && entry.createdAt.Before(cutoff) {
			delete(t.pending, callID)
			removed++
		}
	}
	return removed
}

// PendingCalls returns the number of in-flight correlation entries.
func (t *Transport) PendingCalls() int {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	return len(t.pending)
}
