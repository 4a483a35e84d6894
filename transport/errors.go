package transport

import "errors"

// Sentinel errors for the transport.
var (
	ErrTimeout         = errors.New("tool call timed out")
	ErrDuplicateCallID = errors.New("call ID already in flight")
	ErrNoHandler       = errors.New("no handler registered for message type")
	ErrShutdown        = errors.New("transport is shut down")
	ErrChannelClosed   = errors.New("message channel closed")
)
