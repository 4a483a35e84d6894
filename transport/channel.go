package transport

import (
	"context"
	"sync"
)

// MessageChannel is the transport's buffered delivery queue. Send and
// Receive unblock when the caller's context or the channel's own
// context is cancelled, so producers never hang on a dead consumer.
//
// Close marks the channel closed without closing the underlying Go
// channel: a late Send gets ErrChannelClosed instead of a panic, and
// queued messages stay drainable through TryReceive, which reports
// ok=false once the queue is empty rather than handing out zero
// values.
type MessageChannel[T any] struct {
	queue     chan T
	ctx       context.Context
	closed    chan struct{}
	closeOnce sync.Once
}

// NewMessageChannel creates a channel holding up to bufferSize queued
// messages, bound to ctx for its lifetime.
func NewMessageChannel[T any](ctx context.Context, bufferSize int) *MessageChannel[T] {
	return &MessageChannel[T]{
		queue:  make(chan T, bufferSize),
		ctx:    ctx,
		closed: make(chan struct{}),
	}
}

// Send enqueues a message, blocking while the queue is full.
func (mc *MessageChannel[T]) Send(ctx context.Context, message T) error {
	select {
	case <-mc.closed:
		return ErrChannelClosed
	default:
	}

	select {
	case mc.queue <- message:
		return nil
	case <-mc.closed:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-mc.ctx.Done():
		return mc.ctx.Err()
	}
}

// Receive dequeues the next message, blocking while the queue is
// empty. After Close it may report ErrChannelClosed while messages
// remain queued; draining a closed channel is TryReceive's job.
func (mc *MessageChannel[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	select {
	case message := <-mc.queue:
		return message, nil
	case <-mc.closed:
		return zero, ErrChannelClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-mc.ctx.Done():
		return zero, mc.ctx.Err()
	}
}

// TryReceive dequeues without blocking, reporting ok=false when the
// queue is empty.
func (mc *MessageChannel[T]) TryReceive() (T, bool) {
	select {
	case message := <-mc.queue:
		return message, true
	default:
		var zero T
		return zero, false
	}
}

// Close stops further sends. Idempotent.
func (mc *MessageChannel[T]) Close() {
	mc.closeOnce.Do(func() { close(mc.closed) })
}
