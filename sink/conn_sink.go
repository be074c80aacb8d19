// Package sink provides the bounded outbound channel owned by each
// connection. Backpressure is absorbed here, per subscriber, and never
// propagated to the broadcaster.
package sink

import (
	"context"
	"sync"

	"meet-hub/domain/event"
	"meet-hub/errors"
)

// ConnSink buffers events on their way to one client socket. The
// connection's writer goroutine drains Events; the hub feeds it.
type ConnSink struct {
	Events chan event.Event

	closeOnce sync.Once
	closed    chan struct{}
}

func NewConnSink(bufferSize int) *ConnSink {
	return &ConnSink{
		Events: make(chan event.Event, bufferSize),
		closed: make(chan struct{}),
	}
}

// Consume is called by the hub during fan-out. It hands the event to
// the connection's writer through the buffered channel. A full channel
// means this subscriber is too slow: the event is dropped and the
// caller is told, so the broadcaster never blocks.
func (s *ConnSink) Consume(ctx context.Context, e event.Event) error {
	select {
	case <-s.closed:
		return errors.ErrDeliveryDropped
	default:
	}
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrDeliveryDropped
	}
}

// Close makes all future Consume calls drop immediately. Safe to call
// concurrently with in-flight deliveries and more than once.
func (s *ConnSink) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}
