package sink

import (
	"context"
	"testing"

	"meet-hub/domain/event"
	"meet-hub/errors"

	"github.com/stretchr/testify/require"
)

func TestConnSink_Buffers_Then_Drops(t *testing.T) {
	req := require.New(t)
	s := NewConnSink(2)
	evt := event.ErrorRaised{Meeting: "m1"}

	// Given two events fit the buffer
	req.NoError(s.Consume(context.Background(), evt))
	req.NoError(s.Consume(context.Background(), evt))

	// When a third arrives with no reader draining
	err := s.Consume(context.Background(), evt)

	// Then it is dropped, not blocked on
	req.ErrorIs(err, errors.ErrDeliveryDropped)
	req.Len(s.Events, 2)
}

func TestConnSink_Closed_Sink_Drops_Immediately(t *testing.T) {
	req := require.New(t)
	s := NewConnSink(2)
	s.Close()

	err := s.Consume(context.Background(), event.ErrorRaised{Meeting: "m1"})
	req.ErrorIs(err, errors.ErrDeliveryDropped)

	// Close is idempotent
	s.Close()
}

func TestConnSink_Canceled_Context(t *testing.T) {
	req := require.New(t)
	s := NewConnSink(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// An unbuffered sink with a dead context drops rather than waits
	err := s.Consume(ctx, event.ErrorRaised{Meeting: "m1"})
	req.Error(err)
}
