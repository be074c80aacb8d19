package hub

import (
	"context"
	"log/slog"
	"meet-hub/contract"
	"meet-hub/domain"
	"meet-hub/domain/event"
	"meet-hub/errors"
	"meet-hub/observability"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// recordingSink remembers everything it consumed.
type recordingSink struct {
	events []event.Event
}

func (s *recordingSink) Consume(_ context.Context, e event.Event) error {
	s.events = append(s.events, e)
	return nil
}

// droppingSink simulates a full subscriber buffer.
type droppingSink struct {
	drops int
}

func (s *droppingSink) Consume(context.Context, event.Event) error {
	s.drops++
	return errors.ErrDeliveryDropped
}

func newTestHub() *Hub {
	return New(slog.Default(), observability.NewMetrics(slog.Default()), DefaultShardCount)
}

func TestHub_Broadcast_One_Meeting_Multiple_Connections(t *testing.T) {
	req := require.New(t)
	h := newTestHub()
	meetingID := domain.MeetingID(uuid.NewString())
	connA := domain.ConnectionID("conn-a")
	connB := domain.ConnectionID("conn-b")
	sinkA := &recordingSink{}
	sinkB := &recordingSink{}

	// Given two connections registered for the same meeting
	h.Register(meetingID, connA, "alice", sinkA)
	h.Register(meetingID, connB, "bob", sinkB)
	req.Len(h.MembersOf(meetingID), 2)

	// When broadcasting with no exclusion
	evt := event.ErrorRaised{Meeting: meetingID, Code: "internal"}
	h.Broadcast(context.Background(), meetingID, evt, "")

	// Then everyone received it
	req.Len(sinkA.events, 1)
	req.Len(sinkB.events, 1)
	req.Equal(evt, sinkA.events[0])
}

func TestHub_Broadcast_Excludes_One_Connection(t *testing.T) {
	req := require.New(t)
	h := newTestHub()
	meetingID := domain.MeetingID(uuid.NewString())
	connA := domain.ConnectionID("conn-a")
	connB := domain.ConnectionID("conn-b")
	sinkA := &recordingSink{}
	sinkB := &recordingSink{}

	h.Register(meetingID, connA, "alice", sinkA)
	h.Register(meetingID, connB, "bob", sinkB)

	// When broadcasting with connA excluded
	h.Broadcast(context.Background(), meetingID, event.ErrorRaised{Meeting: meetingID}, connA)

	// Then only connB received it
	req.Empty(sinkA.events)
	req.Len(sinkB.events, 1)
}

func TestHub_Broadcast_Does_Not_Cross_Meetings(t *testing.T) {
	req := require.New(t)
	h := newTestHub()
	meetingA := domain.MeetingID(uuid.NewString())
	meetingB := domain.MeetingID(uuid.NewString())
	sinkA := &recordingSink{}
	sinkB := &recordingSink{}

	h.Register(meetingA, "conn-a", "alice", sinkA)
	h.Register(meetingB, "conn-b", "bob", sinkB)

	h.Broadcast(context.Background(), meetingA, event.ErrorRaised{Meeting: meetingA}, "")

	req.Len(sinkA.events, 1)
	req.Empty(sinkB.events)
}

func TestHub_DeliverTo_Reaches_All_Connections_Of_One_User(t *testing.T) {
	req := require.New(t)
	h := newTestHub()
	meetingID := domain.MeetingID(uuid.NewString())
	tab1 := &recordingSink{}
	tab2 := &recordingSink{}
	other := &recordingSink{}

	// Given alice holds two tabs and bob one
	h.Register(meetingID, "conn-1", "alice", tab1)
	h.Register(meetingID, "conn-2", "alice", tab2)
	h.Register(meetingID, "conn-3", "bob", other)

	// When delivering to alice only
	h.DeliverTo(context.Background(), meetingID, "alice", event.ErrorRaised{Meeting: meetingID})

	// Then both of alice's tabs got it, bob got nothing
	req.Len(tab1.events, 1)
	req.Len(tab2.events, 1)
	req.Empty(other.events)
}

func TestHub_Register_Same_Connection_Twice_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	h := newTestHub()
	meetingID := domain.MeetingID(uuid.NewString())
	s := &recordingSink{}

	h.Register(meetingID, "conn-a", "alice", s)
	h.Register(meetingID, "conn-a", "alice", s)

	req.Len(h.MembersOf(meetingID), 1)

	h.Broadcast(context.Background(), meetingID, event.ErrorRaised{Meeting: meetingID}, "")
	req.Len(s.events, 1)
}

func TestHub_Deregister_Last_Member_Removes_Group(t *testing.T) {
	req := require.New(t)
	h := newTestHub()
	meetingID := domain.MeetingID(uuid.NewString())

	h.Register(meetingID, "conn-a", "alice", &recordingSink{})
	req.Len(h.MembersOf(meetingID), 1)

	h.Deregister(meetingID, "conn-a")
	req.Empty(h.MembersOf(meetingID))

	// Deregistering again must stay a no-op
	h.Deregister(meetingID, "conn-a")
	req.Empty(h.MembersOf(meetingID))
}

func TestHub_Slow_Subscriber_Only_Loses_Its_Own_Events(t *testing.T) {
	req := require.New(t)
	metrics := observability.NewMetrics(slog.Default())
	h := New(slog.Default(), metrics, DefaultShardCount)
	meetingID := domain.MeetingID(uuid.NewString())
	slow := &droppingSink{}
	fast := &recordingSink{}

	h.Register(meetingID, "conn-slow", "alice", slow)
	h.Register(meetingID, "conn-fast", "bob", fast)

	// When broadcasting while one subscriber's buffer is full
	h.Broadcast(context.Background(), meetingID, event.ErrorRaised{Meeting: meetingID}, "")

	// Then the fast subscriber still received the event
	// And the drop was counted
	req.Len(fast.events, 1)
	req.Equal(1, slow.drops)
	req.Equal(uint64(1), metrics.DeliveriesDropped.Load())
}

var _ contract.EventSink = &recordingSink{}
