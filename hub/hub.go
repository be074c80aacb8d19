// Package hub implements the per-meeting broadcast groups. Membership
// is sharded by meeting ID so traffic in one meeting never contends on
// the locks of another.
package hub

import (
	"context"
	std "errors"
	"hash/fnv"
	"log/slog"
	"sync"

	"meet-hub/contract"
	"meet-hub/domain"
	"meet-hub/domain/event"
	"meet-hub/errors"
	"meet-hub/observability"
)

const DefaultShardCount = 32

type member struct {
	userID string
	sink   contract.EventSink
}

// group is one meeting's membership set. sendMu serializes fan-out so
// all members observe the same relative event order for the meeting;
// it is separate from the shard lock, so a broadcast in flight never
// holds up registration or deregistration.
type group struct {
	sendMu  sync.Mutex
	members map[domain.ConnectionID]member
}

type shard struct {
	mu     sync.RWMutex
	groups map[domain.MeetingID]*group
}

// Hub coordinates fan-out for all active meetings.
type Hub struct {
	shards  []*shard
	log     *slog.Logger
	metrics *observability.Metrics
}

func New(log *slog.Logger, metrics *observability.Metrics, shardCount int) *Hub {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}
	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{groups: make(map[domain.MeetingID]*group)}
	}
	return &Hub{shards: shards, log: log, metrics: metrics}
}

func (h *Hub) shardFor(meetingID domain.MeetingID) *shard {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(meetingID))
	return h.shards[hasher.Sum32()%uint32(len(h.shards))]
}

// Register adds the connection to the meeting's group, creating the
// group on first membership. Re-registering the same connection only
// refreshes its sink, it never duplicates membership.
func (h *Hub) Register(meetingID domain.MeetingID, connID domain.ConnectionID, userID string, sink contract.EventSink) {
	s := h.shardFor(meetingID)
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[meetingID]
	if !ok {
		g = &group{members: make(map[domain.ConnectionID]member)}
		s.groups[meetingID] = g
	}
	g.members[connID] = member{userID: userID, sink: sink}
}

// Deregister removes the connection. The last member leaving takes the
// group with it, so idle meetings hold no hub state. Safe to call for
// a connection that was never, or is no longer, registered.
func (h *Hub) Deregister(meetingID domain.MeetingID, connID domain.ConnectionID) {
	s := h.shardFor(meetingID)
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[meetingID]
	if !ok {
		return
	}
	delete(g.members, connID)
	if len(g.members) == 0 {
		delete(s.groups, meetingID)
	}
}

// Broadcast delivers e to every registered connection of the meeting
// except exclude. The membership snapshot is taken under the shard
// lock and delivery happens after its release; each delivery is a
// non-blocking send, so one slow subscriber only loses its own events.
func (h *Hub) Broadcast(ctx context.Context, meetingID domain.MeetingID, e event.Event, exclude domain.ConnectionID) {
	g, targets := h.snapshot(meetingID, exclude, "")
	if g == nil {
		return
	}
	h.deliver(ctx, g, meetingID, e, targets)
}

// DeliverTo delivers e only to the connections owned by userID. Used
// for private messages and targeted signaling so the payload never
// reaches uninvolved group members.
func (h *Hub) DeliverTo(ctx context.Context, meetingID domain.MeetingID, userID string, e event.Event) {
	g, targets := h.snapshot(meetingID, "", userID)
	if g == nil {
		return
	}
	h.deliver(ctx, g, meetingID, e, targets)
}

// MembersOf returns the connection IDs currently registered for the
// meeting, in no particular order.
func (h *Hub) MembersOf(meetingID domain.MeetingID) []domain.ConnectionID {
	s := h.shardFor(meetingID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[meetingID]
	if !ok {
		return nil
	}
	ids := make([]domain.ConnectionID, 0, len(g.members))
	for id := range g.members {
		ids = append(ids, id)
	}
	return ids
}

// snapshot collects the target sinks under the shard read lock.
// exclude skips one connection; onlyUser restricts to one user's
// connections. Both filters empty means everyone.
func (h *Hub) snapshot(meetingID domain.MeetingID, exclude domain.ConnectionID, onlyUser string) (*group, []contract.EventSink) {
	s := h.shardFor(meetingID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[meetingID]
	if !ok {
		return nil, nil
	}
	sinks := make([]contract.EventSink, 0, len(g.members))
	for id, m := range g.members {
		if exclude != "" && id == exclude {
			continue
		}
		if onlyUser != "" && m.userID != onlyUser {
			continue
		}
		sinks = append(sinks, m.sink)
	}
	return g, sinks
}

func (h *Hub) deliver(ctx context.Context, g *group, meetingID domain.MeetingID, e event.Event, sinks []contract.EventSink) {
	g.sendMu.Lock()
	defer g.sendMu.Unlock()

	h.metrics.EventsBroadcast.Add(1)
	for _, s := range sinks {
		if err := s.Consume(ctx, e); err != nil {
			if std.Is(err, errors.ErrDeliveryDropped) {
				h.metrics.DeliveriesDropped.Add(1)
				h.log.Debug("event dropped for slow subscriber", "meeting_id", meetingID)
				continue
			}
			h.log.Debug("delivery aborted", "meeting_id", meetingID, "error", err)
		}
	}
}
