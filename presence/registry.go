// Package presence tracks which users are connected to a meeting and
// their media toggles. State is in-memory only: it describes live
// connections and does not survive a restart.
package presence

import (
	"hash/fnv"
	"sync"
	"time"

	"meet-hub/domain"
	"meet-hub/errors"
)

const defaultShardCount = 32

// entry refcounts connections so a user with two tabs keeps a single
// presence record until the last tab goes away.
type entry struct {
	presence domain.Presence
	conns    int
}

// roster is one meeting's presence state. order keeps first-join
// insertion order for deterministic client rendering.
type roster struct {
	entries map[string]*entry
	order   []string
}

type shard struct {
	mu      sync.Mutex
	rosters map[domain.MeetingID]*roster
}

type Registry struct {
	shards []*shard
	now    func() time.Time
}

func NewRegistry() *Registry {
	shards := make([]*shard, defaultShardCount)
	for i := range shards {
		shards[i] = &shard{rosters: make(map[domain.MeetingID]*roster)}
	}
	return &Registry{shards: shards, now: time.Now}
}

func (r *Registry) shardFor(meetingID domain.MeetingID) *shard {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(meetingID))
	return r.shards[hasher.Sum32()%uint32(len(r.shards))]
}

// Join registers a connection of user in the meeting. The first
// connection creates the entry with the given flags; later ones bump
// the refcount and refresh the flags rather than duplicating.
func (r *Registry) Join(meetingID domain.MeetingID, user domain.User, flags domain.MediaFlags) {
	s := r.shardFor(meetingID)
	s.mu.Lock()
	defer s.mu.Unlock()

	ro, ok := s.rosters[meetingID]
	if !ok {
		ro = &roster{entries: make(map[string]*entry)}
		s.rosters[meetingID] = ro
	}

	if e, ok := ro.entries[user.ID]; ok {
		e.conns++
		e.presence.IsAudioEnabled = flags.Audio
		e.presence.IsVideoEnabled = flags.Video
		e.presence.IsScreenSharing = flags.ScreenShare
		return
	}
	ro.entries[user.ID] = &entry{
		presence: domain.NewPresence(user, flags, r.now().UTC()),
		conns:    1,
	}
	ro.order = append(ro.order, user.ID)
}

// Leave drops one connection of the user. It reports true when the
// entry was removed, meaning remaining members should be told the user
// is gone. Hard-deleted, never soft-deleted. Unknown users are a no-op
// so concurrent disconnect paths stay idempotent.
func (r *Registry) Leave(meetingID domain.MeetingID, userID string) bool {
	s := r.shardFor(meetingID)
	s.mu.Lock()
	defer s.mu.Unlock()

	ro, ok := s.rosters[meetingID]
	if !ok {
		return false
	}
	e, ok := ro.entries[userID]
	if !ok {
		return false
	}
	e.conns--
	if e.conns > 0 {
		return false
	}

	delete(ro.entries, userID)
	for i, id := range ro.order {
		if id == userID {
			ro.order = append(ro.order[:i], ro.order[i+1:]...)
			break
		}
	}
	if len(ro.entries) == 0 {
		delete(s.rosters, meetingID)
	}
	return true
}

// SetFlag mutates a single media toggle in place.
func (r *Registry) SetFlag(meetingID domain.MeetingID, userID string, flag domain.PresenceFlag, value bool) error {
	s := r.shardFor(meetingID)
	s.mu.Lock()
	defer s.mu.Unlock()

	ro, ok := s.rosters[meetingID]
	if !ok {
		return errors.ErrUserNotFound
	}
	e, ok := ro.entries[userID]
	if !ok {
		return errors.ErrUserNotFound
	}
	if !e.presence.Set(flag, value) {
		return errors.ErrUnknownFlag
	}
	return nil
}

// Snapshot returns the meeting's presence entries in first-join order.
func (r *Registry) Snapshot(meetingID domain.MeetingID) []domain.Presence {
	s := r.shardFor(meetingID)
	s.mu.Lock()
	defer s.mu.Unlock()

	ro, ok := s.rosters[meetingID]
	if !ok {
		return nil
	}
	out := make([]domain.Presence, 0, len(ro.order))
	for _, id := range ro.order {
		out = append(out, ro.entries[id].presence)
	}
	return out
}
