package presence

import (
	"meet-hub/domain"
	"meet-hub/errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Join_One_Meeting_One_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	meetingID := domain.MeetingID(uuid.NewString())
	alice := domain.User{ID: "u1", Username: "alice", FullName: "Alice A"}

	// Given an empty meeting
	req.Empty(registry.Snapshot(meetingID))

	// When a user joins
	registry.Join(meetingID, alice, domain.DefaultMediaFlags())

	// Then the snapshot contains one entry with default flags
	snapshot := registry.Snapshot(meetingID)
	req.Len(snapshot, 1)
	req.Equal(alice, snapshot[0].User)
	req.True(snapshot[0].IsAudioEnabled)
	req.True(snapshot[0].IsVideoEnabled)
	req.False(snapshot[0].IsScreenSharing)
}

func TestRegistry_Snapshot_Keeps_Join_Order(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	meetingID := domain.MeetingID(uuid.NewString())

	registry.Join(meetingID, domain.User{ID: "u1", Username: "alice"}, domain.DefaultMediaFlags())
	registry.Join(meetingID, domain.User{ID: "u2", Username: "bob"}, domain.DefaultMediaFlags())
	registry.Join(meetingID, domain.User{ID: "u3", Username: "clara"}, domain.DefaultMediaFlags())

	snapshot := registry.Snapshot(meetingID)
	req.Len(snapshot, 3)
	req.Equal("alice", snapshot[0].User.Username)
	req.Equal("bob", snapshot[1].User.Username)
	req.Equal("clara", snapshot[2].User.Username)
}

func TestRegistry_Second_Tab_Does_Not_Duplicate_Entry(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	meetingID := domain.MeetingID(uuid.NewString())
	alice := domain.User{ID: "u1", Username: "alice"}

	// Given alice is connected twice
	registry.Join(meetingID, alice, domain.DefaultMediaFlags())
	registry.Join(meetingID, alice, domain.DefaultMediaFlags())

	req.Len(registry.Snapshot(meetingID), 1)

	// When the first tab closes
	departed := registry.Leave(meetingID, alice.ID)

	// Then alice is still present
	req.False(departed)
	req.Len(registry.Snapshot(meetingID), 1)

	// When the last tab closes
	departed = registry.Leave(meetingID, alice.ID)

	// Then alice is gone
	req.True(departed)
	req.Empty(registry.Snapshot(meetingID))
}

func TestRegistry_Leave_Unknown_User_Is_A_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	meetingID := domain.MeetingID(uuid.NewString())

	req.False(registry.Leave(meetingID, "nobody"))

	registry.Join(meetingID, domain.User{ID: "u1", Username: "alice"}, domain.DefaultMediaFlags())
	req.False(registry.Leave(meetingID, "nobody"))
	req.Len(registry.Snapshot(meetingID), 1)
}

func TestRegistry_SetFlag_Mutates_One_Toggle(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	meetingID := domain.MeetingID(uuid.NewString())
	alice := domain.User{ID: "u1", Username: "alice"}
	registry.Join(meetingID, alice, domain.DefaultMediaFlags())

	// When muting alice's audio
	err := registry.SetFlag(meetingID, alice.ID, domain.FlagAudio, false)
	req.NoError(err)

	// Then only the audio toggle changed
	snapshot := registry.Snapshot(meetingID)
	req.False(snapshot[0].IsAudioEnabled)
	req.True(snapshot[0].IsVideoEnabled)
	req.False(snapshot[0].IsScreenSharing)
}

func TestRegistry_SetFlag_Unknown_User_Or_Flag(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	meetingID := domain.MeetingID(uuid.NewString())
	alice := domain.User{ID: "u1", Username: "alice"}
	registry.Join(meetingID, alice, domain.DefaultMediaFlags())

	err := registry.SetFlag(meetingID, "nobody", domain.FlagAudio, false)
	req.ErrorIs(err, errors.ErrUserNotFound)

	err = registry.SetFlag(meetingID, alice.ID, domain.PresenceFlag("is_flying"), true)
	req.ErrorIs(err, errors.ErrUnknownFlag)
}

func TestRegistry_Meetings_Are_Isolated(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	meetingA := domain.MeetingID(uuid.NewString())
	meetingB := domain.MeetingID(uuid.NewString())

	registry.Join(meetingA, domain.User{ID: "u1", Username: "alice"}, domain.DefaultMediaFlags())

	req.Len(registry.Snapshot(meetingA), 1)
	req.Empty(registry.Snapshot(meetingB))
}
