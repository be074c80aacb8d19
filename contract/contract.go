//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"meet-hub/domain"
	"meet-hub/domain/event"

	"github.com/google/uuid"
)

// EventSink is one subscriber's bounded outbound channel. Consume must
// never block the caller: a full sink reports ErrDeliveryDropped and
// the event is lost for that subscriber only.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IHub is the per-meeting broadcast group coordinator.
type IHub interface {
	// Register adds a connection to the meeting's group, creating the
	// group on first use. Idempotent per connection ID.
	Register(meetingID domain.MeetingID, connID domain.ConnectionID, userID string, sink EventSink)
	// Deregister removes the connection; an emptied group is deleted.
	Deregister(meetingID domain.MeetingID, connID domain.ConnectionID)
	// Broadcast delivers e to every registered connection except
	// exclude (empty means no exclusion). Best-effort per sink.
	Broadcast(ctx context.Context, meetingID domain.MeetingID, e event.Event, exclude domain.ConnectionID)
	// DeliverTo delivers e only to the connections owned by userID.
	DeliverTo(ctx context.Context, meetingID domain.MeetingID, userID string, e event.Event)
	MembersOf(meetingID domain.MeetingID) []domain.ConnectionID
}

// IPresence tracks who is connected to a meeting and their media
// toggles. Per user, not per connection.
type IPresence interface {
	Join(meetingID domain.MeetingID, user domain.User, flags domain.MediaFlags)
	// Leave decrements the user's connection count and reports whether
	// the entry was removed (last connection gone).
	Leave(meetingID domain.MeetingID, userID string) bool
	SetFlag(meetingID domain.MeetingID, userID string, flag domain.PresenceFlag, value bool) error
	// Snapshot returns entries in insertion order of first join.
	Snapshot(meetingID domain.MeetingID) []domain.Presence
}

// IMessageRepository is the durable, append-only record of chat traffic.
type IMessageRepository interface {
	Append(msg domain.ChatMessage) error
	ListVisibleTo(meetingID domain.MeetingID, userID string, limit int) ([]domain.ChatMessage, error)
	MarkRead(meetingID domain.MeetingID, messageID uuid.UUID) error
}

// IDirectory is the session layer's view of the external meeting
// management module. It owns the relational record; the hub only asks.
type IDirectory interface {
	GetMeeting(ctx context.Context, meetingID domain.MeetingID) (domain.Meeting, error)
	IsParticipant(ctx context.Context, meetingID domain.MeetingID, userID string) (bool, error)
	ResolveUser(ctx context.Context, userID string) (domain.User, error)
}

// IVerifier is the external lobby gate (face match, captcha,
// fullscreen). The session layer only consumes the pass/fail decision.
type IVerifier interface {
	IsVerified(ctx context.Context, meetingID domain.MeetingID, userID string) (bool, error)
}

// VerifierFunc adapts a function to IVerifier.
type VerifierFunc func(ctx context.Context, meetingID domain.MeetingID, userID string) (bool, error)

func (f VerifierFunc) IsVerified(ctx context.Context, meetingID domain.MeetingID, userID string) (bool, error) {
	return f(ctx, meetingID, userID)
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
