// Package event defines the closed set of events flowing through a
// meeting's broadcast group. Dispatch is a tagged union, not a string
// routed map: every consumer switches exhaustively over these types.
package event

import (
	"encoding/json"

	"meet-hub/domain"
)

type Event interface {
	MeetingID() domain.MeetingID
}

// ChatMessagePosted carries a chat message that has already been
// persisted. Fan-out never precedes a successful append.
type ChatMessagePosted struct {
	Message domain.ChatMessage
}

func (e ChatMessagePosted) MeetingID() domain.MeetingID {
	return e.Message.Meeting
}

// ParticipantUpdated relays the opaque participant payload sent by a
// client after a media toggle. The hub does not interpret it beyond
// extracting known flags for the presence registry.
type ParticipantUpdated struct {
	Meeting     domain.MeetingID
	Participant json.RawMessage
}

func (e ParticipantUpdated) MeetingID() domain.MeetingID {
	return e.Meeting
}

// SignalRelayed is an ephemeral WebRTC signaling envelope. It is never
// persisted and the payload is never inspected.
type SignalRelayed struct {
	Meeting domain.MeetingID
	Signal  json.RawMessage
	Target  string // target user ID, empty for broadcast
	Sender  string // sender username, empty for anonymous
}

func (e SignalRelayed) MeetingID() domain.MeetingID {
	return e.Meeting
}

// ParticipantsListed is the full presence snapshot of a meeting,
// emitted after every join and leave.
type ParticipantsListed struct {
	Meeting      domain.MeetingID
	Participants []domain.Presence
}

func (e ParticipantsListed) MeetingID() domain.MeetingID {
	return e.Meeting
}

// ErrorRaised is delivered to a single connection, never broadcast.
// It surfaces intent-level failures such as an unreachable store.
type ErrorRaised struct {
	Meeting domain.MeetingID
	Code    string
	Detail  string
}

func (e ErrorRaised) MeetingID() domain.MeetingID {
	return e.Meeting
}
