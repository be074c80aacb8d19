// Package domain contains core concepts of the meeting session layer.
// This file defines chat messages and related rules.
// Messages are immutable once persisted, except for the read flag.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageKind string

const (
	KindText   MessageKind = "text"
	KindFile   MessageKind = "file"
	KindImage  MessageKind = "image"
	KindSystem MessageKind = "system"
)

// ParseMessageKind maps a wire value onto the closed set of kinds.
// An empty or unknown value falls back to text, matching the default
// of the original message record.
func ParseMessageKind(s string) MessageKind {
	switch MessageKind(s) {
	case KindFile, KindImage, KindSystem:
		return MessageKind(s)
	default:
		return KindText
	}
}

// ChatMessage represents an immutable chat event.
// A nil Recipient marks a public message visible to all current and
// future readers of the meeting; a non-nil recipient restricts
// visibility to sender and recipient.
type ChatMessage struct {
	ID        uuid.UUID
	Meeting   MeetingID
	Sender    User
	Recipient *User
	Content   string
	Kind      MessageKind
	CreatedAt time.Time
	IsRead    bool
}

func (m ChatMessage) IsPrivate() bool {
	return m.Recipient != nil
}

// VisibleTo reports whether the given user may read this message.
func (m ChatMessage) VisibleTo(userID string) bool {
	if m.Recipient == nil {
		return true
	}
	return m.Sender.ID == userID || m.Recipient.ID == userID
}
