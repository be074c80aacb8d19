// Package domain contains core concepts of the meeting session layer.
// No runtime, network, or UI logic should be added here.
package domain

// MeetingID is an opaque reference into the external meeting record.
// The session layer never creates meetings, it only hosts broadcast
// groups for them.
type MeetingID string

// ConnectionID identifies one client socket. A user holding two tabs
// owns two connections but a single presence entry.
type ConnectionID string

// User is the authenticated identity handed over by the external
// account module. A zero ID marks an anonymous connection.
type User struct {
	ID       string
	Username string
	FullName string
}

func (u User) IsAnonymous() bool {
	return u.ID == ""
}

// MeetingStatus values mirror the states of the external meeting record.
type MeetingStatus string

const (
	StatusScheduled MeetingStatus = "scheduled"
	StatusActive    MeetingStatus = "active"
	StatusEnded     MeetingStatus = "ended"
	StatusCancelled MeetingStatus = "cancelled"
)

// Meeting is the session layer's read-only view of a meeting record.
type Meeting struct {
	ID       MeetingID
	Title    string
	HostID   string
	Status   MeetingStatus
	IsPublic bool
}
