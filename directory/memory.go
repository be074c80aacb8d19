package directory

import (
	"context"
	"sync"

	"meet-hub/contract"
	"meet-hub/domain"
	"meet-hub/errors"
)

// MemoryDirectory is an in-memory stand-in for the meeting record,
// used by tests and local development.
type MemoryDirectory struct {
	mu           sync.RWMutex
	meetings     map[domain.MeetingID]domain.Meeting
	users        map[string]domain.User
	participants map[domain.MeetingID]map[string]struct{}
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		meetings:     make(map[domain.MeetingID]domain.Meeting),
		users:        make(map[string]domain.User),
		participants: make(map[domain.MeetingID]map[string]struct{}),
	}
}

func (d *MemoryDirectory) AddMeeting(meeting domain.Meeting) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meetings[meeting.ID] = meeting
}

func (d *MemoryDirectory) AddUser(user domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
}

func (d *MemoryDirectory) AddParticipant(meetingID domain.MeetingID, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.participants[meetingID]; !ok {
		d.participants[meetingID] = make(map[string]struct{})
	}
	d.participants[meetingID][userID] = struct{}{}
}

func (d *MemoryDirectory) GetMeeting(_ context.Context, meetingID domain.MeetingID) (domain.Meeting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	meeting, ok := d.meetings[meetingID]
	if !ok {
		return domain.Meeting{}, errors.ErrMeetingNotFound
	}
	return meeting, nil
}

func (d *MemoryDirectory) IsParticipant(_ context.Context, meetingID domain.MeetingID, userID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	meeting, ok := d.meetings[meetingID]
	if !ok {
		return false, errors.ErrMeetingNotFound
	}
	if meeting.IsPublic {
		return true, nil
	}
	if userID == "" {
		return false, nil
	}
	if meeting.HostID == userID {
		return true, nil
	}
	_, ok = d.participants[meetingID][userID]
	return ok, nil
}

func (d *MemoryDirectory) ResolveUser(_ context.Context, userID string) (domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[userID]
	if !ok {
		return domain.User{}, errors.ErrUserNotFound
	}
	return user, nil
}

// AllowAllVerifier waves every user through the lobby gate. The real
// verification (face match, captcha, fullscreen) lives outside the
// session layer.
func AllowAllVerifier() contract.IVerifier {
	return contract.VerifierFunc(func(context.Context, domain.MeetingID, string) (bool, error) {
		return true, nil
	})
}
