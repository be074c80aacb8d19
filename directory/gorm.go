// Package directory implements the session layer's view of the
// meeting-management module. The relational schema mirrors the
// original meeting, participant, and user tables; the hub only ever
// reads from it.
package directory

import (
	"context"
	std "errors"
	"time"

	"meet-hub/domain"
	"meet-hub/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MeetingRecord is the relational meeting row owned by the meeting
// management module.
type MeetingRecord struct {
	ID        string `gorm:"primaryKey"`
	Title     string
	HostID    string `gorm:"index"`
	Status    string
	IsPublic  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (MeetingRecord) TableName() string { return "meetings" }

// UserRecord is the account row used to resolve recipient identities.
type UserRecord struct {
	ID       string `gorm:"primaryKey"`
	Username string
	FullName string
}

func (UserRecord) TableName() string { return "users" }

// ParticipantRecord links a user to a meeting they may join.
type ParticipantRecord struct {
	MeetingID string `gorm:"primaryKey;index:idx_meeting_user,unique"`
	UserID    string `gorm:"primaryKey;index:idx_meeting_user,unique"`
	JoinedAt  time.Time
}

func (ParticipantRecord) TableName() string { return "meeting_participants" }

// GormDirectory reads the relational record through GORM.
type GormDirectory struct {
	db *gorm.DB
}

// OpenSQLite opens (and migrates) the SQLite database backing the
// directory. Migration is safe here because the schema matches what
// the meeting module writes.
func OpenSQLite(path string) (*GormDirectory, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&MeetingRecord{}, &UserRecord{}, &ParticipantRecord{}); err != nil {
		return nil, err
	}
	return &GormDirectory{db: db}, nil
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// Seed inserts meetings, users, and participant links. Intended for
// local development and tests; production rows are written by the
// meeting module.
func (d *GormDirectory) Seed(meetings []domain.Meeting, users []domain.User, participants map[domain.MeetingID][]string) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range meetings {
			record := MeetingRecord{
				ID:       string(m.ID),
				Title:    m.Title,
				HostID:   m.HostID,
				Status:   string(m.Status),
				IsPublic: m.IsPublic,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		for _, u := range users {
			record := UserRecord{ID: u.ID, Username: u.Username, FullName: u.FullName}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		for meetingID, userIDs := range participants {
			for _, userID := range userIDs {
				record := ParticipantRecord{
					MeetingID: string(meetingID),
					UserID:    userID,
					JoinedAt:  time.Now().UTC(),
				}
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (d *GormDirectory) GetMeeting(ctx context.Context, meetingID domain.MeetingID) (domain.Meeting, error) {
	var record MeetingRecord
	err := d.db.WithContext(ctx).First(&record, "id = ?", string(meetingID)).Error
	if std.Is(err, gorm.ErrRecordNotFound) {
		return domain.Meeting{}, errors.ErrMeetingNotFound
	}
	if err != nil {
		return domain.Meeting{}, err
	}
	return domain.Meeting{
		ID:       domain.MeetingID(record.ID),
		Title:    record.Title,
		HostID:   record.HostID,
		Status:   domain.MeetingStatus(record.Status),
		IsPublic: record.IsPublic,
	}, nil
}

// IsParticipant mirrors the original access check: the host, any
// registered participant, and anyone at all when the meeting is
// public. Anonymous users only pass on public meetings.
func (d *GormDirectory) IsParticipant(ctx context.Context, meetingID domain.MeetingID, userID string) (bool, error) {
	meeting, err := d.GetMeeting(ctx, meetingID)
	if err != nil {
		return false, err
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

	var count int64
	err = d.db.WithContext(ctx).Model(&ParticipantRecord{}).
		Where("meeting_id = ? AND user_id = ?", string(meetingID), userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *GormDirectory) ResolveUser(ctx context.Context, userID string) (domain.User, error) {
	var record UserRecord
	err := d.db.WithContext(ctx).First(&record, "id = ?", userID).Error
	if std.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:       record.ID,
		Username: record.Username,
		FullName: record.FullName,
	}, nil
}
