//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	std "errors"
	"fmt"
	"log/slog"
	"time"

	"meet-hub/domain"
	"meet-hub/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// DefaultHistoryLimit caps ListVisibleTo when the caller passes no
// limit, matching the page size of the original chat history view.
const DefaultHistoryLimit = 100

type MessageRepository struct {
	db           *badger.DB
	log          *slog.Logger
	historyLimit *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, historyLimit *int) MessageRepository {
	return MessageRepository{db: db, log: log, historyLimit: historyLimit}
}

// diskMessage is the stored form of a chat message. Kept flat so the
// record stays readable in the inspect tool.
type diskMessage struct {
	ID            string  `json:"id"`
	Meeting       string  `json:"meeting"`
	SenderID      string  `json:"sender_id"`
	Sender        string  `json:"sender"`
	SenderName    string  `json:"sender_full_name"`
	RecipientID   *string `json:"recipient_id"`
	RecipientUser *string `json:"recipient_name"`
	Content       string  `json:"content"`
	Kind          string  `json:"kind"`
	AtUnixNano    int64   `json:"at"`
	IsRead        bool    `json:"is_read"`
}

// primaryKey is formatted as "msg:{meeting}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func primaryKey(meetingID domain.MeetingID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", meetingID, at.UnixNano(), id))
}

// indexKey maps a message ID back to its primary key, for the one
// mutation the model allows: flipping the read flag.
func indexKey(meetingID domain.MeetingID, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("idx:%s:%s", meetingID, id))
}

func meetingPrefix(meetingID domain.MeetingID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", meetingID))
}

// Append persists a message. This is the only write path: callers must
// not broadcast a chat event unless Append returned nil, so nothing is
// ever shown that is not durably recorded.
func (m MessageRepository) Append(msg domain.ChatMessage) error {
	bytes, err := json.Marshal(fromChatMessage(msg))
	if err != nil {
		return err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		key := primaryKey(msg.Meeting, msg.CreatedAt, msg.ID)
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(indexKey(msg.Meeting, msg.ID), key)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorageUnavailable, err)
	}
	return nil
}

// ListVisibleTo retrieves the meeting's messages readable by userID:
// public ones plus private ones the user sent or received. Thanks to
// the padded timestamp in the key, a forward prefix scan yields them
// already sorted by creation time ascending.
func (m MessageRepository) ListVisibleTo(meetingID domain.MeetingID, userID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
		if m.historyLimit != nil {
			limit = *m.historyLimit
		}
	}

	var out []domain.ChatMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := meetingPrefix(meetingID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if len(out) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var dm diskMessage
				if err := json.Unmarshal(value, &dm); err != nil {
					return err
				}
				msg, err := toChatMessage(dm)
				if err != nil {
					return err
				}
				if msg.VisibleTo(userID) {
					out = append(out, msg)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorageUnavailable, err)
	}
	return out, nil
}

// MarkRead flips the read flag of one message. The read flag is the
// only field that ever mutates after Append.
func (m MessageRepository) MarkRead(meetingID domain.MeetingID, messageID uuid.UUID) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		idxItem, err := txn.Get(indexKey(meetingID, messageID))
		if err != nil {
			return err
		}
		key, err := idxItem.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var dm diskMessage
		if err := item.Value(func(value []byte) error {
			return json.Unmarshal(value, &dm)
		}); err != nil {
			return err
		}
		dm.IsRead = true
		bytes, err := json.Marshal(dm)
		if err != nil {
			return err
		}
		return txn.Set(key, bytes)
	})
	if std.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorageUnavailable, err)
	}
	return nil
}

func fromChatMessage(msg domain.ChatMessage) diskMessage {
	dm := diskMessage{
		ID:         msg.ID.String(),
		Meeting:    string(msg.Meeting),
		SenderID:   msg.Sender.ID,
		Sender:     msg.Sender.Username,
		SenderName: msg.Sender.FullName,
		Content:    msg.Content,
		Kind:       string(msg.Kind),
		AtUnixNano: msg.CreatedAt.UnixNano(),
		IsRead:     msg.IsRead,
	}
	if msg.Recipient != nil {
		dm.RecipientID = &msg.Recipient.ID
		dm.RecipientUser = &msg.Recipient.Username
	}
	return dm
}

func toChatMessage(dm diskMessage) (domain.ChatMessage, error) {
	parsedID, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	msg := domain.ChatMessage{
		ID:      parsedID,
		Meeting: domain.MeetingID(dm.Meeting),
		Sender: domain.User{
			ID:       dm.SenderID,
			Username: dm.Sender,
			FullName: dm.SenderName,
		},
		Content:   dm.Content,
		Kind:      domain.MessageKind(dm.Kind),
		CreatedAt: time.Unix(0, dm.AtUnixNano).UTC(),
		IsRead:    dm.IsRead,
	}
	if dm.RecipientID != nil {
		recipient := domain.User{ID: *dm.RecipientID}
		if dm.RecipientUser != nil {
			recipient.Username = *dm.RecipientUser
		}
		msg.Recipient = &recipient
	}
	return msg, nil
}
