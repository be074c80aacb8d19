// Package search maintains a full-text index over persisted chat
// messages. Indexing is best-effort and asynchronous: the Badger store
// remains the source of truth, the index only serves history search.
package search

import (
	"context"
	"log/slog"

	"meet-hub/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

const defaultSearchLimit = 10

// MessageIndex wraps a Bluge writer scoped to chat messages.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func Open(path string, log *slog.Logger) (*MessageIndex, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &MessageIndex{writer: writer, log: log}, nil
}

func (i *MessageIndex) Close() error {
	return i.writer.Close()
}

// Index upserts one message. Content is the only analyzed field; the
// meeting scope is a keyword so searches never leak across meetings.
func (i *MessageIndex) Index(msg domain.ChatMessage) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewKeywordField("meeting", string(msg.Meeting)).StoreValue()).
		AddField(bluge.NewKeywordField("sender", msg.Sender.Username).StoreValue()).
		AddField(bluge.NewTextField("content", msg.Content).StoreValue()).
		AddField(bluge.NewDateTimeField("at", msg.CreatedAt))
	return i.writer.Update(doc.ID(), doc)
}

// Hit is one search result, enough for a client to render and to fetch
// the full record from the store by ID if needed.
type Hit struct {
	MessageID uuid.UUID `json:"message_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Score     float64   `json:"score"`
}

// Search runs a match query over message content, scoped to one
// meeting, best score first.
func (i *MessageIndex) Search(ctx context.Context, meetingID domain.MeetingID, terms string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("closing index reader failed", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(string(meetingID)).SetField("meeting")).
		AddMust(bluge.NewMatchQuery(terms).SetField("content"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			return hits, nil
		}
		hit := Hit{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				if id, err := uuid.Parse(string(value)); err == nil {
					hit.MessageID = id
				}
			case "sender":
				hit.Sender = string(value)
			case "content":
				hit.Content = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
}
