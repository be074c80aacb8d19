package search

import (
	"context"
	"log/slog"
	"meet-hub/domain"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *MessageIndex {
	t.Helper()
	index, err := Open(t.TempDir(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func indexedMessage(meetingID domain.MeetingID, sender, content string) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        uuid.New(),
		Meeting:   meetingID,
		Sender:    domain.User{ID: uuid.NewString(), Username: sender},
		Content:   content,
		Kind:      domain.KindText,
		CreatedAt: time.Now().UTC(),
	}
}

func Test_Search_Finds_Indexed_Message(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)
	meetingID := domain.MeetingID(uuid.NewString())

	msg := indexedMessage(meetingID, "alice", "the quarterly budget review starts now")
	req.NoError(index.Index(msg))
	req.NoError(index.Index(indexedMessage(meetingID, "bob", "lunch plans anyone")))

	hits, err := index.Search(context.Background(), meetingID, "budget", 0)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(msg.ID, hits[0].MessageID)
	req.Equal("alice", hits[0].Sender)
	req.Equal(msg.Content, hits[0].Content)
}

func Test_Search_Is_Scoped_To_One_Meeting(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)
	meetingA := domain.MeetingID(uuid.NewString())
	meetingB := domain.MeetingID(uuid.NewString())

	req.NoError(index.Index(indexedMessage(meetingA, "alice", "secret roadmap discussion")))
	req.NoError(index.Index(indexedMessage(meetingB, "bob", "roadmap looks good to me")))

	hits, err := index.Search(context.Background(), meetingA, "roadmap", 0)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("alice", hits[0].Sender)
}

func Test_Search_Respects_Limit(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)
	meetingID := domain.MeetingID(uuid.NewString())

	for i := 0; i < 5; i++ {
		req.NoError(index.Index(indexedMessage(meetingID, "alice", "standup notes for today")))
	}

	hits, err := index.Search(context.Background(), meetingID, "standup", 2)
	req.NoError(err)
	req.Len(hits, 2)
}

func Test_Reindexing_Same_Message_Upserts(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)
	meetingID := domain.MeetingID(uuid.NewString())

	msg := indexedMessage(meetingID, "alice", "draft agenda")
	req.NoError(index.Index(msg))

	msg.Content = "final agenda"
	req.NoError(index.Index(msg))

	hits, err := index.Search(context.Background(), meetingID, "agenda", 0)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("final agenda", hits[0].Content)
}
