package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"meet-hub/domain"
	"meet-hub/search"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestIndexer_Indexes_Enqueued_Messages(t *testing.T) {
	req := require.New(t)
	index, err := search.Open(t.TempDir(), slog.Default())
	req.NoError(err)
	defer index.Close()

	indexer := NewIndexer(slog.Default(), index, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = indexer.Run(ctx)
		close(done)
	}()

	meetingID := domain.MeetingID(uuid.NewString())
	msg := domain.ChatMessage{
		ID:        uuid.New(),
		Meeting:   meetingID,
		Sender:    domain.User{ID: "u1", Username: "alice"},
		Content:   "retrospective action items",
		Kind:      domain.KindText,
		CreatedAt: time.Now().UTC(),
	}
	req.True(indexer.Enqueue(msg))

	// The queue drains asynchronously
	req.Eventually(func() bool {
		hits, err := index.Search(context.Background(), meetingID, "retrospective", 0)
		return err == nil && len(hits) == 1
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

func TestIndexer_Full_Queue_Skips_Instead_Of_Blocking(t *testing.T) {
	req := require.New(t)
	index, err := search.Open(t.TempDir(), slog.Default())
	req.NoError(err)
	defer index.Close()

	// Given an indexer whose queue is full and not being drained
	indexer := NewIndexer(slog.Default(), index, 1)
	msg := domain.ChatMessage{ID: uuid.New(), Meeting: "m1", Kind: domain.KindText}

	req.True(indexer.Enqueue(msg))
	req.False(indexer.Enqueue(msg))
}
