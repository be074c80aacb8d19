package workers

import (
	"context"
	"log/slog"

	"meet-hub/domain"
	"meet-hub/search"
)

// Indexer feeds persisted chat messages into the full-text index off
// the hot path. Sessions enqueue with a non-blocking send: losing an
// index entry only degrades search, never chat delivery.
type Indexer struct {
	log   *slog.Logger
	queue chan domain.ChatMessage
	index *search.MessageIndex
}

func NewIndexer(log *slog.Logger, index *search.MessageIndex, bufferSize int) *Indexer {
	return &Indexer{
		log:   log,
		queue: make(chan domain.ChatMessage, bufferSize),
		index: index,
	}
}

// Enqueue offers a message to the indexing queue. Reports false when
// the queue was full and the message was skipped.
func (w *Indexer) Enqueue(msg domain.ChatMessage) bool {
	select {
	case w.queue <- msg:
		return true
	default:
		w.log.Debug("index queue full, message skipped", "message_id", msg.ID)
		return false
	}
}

func (w *Indexer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping indexer")
			return nil
		case msg := <-w.queue:
			if err := w.index.Index(msg); err != nil {
				w.log.Error("indexing message failed",
					"message_id", msg.ID,
					"meeting_id", msg.Meeting,
					"error", err)
			}
		}
	}
}
