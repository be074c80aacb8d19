package wsserver

import (
	"context"
	"encoding/json"
	std "errors"
	"log/slog"
	"sync"
	"time"

	"meet-hub/contract"
	"meet-hub/domain"
	"meet-hub/domain/event"
	"meet-hub/errors"
	"meet-hub/moderation"
	"meet-hub/observability"
	"meet-hub/runtime/workers"
	"meet-hub/sink"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Conn is the transport surface a session needs. *websocket.Conn
// satisfies it; tests drive sessions with an in-memory fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Deps bundles the collaborators shared by all sessions.
type Deps struct {
	Log       *slog.Logger
	Hub       contract.IHub
	Presence  contract.IPresence
	Store     contract.IMessageRepository
	Directory contract.IDirectory
	Verifier  contract.IVerifier
	Moderator *moderation.Moderator
	Indexer   *workers.Indexer
	Metrics   *observability.Metrics

	// SinkBufferSize bounds each connection's outbound channel.
	SinkBufferSize int
}

// Session is one client's connection to one meeting. Lifecycle:
// Connecting (authorization) -> Active (dispatch loop) -> Closed.
// A session that fails authorization never registers anywhere.
type Session struct {
	deps    Deps
	id      domain.ConnectionID
	user    domain.User
	meeting domain.MeetingID
	sink    *sink.ConnSink
}

func NewSession(deps Deps, meetingID domain.MeetingID, user domain.User) *Session {
	return &Session{
		deps:    deps,
		id:      domain.ConnectionID(uuid.NewString()),
		user:    user,
		meeting: meetingID,
		sink:    sink.NewConnSink(deps.SinkBufferSize),
	}
}

// ID returns the connection identifier, unique per socket.
func (s *Session) ID() domain.ConnectionID {
	return s.id
}

// Run drives the session until the client disconnects, the transport
// fails, or ctx is canceled. It always leaves hub and presence state
// consistent before returning.
func (s *Session) Run(ctx context.Context, conn Conn) error {
	if err := s.authorize(ctx); err != nil {
		s.writeError(conn, err)
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.deps.Metrics.ConnectionsOpened.Add(1)
	s.deps.Log.Info("connection active",
		"meeting_id", s.meeting,
		"conn_id", s.id,
		"user", s.user.Username)

	if !s.user.IsAnonymous() {
		s.deps.Presence.Join(s.meeting, s.user, domain.DefaultMediaFlags())
	}
	s.deps.Hub.Register(s.meeting, s.id, s.user.ID, s.sink)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writeLoop(ctx, conn)
	}()
	go func() {
		// Closing the transport is what unblocks a pending read, so a
		// server-side cancellation must not wait on the client.
		defer wg.Done()
		<-ctx.Done()
		_ = conn.Close()
	}()

	// The newcomer gets the snapshot first, then everyone else hears
	// about the change.
	snapshot := s.presenceSnapshot()
	_ = s.sink.Consume(ctx, snapshot)
	s.deps.Hub.Broadcast(ctx, s.meeting, snapshot, s.id)

	err := s.readLoop(ctx, conn)

	s.teardown()
	cancel()
	wg.Wait()
	return err
}

// authorize is the Connecting phase: meeting existence, the
// host-or-participant check, and the external lobby verification gate.
func (s *Session) authorize(ctx context.Context) error {
	if _, err := s.deps.Directory.GetMeeting(ctx, s.meeting); err != nil {
		return err
	}

	allowed, err := s.deps.Directory.IsParticipant(ctx, s.meeting, s.user.ID)
	if err != nil {
		return err
	}
	if !allowed {
		return errors.ErrAuthorizationDenied
	}

	verified, err := s.deps.Verifier.IsVerified(ctx, s.meeting, s.user.ID)
	if err != nil {
		return err
	}
	if !verified {
		return errors.ErrVerificationRequired
	}
	return nil
}

// teardown is the transition to Closed. It is idempotent against a
// concurrent server-initiated deregistration: every step tolerates
// already-removed state.
func (s *Session) teardown() {
	s.deps.Hub.Deregister(s.meeting, s.id)
	s.sink.Close()

	departed := false
	if !s.user.IsAnonymous() {
		departed = s.deps.Presence.Leave(s.meeting, s.user.ID)
	}
	if departed {
		// Remaining members need a snapshot without the departed user.
		// The session ctx is already on its way out, teardown uses its
		// own.
		s.deps.Hub.Broadcast(context.Background(), s.meeting, s.presenceSnapshot(), s.id)
	}

	s.deps.Metrics.ConnectionsClosed.Add(1)
	s.deps.Log.Info("connection closed",
		"meeting_id", s.meeting,
		"conn_id", s.id,
		"user", s.user.Username)
}

func (s *Session) presenceSnapshot() event.ParticipantsListed {
	return event.ParticipantsListed{
		Meeting:      s.meeting,
		Participants: s.deps.Presence.Snapshot(s.meeting),
	}
}

// readLoop decodes and dispatches inbound intents until the transport
// fails or closes. A malformed intent is dropped and reported to the
// sender; it never ends the session.
func (s *Session) readLoop(ctx context.Context, conn Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.deps.Log.Debug("read ended", "conn_id", s.id, "error", err)
			return nil
		}

		intent, err := DecodeIntent(data)
		if err != nil {
			s.deps.Metrics.IntentsRejected.Add(1)
			s.deps.Log.Warn("dropping malformed intent",
				"meeting_id", s.meeting,
				"conn_id", s.id,
				"error", err)
			s.consumeError(ctx, err)
			continue
		}

		switch it := intent.(type) {
		case ChatIntent:
			s.handleChat(ctx, it)
		case ParticipantUpdateIntent:
			s.handleParticipantUpdate(ctx, it)
		case SignalIntent:
			s.handleSignal(ctx, it)
		}
	}
}

// handleChat persists then fans out. Order is a hard invariant:
// nothing is broadcast that is not durably recorded, and a failed
// append surfaces only to the sender.
func (s *Session) handleChat(ctx context.Context, it ChatIntent) {
	content := it.Content
	if s.deps.Moderator != nil {
		sanitized, found := s.deps.Moderator.Censor(content)
		if len(found) > 0 {
			s.deps.Log.Warn("censored chat content",
				"meeting_id", s.meeting,
				"sender", s.user.Username,
				"lang", moderation.DetectLanguage(content),
				"matches", len(found))
		}
		content = sanitized
	}

	var recipient *domain.User
	if it.RecipientID != nil && *it.RecipientID != "" {
		resolved, err := s.deps.Directory.ResolveUser(ctx, *it.RecipientID)
		switch {
		case err == nil:
			recipient = &resolved
		case std.Is(err, errors.ErrUserNotFound):
			// Unknown recipient degrades the message to public,
			// matching the original's silent fallback.
			s.deps.Log.Debug("unknown recipient, delivering as public",
				"meeting_id", s.meeting,
				"recipient_id", *it.RecipientID)
		default:
			s.consumeError(ctx, err)
			return
		}
	}

	msg := domain.ChatMessage{
		ID:        uuid.New(),
		Meeting:   s.meeting,
		Sender:    s.user,
		Recipient: recipient,
		Content:   content,
		Kind:      domain.ParseMessageKind(it.MessageType),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.deps.Store.Append(msg); err != nil {
		s.deps.Metrics.StorageFailures.Add(1)
		s.deps.Log.Error("append failed, chat intent not broadcast",
			"meeting_id", s.meeting,
			"sender", s.user.Username,
			"error", err)
		s.consumeError(ctx, err)
		return
	}
	s.deps.Metrics.MessagesPersisted.Add(1)
	if s.deps.Indexer != nil {
		s.deps.Indexer.Enqueue(msg)
	}

	evt := event.ChatMessagePosted{Message: msg}
	if recipient == nil {
		// Public: every member, sender included, sees the same list.
		s.deps.Hub.Broadcast(ctx, s.meeting, evt, "")
		return
	}
	// Private: only the connections of sender and recipient.
	s.deps.Hub.DeliverTo(ctx, s.meeting, s.user.ID, evt)
	if recipient.ID != s.user.ID {
		s.deps.Hub.DeliverTo(ctx, s.meeting, recipient.ID, evt)
	}
}

// handleParticipantUpdate applies any recognized media flags to the
// presence registry, then relays the payload untouched. The payload
// stays opaque beyond the closed flag set.
func (s *Session) handleParticipantUpdate(ctx context.Context, it ParticipantUpdateIntent) {
	var flags struct {
		Audio       *bool `json:"is_audio_enabled"`
		Video       *bool `json:"is_video_enabled"`
		ScreenShare *bool `json:"is_screen_sharing"`
	}
	_ = json.Unmarshal(it.Participant, &flags)

	if !s.user.IsAnonymous() {
		s.applyFlag(domain.FlagAudio, flags.Audio)
		s.applyFlag(domain.FlagVideo, flags.Video)
		s.applyFlag(domain.FlagScreenShare, flags.ScreenShare)
	}

	s.deps.Hub.Broadcast(ctx, s.meeting, event.ParticipantUpdated{
		Meeting:     s.meeting,
		Participant: it.Participant,
	}, "")
}

func (s *Session) applyFlag(flag domain.PresenceFlag, value *bool) {
	if value == nil {
		return
	}
	if err := s.deps.Presence.SetFlag(s.meeting, s.user.ID, flag, *value); err != nil {
		s.deps.Log.Debug("presence flag not applied",
			"meeting_id", s.meeting,
			"flag", flag,
			"error", err)
	}
}

// handleSignal relays the envelope with the sender identity attached.
// Targeted signals reach only the target user's connections; untargeted
// ones go to everyone but the sender, who already has local state.
func (s *Session) handleSignal(ctx context.Context, it SignalIntent) {
	evt := event.SignalRelayed{
		Meeting: s.meeting,
		Signal:  it.Signal,
		Sender:  s.user.Username,
	}
	if it.Target != nil && *it.Target != "" {
		evt.Target = *it.Target
		s.deps.Hub.DeliverTo(ctx, s.meeting, evt.Target, evt)
		return
	}
	s.deps.Hub.Broadcast(ctx, s.meeting, evt, s.id)
}

// writeLoop drains the sink into the socket. It owns all writes after
// the session is Active, so frames never interleave.
func (s *Session) writeLoop(ctx context.Context, conn Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-s.sink.Events:
			frame, err := EncodeEvent(evt)
			if err != nil {
				s.deps.Log.Error("failed to encode event", "conn_id", s.id, "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.deps.Log.Debug("write failed, stopping delivery",
					"conn_id", s.id,
					"error", err)
				return
			}
		}
	}
}

// consumeError queues an error frame for this connection only.
func (s *Session) consumeError(ctx context.Context, err error) {
	_ = s.sink.Consume(ctx, event.ErrorRaised{
		Meeting: s.meeting,
		Code:    errors.WireCode(err),
		Detail:  err.Error(),
	})
}

// writeError reports a pre-Active failure straight to the socket; the
// writer goroutine does not exist yet at that point.
func (s *Session) writeError(conn Conn, err error) {
	frame, encErr := EncodeEvent(event.ErrorRaised{
		Meeting: s.meeting,
		Code:    errors.WireCode(err),
		Detail:  err.Error(),
	})
	if encErr != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, frame)
}
