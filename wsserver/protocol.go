// Package wsserver bridges the JSON wire protocol and the broadcast
// hub: one WebSocket connection per client, scoped to one meeting.
package wsserver

import (
	"encoding/json"
	"fmt"
	"time"

	"meet-hub/domain"
	"meet-hub/domain/event"
	"meet-hub/errors"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

// Intent is the closed set of inbound client messages. Decoding is an
// explicit switch over the type tag; unknown tags never reach a
// handler.
type Intent interface {
	isIntent()
}

type ChatIntent struct {
	Content     string  `json:"content" validate:"required"`
	MessageType string  `json:"message_type"`
	RecipientID *string `json:"recipient_id"`
}

type ParticipantUpdateIntent struct {
	Participant json.RawMessage `json:"participant" validate:"required"`
}

type SignalIntent struct {
	Signal json.RawMessage `json:"signal" validate:"required"`
	Target *string         `json:"target"`
}

func (ChatIntent) isIntent()              {}
func (ParticipantUpdateIntent) isIntent() {}
func (SignalIntent) isIntent()            {}

// envelope is the raw inbound frame. Fields live at the top level,
// exactly as the clients already send them.
type envelope struct {
	Type        string          `json:"type"`
	Content     string          `json:"content"`
	MessageType string          `json:"message_type"`
	RecipientID *string         `json:"recipient_id"`
	Participant json.RawMessage `json:"participant"`
	Signal      json.RawMessage `json:"signal"`
	Target      *string         `json:"target"`
}

// DecodeIntent parses one wire frame into a typed intent. Every
// failure wraps ErrMalformedIntent so callers drop the frame, report
// it, and keep the connection open.
func DecodeIntent(data []byte) (Intent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedIntent, err)
	}

	var intent Intent
	switch env.Type {
	case "chat_message":
		intent = ChatIntent{
			Content:     env.Content,
			MessageType: env.MessageType,
			RecipientID: env.RecipientID,
		}
	case "participant_update":
		intent = ParticipantUpdateIntent{Participant: env.Participant}
	case "webrtc_signal":
		intent = SignalIntent{Signal: env.Signal, Target: env.Target}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", errors.ErrMalformedIntent, env.Type)
	}

	if err := validate.Struct(intent); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedIntent, err)
	}
	return intent, nil
}

type messagePayload struct {
	ID             string  `json:"id"`
	Sender         string  `json:"sender"`
	SenderID       string  `json:"sender_id"`
	SenderFullName string  `json:"sender_full_name"`
	Content        string  `json:"content"`
	MessageType    string  `json:"message_type"`
	Timestamp      string  `json:"timestamp"`
	RecipientID    *string `json:"recipient_id"`
	RecipientName  *string `json:"recipient_name"`
}

type participantPayload struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	IsAudioEnabled  bool   `json:"is_audio_enabled"`
	IsVideoEnabled  bool   `json:"is_video_enabled"`
	IsScreenSharing bool   `json:"is_screen_sharing"`
}

type chatMessageFrame struct {
	Type    string         `json:"type"`
	Message messagePayload `json:"message"`
}

type participantUpdateFrame struct {
	Type        string          `json:"type"`
	Participant json.RawMessage `json:"participant"`
}

type signalFrame struct {
	Type   string          `json:"type"`
	Signal json.RawMessage `json:"signal"`
	Target *string         `json:"target"`
	Sender *string         `json:"sender"`
}

type participantsListFrame struct {
	Type         string               `json:"type"`
	Participants []participantPayload `json:"participants"`
}

type errorFrame struct {
	Type   string `json:"type"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// EncodeEvent turns a hub event into its outbound wire frame. The
// switch is exhaustive over the event union; an unhandled type is a
// programming error, not a client problem.
func EncodeEvent(e event.Event) ([]byte, error) {
	switch evt := e.(type) {
	case event.ChatMessagePosted:
		return json.Marshal(chatMessageFrame{
			Type:    "chat_message",
			Message: toMessagePayload(evt.Message),
		})
	case event.ParticipantUpdated:
		return json.Marshal(participantUpdateFrame{
			Type:        "participant_update",
			Participant: evt.Participant,
		})
	case event.SignalRelayed:
		frame := signalFrame{Type: "webrtc_signal", Signal: evt.Signal}
		if evt.Target != "" {
			frame.Target = &evt.Target
		}
		if evt.Sender != "" {
			frame.Sender = &evt.Sender
		}
		return json.Marshal(frame)
	case event.ParticipantsListed:
		return json.Marshal(participantsListFrame{
			Type:         "participants_list",
			Participants: toParticipantPayloads(evt.Participants),
		})
	case event.ErrorRaised:
		return json.Marshal(errorFrame{Type: "error", Code: evt.Code, Detail: evt.Detail})
	default:
		return nil, fmt.Errorf("unencodable event type %T", e)
	}
}

func toMessagePayload(msg domain.ChatMessage) messagePayload {
	payload := messagePayload{
		ID:             msg.ID.String(),
		Sender:         msg.Sender.Username,
		SenderID:       msg.Sender.ID,
		SenderFullName: msg.Sender.FullName,
		Content:        msg.Content,
		MessageType:    string(msg.Kind),
		Timestamp:      msg.CreatedAt.Format(time.RFC3339Nano),
	}
	if msg.Recipient != nil {
		payload.RecipientID = &msg.Recipient.ID
		payload.RecipientName = &msg.Recipient.Username
	}
	return payload
}

func toParticipantPayloads(entries []domain.Presence) []participantPayload {
	return lo.Map(entries, func(p domain.Presence, _ int) participantPayload {
		return participantPayload{
			ID:              p.User.ID,
			Username:        p.User.Username,
			FullName:        p.User.FullName,
			IsAudioEnabled:  p.IsAudioEnabled,
			IsVideoEnabled:  p.IsVideoEnabled,
			IsScreenSharing: p.IsScreenSharing,
		}
	})
}
