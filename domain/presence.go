// Package domain contains core concepts of the meeting session layer.
// This file defines presence entries and media flags.
package domain

import "time"

// PresenceFlag names a toggleable media state. The names double as
// wire field names so flag routing stays a closed set.
type PresenceFlag string

const (
	FlagAudio       PresenceFlag = "is_audio_enabled"
	FlagVideo       PresenceFlag = "is_video_enabled"
	FlagScreenShare PresenceFlag = "is_screen_sharing"
)

// MediaFlags groups the three media toggles of a participant.
type MediaFlags struct {
	Audio       bool
	Video       bool
	ScreenShare bool
}

// DefaultMediaFlags matches the defaults of the original participant
// record: audio and video on, screen share off.
func DefaultMediaFlags() MediaFlags {
	return MediaFlags{Audio: true, Video: true}
}

// Presence is the per (meeting, user) media state. One entry per user
// regardless of how many connections that user holds.
type Presence struct {
	User            User
	IsAudioEnabled  bool
	IsVideoEnabled  bool
	IsScreenSharing bool
	JoinedAt        time.Time
}

func NewPresence(user User, flags MediaFlags, at time.Time) Presence {
	return Presence{
		User:            user,
		IsAudioEnabled:  flags.Audio,
		IsVideoEnabled:  flags.Video,
		IsScreenSharing: flags.ScreenShare,
		JoinedAt:        at,
	}
}

// Set mutates the named flag in place. Unknown flags are reported to
// the caller, the entry stays untouched.
func (p *Presence) Set(flag PresenceFlag, value bool) bool {
	switch flag {
	case FlagAudio:
		p.IsAudioEnabled = value
	case FlagVideo:
		p.IsVideoEnabled = value
	case FlagScreenShare:
		p.IsScreenSharing = value
	default:
		return false
	}
	return true
}
