package communications

import (
	"time"

	"github.com/waddythomson/buwa-crm/internal/notes"
)

type Type string

const (
	TypeSMS       Type = "sms"
	TypeCall      Type = "call"
	TypeVoicemail Type = "voicemail"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Communication struct {
	ID             string    `json:"id"`
	ContactID      string    `json:"contact_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Type           Type      `json:"type"`
	Direction      Direction `json:"direction"`
	Content        string    `json:"content,omitempty"`
	Duration       *int32    `json:"duration,omitempty"`
	RecordingURL   string    `json:"recording_url,omitempty"`
	ExternalID     string    `json:"external_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecordParams describes a communication to persist.
type RecordParams struct {
	ContactID      string
	ConversationID string
	Type           Type
	Direction      Direction
	Content        string
	Duration       *int32
	RecordingURL   string
	ExternalID     string
	UserID         string
}

// TimelineEntry holds exactly one of Communication or Note.
type TimelineEntry struct {
	Kind          string         `json:"kind"`
	At            time.Time      `json:"at"`
	Communication *Communication `json:"communication,omitempty"`
	Note          *notes.Note    `json:"note,omitempty"`
}

const (
	EntryCommunication = "communication"
	EntryNote          = "note"
)
