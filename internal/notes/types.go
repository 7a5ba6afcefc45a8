package notes

import "time"

type Note struct {
	ID                   string    `json:"id"`
	ContactID            string    `json:"contact_id"`
	ConversationID       string    `json:"conversation_id,omitempty"`
	AfterCommunicationID string    `json:"after_communication_id,omitempty"`
	UserID               string    `json:"user_id,omitempty"`
	Content              string    `json:"content"`
	CreatedAt            time.Time `json:"created_at"`
}

// CreateRequest is a staff note. AfterCommunicationID anchors the note in
// the timeline directly after that communication.
type CreateRequest struct {
	ContactID            string `json:"contact_id" validate:"required"`
	ConversationID       string `json:"conversation_id"`
	AfterCommunicationID string `json:"after_communication_id"`
	Content              string `json:"content" validate:"required"`
}

// Entry is a note written by the system or on behalf of a staff user.
type Entry struct {
	ContactID            string
	ConversationID       string
	AfterCommunicationID string
	UserID               string
	Content              string
}
