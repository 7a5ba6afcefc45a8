package conversation

import "time"

type Status string

const (
	StatusOpen    Status = "open"
	StatusPending Status = "pending"
	StatusClosed  Status = "closed"
)

// ParseStatus accepts exactly the three valid status values.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusOpen, StatusPending, StatusClosed:
		return s, true
	}
	return "", false
}

// Active reports whether s counts toward the one-active-thread-per-contact limit.
func (s Status) Active() bool {
	return s == StatusOpen || s == StatusPending
}

type Conversation struct {
	ID            string    `json:"id"`
	ContactID     string    `json:"contact_id"`
	Status        Status    `json:"status"`
	AssignedTo    string    `json:"assigned_to,omitempty"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// InboxItem is an active conversation with its contact and latest communication.
type InboxItem struct {
	Conversation
	ContactName  string       `json:"contact_name,omitempty"`
	ContactPhone string       `json:"contact_phone,omitempty"`
	ContactEmail string       `json:"contact_email,omitempty"`
	Last         *LastMessage `json:"last_message,omitempty"`
}

type LastMessage struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Direction string    `json:"direction"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ListFilter struct {
	AssignedTo string
	Limit      int32
}
