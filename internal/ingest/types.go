package ingest

import "context"

// Event is one normalized provider webhook payload. The concrete types
// below are the only variants.
type Event interface {
	eventKind() string
}

type InboundMessage struct {
	From      string
	To        string
	Body      string
	MessageID string
}

type InboundCall struct {
	From   string
	To     string
	CallID string
	Status string
}

type RecordingCompleted struct {
	CallID       string
	RecordingURL string
	Duration     *int32
}

type TranscriptionCompleted struct {
	CallID string
	Text   string
}

func (InboundMessage) eventKind() string         { return "sms" }
func (InboundCall) eventKind() string            { return "call" }
func (RecordingCompleted) eventKind() string     { return "recording" }
func (TranscriptionCompleted) eventKind() string { return "transcription" }

// Result identifies what an inbound event was attached to.
type Result struct {
	ContactID       string
	ConversationID  string
	CommunicationID string
	NewContact      bool
	Duplicate       bool
	Updated         int64
}

// Provider is the outbound channel. Both calls return the provider id.
type Provider interface {
	SendMessage(ctx context.Context, to, body string) (string, error)
	PlaceCall(ctx context.Context, to, callbackURL string) (string, error)
}

type OutboundSMS struct {
	ContactID string `json:"contact_id"`
	To        string `json:"to" validate:"required"`
	Body      string `json:"body" validate:"required"`
}

type OutboundCall struct {
	ContactID string `json:"contact_id"`
	To        string `json:"to" validate:"required"`
}

type OutboundResult struct {
	ExternalID      string `json:"external_id"`
	ContactID       string `json:"contact_id"`
	ConversationID  string `json:"conversation_id"`
	CommunicationID string `json:"communication_id"`
}

type Lead struct {
	Name   string `json:"name"`
	Email  string `json:"email" validate:"omitempty,email"`
	Phone  string `json:"phone"`
	Source string `json:"source"`
}

type LeadResult struct {
	Success        bool   `json:"success"`
	ContactID      string `json:"contact_id"`
	ConversationID string `json:"conversation_id"`
	IsNewContact   bool   `json:"is_new_contact"`
	WelcomeSMSSent bool   `json:"welcome_sms_sent"`
}

// Options carries outbound behavior that depends on deployment.
type Options struct {
	// OutboundCallURL is the TwiML URL the provider fetches when a placed call connects.
	OutboundCallURL string
	WelcomeMessage  string
	DefaultSource   string
}
