package twilio

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/waddythomson/buwa-crm/internal/ingest"
)

// Webhook kinds, one per callback route.
const (
	KindMessage       = "sms"
	KindVoice         = "voice"
	KindRecording     = "recording"
	KindTranscription = "transcription"
)

var ErrMalformedPayload = errors.New("malformed twilio payload")

// Parse maps a form-encoded callback to its ingest event. Required fields
// are checked here so nothing malformed reaches the engine.
func Parse(kind string, form url.Values) (ingest.Event, error) {
	field := func(name string) string { return strings.TrimSpace(form.Get(name)) }
	switch kind {
	case KindMessage:
		ev := ingest.InboundMessage{
			From:      field("From"),
			To:        field("To"),
			Body:      form.Get("Body"),
			MessageID: field("MessageSid"),
		}
		if ev.MessageID == "" {
			ev.MessageID = field("SmsSid")
		}
		if ev.From == "" || ev.MessageID == "" {
			return nil, missing("From", "MessageSid")
		}
		return ev, nil
	case KindVoice:
		ev := ingest.InboundCall{
			From:   field("From"),
			To:     field("To"),
			CallID: field("CallSid"),
			Status: field("CallStatus"),
		}
		if ev.From == "" || ev.CallID == "" {
			return nil, missing("From", "CallSid")
		}
		return ev, nil
	case KindRecording:
		ev := ingest.RecordingCompleted{
			CallID:       field("CallSid"),
			RecordingURL: field("RecordingUrl"),
			Duration:     parseDuration(field("RecordingDuration")),
		}
		if ev.CallID == "" || ev.RecordingURL == "" {
			return nil, missing("CallSid", "RecordingUrl")
		}
		return ev, nil
	case KindTranscription:
		ev := ingest.TranscriptionCompleted{
			CallID: field("CallSid"),
			Text:   field("TranscriptionText"),
		}
		if ev.CallID == "" {
			return nil, missing("CallSid")
		}
		return ev, nil
	}
	return nil, errors.New("unknown twilio webhook kind " + kind)
}

func missing(fields ...string) error {
	return errors.Join(ErrMalformedPayload, errors.New("required: "+strings.Join(fields, ", ")))
}

func parseDuration(raw string) *int32 {
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || n < 0 {
		return nil
	}
	d := int32(n)
	return &d
}
