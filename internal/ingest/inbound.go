package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/waddythomson/buwa-crm/internal/apperr"
	"github.com/waddythomson/buwa-crm/internal/communications"
	"github.com/waddythomson/buwa-crm/internal/contacts"
	"github.com/waddythomson/buwa-crm/internal/metrics"
	"github.com/waddythomson/buwa-crm/internal/observer"
)

// Handle dispatches a parsed webhook event. Callers acknowledge the
// provider regardless of the returned error.
func (s *Service) Handle(ctx context.Context, ev Event) (Result, error) {
	var (
		res Result
		err error
	)
	switch e := ev.(type) {
	case InboundMessage:
		res, err = s.inboundMessage(ctx, e)
	case InboundCall:
		res, err = s.inboundCall(ctx, e)
	case RecordingCompleted:
		res, err = s.recordingCompleted(ctx, e)
	case TranscriptionCompleted:
		res, err = s.transcriptionCompleted(ctx, e)
	default:
		return Result{}, apperr.Validation("unsupported event %T", ev)
	}
	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
		s.logger.Error("ingest failed",
			slog.String("channel", ev.eventKind()),
			slog.String("external_id", eventExternalID(ev)),
			slog.Any("error", err),
		)
	case res.Duplicate:
		outcome = metrics.OutcomeDuplicate
	}
	s.metrics.Ingested(ev.eventKind(), outcome)
	return res, err
}

func eventExternalID(ev Event) string {
	switch e := ev.(type) {
	case InboundMessage:
		return e.MessageID
	case InboundCall:
		return e.CallID
	case RecordingCompleted:
		return e.CallID
	case TranscriptionCompleted:
		return e.CallID
	}
	return ""
}

func (s *Service) inboundMessage(ctx context.Context, e InboundMessage) (Result, error) {
	if strings.TrimSpace(e.From) == "" || strings.TrimSpace(e.MessageID) == "" {
		return Result{}, apperr.Validation("From and MessageSid are required")
	}
	return s.inbound(ctx, e.From, e.MessageID, communications.RecordParams{
		Type:      communications.TypeSMS,
		Direction: communications.DirectionInbound,
		Content:   e.Body,
	}, func(res Result) observer.Event {
		return observer.Event{Type: observer.TypeInboundSMS, Data: map[string]any{
			"contact_id":      res.ContactID,
			"conversation_id": res.ConversationID,
			"from":            e.From,
			"content":         e.Body,
			"timestamp":       time.Now().UTC().Format(time.RFC3339),
		}}
	})
}

func (s *Service) inboundCall(ctx context.Context, e InboundCall) (Result, error) {
	if strings.TrimSpace(e.From) == "" || strings.TrimSpace(e.CallID) == "" {
		return Result{}, apperr.Validation("From and CallSid are required")
	}
	return s.inbound(ctx, e.From, e.CallID, communications.RecordParams{
		Type:      communications.TypeCall,
		Direction: communications.DirectionInbound,
		Content:   CallLabel(e.Status),
	}, func(res Result) observer.Event {
		return observer.Event{Type: observer.TypeInboundCall, Data: map[string]any{
			"contact_id":      res.ContactID,
			"conversation_id": res.ConversationID,
			"from":            e.From,
			"status":          e.Status,
			"timestamp":       time.Now().UTC().Format(time.RFC3339),
		}}
	})
}

// CallLabel is the content stored for an inbound call start.
func CallLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return "Incoming call"
	}
	return fmt.Sprintf("Incoming call - %s", status)
}

func (s *Service) inbound(ctx context.Context, from, externalID string, p communications.RecordParams, event func(Result) observer.Event) (Result, error) {
	if existing, ok, err := s.comms.ByExternalID(ctx, externalID); err != nil {
		return Result{}, err
	} else if ok {
		return Result{
			ContactID:       existing.ContactID,
			ConversationID:  existing.ConversationID,
			CommunicationID: existing.ID,
			Duplicate:       true,
		}, nil
	}

	th, err := s.resolveThread(ctx, contacts.Identity{Phone: from})
	if err != nil {
		return Result{}, err
	}
	p.ExternalID = externalID
	comm, dup, err := s.record(ctx, th, p)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		ContactID:       th.contact.ID,
		ConversationID:  comm.ConversationID,
		CommunicationID: comm.ID,
		NewContact:      th.newContact,
		Duplicate:       dup,
	}
	if !dup {
		s.notifier.Notify(event(res))
	}
	return res, nil
}

func (s *Service) recordingCompleted(ctx context.Context, e RecordingCompleted) (Result, error) {
	if strings.TrimSpace(e.CallID) == "" || strings.TrimSpace(e.RecordingURL) == "" {
		return Result{}, apperr.Validation("CallSid and RecordingUrl are required")
	}
	n, err := s.comms.AttachRecording(ctx, e.CallID, e.RecordingURL, e.Duration)
	if err != nil {
		return Result{}, err
	}
	return Result{Updated: n}, nil
}

func (s *Service) transcriptionCompleted(ctx context.Context, e TranscriptionCompleted) (Result, error) {
	if strings.TrimSpace(e.CallID) == "" {
		return Result{}, apperr.Validation("CallSid is required")
	}
	if strings.TrimSpace(e.Text) == "" {
		return Result{}, nil
	}
	n, err := s.comms.AttachTranscription(ctx, e.CallID, e.Text)
	if err != nil {
		return Result{}, err
	}
	return Result{Updated: n}, nil
}
