package ingest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/waddythomson/buwa-crm/internal/apperr"
	"github.com/waddythomson/buwa-crm/internal/communications"
	"github.com/waddythomson/buwa-crm/internal/contacts"
	"github.com/waddythomson/buwa-crm/internal/identity"
	"github.com/waddythomson/buwa-crm/internal/metrics"
	"github.com/waddythomson/buwa-crm/internal/observer"
	"github.com/waddythomson/buwa-crm/internal/phone"
)

const outboundCallLabel = "Outbound call initiated"

// SendSMS sends through the provider first; nothing is stored when the
// provider rejects the message.
func (s *Service) SendSMS(ctx context.Context, caller identity.Staff, req OutboundSMS) (OutboundResult, error) {
	if err := caller.Validate(); err != nil {
		return OutboundResult{}, apperr.Validation("%v", err)
	}
	if !phone.Dialable(req.To) {
		return OutboundResult{}, apperr.Validation("phone number required")
	}
	to := phone.Normalize(req.To)
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return OutboundResult{}, apperr.Validation("message body required")
	}
	if err := s.checkContact(ctx, req.ContactID); err != nil {
		return OutboundResult{}, err
	}
	if s.provider == nil {
		return OutboundResult{}, apperr.Upstream(nil, "messaging provider not configured")
	}

	externalID, err := s.provider.SendMessage(ctx, to, body)
	if err != nil {
		s.metrics.Outbound(string(communications.TypeSMS), metrics.OutcomeRejected)
		s.logger.Warn("provider rejected sms", slog.String("to", to), slog.Any("error", err))
		return OutboundResult{}, apperr.Upstream(err, "failed to send message")
	}
	s.metrics.Outbound(string(communications.TypeSMS), metrics.OutcomeOK)

	res, err := s.logOutbound(ctx, req.ContactID, to, caller.UserID, communications.RecordParams{
		Type:       communications.TypeSMS,
		Direction:  communications.DirectionOutbound,
		Content:    body,
		ExternalID: externalID,
		UserID:     caller.UserID,
	})
	if err != nil {
		return OutboundResult{ExternalID: externalID}, err
	}
	s.notifier.Notify(observer.Event{Type: observer.TypeOutboundSMS, Data: map[string]any{
		"contact_id":      res.ContactID,
		"conversation_id": res.ConversationID,
		"to":              to,
		"content":         body,
		"user_id":         caller.UserID,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	}})
	return res, nil
}

// PlaceCall asks the provider to dial out; the call row is stored only once
// the provider accepts.
func (s *Service) PlaceCall(ctx context.Context, caller identity.Staff, req OutboundCall) (OutboundResult, error) {
	if err := caller.Validate(); err != nil {
		return OutboundResult{}, apperr.Validation("%v", err)
	}
	if !phone.Dialable(req.To) {
		return OutboundResult{}, apperr.Validation("phone number required")
	}
	to := phone.Normalize(req.To)
	if err := s.checkContact(ctx, req.ContactID); err != nil {
		return OutboundResult{}, err
	}
	if s.provider == nil {
		return OutboundResult{}, apperr.Upstream(nil, "voice provider not configured")
	}

	externalID, err := s.provider.PlaceCall(ctx, to, s.opts.OutboundCallURL)
	if err != nil {
		s.metrics.Outbound(string(communications.TypeCall), metrics.OutcomeRejected)
		s.logger.Warn("provider rejected call", slog.String("to", to), slog.Any("error", err))
		return OutboundResult{}, apperr.Upstream(err, "failed to initiate call")
	}
	s.metrics.Outbound(string(communications.TypeCall), metrics.OutcomeOK)

	res, err := s.logOutbound(ctx, req.ContactID, to, caller.UserID, communications.RecordParams{
		Type:       communications.TypeCall,
		Direction:  communications.DirectionOutbound,
		Content:    outboundCallLabel,
		ExternalID: externalID,
		UserID:     caller.UserID,
	})
	if err != nil {
		return OutboundResult{ExternalID: externalID}, err
	}
	s.notifier.Notify(observer.Event{Type: observer.TypeOutboundCall, Data: map[string]any{
		"contact_id":      res.ContactID,
		"conversation_id": res.ConversationID,
		"to":              to,
		"user_id":         caller.UserID,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	}})
	return res, nil
}

func (s *Service) checkContact(ctx context.Context, contactID string) error {
	if strings.TrimSpace(contactID) == "" {
		return nil
	}
	_, err := s.contacts.GetByID(ctx, contactID)
	return err
}

// logOutbound stores an accepted send against the given contact, or the
// contact owning the destination number.
func (s *Service) logOutbound(ctx context.Context, contactID, to, userID string, p communications.RecordParams) (OutboundResult, error) {
	var (
		th  thread
		err error
	)
	if strings.TrimSpace(contactID) != "" {
		th, err = s.threadForContact(ctx, contactID)
	} else {
		th, err = s.resolveThread(ctx, contacts.Identity{Phone: to, CreatedBy: userID})
	}
	if err != nil {
		s.logger.Error("provider accepted send but logging failed",
			slog.String("external_id", p.ExternalID), slog.Any("error", err))
		return OutboundResult{}, err
	}
	comm, _, err := s.record(ctx, th, p)
	if err != nil {
		s.logger.Error("provider accepted send but logging failed",
			slog.String("external_id", p.ExternalID), slog.Any("error", err))
		return OutboundResult{}, err
	}
	return OutboundResult{
		ExternalID:      p.ExternalID,
		ContactID:       th.contact.ID,
		ConversationID:  th.conversation.ID,
		CommunicationID: comm.ID,
	}, nil
}
