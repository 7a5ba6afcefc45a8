package ingest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/waddythomson/buwa-crm/internal/apperr"
	"github.com/waddythomson/buwa-crm/internal/communications"
	"github.com/waddythomson/buwa-crm/internal/contacts"
	"github.com/waddythomson/buwa-crm/internal/metrics"
	"github.com/waddythomson/buwa-crm/internal/notes"
	"github.com/waddythomson/buwa-crm/internal/observer"
	"github.com/waddythomson/buwa-crm/internal/phone"
)

// IntakeLead records a form submission. A failed welcome SMS is reported in
// the result, never as an error.
func (s *Service) IntakeLead(ctx context.Context, lead Lead) (LeadResult, error) {
	name := strings.TrimSpace(lead.Name)
	email := strings.TrimSpace(lead.Email)
	rawPhone := strings.TrimSpace(lead.Phone)
	if name == "" && email == "" && rawPhone == "" {
		return LeadResult{}, apperr.Validation("at least name, email, or phone is required")
	}
	source := strings.TrimSpace(lead.Source)
	if source == "" {
		source = s.opts.DefaultSource
	}

	th, err := s.resolveThread(ctx, contacts.Identity{Phone: rawPhone, Email: email, Name: name})
	if err != nil {
		return LeadResult{}, err
	}
	if err := s.conversations.Touch(ctx, th.conversation.ID); err != nil {
		return LeadResult{}, err
	}
	if _, err := s.notes.Add(ctx, notes.Entry{
		ContactID:      th.contact.ID,
		ConversationID: th.conversation.ID,
		Content:        LeadNote(source, name, email, rawPhone),
	}); err != nil {
		return LeadResult{}, err
	}

	res := LeadResult{
		Success:        true,
		ContactID:      th.contact.ID,
		ConversationID: th.conversation.ID,
		IsNewContact:   th.newContact,
	}
	if phone.Dialable(rawPhone) {
		res.WelcomeSMSSent = s.sendWelcome(ctx, th, phone.Normalize(rawPhone))
	}

	s.notifier.Notify(observer.Event{Type: observer.TypeNewLead, Data: map[string]any{
		"contact_id":      res.ContactID,
		"conversation_id": res.ConversationID,
		"name":            name,
		"email":           email,
		"phone":           rawPhone,
		"source":          source,
		"is_new_contact":  res.IsNewContact,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	}})
	return res, nil
}

func (s *Service) sendWelcome(ctx context.Context, th thread, to string) bool {
	body := s.opts.WelcomeMessage
	if s.provider == nil || to == "" || strings.TrimSpace(body) == "" {
		return false
	}
	externalID, err := s.provider.SendMessage(ctx, to, body)
	if err != nil {
		s.metrics.Outbound(string(communications.TypeSMS), metrics.OutcomeRejected)
		s.logger.Warn("welcome sms failed", slog.String("contact_id", th.contact.ID), slog.Any("error", err))
		return false
	}
	s.metrics.Outbound(string(communications.TypeSMS), metrics.OutcomeOK)
	if _, _, err := s.record(ctx, th, communications.RecordParams{
		Type:       communications.TypeSMS,
		Direction:  communications.DirectionOutbound,
		Content:    body,
		ExternalID: externalID,
	}); err != nil {
		s.logger.Error("welcome sms sent but not logged",
			slog.String("external_id", externalID), slog.Any("error", err))
	}
	return true
}

// LeadNote renders the synthetic note logged for a submission.
func LeadNote(source, name, email, rawPhone string) string {
	lines := []string{"📋 New lead from " + source}
	if name != "" {
		lines = append(lines, "Name: "+name)
	}
	if email != "" {
		lines = append(lines, "Email: "+email)
	}
	if rawPhone != "" {
		lines = append(lines, "Phone: "+rawPhone)
	}
	return strings.Join(lines, "\n")
}
