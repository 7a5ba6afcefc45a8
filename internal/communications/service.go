// Package communications persists SMS, call and voicemail events and builds
// the contact timeline.
package communications

import (
	"context"
	"log/slog"
	"strings"

	"github.com/waddythomson/buwa-crm/internal/apperr"
	"github.com/waddythomson/buwa-crm/internal/db"
	"github.com/waddythomson/buwa-crm/internal/db/sqlc"
)

type Service struct {
	queries sqlc.Querier
	logger  *slog.Logger
}

func NewService(log *slog.Logger, queries sqlc.Querier) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		queries: queries,
		logger:  log.With(slog.String("service", "communications")),
	}
}

// Record inserts a communication. When ExternalID was already recorded the
// existing row is returned and the bool reports the duplicate.
func (s *Service) Record(ctx context.Context, p RecordParams) (Communication, bool, error) {
	if !validType(p.Type) {
		return Communication{}, false, apperr.Validation("invalid communication type %q", p.Type)
	}
	if p.Direction != DirectionInbound && p.Direction != DirectionOutbound {
		return Communication{}, false, apperr.Validation("invalid direction %q", p.Direction)
	}
	contactID, err := db.ParseUUID(p.ContactID)
	if err != nil {
		return Communication{}, false, apperr.Validation("invalid contact id")
	}
	conversationID, err := db.OptionalUUID(p.ConversationID)
	if err != nil {
		return Communication{}, false, apperr.Validation("invalid conversation id")
	}
	userID, err := db.OptionalUUID(p.UserID)
	if err != nil {
		return Communication{}, false, apperr.Validation("invalid user id")
	}
	externalID := db.Text(p.ExternalID)

	row, err := s.queries.InsertCommunication(ctx, sqlc.InsertCommunicationParams{
		ContactID:      contactID,
		ConversationID: conversationID,
		Type:           string(p.Type),
		Direction:      string(p.Direction),
		Content:        db.Text(p.Content),
		Duration:       db.Int4(p.Duration),
		RecordingUrl:   db.Text(p.RecordingURL),
		ExternalID:     externalID,
		UserID:         userID,
	})
	if err == nil {
		return toCommunication(row), false, nil
	}
	if db.IsForeignKeyViolation(err) {
		return Communication{}, false, apperr.NotFound("contact or conversation not found")
	}
	if !db.IsNoRows(err) || !externalID.Valid {
		return Communication{}, false, apperr.Persistence(err, "insert communication")
	}
	existing, err := s.queries.GetCommunicationByExternalID(ctx, externalID)
	if err != nil {
		return Communication{}, false, apperr.Persistence(err, "load duplicate communication")
	}
	s.logger.Info("duplicate external id ignored", slog.String("external_id", externalID.String))
	return toCommunication(existing), true, nil
}

// AttachRecording sets the recording on the call identified by externalID.
// An inbound call with a recording becomes a voicemail. No match is not an error.
func (s *Service) AttachRecording(ctx context.Context, externalID, recordingURL string, duration *int32) (int64, error) {
	if strings.TrimSpace(externalID) == "" {
		return 0, apperr.Validation("external id is required")
	}
	n, err := s.queries.AttachRecording(ctx, sqlc.AttachRecordingParams{
		RecordingUrl: db.Text(recordingURL),
		Duration:     db.Int4(duration),
		ExternalID:   db.Text(externalID),
	})
	if err != nil {
		return 0, apperr.Persistence(err, "attach recording")
	}
	if n == 0 {
		s.logger.Debug("recording matched no communication", slog.String("external_id", externalID))
	}
	return n, nil
}

// AttachTranscription stores a call transcript as the communication content.
// No match is not an error.
func (s *Service) AttachTranscription(ctx context.Context, externalID, text string) (int64, error) {
	if strings.TrimSpace(externalID) == "" {
		return 0, apperr.Validation("external id is required")
	}
	n, err := s.queries.AttachTranscription(ctx, sqlc.AttachTranscriptionParams{
		Content:    db.Text(text),
		ExternalID: db.Text(externalID),
	})
	if err != nil {
		return 0, apperr.Persistence(err, "attach transcription")
	}
	return n, nil
}

// ByExternalID returns the communication recorded for a provider id.
func (s *Service) ByExternalID(ctx context.Context, externalID string) (Communication, bool, error) {
	ext := db.Text(externalID)
	if !ext.Valid {
		return Communication{}, false, nil
	}
	row, err := s.queries.GetCommunicationByExternalID(ctx, ext)
	if err != nil {
		if db.IsNoRows(err) {
			return Communication{}, false, nil
		}
		return Communication{}, false, apperr.Persistence(err, "get communication")
	}
	return toCommunication(row), true, nil
}

func (s *Service) ListByContact(ctx context.Context, contactID string) ([]Communication, error) {
	pgID, err := db.ParseUUID(contactID)
	if err != nil {
		return nil, apperr.Validation("invalid contact id")
	}
	rows, err := s.queries.ListCommunicationsByContact(ctx, pgID)
	if err != nil {
		return nil, apperr.Persistence(err, "list communications")
	}
	items := make([]Communication, 0, len(rows))
	for _, row := range rows {
		items = append(items, toCommunication(row))
	}
	return items, nil
}

func validType(t Type) bool {
	return t == TypeSMS || t == TypeCall || t == TypeVoicemail
}

func toCommunication(row sqlc.Communication) Communication {
	c := Communication{
		ID:             db.UUIDToString(row.ID),
		ContactID:      db.UUIDToString(row.ContactID),
		ConversationID: db.UUIDToString(row.ConversationID),
		Type:           Type(row.Type),
		Direction:      Direction(row.Direction),
		Content:        db.TextToString(row.Content),
		RecordingURL:   db.TextToString(row.RecordingUrl),
		ExternalID:     db.TextToString(row.ExternalID),
		UserID:         db.UUIDToString(row.UserID),
		CreatedAt:      db.TimeFromPg(row.CreatedAt),
	}
	if row.Duration.Valid {
		d := row.Duration.Int32
		c.Duration = &d
	}
	return c
}
