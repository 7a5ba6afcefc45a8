// Package notes stores free-text annotations on a contact's timeline.
package notes

import (
	"context"
	"log/slog"
	"strings"

	"github.com/waddythomson/buwa-crm/internal/apperr"
	"github.com/waddythomson/buwa-crm/internal/db"
	"github.com/waddythomson/buwa-crm/internal/db/sqlc"
	"github.com/waddythomson/buwa-crm/internal/identity"
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
		logger:  log.With(slog.String("service", "notes")),
	}
}

// Create adds a note authored by the caller.
func (s *Service) Create(ctx context.Context, caller identity.Staff, req CreateRequest) (Note, error) {
	if err := caller.Validate(); err != nil {
		return Note{}, apperr.Validation("%v", err)
	}
	return s.Add(ctx, Entry{
		ContactID:            req.ContactID,
		ConversationID:       req.ConversationID,
		AfterCommunicationID: req.AfterCommunicationID,
		UserID:               caller.UserID,
		Content:              req.Content,
	})
}

// Add inserts a note. A blank UserID marks a system note.
func (s *Service) Add(ctx context.Context, entry Entry) (Note, error) {
	content := strings.TrimSpace(entry.Content)
	if content == "" {
		return Note{}, apperr.Validation("content is required")
	}
	contactID, err := db.ParseUUID(entry.ContactID)
	if err != nil {
		return Note{}, apperr.Validation("invalid contact id")
	}
	conversationID, err := db.OptionalUUID(entry.ConversationID)
	if err != nil {
		return Note{}, apperr.Validation("invalid conversation id")
	}
	afterID, err := db.OptionalUUID(entry.AfterCommunicationID)
	if err != nil {
		return Note{}, apperr.Validation("invalid communication id")
	}
	userID, err := db.OptionalUUID(entry.UserID)
	if err != nil {
		return Note{}, apperr.Validation("invalid user id")
	}
	row, err := s.queries.CreateNote(ctx, sqlc.CreateNoteParams{
		ContactID:                    contactID,
		ConversationID:               conversationID,
		PositionAfterCommunicationID: afterID,
		UserID:                       userID,
		Content:                      content,
	})
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Note{}, apperr.NotFound("contact or conversation not found")
		}
		return Note{}, apperr.Persistence(err, "create note")
	}
	return FromRow(row), nil
}

func (s *Service) Delete(ctx context.Context, caller identity.Staff, noteID string) error {
	if err := caller.Validate(); err != nil {
		return apperr.Validation("%v", err)
	}
	pgID, err := db.ParseUUID(noteID)
	if err != nil {
		return apperr.Validation("invalid note id")
	}
	n, err := s.queries.DeleteNote(ctx, pgID)
	if err != nil {
		return apperr.Persistence(err, "delete note")
	}
	if n == 0 {
		return apperr.NotFound("note not found")
	}
	s.logger.Info("note deleted", slog.String("note_id", noteID), slog.String("by", caller.UserID))
	return nil
}

func (s *Service) ListByContact(ctx context.Context, contactID string) ([]Note, error) {
	pgID, err := db.ParseUUID(contactID)
	if err != nil {
		return nil, apperr.Validation("invalid contact id")
	}
	rows, err := s.queries.ListNotesByContact(ctx, pgID)
	if err != nil {
		return nil, apperr.Persistence(err, "list notes")
	}
	items := make([]Note, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromRow(row))
	}
	return items, nil
}

// FromRow converts a stored note.
func FromRow(row sqlc.Note) Note {
	return Note{
		ID:                   db.UUIDToString(row.ID),
		ContactID:            db.UUIDToString(row.ContactID),
		ConversationID:       db.UUIDToString(row.ConversationID),
		AfterCommunicationID: db.UUIDToString(row.PositionAfterCommunicationID),
		UserID:               db.UUIDToString(row.UserID),
		Content:              row.Content,
		CreatedAt:            db.TimeFromPg(row.CreatedAt),
	}
}
