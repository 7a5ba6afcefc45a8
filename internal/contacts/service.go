// Package contacts resolves inbound identities to a single canonical contact.
package contacts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/waddythomson/buwa-crm/internal/apperr"
	"github.com/waddythomson/buwa-crm/internal/db"
	"github.com/waddythomson/buwa-crm/internal/db/sqlc"
	"github.com/waddythomson/buwa-crm/internal/identity"
	"github.com/waddythomson/buwa-crm/internal/phone"
)

// maxResolveAttempts bounds lookup/insert rounds; a lost insert race is
// settled by the next lookup.
const maxResolveAttempts = 3

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
		logger:  log.With(slog.String("service", "contacts")),
	}
}

// ResolveOrCreate finds the contact owning the identity's email, else its
// phone, and creates one when neither matches. The bool reports creation.
func (s *Service) ResolveOrCreate(ctx context.Context, id Identity) (Contact, bool, error) {
	if s.queries == nil {
		return Contact{}, false, errors.New("contacts queries not configured")
	}
	email := normalizeEmail(id.Email)
	canonical := phone.Normalize(id.Phone)
	name := strings.TrimSpace(id.Name)
	if email == "" && canonical == "" && name == "" {
		return Contact{}, false, apperr.Validation("phone, email or name is required")
	}
	createdBy, err := db.OptionalUUID(id.CreatedBy)
	if err != nil {
		return Contact{}, false, apperr.Validation("invalid created_by")
	}

	for range maxResolveAttempts {
		row, found, err := s.lookup(ctx, email, id.Phone)
		if err != nil {
			return Contact{}, false, err
		}
		if found {
			return toContact(row), false, nil
		}
		row, err = s.queries.InsertContact(ctx, sqlc.InsertContactParams{
			Name:      db.Text(name),
			Phone:     db.Text(canonical),
			Email:     db.Text(email),
			CreatedBy: createdBy,
		})
		if err == nil {
			s.logger.Info("contact created", slog.String("contact_id", db.UUIDToString(row.ID)))
			return toContact(row), true, nil
		}
		if !db.IsNoRows(err) {
			return Contact{}, false, apperr.Persistence(err, "create contact")
		}
		s.logger.Debug("contact insert conflicted, retrying lookup", slog.String("phone", canonical))
	}
	return Contact{}, false, apperr.Persistence(nil, "contact resolution did not converge")
}

// Create is the manual staff entry path. It deduplicates through
// ResolveOrCreate and records the caller as creator.
func (s *Service) Create(ctx context.Context, caller identity.Staff, req CreateRequest) (Contact, bool, error) {
	if err := caller.Validate(); err != nil {
		return Contact{}, false, apperr.Validation("%v", err)
	}
	return s.ResolveOrCreate(ctx, Identity{
		Phone:     req.Phone,
		Email:     req.Email,
		Name:      req.Name,
		CreatedBy: caller.UserID,
	})
}

func (s *Service) GetByID(ctx context.Context, contactID string) (Contact, error) {
	if s.queries == nil {
		return Contact{}, errors.New("contacts queries not configured")
	}
	pgID, err := db.ParseUUID(contactID)
	if err != nil {
		return Contact{}, apperr.Validation("invalid contact id")
	}
	row, err := s.queries.GetContactByID(ctx, pgID)
	if err != nil {
		if db.IsNoRows(err) {
			return Contact{}, apperr.NotFound("contact not found")
		}
		return Contact{}, apperr.Persistence(err, "get contact")
	}
	return toContact(row), nil
}

func (s *Service) lookup(ctx context.Context, email, rawPhone string) (sqlc.Contact, bool, error) {
	if email != "" {
		row, err := s.queries.GetContactByEmail(ctx, email)
		if err == nil {
			return row, true, nil
		}
		if !db.IsNoRows(err) {
			return sqlc.Contact{}, false, apperr.Persistence(err, "lookup contact by email")
		}
	}
	if candidates := phone.Candidates(rawPhone); len(candidates) > 0 {
		row, err := s.queries.GetContactByPhones(ctx, candidates)
		if err == nil {
			return row, true, nil
		}
		if !db.IsNoRows(err) {
			return sqlc.Contact{}, false, apperr.Persistence(err, "lookup contact by phone")
		}
	}
	return sqlc.Contact{}, false, nil
}

// CreateRequest is the manual contact form.
type CreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email" validate:"omitempty,email"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toContact(row sqlc.Contact) Contact {
	return Contact{
		ID:        db.UUIDToString(row.ID),
		Name:      db.TextToString(row.Name),
		Phone:     db.TextToString(row.Phone),
		Email:     db.TextToString(row.Email),
		CreatedBy: db.UUIDToString(row.CreatedBy),
		CreatedAt: db.TimeFromPg(row.CreatedAt),
	}
}
