// Package conversation implements the open/pending/closed thread state
// machine. A contact holds at most one active (open or pending) thread;
// every write that can create one runs under the contact's row lock.
package conversation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/waddythomson/buwa-crm/internal/apperr"
	"github.com/waddythomson/buwa-crm/internal/db"
	"github.com/waddythomson/buwa-crm/internal/db/sqlc"
	"github.com/waddythomson/buwa-crm/internal/identity"
	"github.com/waddythomson/buwa-crm/internal/metrics"
)

const defaultInboxLimit = 100

type Service struct {
	store   db.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(log *slog.Logger, store db.Store, m *metrics.Metrics) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:   store,
		metrics: m,
		logger:  log.With(slog.String("service", "conversation")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreateActive returns the contact's most recently active thread,
// creating an open one when none exists. The bool reports creation.
func (s *Service) GetOrCreateActive(ctx context.Context, contactID string) (Conversation, bool, error) {
	pgContactID, err := db.ParseUUID(contactID)
	if err != nil {
		return Conversation{}, false, apperr.Validation("invalid contact id")
	}
	var (
		row     sqlc.Conversation
		created bool
	)
	err = s.store.WithTx(ctx, func(q sqlc.Querier) error {
		if err := lockContact(ctx, q, pgContactID); err != nil {
			return err
		}
		active, err := q.GetActiveConversationByContact(ctx, pgContactID)
		if err == nil {
			row = active
			return nil
		}
		if !db.IsNoRows(err) {
			return apperr.Persistence(err, "lookup active conversation")
		}
		row, err = q.CreateConversation(ctx, sqlc.CreateConversationParams{
			ContactID:     pgContactID,
			LastMessageAt: db.Timestamptz(s.now()),
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return apperr.Conflict("contact already has an active conversation")
			}
			return apperr.Persistence(err, "create conversation")
		}
		created = true
		return nil
	})
	if err != nil {
		return Conversation{}, false, err
	}
	if created {
		s.metrics.ConversationOpened()
		s.logger.Info("conversation opened",
			slog.String("conversation_id", db.UUIDToString(row.ID)),
			slog.String("contact_id", contactID))
	}
	return toConversation(row), created, nil
}

// Touch moves lastMessageAt forward to now. Status is never changed.
func (s *Service) Touch(ctx context.Context, conversationID string) error {
	pgID, err := parseConversationID(conversationID)
	if err != nil {
		return err
	}
	n, err := s.store.TouchConversation(ctx, sqlc.TouchConversationParams{At: db.Timestamptz(s.now()), ID: pgID})
	if err != nil {
		return apperr.Persistence(err, "touch conversation")
	}
	if n == 0 {
		return apperr.NotFound("conversation not found")
	}
	return nil
}

// Reopen moves a closed thread back to open and touches it. It is a no-op
// for a thread that is not closed, and a conflict when the contact already
// has another active thread.
func (s *Service) Reopen(ctx context.Context, caller identity.Staff, conversationID string) (Conversation, error) {
	if err := caller.Validate(); err != nil {
		return Conversation{}, apperr.Validation("%v", err)
	}
	pgID, err := parseConversationID(conversationID)
	if err != nil {
		return Conversation{}, err
	}
	var row sqlc.Conversation
	err = s.store.WithTx(ctx, func(q sqlc.Querier) error {
		current, err := getConversation(ctx, q, pgID)
		if err != nil {
			return err
		}
		if Status(current.Status) != StatusClosed {
			row = current
			return nil
		}
		if err := lockContact(ctx, q, current.ContactID); err != nil {
			return err
		}
		if err := ensureNoOtherActive(ctx, q, current.ContactID, pgID); err != nil {
			return err
		}
		if _, err := q.ReopenConversation(ctx, sqlc.ReopenConversationParams{At: db.Timestamptz(s.now()), ID: pgID}); err != nil {
			if db.IsUniqueViolation(err) {
				return apperr.Conflict("contact already has an active conversation")
			}
			return apperr.Persistence(err, "reopen conversation")
		}
		row, err = getConversation(ctx, q, pgID)
		return err
	})
	if err != nil {
		return Conversation{}, err
	}
	s.logger.Info("conversation reopened",
		slog.String("conversation_id", conversationID),
		slog.String("by", caller.UserID))
	return toConversation(row), nil
}

// Assign sets or clears (blank userID) the assignee. Repeating it is harmless.
func (s *Service) Assign(ctx context.Context, caller identity.Staff, conversationID, userID string) (Conversation, error) {
	if err := caller.Validate(); err != nil {
		return Conversation{}, apperr.Validation("%v", err)
	}
	pgID, err := parseConversationID(conversationID)
	if err != nil {
		return Conversation{}, err
	}
	assignee, err := db.OptionalUUID(userID)
	if err != nil {
		return Conversation{}, apperr.Validation("invalid user id")
	}
	row, err := s.store.UpdateConversationAssignee(ctx, sqlc.UpdateConversationAssigneeParams{ID: pgID, AssignedTo: assignee})
	if err != nil {
		if db.IsNoRows(err) {
			return Conversation{}, apperr.NotFound("conversation not found")
		}
		return Conversation{}, apperr.Persistence(err, "assign conversation")
	}
	s.logger.Info("conversation assigned",
		slog.String("conversation_id", conversationID),
		slog.String("assigned_to", userID),
		slog.String("by", caller.UserID))
	return toConversation(row), nil
}

// SetStatus permits any transition between the three statuses. The value
// is validated before storage is touched.
func (s *Service) SetStatus(ctx context.Context, caller identity.Staff, conversationID, status string) (Conversation, error) {
	if err := caller.Validate(); err != nil {
		return Conversation{}, apperr.Validation("%v", err)
	}
	pgID, err := parseConversationID(conversationID)
	if err != nil {
		return Conversation{}, err
	}
	next, ok := ParseStatus(status)
	if !ok {
		return Conversation{}, apperr.Validation("invalid status %q", status)
	}
	var row sqlc.Conversation
	err = s.store.WithTx(ctx, func(q sqlc.Querier) error {
		current, err := getConversation(ctx, q, pgID)
		if err != nil {
			return err
		}
		if next.Active() && !Status(current.Status).Active() {
			if err := lockContact(ctx, q, current.ContactID); err != nil {
				return err
			}
			if err := ensureNoOtherActive(ctx, q, current.ContactID, pgID); err != nil {
				return err
			}
		}
		row, err = q.UpdateConversationStatus(ctx, sqlc.UpdateConversationStatusParams{ID: pgID, Status: string(next)})
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("conversation not found")
			}
			if db.IsUniqueViolation(err) {
				return apperr.Conflict("contact already has an active conversation")
			}
			return apperr.Persistence(err, "update conversation status")
		}
		return nil
	})
	if err != nil {
		return Conversation{}, err
	}
	s.logger.Info("conversation status changed",
		slog.String("conversation_id", conversationID),
		slog.String("status", string(next)),
		slog.String("by", caller.UserID))
	return toConversation(row), nil
}

func (s *Service) Get(ctx context.Context, conversationID string) (Conversation, error) {
	pgID, err := parseConversationID(conversationID)
	if err != nil {
		return Conversation{}, err
	}
	row, err := getConversation(ctx, s.store, pgID)
	if err != nil {
		return Conversation{}, err
	}
	return toConversation(row), nil
}

// ListActive returns the inbox: open and pending threads, most recent first.
func (s *Service) ListActive(ctx context.Context, filter ListFilter) ([]InboxItem, error) {
	assignee, err := db.OptionalUUID(filter.AssignedTo)
	if err != nil {
		return nil, apperr.Validation("invalid assigned_to")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	rows, err := s.store.ListActiveConversations(ctx, sqlc.ListActiveConversationsParams{AssignedTo: assignee, MaxCount: limit})
	if err != nil {
		return nil, apperr.Persistence(err, "list conversations")
	}
	items := make([]InboxItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toInboxItem(row))
	}
	return items, nil
}

func (s *Service) CountActive(ctx context.Context) (int64, error) {
	n, err := s.store.CountActiveConversations(ctx)
	if err != nil {
		return 0, apperr.Persistence(err, "count conversations")
	}
	return n, nil
}

func parseConversationID(conversationID string) (pgtype.UUID, error) {
	if strings.TrimSpace(conversationID) == "" {
		return pgtype.UUID{}, apperr.Validation("conversation id is required")
	}
	pgID, err := db.ParseUUID(conversationID)
	if err != nil {
		return pgtype.UUID{}, apperr.Validation("invalid conversation id")
	}
	return pgID, nil
}

func lockContact(ctx context.Context, q sqlc.Querier, contactID pgtype.UUID) error {
	if _, err := q.LockContact(ctx, contactID); err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound("contact not found")
		}
		return apperr.Persistence(err, "lock contact")
	}
	return nil
}

func getConversation(ctx context.Context, q sqlc.Querier, id pgtype.UUID) (sqlc.Conversation, error) {
	row, err := q.GetConversationByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return sqlc.Conversation{}, apperr.NotFound("conversation not found")
		}
		return sqlc.Conversation{}, apperr.Persistence(err, "get conversation")
	}
	return row, nil
}

func ensureNoOtherActive(ctx context.Context, q sqlc.Querier, contactID, self pgtype.UUID) error {
	active, err := q.GetActiveConversationByContact(ctx, contactID)
	if err == nil {
		if active.ID != self {
			return apperr.Conflict("contact already has an active conversation")
		}
		return nil
	}
	if !db.IsNoRows(err) {
		return apperr.Persistence(err, "lookup active conversation")
	}
	return nil
}

func toConversation(row sqlc.Conversation) Conversation {
	return Conversation{
		ID:            db.UUIDToString(row.ID),
		ContactID:     db.UUIDToString(row.ContactID),
		Status:        Status(row.Status),
		AssignedTo:    db.UUIDToString(row.AssignedTo),
		LastMessageAt: db.TimeFromPg(row.LastMessageAt),
		CreatedAt:     db.TimeFromPg(row.CreatedAt),
	}
}

func toInboxItem(row sqlc.ListActiveConversationsRow) InboxItem {
	item := InboxItem{
		Conversation: Conversation{
			ID:            db.UUIDToString(row.ID),
			ContactID:     db.UUIDToString(row.ContactID),
			Status:        Status(row.Status),
			AssignedTo:    db.UUIDToString(row.AssignedTo),
			LastMessageAt: db.TimeFromPg(row.LastMessageAt),
			CreatedAt:     db.TimeFromPg(row.CreatedAt),
		},
		ContactName:  db.TextToString(row.ContactName),
		ContactPhone: db.TextToString(row.ContactPhone),
		ContactEmail: db.TextToString(row.ContactEmail),
	}
	if row.LastCommunicationID.Valid {
		item.Last = &LastMessage{
			ID:        db.UUIDToString(row.LastCommunicationID),
			Type:      db.TextToString(row.LastType),
			Direction: db.TextToString(row.LastDirection),
			Content:   db.TextToString(row.LastContent),
			CreatedAt: db.TimeFromPg(row.LastCreatedAt),
		}
	}
	return item
}
