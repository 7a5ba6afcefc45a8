package conversation

import (
	"context"

	"github.com/waddythomson/buwa-crm/internal/identity"
)

// Reader defines conversation lookup behavior.
type Reader interface {
	Get(ctx context.Context, conversationID string) (Conversation, error)
	ListActive(ctx context.Context, filter ListFilter) ([]InboxItem, error)
	CountActive(ctx context.Context) (int64, error)
}

// Manager adds the staff-triggered transitions. Every call takes the
// caller explicitly.
type Manager interface {
	Reader
	Assign(ctx context.Context, caller identity.Staff, conversationID, userID string) (Conversation, error)
	SetStatus(ctx context.Context, caller identity.Staff, conversationID, status string) (Conversation, error)
	Reopen(ctx context.Context, caller identity.Staff, conversationID string) (Conversation, error)
}

var _ Manager = (*Service)(nil)
