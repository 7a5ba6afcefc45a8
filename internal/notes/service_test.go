package notes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waddythomson/buwa-crm/internal/apperr"
	"github.com/waddythomson/buwa-crm/internal/db"
	"github.com/waddythomson/buwa-crm/internal/db/memstore"
	"github.com/waddythomson/buwa-crm/internal/db/sqlc"
	"github.com/waddythomson/buwa-crm/internal/identity"
	"github.com/waddythomson/buwa-crm/internal/logger"
)

var staff = identity.Staff{UserID: "550e8400-e29b-41d4-a716-446655440000", Role: identity.RoleStaff}

func TestCreateListDelete(t *testing.T) {
	store := memstore.New()
	svc := NewService(logger.Discard(), store)
	ctx := context.Background()
	contact, err := store.InsertContact(ctx, sqlc.InsertContactParams{Name: db.Text("Ann")})
	require.NoError(t, err)
	contactID := db.UUIDToString(contact.ID)

	note, err := svc.Create(ctx, staff, CreateRequest{ContactID: contactID, Content: "  called back  "})
	require.NoError(t, err)
	assert.Equal(t, "called back", note.Content)
	assert.Equal(t, staff.UserID, note.UserID)

	system, err := svc.Add(ctx, Entry{ContactID: contactID, Content: "lead"})
	require.NoError(t, err)
	assert.Empty(t, system.UserID)

	items, err := svc.ListByContact(ctx, contactID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, svc.Delete(ctx, staff, note.ID))
	err = svc.Delete(ctx, staff, note.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestCreateValidation(t *testing.T) {
	store := memstore.New()
	svc := NewService(logger.Discard(), store)
	ctx := context.Background()

	tests := []struct {
		name   string
		caller identity.Staff
		req    CreateRequest
		kind   apperr.Kind
	}{
		{"no caller", identity.Staff{}, CreateRequest{ContactID: staff.UserID, Content: "x"}, apperr.KindValidation},
		{"blank content", staff, CreateRequest{ContactID: staff.UserID, Content: " "}, apperr.KindValidation},
		{"bad contact id", staff, CreateRequest{ContactID: "x", Content: "x"}, apperr.KindValidation},
		{"missing contact", staff, CreateRequest{ContactID: staff.UserID, Content: "x"}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.caller, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
	assert.Empty(t, store.Notes())
}
