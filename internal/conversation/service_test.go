package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waddythomson/buwa-crm/internal/apperr"
	"github.com/waddythomson/buwa-crm/internal/db"
	"github.com/waddythomson/buwa-crm/internal/db/memstore"
	"github.com/waddythomson/buwa-crm/internal/db/sqlc"
	"github.com/waddythomson/buwa-crm/internal/identity"
	"github.com/waddythomson/buwa-crm/internal/logger"
)

var (
	staff    = identity.Staff{UserID: "550e8400-e29b-41d4-a716-446655440000", Role: identity.RoleStaff}
	assignee = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
)

func setup(t *testing.T) (*Service, *memstore.Store, string) {
	t.Helper()
	store := memstore.New()
	row, err := store.InsertContact(context.Background(), sqlc.InsertContactParams{Phone: db.Text("+15551234567")})
	require.NoError(t, err)
	return NewService(logger.Discard(), store, nil), store, db.UUIDToString(row.ID)
}

func activeCount(store *memstore.Store, contactID string) int {
	n := 0
	for _, c := range store.Conversations() {
		if db.UUIDToString(c.ContactID) == contactID && Status(c.Status).Active() {
			n++
		}
	}
	return n
}

func TestGetOrCreateActiveReusesThread(t *testing.T) {
	svc, _, contactID := setup(t)
	ctx := context.Background()

	first, created, err := svc.GetOrCreateActive(ctx, contactID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, StatusOpen, first.Status)

	second, created, err := svc.GetOrCreateActive(ctx, contactID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateActiveUnknownContact(t *testing.T) {
	svc, _, _ := setup(t)

	_, _, err := svc.GetOrCreateActive(context.Background(), assignee)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, _, err = svc.GetOrCreateActive(context.Background(), "bad")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestGetOrCreateActiveConcurrent(t *testing.T) {
	svc, store, contactID := setup(t)
	ctx := context.Background()

	const workers = 20
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, _, err := svc.GetOrCreateActive(ctx, contactID)
			if err != nil {
				t.Errorf("GetOrCreateActive() error = %v", err)
				return
			}
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Conversations(), 1)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestClosedThreadIsNotRevivedByNewActivity(t *testing.T) {
	svc, store, contactID := setup(t)
	ctx := context.Background()

	first, _, err := svc.GetOrCreateActive(ctx, contactID)
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, staff, first.ID, "closed")
	require.NoError(t, err)

	next, created, err := svc.GetOrCreateActive(ctx, contactID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, next.ID)

	closed, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
	assert.Equal(t, 1, activeCount(store, contactID))
}

func TestSetStatusRejectsInvalidValue(t *testing.T) {
	svc, store, contactID := setup(t)
	ctx := context.Background()
	conv, _, err := svc.GetOrCreateActive(ctx, contactID)
	require.NoError(t, err)

	for _, status := range []string{"", "archived", "OPEN", "closed "} {
		_, err := svc.SetStatus(ctx, staff, conv.ID, status)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), "status %q", status)
	}
	_, err = svc.SetStatus(ctx, staff, "", "closed")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	assert.Equal(t, "open", store.Conversations()[0].Status)
}

func TestSetStatusInvalidValueTouchesNoStorage(t *testing.T) {
	svc, store, _ := setup(t)
	store.Fail("WithTx", assert.AnError)
	store.Fail("GetConversationByID", assert.AnError)

	_, err := svc.SetStatus(context.Background(), staff, assignee, "bogus")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestSetStatusAnyTransition(t *testing.T) {
	svc, _, contactID := setup(t)
	ctx := context.Background()
	conv, _, err := svc.GetOrCreateActive(ctx, contactID)
	require.NoError(t, err)

	for _, status := range []string{"pending", "closed", "open", "closed", "pending", "open"} {
		got, err := svc.SetStatus(ctx, staff, conv.ID, status)
		require.NoError(t, err, status)
		assert.Equal(t, Status(status), got.Status)
	}
}

func TestSetStatusConflictsWithOtherActiveThread(t *testing.T) {
	svc, store, contactID := setup(t)
	ctx := context.Background()

	first, _, err := svc.GetOrCreateActive(ctx, contactID)
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, staff, first.ID, "closed")
	require.NoError(t, err)
	_, _, err = svc.GetOrCreateActive(ctx, contactID)
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, staff, first.ID, "pending")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Equal(t, 1, activeCount(store, contactID))
}

func TestAssignIsIdempotent(t *testing.T) {
	svc, _, contactID := setup(t)
	ctx := context.Background()
	conv, _, err := svc.GetOrCreateActive(ctx, contactID)
	require.NoError(t, err)

	for range 2 {
		got, err := svc.Assign(ctx, staff, conv.ID, assignee)
		require.NoError(t, err)
		assert.Equal(t, assignee, got.AssignedTo)
		assert.Equal(t, StatusOpen, got.Status)
	}

	cleared, err := svc.Assign(ctx, staff, conv.ID, "")
	require.NoError(t, err)
	assert.Empty(t, cleared.AssignedTo)
}

func TestAssignValidation(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Assign(ctx, staff, "", assignee)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = svc.Assign(ctx, identity.Staff{}, assignee, assignee)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = svc.Assign(ctx, staff, assignee, assignee)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestReopen(t *testing.T) {
	svc, _, contactID := setup(t)
	ctx := context.Background()
	conv, _, err := svc.GetOrCreateActive(ctx, contactID)
	require.NoError(t, err)

	unchanged, err := svc.Reopen(ctx, staff, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, unchanged.Status)

	_, err = svc.SetStatus(ctx, staff, conv.ID, "closed")
	require.NoError(t, err)
	later := time.Now().UTC().Add(time.Hour)
	svc.now = func() time.Time { return later }

	reopened, err := svc.Reopen(ctx, staff, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, reopened.Status)
	assert.WithinDuration(t, later, reopened.LastMessageAt, time.Millisecond)
}

func TestReopenConflict(t *testing.T) {
	svc, _, contactID := setup(t)
	ctx := context.Background()
	first, _, err := svc.GetOrCreateActive(ctx, contactID)
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, staff, first.ID, "closed")
	require.NoError(t, err)
	_, _, err = svc.GetOrCreateActive(ctx, contactID)
	require.NoError(t, err)

	_, err = svc.Reopen(ctx, staff, first.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestTouchKeepsStatusAndMovesForward(t *testing.T) {
	svc, _, contactID := setup(t)
	ctx := context.Background()
	conv, _, err := svc.GetOrCreateActive(ctx, contactID)
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, staff, conv.ID, "pending")
	require.NoError(t, err)

	later := conv.LastMessageAt.Add(time.Minute)
	svc.now = func() time.Time { return later }
	require.NoError(t, svc.Touch(ctx, conv.ID))

	earlier := conv.LastMessageAt.Add(-time.Hour)
	svc.now = func() time.Time { return earlier }
	require.NoError(t, svc.Touch(ctx, conv.ID))

	got, err := svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.WithinDuration(t, later, got.LastMessageAt, time.Millisecond)

	err = svc.Touch(ctx, assignee)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListActiveAndCount(t *testing.T) {
	svc, store, contactID := setup(t)
	ctx := context.Background()
	other, err := store.InsertContact(ctx, sqlc.InsertContactParams{Name: db.Text("Other")})
	require.NoError(t, err)

	a, _, err := svc.GetOrCreateActive(ctx, contactID)
	require.NoError(t, err)
	b, _, err := svc.GetOrCreateActive(ctx, db.UUIDToString(other.ID))
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	require.NoError(t, svc.Touch(ctx, a.ID))

	items, err := svc.ListActive(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, a.ID, items[0].ID)
	assert.Equal(t, "+15551234567", items[0].ContactPhone)
	assert.Equal(t, b.ID, items[1].ID)
	assert.Nil(t, items[1].Last)

	_, err = svc.Assign(ctx, staff, b.ID, assignee)
	require.NoError(t, err)
	mine, err := svc.ListActive(ctx, ListFilter{AssignedTo: assignee})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, b.ID, mine[0].ID)

	_, err = svc.SetStatus(ctx, staff, b.ID, "closed")
	require.NoError(t, err)
	n, err := svc.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
