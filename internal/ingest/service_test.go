package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waddythomson/buwa-crm/internal/apperr"
	"github.com/waddythomson/buwa-crm/internal/communications"
	"github.com/waddythomson/buwa-crm/internal/contacts"
	"github.com/waddythomson/buwa-crm/internal/conversation"
	"github.com/waddythomson/buwa-crm/internal/db"
	"github.com/waddythomson/buwa-crm/internal/db/memstore"
	"github.com/waddythomson/buwa-crm/internal/identity"
	"github.com/waddythomson/buwa-crm/internal/logger"
	"github.com/waddythomson/buwa-crm/internal/notes"
	"github.com/waddythomson/buwa-crm/internal/observer"
)

var staff = identity.Staff{UserID: "550e8400-e29b-41d4-a716-446655440000", Role: identity.RoleStaff}

type fakeProvider struct {
	mu       sync.Mutex
	sendErr  error
	callErr  error
	messages []string
	calls    []string
	seq      int
}

func (p *fakeProvider) SendMessage(_ context.Context, to, body string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return "", p.sendErr
	}
	p.seq++
	p.messages = append(p.messages, to+": "+body)
	return "SM-out-" + string(rune('a'+p.seq)), nil
}

func (p *fakeProvider) PlaceCall(_ context.Context, to, callbackURL string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.callErr != nil {
		return "", p.callErr
	}
	p.seq++
	p.calls = append(p.calls, to+" -> "+callbackURL)
	return "CA-out-" + string(rune('a'+p.seq)), nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []observer.Event
}

func (n *fakeNotifier) Notify(ev observer.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *fakeNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	svc      *Service
	store    *memstore.Store
	provider *fakeProvider
	notifier *fakeNotifier
	convs    *conversation.Service
}

func newFixture() fixture {
	log := logger.Discard()
	store := memstore.New()
	provider := &fakeProvider{}
	notifier := &fakeNotifier{}
	convs := conversation.NewService(log, store, nil)
	svc := NewService(log, Deps{
		Contacts:       contacts.NewService(log, store),
		Conversations:  convs,
		Communications: communications.NewService(log, store),
		Notes:          notes.NewService(log, store),
		Provider:       provider,
		Notifier:       notifier,
	}, Options{
		OutboundCallURL: "https://crm.example.com/twilio/outbound-call",
		WelcomeMessage:  "Welcome!",
	})
	return fixture{svc: svc, store: store, provider: provider, notifier: notifier, convs: convs}
}

func TestInboundSMSCreatesThread(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Handle(context.Background(), InboundMessage{From: "+15551234567", To: "+15550000000", Body: "Hi", MessageID: "SM1"})
	require.NoError(t, err)
	assert.True(t, res.NewContact)

	contactRows := f.store.Contacts()
	require.Len(t, contactRows, 1)
	assert.Equal(t, "+15551234567", contactRows[0].Phone.String)

	convRows := f.store.Conversations()
	require.Len(t, convRows, 1)
	assert.Equal(t, "open", convRows[0].Status)

	commRows := f.store.Communications()
	require.Len(t, commRows, 1)
	assert.Equal(t, "sms", commRows[0].Type)
	assert.Equal(t, "inbound", commRows[0].Direction)
	assert.Equal(t, "Hi", commRows[0].Content.String)
	assert.Equal(t, convRows[0].ID, commRows[0].ConversationID)

	assert.Equal(t, []string{observer.TypeInboundSMS}, f.notifier.types())
}

func TestThreadStabilityAcrossChannels(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Handle(ctx, InboundMessage{From: "(555) 123-4567", Body: "Hi", MessageID: "SM1"})
	require.NoError(t, err)
	call, err := f.svc.Handle(ctx, InboundCall{From: "+15551234567", CallID: "CA1", Status: "ringing"})
	require.NoError(t, err)
	out, err := f.svc.SendSMS(ctx, staff, OutboundSMS{To: "555-123-4567", Body: "Got it"})
	require.NoError(t, err)

	assert.Equal(t, first.ConversationID, call.ConversationID)
	assert.Equal(t, first.ConversationID, out.ConversationID)
	assert.Equal(t, first.ContactID, out.ContactID)
	assert.Len(t, f.store.Contacts(), 1)
	assert.Len(t, f.store.Conversations(), 1)
	assert.Equal(t, "Incoming call - ringing", f.store.Communications()[1].Content.String)
}

func TestInboundAfterCloseStartsNewConversation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Handle(ctx, InboundMessage{From: "+15551234567", Body: "Hi", MessageID: "SM1"})
	require.NoError(t, err)
	_, err = f.convs.SetStatus(ctx, staff, first.ConversationID, "closed")
	require.NoError(t, err)

	second, err := f.svc.Handle(ctx, InboundMessage{From: "+15551234567", Body: "Hi", MessageID: "SM2"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, first.ContactID, second.ContactID)

	closed, err := f.convs.Get(ctx, first.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, conversation.StatusClosed, closed.Status)
	assert.Equal(t, second.ConversationID, db.UUIDToString(f.store.Communications()[1].ConversationID))
}

func TestRedeliveredWebhookIsAcknowledgedOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := InboundMessage{From: "+15551234567", Body: "Hi", MessageID: "SM1"}

	first, err := f.svc.Handle(ctx, ev)
	require.NoError(t, err)
	again, err := f.svc.Handle(ctx, ev)
	require.NoError(t, err)

	assert.True(t, again.Duplicate)
	assert.Equal(t, first.CommunicationID, again.CommunicationID)
	assert.Len(t, f.store.Communications(), 1)
	assert.Len(t, f.notifier.types(), 1)
}

func TestConcurrentFirstContact(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Handle(ctx, InboundMessage{From: "+15551234567", Body: "Hi", MessageID: "SM" + string(rune('A'+i))})
			assert.NoError(t, err)
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Handle(ctx, InboundCall{From: "5551234567", CallID: "CA" + string(rune('A'+i))})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, f.store.Contacts(), 1)
	assert.Len(t, f.store.Conversations(), 1)
	assert.Len(t, f.store.Communications(), 20)
}

func TestInboundFromWithheldNumber(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sms, err := f.svc.Handle(ctx, InboundMessage{From: "anonymous", Body: "Hi", MessageID: "SM1"})
	require.NoError(t, err)
	call, err := f.svc.Handle(ctx, InboundCall{From: "anonymous", CallID: "CA1", Status: "ringing"})
	require.NoError(t, err)

	assert.Equal(t, sms.ContactID, call.ContactID)
	contactRows := f.store.Contacts()
	require.Len(t, contactRows, 1)
	assert.Equal(t, "+1", contactRows[0].Phone.String)
	assert.Len(t, f.store.Communications(), 2)
}

func TestInboundValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Handle(ctx, InboundMessage{Body: "Hi", MessageID: "SM1"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = f.svc.Handle(ctx, InboundCall{From: "+15551234567"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = f.svc.Handle(ctx, RecordingCompleted{CallID: "CA1"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Empty(t, f.store.Contacts())
}

func TestRecordingCompleted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Handle(ctx, RecordingCompleted{CallID: "CA-none", RecordingURL: "https://api.twilio.com/r/RE1"})
	require.NoError(t, err)
	assert.Zero(t, res.Updated)

	_, err = f.svc.Handle(ctx, InboundCall{From: "+15551234567", CallID: "CA1", Status: "ringing"})
	require.NoError(t, err)
	dur := int32(17)
	res, err = f.svc.Handle(ctx, RecordingCompleted{CallID: "CA1", RecordingURL: "https://api.twilio.com/r/RE1", Duration: &dur})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Updated)
	_, err = f.svc.Handle(ctx, TranscriptionCompleted{CallID: "CA1", Text: "call me"})
	require.NoError(t, err)

	row := f.store.Communications()[0]
	assert.Equal(t, "voicemail", row.Type)
	assert.Equal(t, int32(17), row.Duration.Int32)
	assert.Equal(t, "call me", row.Content.String)
}

func TestSendSMSProviderFailureStoresNothing(t *testing.T) {
	f := newFixture()
	f.provider.sendErr = errors.New("21211 invalid 'To' phone number")

	_, err := f.svc.SendSMS(context.Background(), staff, OutboundSMS{To: "5551234567", Body: "hello"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
	assert.Empty(t, f.store.Communications())
	assert.Empty(t, f.store.Contacts())
	assert.Empty(t, f.notifier.types())
}

func TestPlaceCallProviderFailureStoresNothing(t *testing.T) {
	f := newFixture()
	f.provider.callErr = errors.New("rejected")

	_, err := f.svc.PlaceCall(context.Background(), staff, OutboundCall{To: "5551234567"})
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
	assert.Empty(t, f.store.Communications())
}

func TestOutboundValidationBeforeProvider(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.SendSMS(ctx, staff, OutboundSMS{Body: "x"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = f.svc.SendSMS(ctx, staff, OutboundSMS{To: "anonymous", Body: "x"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = f.svc.SendSMS(ctx, staff, OutboundSMS{To: "5551234567", Body: "  "})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = f.svc.SendSMS(ctx, identity.Staff{}, OutboundSMS{To: "5551234567", Body: "x"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = f.svc.PlaceCall(ctx, staff, OutboundCall{To: "5551234567", ContactID: staff.UserID})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	assert.Empty(t, f.provider.messages)
	assert.Empty(t, f.provider.calls)
}

func TestOutboundRecordsCaller(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.PlaceCall(ctx, staff, OutboundCall{To: "5551234567"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ExternalID)

	rows := f.store.Communications()
	require.Len(t, rows, 1)
	assert.Equal(t, "call", rows[0].Type)
	assert.Equal(t, "outbound", rows[0].Direction)
	assert.Equal(t, staff.UserID, db.UUIDToString(rows[0].UserID))
	assert.Equal(t, res.ExternalID, rows[0].ExternalID.String)
	assert.Equal(t, []string{"+15551234567 -> https://crm.example.com/twilio/outbound-call"}, f.provider.calls)
	assert.Equal(t, staff.UserID, db.UUIDToString(f.store.Contacts()[0].CreatedBy))
	assert.Equal(t, []string{observer.TypeOutboundCall}, f.notifier.types())
}

func TestLeadPhoneOnlyWelcomeFailure(t *testing.T) {
	f := newFixture()
	f.provider.sendErr = errors.New("provider unavailable")

	res, err := f.svc.IntakeLead(context.Background(), Lead{Phone: "555-123-4567"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.IsNewContact)
	assert.False(t, res.WelcomeSMSSent)
	assert.NotEmpty(t, res.ConversationID)

	assert.Len(t, f.store.Contacts(), 1)
	assert.Len(t, f.store.Conversations(), 1)
	noteRows := f.store.Notes()
	require.Len(t, noteRows, 1)
	assert.Equal(t, "📋 New lead from buwatv.com\nPhone: 555-123-4567", noteRows[0].Content)
	assert.Empty(t, f.store.Communications())
	assert.Equal(t, []string{observer.TypeNewLead}, f.notifier.types())
}

func TestLeadWelcomeSent(t *testing.T) {
	f := newFixture()

	res, err := f.svc.IntakeLead(context.Background(), Lead{Name: "Ann", Email: "ANN@example.com", Phone: "5551234567", Source: "landing"})
	require.NoError(t, err)
	assert.True(t, res.WelcomeSMSSent)
	assert.Equal(t, []string{"+15551234567: Welcome!"}, f.provider.messages)

	rows := f.store.Communications()
	require.Len(t, rows, 1)
	assert.Equal(t, "Welcome!", rows[0].Content.String)
	assert.Equal(t, "📋 New lead from landing\nName: Ann\nEmail: ANN@example.com\nPhone: 5551234567", f.store.Notes()[0].Content)

	again, err := f.svc.IntakeLead(context.Background(), Lead{Email: "ann@EXAMPLE.com"})
	require.NoError(t, err)
	assert.False(t, again.IsNewContact)
	assert.Equal(t, res.ContactID, again.ContactID)
	assert.Equal(t, res.ConversationID, again.ConversationID)
}

func TestLeadRequiresIdentity(t *testing.T) {
	f := newFixture()

	_, err := f.svc.IntakeLead(context.Background(), Lead{Source: "x"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCallLabel(t *testing.T) {
	assert.Equal(t, "Incoming call", CallLabel(""))
	assert.Equal(t, "Incoming call - ringing", CallLabel("ringing"))
}
