// Package memstore is an in-memory db.Store for tests. It mirrors the
// constraints declared in db/migrations: the partial unique indexes on
// contact phone/email, active conversation per contact and communication
// external id, the CHECK constraints and foreign keys. Transactions are
// serialized, which gives the same outcome as the row lock the Postgres
// store takes; they are not rolled back on error.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/waddythomson/buwa-crm/internal/db"
	"github.com/waddythomson/buwa-crm/internal/db/sqlc"
)

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	contacts       []sqlc.Contact
	conversations  []sqlc.Conversation
	communications []sqlc.Communication
	notes          []sqlc.Note

	failures map[string]error
	last     time.Time
}

func New() *Store {
	return &Store{failures: map[string]error{}}
}

// Fail makes every later call to method return err. A nil err clears it.
func (s *Store) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

func (s *Store) WithTx(ctx context.Context, fn func(q sqlc.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := s.failure("WithTx"); err != nil {
		return err
	}
	return fn(s)
}

// Contacts returns a snapshot of every contact row.
func (s *Store) Contacts() []sqlc.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.contacts)
}

// Conversations returns a snapshot of every conversation row.
func (s *Store) Conversations() []sqlc.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.conversations)
}

// Communications returns a snapshot of every communication row.
func (s *Store) Communications() []sqlc.Communication {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.communications)
}

// Notes returns a snapshot of every note row.
func (s *Store) Notes() []sqlc.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notes)
}

func (s *Store) failure(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[method]
}

// tick returns a strictly increasing timestamp so created_at ordering is stable.
func (s *Store) tick() pgtype.Timestamptz {
	now := time.Now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return db.Timestamptz(now)
}

func newID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint, Message: "violates foreign key constraint"}
}

func checkViolation(constraint string) error {
	return &pgconn.PgError{Code: "23514", ConstraintName: constraint, Message: "violates check constraint"}
}

func isActive(status string) bool {
	return status == "open" || status == "pending"
}

// ---- contacts ----

func (s *Store) contactIndex(id pgtype.UUID) int {
	return slices.IndexFunc(s.contacts, func(c sqlc.Contact) bool { return c.ID == id })
}

func (s *Store) GetContactByID(_ context.Context, id pgtype.UUID) (sqlc.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["GetContactByID"]; err != nil {
		return sqlc.Contact{}, err
	}
	if i := s.contactIndex(id); i >= 0 {
		return s.contacts[i], nil
	}
	return sqlc.Contact{}, pgx.ErrNoRows
}

func (s *Store) GetContactByEmail(_ context.Context, email string) (sqlc.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["GetContactByEmail"]; err != nil {
		return sqlc.Contact{}, err
	}
	for _, c := range s.contacts {
		if c.Email.Valid && strings.EqualFold(c.Email.String, email) {
			return c, nil
		}
	}
	return sqlc.Contact{}, pgx.ErrNoRows
}

func (s *Store) GetContactByPhones(_ context.Context, phones []string) (sqlc.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["GetContactByPhones"]; err != nil {
		return sqlc.Contact{}, err
	}
	for _, c := range s.contacts {
		if c.Phone.Valid && slices.Contains(phones, c.Phone.String) {
			return c, nil
		}
	}
	return sqlc.Contact{}, pgx.ErrNoRows
}

func (s *Store) InsertContact(_ context.Context, arg sqlc.InsertContactParams) (sqlc.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["InsertContact"]; err != nil {
		return sqlc.Contact{}, err
	}
	if !arg.Name.Valid && !arg.Phone.Valid && !arg.Email.Valid {
		return sqlc.Contact{}, checkViolation("contacts_identity_present")
	}
	for _, c := range s.contacts {
		if arg.Phone.Valid && c.Phone.Valid && c.Phone.String == arg.Phone.String {
			return sqlc.Contact{}, pgx.ErrNoRows
		}
		if arg.Email.Valid && c.Email.Valid && strings.EqualFold(c.Email.String, arg.Email.String) {
			return sqlc.Contact{}, pgx.ErrNoRows
		}
	}
	row := sqlc.Contact{
		ID:        newID(),
		Name:      arg.Name,
		Phone:     arg.Phone,
		Email:     arg.Email,
		CreatedBy: arg.CreatedBy,
		CreatedAt: s.tick(),
	}
	s.contacts = append(s.contacts, row)
	return row, nil
}

func (s *Store) LockContact(_ context.Context, id pgtype.UUID) (pgtype.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["LockContact"]; err != nil {
		return pgtype.UUID{}, err
	}
	if s.contactIndex(id) < 0 {
		return pgtype.UUID{}, pgx.ErrNoRows
	}
	return id, nil
}

// ---- conversations ----

func (s *Store) conversationIndex(id pgtype.UUID) int {
	return slices.IndexFunc(s.conversations, func(c sqlc.Conversation) bool { return c.ID == id })
}

func (s *Store) otherActive(contactID, exclude pgtype.UUID) bool {
	return slices.ContainsFunc(s.conversations, func(c sqlc.Conversation) bool {
		return c.ContactID == contactID && c.ID != exclude && isActive(c.Status)
	})
}

func (s *Store) GetConversationByID(_ context.Context, id pgtype.UUID) (sqlc.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["GetConversationByID"]; err != nil {
		return sqlc.Conversation{}, err
	}
	if i := s.conversationIndex(id); i >= 0 {
		return s.conversations[i], nil
	}
	return sqlc.Conversation{}, pgx.ErrNoRows
}

func (s *Store) GetActiveConversationByContact(_ context.Context, contactID pgtype.UUID) (sqlc.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["GetActiveConversationByContact"]; err != nil {
		return sqlc.Conversation{}, err
	}
	var (
		best  sqlc.Conversation
		found bool
	)
	for _, c := range s.conversations {
		if c.ContactID != contactID || !isActive(c.Status) {
			continue
		}
		if !found || c.LastMessageAt.Time.After(best.LastMessageAt.Time) {
			best, found = c, true
		}
	}
	if !found {
		return sqlc.Conversation{}, pgx.ErrNoRows
	}
	return best, nil
}

func (s *Store) CreateConversation(_ context.Context, arg sqlc.CreateConversationParams) (sqlc.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["CreateConversation"]; err != nil {
		return sqlc.Conversation{}, err
	}
	if s.contactIndex(arg.ContactID) < 0 {
		return sqlc.Conversation{}, foreignKeyViolation("conversations_contact_id_fkey")
	}
	if s.otherActive(arg.ContactID, pgtype.UUID{}) {
		return sqlc.Conversation{}, uniqueViolation("idx_conversations_one_active")
	}
	created := s.tick()
	last := arg.LastMessageAt
	if !last.Valid {
		last = created
	}
	row := sqlc.Conversation{
		ID:            newID(),
		ContactID:     arg.ContactID,
		Status:        "open",
		LastMessageAt: last,
		CreatedAt:     created,
	}
	s.conversations = append(s.conversations, row)
	return row, nil
}

func advance(current, at pgtype.Timestamptz) pgtype.Timestamptz {
	if at.Valid && at.Time.After(current.Time) {
		return at
	}
	return current
}

func (s *Store) TouchConversation(_ context.Context, arg sqlc.TouchConversationParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["TouchConversation"]; err != nil {
		return 0, err
	}
	i := s.conversationIndex(arg.ID)
	if i < 0 {
		return 0, nil
	}
	s.conversations[i].LastMessageAt = advance(s.conversations[i].LastMessageAt, arg.At)
	return 1, nil
}

func (s *Store) ReopenConversation(_ context.Context, arg sqlc.ReopenConversationParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["ReopenConversation"]; err != nil {
		return 0, err
	}
	i := s.conversationIndex(arg.ID)
	if i < 0 || s.conversations[i].Status != "closed" {
		return 0, nil
	}
	if s.otherActive(s.conversations[i].ContactID, arg.ID) {
		return 0, uniqueViolation("idx_conversations_one_active")
	}
	s.conversations[i].Status = "open"
	s.conversations[i].LastMessageAt = advance(s.conversations[i].LastMessageAt, arg.At)
	return 1, nil
}

func (s *Store) UpdateConversationAssignee(_ context.Context, arg sqlc.UpdateConversationAssigneeParams) (sqlc.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["UpdateConversationAssignee"]; err != nil {
		return sqlc.Conversation{}, err
	}
	i := s.conversationIndex(arg.ID)
	if i < 0 {
		return sqlc.Conversation{}, pgx.ErrNoRows
	}
	s.conversations[i].AssignedTo = arg.AssignedTo
	return s.conversations[i], nil
}

func (s *Store) UpdateConversationStatus(_ context.Context, arg sqlc.UpdateConversationStatusParams) (sqlc.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["UpdateConversationStatus"]; err != nil {
		return sqlc.Conversation{}, err
	}
	if !isActive(arg.Status) && arg.Status != "closed" {
		return sqlc.Conversation{}, checkViolation("conversations_status_check")
	}
	i := s.conversationIndex(arg.ID)
	if i < 0 {
		return sqlc.Conversation{}, pgx.ErrNoRows
	}
	if isActive(arg.Status) && s.otherActive(s.conversations[i].ContactID, arg.ID) {
		return sqlc.Conversation{}, uniqueViolation("idx_conversations_one_active")
	}
	s.conversations[i].Status = arg.Status
	return s.conversations[i], nil
}

func (s *Store) ListActiveConversations(_ context.Context, arg sqlc.ListActiveConversationsParams) ([]sqlc.ListActiveConversationsRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["ListActiveConversations"]; err != nil {
		return nil, err
	}
	var rows []sqlc.ListActiveConversationsRow
	for _, cv := range s.conversations {
		if !isActive(cv.Status) {
			continue
		}
		if arg.AssignedTo.Valid && cv.AssignedTo != arg.AssignedTo {
			continue
		}
		row := sqlc.ListActiveConversationsRow{
			ID:            cv.ID,
			ContactID:     cv.ContactID,
			Status:        cv.Status,
			AssignedTo:    cv.AssignedTo,
			LastMessageAt: cv.LastMessageAt,
			CreatedAt:     cv.CreatedAt,
		}
		if i := s.contactIndex(cv.ContactID); i >= 0 {
			row.ContactName = s.contacts[i].Name
			row.ContactPhone = s.contacts[i].Phone
			row.ContactEmail = s.contacts[i].Email
		}
		var latest *sqlc.Communication
		for j := range s.communications {
			m := &s.communications[j]
			if m.ConversationID != cv.ID {
				continue
			}
			if latest == nil || m.CreatedAt.Time.After(latest.CreatedAt.Time) {
				latest = m
			}
		}
		if latest != nil {
			row.LastCommunicationID = latest.ID
			row.LastType = pgtype.Text{String: latest.Type, Valid: true}
			row.LastDirection = pgtype.Text{String: latest.Direction, Valid: true}
			row.LastContent = latest.Content
			row.LastCreatedAt = latest.CreatedAt
		}
		rows = append(rows, row)
	}
	slices.SortStableFunc(rows, func(a, b sqlc.ListActiveConversationsRow) int {
		return b.LastMessageAt.Time.Compare(a.LastMessageAt.Time)
	})
	if arg.MaxCount > 0 && len(rows) > int(arg.MaxCount) {
		rows = rows[:arg.MaxCount]
	}
	return rows, nil
}

func (s *Store) CountActiveConversations(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["CountActiveConversations"]; err != nil {
		return 0, err
	}
	var n int64
	for _, c := range s.conversations {
		if isActive(c.Status) {
			n++
		}
	}
	return n, nil
}

// ---- communications ----

func (s *Store) InsertCommunication(_ context.Context, arg sqlc.InsertCommunicationParams) (sqlc.Communication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["InsertCommunication"]; err != nil {
		return sqlc.Communication{}, err
	}
	if s.contactIndex(arg.ContactID) < 0 {
		return sqlc.Communication{}, foreignKeyViolation("communications_contact_id_fkey")
	}
	if arg.ConversationID.Valid && s.conversationIndex(arg.ConversationID) < 0 {
		return sqlc.Communication{}, foreignKeyViolation("communications_conversation_id_fkey")
	}
	switch arg.Type {
	case "sms", "call", "voicemail":
	default:
		return sqlc.Communication{}, checkViolation("communications_type_check")
	}
	if arg.Direction != "inbound" && arg.Direction != "outbound" {
		return sqlc.Communication{}, checkViolation("communications_direction_check")
	}
	if arg.ExternalID.Valid {
		for _, m := range s.communications {
			if m.ExternalID.Valid && m.ExternalID.String == arg.ExternalID.String {
				return sqlc.Communication{}, pgx.ErrNoRows
			}
		}
	}
	row := sqlc.Communication{
		ID:             newID(),
		ContactID:      arg.ContactID,
		ConversationID: arg.ConversationID,
		Type:           arg.Type,
		Direction:      arg.Direction,
		Content:        arg.Content,
		Duration:       arg.Duration,
		RecordingUrl:   arg.RecordingUrl,
		ExternalID:     arg.ExternalID,
		UserID:         arg.UserID,
		CreatedAt:      s.tick(),
	}
	s.communications = append(s.communications, row)
	return row, nil
}

func (s *Store) GetCommunicationByExternalID(_ context.Context, externalID pgtype.Text) (sqlc.Communication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["GetCommunicationByExternalID"]; err != nil {
		return sqlc.Communication{}, err
	}
	for _, m := range s.communications {
		if externalID.Valid && m.ExternalID.Valid && m.ExternalID.String == externalID.String {
			return m, nil
		}
	}
	return sqlc.Communication{}, pgx.ErrNoRows
}

func (s *Store) AttachRecording(_ context.Context, arg sqlc.AttachRecordingParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["AttachRecording"]; err != nil {
		return 0, err
	}
	var n int64
	for i := range s.communications {
		m := &s.communications[i]
		if !arg.ExternalID.Valid || !m.ExternalID.Valid || m.ExternalID.String != arg.ExternalID.String {
			continue
		}
		if m.Type != "call" && m.Type != "voicemail" {
			continue
		}
		m.RecordingUrl = arg.RecordingUrl
		m.Duration = arg.Duration
		if m.Direction == "inbound" {
			m.Type = "voicemail"
		}
		n++
	}
	return n, nil
}

func (s *Store) AttachTranscription(_ context.Context, arg sqlc.AttachTranscriptionParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["AttachTranscription"]; err != nil {
		return 0, err
	}
	var n int64
	for i := range s.communications {
		m := &s.communications[i]
		if !arg.ExternalID.Valid || !m.ExternalID.Valid || m.ExternalID.String != arg.ExternalID.String {
			continue
		}
		if m.Type != "call" && m.Type != "voicemail" {
			continue
		}
		m.Content = arg.Content
		n++
	}
	return n, nil
}

func (s *Store) ListCommunicationsByContact(_ context.Context, contactID pgtype.UUID) ([]sqlc.Communication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["ListCommunicationsByContact"]; err != nil {
		return nil, err
	}
	var items []sqlc.Communication
	for _, m := range s.communications {
		if m.ContactID == contactID {
			items = append(items, m)
		}
	}
	return items, nil
}

// ---- notes ----

func (s *Store) CreateNote(_ context.Context, arg sqlc.CreateNoteParams) (sqlc.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["CreateNote"]; err != nil {
		return sqlc.Note{}, err
	}
	if s.contactIndex(arg.ContactID) < 0 {
		return sqlc.Note{}, foreignKeyViolation("notes_contact_id_fkey")
	}
	if arg.ConversationID.Valid && s.conversationIndex(arg.ConversationID) < 0 {
		return sqlc.Note{}, foreignKeyViolation("notes_conversation_id_fkey")
	}
	row := sqlc.Note{
		ID:                           newID(),
		ContactID:                    arg.ContactID,
		ConversationID:               arg.ConversationID,
		PositionAfterCommunicationID: arg.PositionAfterCommunicationID,
		UserID:                       arg.UserID,
		Content:                      arg.Content,
		CreatedAt:                    s.tick(),
	}
	s.notes = append(s.notes, row)
	return row, nil
}

func (s *Store) DeleteNote(_ context.Context, id pgtype.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["DeleteNote"]; err != nil {
		return 0, err
	}
	before := len(s.notes)
	s.notes = slices.DeleteFunc(s.notes, func(n sqlc.Note) bool { return n.ID == id })
	return int64(before - len(s.notes)), nil
}

func (s *Store) ListNotesByContact(_ context.Context, contactID pgtype.UUID) ([]sqlc.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["ListNotesByContact"]; err != nil {
		return nil, err
	}
	var items []sqlc.Note
	for _, n := range s.notes {
		if n.ContactID == contactID {
			items = append(items, n)
		}
	}
	return items, nil
}

var _ db.Store = (*Store)(nil)
