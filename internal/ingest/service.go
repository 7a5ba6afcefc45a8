// Package ingest runs every channel event through the same pipeline:
// resolve contact, resolve active conversation, persist the communication,
// touch the conversation, then notify the observer without waiting.
package ingest

import (
	"context"
	"log/slog"

	"github.com/waddythomson/buwa-crm/internal/communications"
	"github.com/waddythomson/buwa-crm/internal/config"
	"github.com/waddythomson/buwa-crm/internal/contacts"
	"github.com/waddythomson/buwa-crm/internal/conversation"
	"github.com/waddythomson/buwa-crm/internal/metrics"
	"github.com/waddythomson/buwa-crm/internal/notes"
	"github.com/waddythomson/buwa-crm/internal/observer"
)

type Service struct {
	contacts      *contacts.Service
	conversations *conversation.Service
	comms         *communications.Service
	notes         *notes.Service
	provider      Provider
	notifier      observer.Notifier
	metrics       *metrics.Metrics
	opts          Options
	logger        *slog.Logger
}

type Deps struct {
	Contacts       *contacts.Service
	Conversations  *conversation.Service
	Communications *communications.Service
	Notes          *notes.Service
	Provider       Provider
	Notifier       observer.Notifier
	Metrics        *metrics.Metrics
}

func NewService(log *slog.Logger, deps Deps, opts Options) *Service {
	if log == nil {
		log = slog.Default()
	}
	if opts.DefaultSource == "" {
		opts.DefaultSource = config.DefaultLeadSource
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = observer.NewDispatcher(log, observer.NoopSink{}, 0, deps.Metrics)
	}
	return &Service{
		contacts:      deps.Contacts,
		conversations: deps.Conversations,
		comms:         deps.Communications,
		notes:         deps.Notes,
		provider:      deps.Provider,
		notifier:      notifier,
		metrics:       deps.Metrics,
		opts:          opts,
		logger:        log.With(slog.String("service", "ingest")),
	}
}

// thread is the contact and conversation an event was attached to.
type thread struct {
	contact      contacts.Contact
	newContact   bool
	conversation conversation.Conversation
}

func (s *Service) resolveThread(ctx context.Context, id contacts.Identity) (thread, error) {
	contact, created, err := s.contacts.ResolveOrCreate(ctx, id)
	if err != nil {
		return thread{}, err
	}
	conv, _, err := s.conversations.GetOrCreateActive(ctx, contact.ID)
	if err != nil {
		return thread{}, err
	}
	return thread{contact: contact, newContact: created, conversation: conv}, nil
}

// threadForContact attaches to an existing contact by id.
func (s *Service) threadForContact(ctx context.Context, contactID string) (thread, error) {
	contact, err := s.contacts.GetByID(ctx, contactID)
	if err != nil {
		return thread{}, err
	}
	conv, _, err := s.conversations.GetOrCreateActive(ctx, contact.ID)
	if err != nil {
		return thread{}, err
	}
	return thread{contact: contact, conversation: conv}, nil
}

// record persists the communication and touches its conversation. Touch
// is skipped for a redelivered external id.
func (s *Service) record(ctx context.Context, th thread, p communications.RecordParams) (communications.Communication, bool, error) {
	p.ContactID = th.contact.ID
	p.ConversationID = th.conversation.ID
	comm, dup, err := s.comms.Record(ctx, p)
	if err != nil {
		return communications.Communication{}, false, err
	}
	if dup {
		return comm, true, nil
	}
	if err := s.conversations.Touch(ctx, th.conversation.ID); err != nil {
		return comm, false, err
	}
	return comm, false, nil
}
