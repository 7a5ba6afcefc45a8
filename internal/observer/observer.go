// Package observer notifies an external system of CRM events. Delivery is
// best effort: it never blocks the caller and failures are only logged.
package observer

import (
	"context"
	"time"
)

// Event types.
const (
	TypeInboundSMS   = "inbound_sms"
	TypeInboundCall  = "inbound_call"
	TypeNewLead      = "new_lead"
	TypeOutboundSMS  = "outbound_sms"
	TypeOutboundCall = "outbound_call"
)

const producer = "buwa-crm"

type Event struct {
	Type string
	Data map[string]any
}

type Meta struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Time     time.Time `json:"time"`
	Producer string    `json:"producer"`
}

type Envelope struct {
	Meta Meta           `json:"meta"`
	Data map[string]any `json:"data"`
}

// Notifier accepts events for asynchronous delivery.
type Notifier interface {
	Notify(Event)
}

// Sink delivers one envelope synchronously.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, env Envelope) error
	Close() error
}
