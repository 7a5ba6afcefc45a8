// Package metrics exposes Prometheus counters for ingestion, threading,
// outbound sends and observer delivery.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crm"

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// Metrics holds the registered collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ingested            *prometheus.CounterVec
	conversationsOpened prometheus.Counter
	outbound            *prometheus.CounterVec
	observer            *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_events_total",
			Help:      "Inbound provider events by channel and outcome.",
		}, []string{"channel", "outcome"}),
		conversationsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_opened_total",
			Help:      "Conversations created by the threading engine.",
		}),
		outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_sends_total",
			Help:      "Staff-initiated provider sends by type and outcome.",
		}, []string{"type", "outcome"}),
		observer: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observer_deliveries_total",
			Help:      "External observer deliveries by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.ingested, m.conversationsOpened, m.outbound, m.observer)
	}
	return m
}

func (m *Metrics) Ingested(channel, outcome string) {
	if m == nil {
		return
	}
	m.ingested.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) ConversationOpened() {
	if m == nil {
		return
	}
	m.conversationsOpened.Inc()
}

func (m *Metrics) Outbound(kind, outcome string) {
	if m == nil {
		return
	}
	m.outbound.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserverDelivery(sink, outcome string) {
	if m == nil {
		return
	}
	m.observer.WithLabelValues(sink, outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
