package observer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waddythomson/buwa-crm/internal/config"
	"github.com/waddythomson/buwa-crm/internal/logger"
	"github.com/waddythomson/buwa-crm/internal/metrics"
)

type recordingSink struct {
	mu    sync.Mutex
	got   []Envelope
	block chan struct{}
	err   error
}

func (s *recordingSink) Name() string { return "test" }

func (s *recordingSink) Deliver(ctx context.Context, env Envelope) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, env)
	return s.err
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) envelopes() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Envelope(nil), s.got...)
}

func TestNotifyDoesNotBlock(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(logger.Discard(), sink, time.Minute, nil)

	start := time.Now()
	d.Notify(Event{Type: TypeInboundSMS, Data: map[string]any{"body": "Hi"}})
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Empty(t, sink.envelopes())

	close(sink.block)
	require.NoError(t, d.Wait(context.Background()))
	got := sink.envelopes()
	require.Len(t, got, 1)
	assert.Equal(t, TypeInboundSMS, got[0].Meta.Type)
	assert.Equal(t, "buwa-crm", got[0].Meta.Producer)
	assert.Equal(t, "Hi", got[0].Data["body"])
	_, err := ulid.Parse(got[0].Meta.ID)
	assert.NoError(t, err)
}

func TestDeliveryTimeoutIsCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(logger.Discard(), sink, 20*time.Millisecond, m)

	d.Notify(Event{Type: TypeNewLead})
	require.NoError(t, d.Wait(context.Background()))
	assert.Empty(t, sink.envelopes())

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "crm_observer_deliveries_total" {
			for _, metric := range f.GetMetric() {
				for _, l := range metric.GetLabel() {
					if l.GetName() == "outcome" && l.GetValue() == metrics.OutcomeError {
						found = metric.GetCounter().GetValue() == 1
					}
				}
			}
		}
	}
	assert.True(t, found, "expected one failed delivery")
}

func TestEnvelopeIDsAreUniqueAndOrdered(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(logger.Discard(), sink, time.Second, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	prev := ""
	for range 50 {
		env := d.envelope(Event{Type: TypeOutboundSMS})
		assert.Greater(t, env.Meta.ID, prev)
		prev = env.Meta.ID
		assert.NotNil(t, env.Data)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(logger.Discard(), sink, time.Minute, nil)
	d.Notify(Event{Type: TypeInboundCall})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)
	close(sink.block)
	require.NoError(t, d.Wait(context.Background()))
}

func TestWebhookSink(t *testing.T) {
	var (
		mu   sync.Mutex
		body Envelope
		hdr  http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		hdr = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, srv.Client())
	env := Envelope{Meta: Meta{ID: "01J0000000000000000000000", Type: TypeNewLead}, Data: map[string]any{"source": "buwatv.com"}}
	require.NoError(t, sink.Deliver(context.Background(), env))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, env.Meta.ID, hdr.Get("X-Event-Id"))
	assert.Equal(t, "buwatv.com", body.Data["source"])
}

func TestWebhookSinkRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookSink(srv.URL, srv.Client()).Deliver(context.Background(), Envelope{})
	assert.ErrorContains(t, err, "502")
}

func TestNewSink(t *testing.T) {
	sink, err := NewSink(logger.Discard(), config.ObserverConfig{Kind: "none"})
	require.NoError(t, err)
	assert.Equal(t, "none", sink.Name())

	sink, err = NewSink(logger.Discard(), config.ObserverConfig{Kind: "Webhook", URL: "https://hooks.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "webhook", sink.Name())

	_, err = NewSink(logger.Discard(), config.ObserverConfig{Kind: "nats"})
	assert.Error(t, err)

	_, err = NewSink(logger.Discard(), config.ObserverConfig{Kind: "kafka", URL: "x"})
	assert.Error(t, err)
}

func TestAMQPSinkRedialsWithoutConnection(t *testing.T) {
	var dials int
	sink := &AMQPSink{
		url:      "amqp://broker.invalid/",
		exchange: "crm.events",
		logger:   logger.Discard(),
		dial: func(url string) (*amqp.Connection, error) {
			dials++
			assert.Equal(t, "amqp://broker.invalid/", url)
			return nil, errors.New("connection refused")
		},
	}

	env := Envelope{Meta: Meta{ID: ulid.Make().String(), Type: TypeInboundSMS}}
	err := sink.Deliver(context.Background(), env)
	assert.ErrorContains(t, err, "dial amqp")
	err = sink.Deliver(context.Background(), env)
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 2, dials)
	assert.NoError(t, sink.Close())
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "crm.inbound_sms", routingKey(TypeInboundSMS))
}

func TestNilSinkDefaultsToNoop(t *testing.T) {
	d := NewDispatcher(nil, nil, 0, nil)
	d.Notify(Event{Type: TypeInboundSMS})
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, defaultTimeout, d.timeout)
}
