package observer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/waddythomson/buwa-crm/internal/config"
)

type NoopSink struct{}

func (NoopSink) Name() string { return "none" }

func (NoopSink) Deliver(context.Context, Envelope) error { return nil }

func (NoopSink) Close() error { return nil }

// NewSink builds the sink selected by cfg.Kind.
func NewSink(log *slog.Logger, cfg config.ObserverConfig) (Sink, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	if kind != "" && kind != "none" && strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("observer %s requires url", kind)
	}
	switch kind {
	case "", "none":
		return NoopSink{}, nil
	case "webhook":
		return NewWebhookSink(cfg.URL, &http.Client{Timeout: cfg.Timeout()}), nil
	case "amqp":
		return NewAMQPSink(log, cfg.URL, cfg.Exchange)
	case "nats":
		return NewNATSSink(cfg.URL, cfg.Subject)
	default:
		return nil, fmt.Errorf("unknown observer kind %q", cfg.Kind)
	}
}
