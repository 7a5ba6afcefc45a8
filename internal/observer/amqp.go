package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPSink publishes to a durable topic exchange with routing key crm.<type>.
// A dropped connection is redialed on the next delivery.
type AMQPSink struct {
	url      string
	exchange string
	logger   *slog.Logger
	dial     func(url string) (*amqp.Connection, error)

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewAMQPSink(log *slog.Logger, url, exchange string) (*AMQPSink, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &AMQPSink{url: url, exchange: exchange, logger: log, dial: amqp.Dial}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.connection(); err != nil {
		return nil, err
	}
	return s, nil
}

// connection returns the live connection, dialing and declaring the exchange
// again when there is none. Callers hold s.mu.
func (s *AMQPSink) connection() (*amqp.Connection, error) {
	if s.conn != nil && !s.conn.IsClosed() {
		return s.conn, nil
	}
	if s.conn != nil {
		s.logger.Warn("amqp connection lost, redialing", slog.String("exchange", s.exchange))
		s.conn = nil
	}
	conn, err := s.dial(s.url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", s.exchange, err)
	}
	s.conn = conn
	return conn, nil
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Deliver(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	s.mu.Lock()
	conn, err := s.connection()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("enable confirms: %w", err)
	}
	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, s.exchange, routingKey(env.Meta.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.Meta.ID,
		Timestamp:    time.Now(),
		Type:         env.Meta.Type,
		AppId:        env.Meta.Producer,
		Body:         body,
	})
	if err != nil {
		return err
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("broker nacked %s", env.Meta.ID)
	}
	s.logger.Debug("published", slog.String("exchange", s.exchange), slog.String("key", routingKey(env.Meta.Type)))
	return nil
}

func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.conn.IsClosed() {
		return nil
	}
	return s.conn.Close()
}

func routingKey(eventType string) string {
	return "crm." + eventType
}
