package observer

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/waddythomson/buwa-crm/internal/metrics"
)

const defaultTimeout = 10 * time.Second

// Dispatcher delivers each event on its own goroutine with a bounded timeout.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger

	wg        sync.WaitGroup
	entropyMu sync.Mutex
	entropy   io.Reader
	now       func() time.Time
}

func NewDispatcher(log *slog.Logger, sink Sink, timeout time.Duration, m *metrics.Metrics) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = NoopSink{}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		sink:    sink,
		timeout: timeout,
		metrics: m,
		logger:  log.With(slog.String("service", "observer"), slog.String("sink", sink.Name())),
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Notify returns immediately.
func (d *Dispatcher) Notify(ev Event) {
	env := d.envelope(ev)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sink.Deliver(ctx, env); err != nil {
			d.metrics.ObserverDelivery(d.sink.Name(), metrics.OutcomeError)
			d.logger.Warn("observer delivery failed",
				slog.String("event_id", env.Meta.ID),
				slog.String("type", env.Meta.Type),
				slog.Any("error", err))
			return
		}
		d.metrics.ObserverDelivery(d.sink.Name(), metrics.OutcomeOK)
		d.logger.Debug("observer delivered", slog.String("event_id", env.Meta.ID), slog.String("type", env.Meta.Type))
	}()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains deliveries and closes the sink.
func (d *Dispatcher) Close(ctx context.Context) error {
	waitErr := d.Wait(ctx)
	if err := d.sink.Close(); err != nil {
		return err
	}
	return waitErr
}

func (d *Dispatcher) envelope(ev Event) Envelope {
	at := d.now()
	d.entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(at), d.entropy)
	d.entropyMu.Unlock()
	data := ev.Data
	if data == nil {
		data = map[string]any{}
	}
	return Envelope{
		Meta: Meta{ID: id.String(), Type: ev.Type, Time: at, Producer: producer},
		Data: data,
	}
}
