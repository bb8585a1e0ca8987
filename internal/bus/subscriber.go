package bus

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/baechuer/studio-booking/internal/pkg/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Handler is invoked once per delivery. The subscriber auto-acks, so handlers
// must never panic on malformed input; poison messages are theirs to drop.
type Handler func(ctx context.Context, body []byte)

// Subscriber owns one exclusive, auto-deleted queue bound to the fanout
// exchange and feeds every broadcast to the handler, one message in flight.
type Subscriber struct {
	url  string
	name string
	log  zerolog.Logger
}

func NewSubscriber(url, name string, log zerolog.Logger) *Subscriber {
	return &Subscriber{
		url:  strings.TrimSpace(url),
		name: strings.TrimSpace(name),
		log:  log.With().Str("component", "bus_subscriber").Str("subscriber", name).Logger(),
	}
}

// Run blocks until ctx is done, reconnecting with bounded backoff:
// attempt n waits min(5·n, 30) seconds.
func (s *Subscriber) Run(ctx context.Context, handler Handler) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		err := s.consume(ctx, handler)
		if ctx.Err() != nil {
			return
		}

		attempt++
		metrics.RecordBusReconnect(s.name)
		wait := time.Duration(5*attempt) * time.Second
		if wait > 30*time.Second {
			wait = 30 * time.Second
		}
		s.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("bus connection lost; reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// consume runs one connection session: bind an anonymous exclusive queue to
// the exchange and deliver until the connection drops or ctx is canceled.
func (s *Subscriber) consume(ctx context.Context, handler Handler) error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(Exchange, "fanout", true, false, false, false, nil); err != nil {
		return err
	}

	q, err := ch.QueueDeclare(
		"",    // broker-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return err
	}

	if err := ch.QueueBind(q.Name, "", Exchange, false, nil); err != nil {
		return err
	}

	deliveries, err := ch.Consume(q.Name, s.name, true, true, false, false, nil)
	if err != nil {
		return err
	}

	s.log.Info().Str("queue", q.Name).Msg("bound to events exchange; waiting for messages")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			handler(ctx, d.Body)
		}
	}
}
