package notification

import (
	"context"

	"github.com/baechuer/studio-booking/internal/contracts/event"
	"github.com/baechuer/studio-booking/internal/pkg/metrics"
	"github.com/rs/zerolog"
)

const serviceName = "notification"

// Sink renders lifecycle events as structured log lines. It stands in for
// whatever real channel (email, push) would be plugged in here.
type Sink struct {
	log zerolog.Logger
}

func NewSink(log zerolog.Logger) *Sink {
	return &Sink{log: log.With().Str("component", "notification_sink").Logger()}
}

func (s *Sink) Handle(ctx context.Context, body []byte) {
	env, err := event.Decode(body)
	if err != nil {
		metrics.RecordPoisonMessage(serviceName)
		s.log.Warn().Err(err).Msg("invalid envelope json; dropping")
		return
	}

	switch env.Type {
	case event.TypeBookingReady,
		event.TypeBookingCancelled,
		event.TypeBookingCheckedIn,
		event.TypeBookingCheckedOut:
	default:
		return
	}

	metrics.RecordEventConsumed(serviceName, env.Type)
	s.log.Info().
		Str("event", env.Type).
		RawJSON("payload", env.Payload).
		Msg("notification")
}
