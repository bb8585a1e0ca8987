package consumer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/baechuer/studio-booking/internal/contracts/event"
	"github.com/baechuer/studio-booking/internal/pkg/logger"
	"github.com/baechuer/studio-booking/internal/pkg/metrics"
	"github.com/baechuer/studio-booking/internal/quota/domain"
)

const serviceName = "quota"

type Repository interface {
	Reserve(ctx context.Context, userID, bookingID int64, weekStart time.Time, durationMin, capMin int) (domain.Reservation, bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Consumer answers every BookingCreated with QuotaReserved or QuotaDenied
// based on the user's remaining weekly minutes.
type Consumer struct {
	repo   Repository
	pub    Publisher
	capMin int
}

func New(repo Repository, pub Publisher, capMin int) *Consumer {
	return &Consumer{repo: repo, pub: pub, capMin: capMin}
}

func (c *Consumer) Handle(ctx context.Context, body []byte) {
	log := logger.Logger.With().Str("component", "quota_consumer").Logger()

	env, err := event.Decode(body)
	if err != nil {
		metrics.RecordPoisonMessage(serviceName)
		log.Warn().Err(err).Msg("invalid envelope json; dropping")
		return
	}
	if env.Type != event.TypeBookingCreated {
		return
	}

	var p event.BookingCreatedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.BookingID == 0 {
		metrics.RecordPoisonMessage(serviceName)
		log.Warn().Msg("invalid BookingCreated payload; dropping")
		return
	}
	metrics.RecordEventConsumed(serviceName, env.Type)
	log = log.With().Int64("booking_id", p.BookingID).Int64("user_id", p.UserID).Logger()

	weekStart := domain.WeekStart(p.Start)
	duration := domain.DurationMinutes(p.Start, p.End)

	res, granted, err := c.repo.Reserve(ctx, p.UserID, p.BookingID, weekStart, duration, c.capMin)
	if err != nil {
		log.Error().Err(err).Msg("reserve failed")
		return
	}

	if !granted {
		log.Info().Int("duration_min", duration).Msg("weekly quota exceeded")
		if err := c.pub.Publish(ctx, event.TypeQuotaDenied, event.QuotaDeniedPayload{
			BookingID: p.BookingID,
			Reason:    "weekly-limit",
		}); err != nil {
			log.Error().Err(err).Msg("QuotaDenied publish failed")
		}
		return
	}

	log.Info().Int64("reservation_id", res.ID).Int("duration_min", duration).Msg("quota held")
	if err := c.pub.Publish(ctx, event.TypeQuotaReserved, event.QuotaReservedPayload{
		BookingID:     p.BookingID,
		ReservationID: strconv.FormatInt(res.ID, 10),
	}); err != nil {
		log.Error().Err(err).Msg("QuotaReserved publish failed")
	}
}
