package consumer

import (
	"context"
	"encoding/json"
	"math/rand"

	"github.com/baechuer/studio-booking/internal/access/domain"
	"github.com/baechuer/studio-booking/internal/contracts/event"
	"github.com/baechuer/studio-booking/internal/pkg/logger"
	"github.com/baechuer/studio-booking/internal/pkg/metrics"
)

const serviceName = "access"

type Repository interface {
	CreateOrGet(ctx context.Context, ac domain.AccessCode) (code string, created bool, err error)
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Consumer issues an access code for every BookingCreated, or injects a
// provisioning failure with the configured probability.
type Consumer struct {
	repo     Repository
	pub      Publisher
	failRate float64
	roll     func() float64 // overridable for tests
}

func New(repo Repository, pub Publisher, failRate float64) *Consumer {
	return &Consumer{
		repo:     repo,
		pub:      pub,
		failRate: failRate,
		roll:     rand.Float64,
	}
}

func (c *Consumer) Handle(ctx context.Context, body []byte) {
	log := logger.Logger.With().Str("component", "access_consumer").Logger()

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
	log = log.With().Int64("booking_id", p.BookingID).Logger()

	// Fault injection: simulate the door controller being unreachable.
	if c.roll() < c.failRate {
		if err := c.pub.Publish(ctx, event.TypeAccessIssueFailed, event.AccessIssueFailedPayload{
			BookingID: p.BookingID,
			Reason:    "hardware-unavailable",
		}); err != nil {
			log.Error().Err(err).Msg("AccessIssueFailed publish failed")
		}
		return
	}

	code, created, err := c.repo.CreateOrGet(ctx, domain.AccessCode{
		BookingID: p.BookingID,
		Code:      domain.GenerateCode(),
		ValidFrom: p.Start,
		ValidTo:   p.End,
		Status:    domain.StatusActive,
	})
	if err != nil {
		log.Error().Err(err).Msg("persist access code failed")
		return
	}
	if !created {
		log.Info().Msg("code already issued; republishing")
	}

	if err := c.pub.Publish(ctx, event.TypeAccessCodeIssued, event.AccessCodeIssuedPayload{
		BookingID: p.BookingID,
		Code:      code,
	}); err != nil {
		log.Error().Err(err).Msg("AccessCodeIssued publish failed")
	}
}
