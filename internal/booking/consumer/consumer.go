package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/baechuer/studio-booking/internal/booking/domain"
	"github.com/baechuer/studio-booking/internal/contracts/event"
	"github.com/baechuer/studio-booking/internal/pkg/logger"
	"github.com/baechuer/studio-booking/internal/pkg/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const serviceName = "booking"

// Repository is the slice of the booking store the consumer needs: the dedup
// fence plus row-level merge operations inside the same transaction.
type Repository interface {
	ProcessOnce(ctx context.Context, messageID string, fn func(tx pgx.Tx) error) (bool, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (domain.Booking, error)
	SetCode(ctx context.Context, tx pgx.Tx, id int64, code string) error
	SetQuotaReservation(ctx context.Context, tx pgx.Tx, id int64, reservationID string) error
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int64, to domain.Status) error
}

// Consumer joins the two asynchronous replies (access code, quota hold) into
// the PENDING -> READY transition, and turns either failure into CANCELLED.
// The booking row is the join buffer: each partial answer is persisted and the
// readiness predicate re-checked, so the merge survives restarts and is
// commutative in delivery order.
type Consumer struct {
	repo Repository
	pub  domain.EventPublisher
}

func New(repo Repository, pub domain.EventPublisher) *Consumer {
	return &Consumer{repo: repo, pub: pub}
}

type outbound struct {
	Type    string
	Payload any
}

// Handle processes one delivery from the bus. Poison messages and unknown
// bookings are dropped; transient store errors are logged (the transaction
// rolled back, leaving the dedup fence unset for a future redelivery).
func (c *Consumer) Handle(ctx context.Context, body []byte) {
	log := logger.Logger.With().Str("component", "booking_consumer").Logger()

	env, err := event.Decode(body)
	if err != nil {
		metrics.RecordPoisonMessage(serviceName)
		log.Warn().Err(err).Msg("invalid envelope json; dropping")
		return
	}

	switch env.Type {
	case event.TypeAccessCodeIssued, event.TypeQuotaReserved,
		event.TypeAccessIssueFailed, event.TypeQuotaDenied:
	default:
		// Everything else on the broadcast exchange is not addressed to us.
		return
	}

	var ref event.BookingRef
	if err := json.Unmarshal(env.Payload, &ref); err != nil || ref.BookingID == 0 {
		metrics.RecordPoisonMessage(serviceName)
		log.Warn().Str("type", env.Type).Msg("missing bookingId; dropping")
		return
	}

	msgID := env.DedupID(ref.BookingID)
	log = log.With().Str("type", env.Type).Str("message_id", msgID).Int64("booking_id", ref.BookingID).Logger()

	var followUps []outbound
	processed, err := c.repo.ProcessOnce(ctx, msgID, func(tx pgx.Tx) error {
		return c.apply(ctx, tx, env, ref.BookingID, &followUps, log)
	})
	if err != nil {
		log.Error().Err(err).Msg("processing failed")
		return
	}
	if !processed {
		metrics.RecordDuplicateDelivery(serviceName)
		log.Info().Msg("duplicate delivery ignored")
		return
	}

	metrics.RecordEventConsumed(serviceName, env.Type)

	// Follow-up events go out after the transaction committed; publishing is
	// best-effort and must not undo the state change.
	for _, f := range followUps {
		if err := c.pub.Publish(ctx, f.Type, f.Payload); err != nil {
			log.Error().Err(err).Str("follow_up", f.Type).Msg("follow-up publish failed")
		}
	}
}

// apply merges one reply into the booking row. Runs inside the ProcessOnce
// transaction, so the dedup marker and the merge commit or roll back together.
func (c *Consumer) apply(ctx context.Context, tx pgx.Tx, env event.Envelope, bookingID int64, out *[]outbound, log zerolog.Logger) error {
	b, err := c.repo.GetForUpdate(ctx, tx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Warn().Msg("unknown booking; dropping")
		return nil
	}
	if err != nil {
		return err
	}

	switch env.Type {
	case event.TypeAccessCodeIssued:
		var p event.AccessCodeIssuedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.Code == "" {
			log.Warn().Msg("invalid payload; dropping")
			return nil
		}
		if err := c.repo.SetCode(ctx, tx, b.ID, p.Code); err != nil {
			return err
		}
		b.Code = &p.Code

	case event.TypeQuotaReserved:
		var p event.QuotaReservedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ReservationID == "" {
			log.Warn().Msg("invalid payload; dropping")
			return nil
		}
		if err := c.repo.SetQuotaReservation(ctx, tx, b.ID, p.ReservationID); err != nil {
			return err
		}
		b.QuotaReservationID = &p.ReservationID

	case event.TypeAccessIssueFailed, event.TypeQuotaDenied:
		if b.Status != domain.StatusPending {
			log.Info().Str("status", string(b.Status)).Msg("failure reply after leaving PENDING; ignoring")
			return nil
		}
		if err := c.repo.UpdateStatusTx(ctx, tx, b.ID, domain.StatusCancelled); err != nil {
			return err
		}
		*out = append(*out, outbound{
			Type:    event.TypeBookingCancelled,
			Payload: event.BookingCancelledPayload{BookingID: b.ID, Reason: env.Type},
		})
		return nil
	}

	// Readiness join: both replies persisted and nothing cancelled us yet.
	if b.Status == domain.StatusPending && b.Code != nil && b.QuotaReservationID != nil {
		if err := c.repo.UpdateStatusTx(ctx, tx, b.ID, domain.StatusReady); err != nil {
			return err
		}
		*out = append(*out, outbound{
			Type:    event.TypeBookingReady,
			Payload: event.BookingRef{BookingID: b.ID},
		})
	}
	return nil
}
