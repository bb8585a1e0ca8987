package service

import (
	"context"
	"time"

	"github.com/baechuer/studio-booking/internal/booking/domain"
	"github.com/baechuer/studio-booking/internal/contracts/event"
	"github.com/baechuer/studio-booking/internal/pkg/logger"
)

// BookingService owns the synchronous command side of the booking lifecycle.
// The asynchronous PENDING -> READY / CANCELLED side lives in the consumer.
type BookingService struct {
	repo   domain.BookingRepository
	access domain.AccessClient
	quota  domain.QuotaClient
	pub    domain.EventPublisher
}

func New(repo domain.BookingRepository, access domain.AccessClient, quota domain.QuotaClient, pub domain.EventPublisher) *BookingService {
	return &BookingService{repo: repo, access: access, quota: quota, pub: pub}
}

// Create persists a PENDING booking and broadcasts BookingCreated. Inputs are
// already resolved instants; they are normalized to UTC before persistence and
// before going on the wire.
func (s *BookingService) Create(ctx context.Context, userID, studioID int64, start, end time.Time) (domain.Booking, error) {
	start = start.UTC()
	end = end.UTC()
	if !start.Before(end) {
		return domain.Booking{}, domain.ErrInvalidInterval
	}

	b, err := s.repo.Create(ctx, domain.Booking{
		UserID:   userID,
		StudioID: studioID,
		Start:    start,
		End:      end,
		Status:   domain.StatusPending,
	})
	if err != nil {
		return domain.Booking{}, err
	}

	if err := s.pub.Publish(ctx, event.TypeBookingCreated, event.BookingCreatedPayload{
		BookingID: b.ID,
		UserID:    b.UserID,
		StudioID:  b.StudioID,
		Start:     b.Start,
		End:       b.End,
	}); err != nil {
		// Best-effort: the row exists; provisioning will stall until the bus
		// recovers, which is visible as a PENDING booking.
		logger.WithCtx(ctx).Error().Err(err).Int64("booking_id", b.ID).Msg("BookingCreated publish failed")
	}
	return b, nil
}

func (s *BookingService) Get(ctx context.Context, id int64) (domain.Booking, error) {
	return s.repo.Get(ctx, id)
}

func (s *BookingService) ListRecent(ctx context.Context) ([]domain.Booking, error) {
	return s.repo.ListRecent(ctx, 20)
}

// CheckIn validates the presented code with the access provisioner and moves
// READY -> IN_USE. A peer timeout counts as an invalid code.
func (s *BookingService) CheckIn(ctx context.Context, id int64, code string) error {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != domain.StatusReady {
		return domain.ErrNotReady
	}

	ok, err := s.access.Validate(ctx, id, code)
	if err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Int64("booking_id", id).Msg("access validate call failed")
		return domain.ErrInvalidCode
	}
	if !ok {
		return domain.ErrInvalidCode
	}

	if err := s.repo.UpdateStatus(ctx, id, domain.StatusReady, domain.StatusInUse); err != nil {
		return err
	}

	if err := s.pub.Publish(ctx, event.TypeBookingCheckedIn, event.BookingRef{BookingID: id}); err != nil {
		logger.WithCtx(ctx).Error().Err(err).Int64("booking_id", id).Msg("BookingCheckedIn publish failed")
	}
	return nil
}

// CheckOut commits the quota hold (best-effort) and moves IN_USE -> FINISHED.
func (s *BookingService) CheckOut(ctx context.Context, id int64) error {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != domain.StatusInUse {
		return domain.ErrNotInUse
	}

	if b.QuotaReservationID != nil {
		if _, err := s.quota.Commit(ctx, *b.QuotaReservationID); err != nil {
			logger.WithCtx(ctx).Warn().Err(err).Int64("booking_id", id).Msg("quota commit failed; finishing anyway")
		}
	}

	if err := s.repo.UpdateStatus(ctx, id, domain.StatusInUse, domain.StatusFinished); err != nil {
		return err
	}

	if err := s.pub.Publish(ctx, event.TypeBookingCheckedOut, event.BookingRef{BookingID: id}); err != nil {
		logger.WithCtx(ctx).Error().Err(err).Int64("booking_id", id).Msg("BookingCheckedOut publish failed")
	}
	return nil
}
