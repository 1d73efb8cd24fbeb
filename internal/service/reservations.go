package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tessera/internal/clock"
	apperrors "tessera/internal/errors"
	"tessera/internal/logger"
	"tessera/internal/metrics"
	"tessera/internal/models"
	"tessera/internal/repository"
)

// codeAttempts bounds the regenerate-and-retry loop on reservation code
// collisions. The code space is 100k values, so collisions are rare until
// the table is very full.
const codeAttempts = 5

type ReservationService struct {
	events       EventStore
	reservations ReservationStore
	users        UserStore
	notifier     Notifier
	cache        AvailabilityCache
	clock        clock.Clock
}

func NewReservationService(deps Deps) *ReservationService {
	return &ReservationService{
		events:       deps.Events,
		reservations: deps.Reservations,
		users:        deps.Users,
		notifier:     deps.Notifier,
		cache:        deps.Cache,
		clock:        deps.Clock,
	}
}

// Create books seats on an event. The capacity check and the insert run in
// one store transaction, so concurrent requests for the last seats cannot
// both be admitted. The total amount is frozen from the event's current
// unit price and never recomputed afterwards.
func (s *ReservationService) Create(ctx context.Context, actorID int64, req *models.CreateReservationRequest) (*models.Reservation, error) {
	if err := models.ValidateSeatCount(req.SeatCount); err != nil {
		metrics.ReservationsRejected.WithLabelValues("validation").Inc()
		return nil, err
	}
	if len(req.Comment) > models.MaxReservationComment {
		metrics.ReservationsRejected.WithLabelValues("validation").Inc()
		return nil, apperrors.Ef(apperrors.KindValidation,
			"comment must not exceed %d characters", models.MaxReservationComment)
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if actor == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "user not found")
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "event not found")
	}

	res := &models.Reservation{
		EventID:   req.EventID,
		UserID:    actor.ID,
		SeatCount: req.SeatCount,
		Comment:   req.Comment,
	}

	now := s.clock.Now()
	for attempt := 0; ; attempt++ {
		res.Code = models.NewReservationCode()
		err = s.reservations.CreateWithCapacityCheck(ctx, res, now)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrCodeTaken) && attempt < codeAttempts-1 {
			continue
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.E(apperrors.KindNotFound, "event not found")
		}
		if kind := apperrors.KindOf(err); kind != apperrors.KindUnknown {
			metrics.ReservationsRejected.WithLabelValues(kind.String()).Inc()
			return nil, err
		}
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	metrics.ReservationsAdmitted.Inc()
	s.invalidateAvailability(ctx, req.EventID)
	s.notifier.ReservationCreated(ctx, res, event)

	logger.WithContext(ctx).Info("Reservation created",
		"reservation_id", res.ID,
		"event_id", res.EventID,
		"seat_count", res.SeatCount,
		"code", res.Code)

	return res, nil
}

// Confirm transitions PENDING -> CONFIRMED.
func (s *ReservationService) Confirm(ctx context.Context, actorID, id int64) (*models.Reservation, error) {
	res, err := s.loadOwned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if err := res.ValidateConfirm(); err != nil {
		return nil, err
	}

	ok, err := s.reservations.ConditionalUpdateStatus(ctx, id, models.ReservationPending, models.ReservationConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm reservation: %w", err)
	}
	if !ok {
		return nil, apperrors.E(apperrors.KindState, "reservation is no longer pending")
	}

	res.Status = models.ReservationConfirmed
	s.notifier.ReservationConfirmed(ctx, res)

	return res, nil
}

// Cancel releases the held seats. The 48-hour window is checked against the
// event start; CONFIRMED reservations cancel under the same rule as PENDING
// ones.
func (s *ReservationService) Cancel(ctx context.Context, actorID, id int64, reason string) (*models.Reservation, error) {
	res, err := s.loadOwned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, res.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "event not found")
	}

	if err := res.ValidateCancel(event.StartsAt, s.clock.Now()); err != nil {
		return nil, err
	}

	ok, err := s.reservations.ConditionalUpdateStatus(ctx, id, res.Status, models.ReservationCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel reservation: %w", err)
	}
	if !ok {
		return nil, apperrors.E(apperrors.KindState, "reservation changed state concurrently")
	}

	res.Status = models.ReservationCancelled
	metrics.ReservationsCancelled.Inc()
	s.invalidateAvailability(ctx, res.EventID)
	s.notifier.ReservationCancelled(ctx, res, reason)

	logger.WithContext(ctx).Info("Reservation cancelled",
		"reservation_id", res.ID,
		"event_id", res.EventID,
		"seat_count", res.SeatCount)

	return res, nil
}

// ListByUser returns the acting user's reservations, newest first.
func (s *ReservationService) ListByUser(ctx context.Context, actorID int64) ([]models.Reservation, error) {
	reservations, err := s.reservations.ListByUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

func (s *ReservationService) loadOwned(ctx context.Context, actorID, id int64) (*models.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "reservation not found")
	}
	if res.UserID == actorID {
		return res, nil
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if actor == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "user not found")
	}
	if actor.Role != models.RoleAdmin {
		return nil, apperrors.E(apperrors.KindForbidden, "reservation belongs to another user")
	}
	return res, nil
}

func (s *ReservationService) invalidateAvailability(ctx context.Context, eventID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAvailability(ctx, eventID); err != nil {
		logger.WithContext(ctx).Error("Failed to invalidate availability cache", "error", err, "event_id", eventID)
	}
}
