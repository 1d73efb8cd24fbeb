package service

import (
	"context"
	"fmt"

	"tessera/internal/clock"
	apperrors "tessera/internal/errors"
	"tessera/internal/models"
)

type ReviewService struct {
	events       EventStore
	reservations ReservationStore
	reviews      ReviewStore
	clock        clock.Clock
}

func NewReviewService(deps Deps) *ReviewService {
	return &ReviewService{
		events:       deps.Events,
		reservations: deps.Reservations,
		reviews:      deps.Reviews,
		clock:        deps.Clock,
	}
}

// PastUnreviewedEvents lists the user's attended, terminated events without a
// review yet, one item per reservation.
func (s *ReviewService) PastUnreviewedEvents(ctx context.Context, userID int64) ([]models.PendingReviewItem, error) {
	items, err := s.reviews.PastUnreviewedEvents(ctx, userID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reviews: %w", err)
	}
	return items, nil
}

// SaveOrUpdateReview writes the review for a reservation, replacing any
// existing one. Only the reservation holder may review, and only after the
// event has terminated.
func (s *ReviewService) SaveOrUpdateReview(ctx context.Context, actorID, reservationID int64, req *models.ReviewRequest) (*models.Review, error) {
	if err := models.ValidateRating(req.Rating); err != nil {
		return nil, err
	}
	if len(req.Comment) > models.MaxReviewComment {
		return nil, apperrors.Ef(apperrors.KindValidation,
			"comment must not exceed %d characters", models.MaxReviewComment)
	}

	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "reservation not found")
	}
	if res.UserID != actorID {
		return nil, apperrors.E(apperrors.KindForbidden, "reservation belongs to another user")
	}

	event, err := s.events.GetByID(ctx, res.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "event not found")
	}
	if event.Status != models.EventTerminated || !event.StartsAt.Before(s.clock.Now()) {
		return nil, apperrors.E(apperrors.KindBusiness, "reviews open only after the event has ended")
	}

	review := &models.Review{
		ReservationID: res.ID,
		EventID:       res.EventID,
		UserID:        res.UserID,
		Rating:        req.Rating,
		Comment:       req.Comment,
	}

	if err := s.reviews.Upsert(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}

	return review, nil
}
