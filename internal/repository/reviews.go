package repository

import (
	"context"
	"database/sql"
	"time"

	"tessera/internal/database"
	"tessera/internal/models"
)

type ReviewRepository struct {
	db *database.DB
}

func NewReviewRepository(db *database.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Upsert creates or updates the review keyed by reservation. The unique
// index on reservation_id enforces at most one review per booking.
func (r *ReviewRepository) Upsert(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (reservation_id, event_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (reservation_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		review.ReservationID,
		review.EventID,
		review.UserID,
		review.Rating,
		review.Comment,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
}

func (r *ReviewRepository) GetByReservationID(ctx context.Context, reservationID int64) (*models.Review, error) {
	review := &models.Review{}
	query := `
		SELECT id, reservation_id, event_id, user_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE reservation_id = $1`

	err := r.db.QueryRowContext(ctx, query, reservationID).Scan(
		&review.ID,
		&review.ReservationID,
		&review.EventID,
		&review.UserID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
		&review.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return review, err
}

// PastUnreviewedEvents returns the user's terminated, already started events
// with a non-cancelled reservation that has no review yet.
func (r *ReviewRepository) PastUnreviewedEvents(ctx context.Context, userID int64, now time.Time) ([]models.PendingReviewItem, error) {
	var items []models.PendingReviewItem
	query := `
		SELECT r.id, r.code, e.id, e.title, e.starts_at
		FROM reservations r
		JOIN events e ON e.id = r.event_id
		LEFT JOIN reviews v ON v.reservation_id = r.id
		WHERE r.user_id = $1
		  AND r.status <> 'CANCELLED'
		  AND e.status = 'TERMINATED'
		  AND e.starts_at < $2
		  AND v.id IS NULL
		ORDER BY e.starts_at DESC, r.id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item models.PendingReviewItem
		err := rows.Scan(
			&item.ReservationID,
			&item.ReservationCode,
			&item.EventID,
			&item.EventTitle,
			&item.StartsAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
