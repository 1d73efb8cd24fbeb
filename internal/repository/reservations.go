package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"tessera/internal/database"
	"tessera/internal/models"
)

// ErrCodeTaken is returned when a generated reservation code collides with
// an existing one. Callers regenerate and retry.
var ErrCodeTaken = errors.New("reservation code already taken")

const reservationColumns = `id, event_id, user_id, seat_count, total_amount, status, code, comment, created_at`

type ReservationRepository struct {
	db *database.DB
}

func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func scanReservation(row interface{ Scan(...any) error }, res *models.Reservation) error {
	return row.Scan(
		&res.ID,
		&res.EventID,
		&res.UserID,
		&res.SeatCount,
		&res.TotalAmount,
		&res.Status,
		&res.Code,
		&res.Comment,
		&res.CreatedAt,
	)
}

// CreateWithCapacityCheck is the transactional boundary of the booking
// orchestrator. It locks the event row, recomputes the capacity ledger from
// the live reservation set, applies the admission rules, freezes the amount
// at the current unit price and inserts the reservation - all in one
// transaction so that concurrent bookings on the same event serialize on the
// row lock and can never jointly overbook. Independent events stay parallel.
func (r *ReservationRepository) CreateWithCapacityCheck(ctx context.Context, res *models.Reservation, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	event := &models.Event{}
	lockQuery := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	err = scanEvent(tx.QueryRowContext(ctx, lockQuery, res.EventID), event)
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("failed to lock event: %w", err)
	}

	var reserved int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(seat_count), 0)
		FROM reservations
		WHERE event_id = $1 AND status IN ('PENDING', 'CONFIRMED')`,
		res.EventID).Scan(&reserved)
	if err != nil {
		return fmt.Errorf("failed to sum reserved seats: %w", err)
	}

	if err := models.ValidateAdmission(event, reserved, res.SeatCount, now); err != nil {
		return err
	}

	res.TotalAmount = int64(res.SeatCount) * event.UnitPrice
	res.Status = models.ReservationPending

	err = tx.QueryRowContext(ctx, `
		INSERT INTO reservations (event_id, user_id, seat_count, total_amount, status, code, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		res.EventID,
		res.UserID,
		res.SeatCount,
		res.TotalAmount,
		res.Status,
		res.Code,
		res.Comment,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrCodeTaken
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	return tx.Commit()
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	res := &models.Reservation{}
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	err := scanReservation(r.db.QueryRowContext(ctx, query, id), res)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return res, err
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID int64) ([]models.Reservation, error) {
	var reservations []models.Reservation
	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var res models.Reservation
		if err := scanReservation(rows, &res); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}

	return reservations, rows.Err()
}

func (r *ReservationRepository) ListByEventAndStatus(ctx context.Context, eventID int64, statuses ...models.ReservationStatus) ([]models.Reservation, error) {
	var reservations []models.Reservation
	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE event_id = $1 AND status = ANY($2)
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID, pq.Array(statusStrings(statuses)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var res models.Reservation
		if err := scanReservation(rows, &res); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}

	return reservations, rows.Err()
}

// SumSeats is the capacity ledger read: the seat total over the given
// statuses, computed from the live reservation set on every call.
func (r *ReservationRepository) SumSeats(ctx context.Context, eventID int64, statuses ...models.ReservationStatus) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(seat_count), 0)
		FROM reservations
		WHERE event_id = $1 AND status = ANY($2)`,
		eventID, pq.Array(statusStrings(statuses))).Scan(&total)
	return total, err
}

// SumConfirmedAmount returns the revenue over CONFIRMED reservations only.
func (r *ReservationRepository) SumConfirmedAmount(ctx context.Context, eventID int64) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM reservations
		WHERE event_id = $1 AND status = 'CONFIRMED'`,
		eventID).Scan(&total)
	return total, err
}

// ConditionalUpdateStatus transitions the reservation only if it is still in
// the expected status, so a confirm racing a cancel cannot double-apply.
func (r *ReservationRepository) ConditionalUpdateStatus(ctx context.Context, id int64, expected, next models.ReservationStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = $1
		WHERE id = $2 AND status = $3`,
		next, id, expected)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

// ListReminderTargets returns one reminder message per active reservation on
// a published event starting inside the given window.
func (r *ReservationRepository) ListReminderTargets(ctx context.Context, from, to time.Time) ([]models.ReservationReminderMessage, error) {
	var targets []models.ReservationReminderMessage
	query := `
		SELECT r.id, r.code, e.id, e.title, r.user_id, e.starts_at
		FROM reservations r
		JOIN events e ON e.id = r.event_id
		WHERE e.status = 'PUBLISHED'
		  AND e.starts_at >= $1 AND e.starts_at < $2
		  AND r.status IN ('PENDING', 'CONFIRMED')
		ORDER BY e.starts_at ASC, r.id ASC`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t models.ReservationReminderMessage
		err := rows.Scan(&t.ReservationID, &t.Code, &t.EventID, &t.EventTitle, &t.UserID, &t.StartsAt)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	return targets, rows.Err()
}

func statusStrings(statuses []models.ReservationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
