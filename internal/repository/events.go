package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tessera/internal/database"
	"tessera/internal/models"
)

const eventColumns = `id, title, category, starts_at, ends_at, venue, city,
       capacity_max, unit_price, status, organizer_id, created_at, updated_at`

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row interface{ Scan(...any) error }, event *models.Event) error {
	return row.Scan(
		&event.ID,
		&event.Title,
		&event.Category,
		&event.StartsAt,
		&event.EndsAt,
		&event.Venue,
		&event.City,
		&event.CapacityMax,
		&event.UnitPrice,
		&event.Status,
		&event.OrganizerID,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (title, category, starts_at, ends_at, venue, city,
		                    capacity_max, unit_price, status, organizer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		event.Title,
		event.Category,
		event.StartsAt,
		event.EndsAt,
		event.Venue,
		event.City,
		event.CapacityMax,
		event.UnitPrice,
		event.Status,
		event.OrganizerID,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	err := scanEvent(r.db.QueryRowContext(ctx, query, id), event)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return event, err
}

func (r *EventRepository) List(ctx context.Context, category *models.Category, city, date string, page, pageSize int) ([]models.Event, error) {
	var events []models.Event
	var args []interface{}
	argIndex := 1

	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`

	if category != nil {
		query += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, *category)
		argIndex++
	}

	if city != "" {
		query += fmt.Sprintf(" AND city = $%d", argIndex)
		args = append(args, city)
		argIndex++
	}

	if date != "" {
		query += fmt.Sprintf(" AND DATE(starts_at) = $%d", argIndex)
		args = append(args, date)
		argIndex++
	}

	query += " ORDER BY starts_at ASC, id ASC"

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, pageSize, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var event models.Event
		if err := scanEvent(rows, &event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET title = $1, category = $2, starts_at = $3, ends_at = $4,
		    venue = $5, city = $6, unit_price = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`

	return r.db.QueryRowContext(ctx, query,
		event.Title,
		event.Category,
		event.StartsAt,
		event.EndsAt,
		event.Venue,
		event.City,
		event.UnitPrice,
		event.ID,
	).Scan(&event.UpdatedAt)
}

func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}

// ConditionalUpdateStatus transitions the event only if it is still in the
// expected status. Returns false when another writer got there first, which
// makes the lifecycle reconciler idempotent and safe to run concurrently.
func (r *EventRepository) ConditionalUpdateStatus(ctx context.Context, id int64, expected, next models.EventStatus) (bool, error) {
	query := `
		UPDATE events
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, next, id, expected)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

// FindPublishedEndingBefore returns PUBLISHED events whose end has passed.
func (r *EventRepository) FindPublishedEndingBefore(ctx context.Context, t time.Time) ([]models.Event, error) {
	var events []models.Event
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE status = 'PUBLISHED' AND ends_at < $1
		ORDER BY ends_at ASC`

	rows, err := r.db.QueryContext(ctx, query, t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var event models.Event
		if err := scanEvent(rows, &event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// CountReservations counts reservations of any status, for the delete guard.
func (r *EventRepository) CountReservations(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE event_id = $1`, eventID).Scan(&count)
	return count, err
}

// CancelWithReservations cancels the event and cascades cancellation of its
// active reservations in one transaction, bypassing the 48-hour window since
// the event itself is being withdrawn. Returns the reservations that were
// cancelled so the caller can notify their holders.
func (r *EventRepository) CancelWithReservations(ctx context.Context, eventID int64) ([]models.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE events
		SET status = 'CANCELLED', updated_at = NOW()
		WHERE id = $1 AND status IN ('DRAFT', 'PUBLISHED')`, eventID)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}

	rows, err := tx.QueryContext(ctx, `
		UPDATE reservations
		SET status = 'CANCELLED'
		WHERE event_id = $1 AND status IN ('PENDING', 'CONFIRMED')
		RETURNING id, event_id, user_id, seat_count, total_amount, status, code, comment, created_at`,
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cancelled []models.Reservation
	for rows.Next() {
		var res models.Reservation
		err := rows.Scan(
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
		if err != nil {
			return nil, err
		}
		cancelled = append(cancelled, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return cancelled, nil
}
