package models

import (
	"time"
)

// User represents a platform account. Authentication is handled upstream;
// the engine only cares about identity, role and the active flag.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FirstName    string    `json:"first_name" db:"first_name"`
	Surname      string    `json:"surname" db:"surname"`
	Role         Role      `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}

// Event is a ticketed event with a single finite seat pool.
type Event struct {
	ID          int64       `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Category    Category    `json:"category" db:"category"`
	StartsAt    time.Time   `json:"starts_at" db:"starts_at"`
	EndsAt      time.Time   `json:"ends_at" db:"ends_at"`
	Venue       string      `json:"venue" db:"venue"`
	City        string      `json:"city" db:"city"`
	CapacityMax int         `json:"capacity_max" db:"capacity_max"`
	UnitPrice   int64       `json:"unit_price" db:"unit_price"` // cents
	Status      EventStatus `json:"status" db:"status"`
	OrganizerID int64       `json:"organizer_id" db:"organizer_id"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// Reservation holds seats on an event for a user. TotalAmount is frozen at
// creation time and never recomputed from a later price change.
type Reservation struct {
	ID          int64             `json:"id" db:"id"`
	EventID     int64             `json:"event_id" db:"event_id"`
	UserID      int64             `json:"user_id" db:"user_id"`
	SeatCount   int               `json:"seat_count" db:"seat_count"`
	TotalAmount int64             `json:"total_amount" db:"total_amount"` // cents
	Status      ReservationStatus `json:"status" db:"status"`
	Code        string            `json:"code" db:"code"`
	Comment     string            `json:"comment,omitempty" db:"comment"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// Review is keyed by reservation: a user who books the same event twice may
// review each booking once. Event and user are denormalized for queries.
type Review struct {
	ID            int64     `json:"id" db:"id"`
	ReservationID int64     `json:"reservation_id" db:"reservation_id"`
	EventID       int64     `json:"event_id" db:"event_id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	Rating        int       `json:"rating" db:"rating"`
	Comment       string    `json:"comment,omitempty" db:"comment"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
