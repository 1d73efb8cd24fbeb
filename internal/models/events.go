package models

import "time"

// Notification subjects published to NATS Streaming.
const (
	SubjectReservationCreated   = "reservation.created"
	SubjectReservationConfirmed = "reservation.confirmed"
	SubjectReservationCancelled = "reservation.cancelled"
	SubjectReservationReminder  = "reservation.reminder"
)

// ReservationCreatedMessage announces a newly admitted reservation.
type ReservationCreatedMessage struct {
	ReservationID int64     `json:"reservation_id"`
	Code          string    `json:"code"`
	EventID       int64     `json:"event_id"`
	EventTitle    string    `json:"event_title"`
	UserID        int64     `json:"user_id"`
	SeatCount     int       `json:"seat_count"`
	TotalAmount   int64     `json:"total_amount"`
	Timestamp     time.Time `json:"timestamp"`
}

// ReservationConfirmedMessage announces a PENDING -> CONFIRMED transition.
type ReservationConfirmedMessage struct {
	ReservationID int64     `json:"reservation_id"`
	Code          string    `json:"code"`
	EventID       int64     `json:"event_id"`
	UserID        int64     `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// ReservationCancelledMessage announces a cancellation, with the optional
// operator-supplied reason for the notification body.
type ReservationCancelledMessage struct {
	ReservationID int64     `json:"reservation_id"`
	Code          string    `json:"code"`
	EventID       int64     `json:"event_id"`
	UserID        int64     `json:"user_id"`
	Reason        string    `json:"reason,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// ReservationReminderMessage nudges a holder ahead of the event start.
type ReservationReminderMessage struct {
	ReservationID int64     `json:"reservation_id"`
	Code          string    `json:"code"`
	EventID       int64     `json:"event_id"`
	EventTitle    string    `json:"event_title"`
	UserID        int64     `json:"user_id"`
	StartsAt      time.Time `json:"starts_at"`
	Timestamp     time.Time `json:"timestamp"`
}
