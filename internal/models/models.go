package models

import "time"

// CreateEventRequest - payload for creating an event (created in DRAFT).
type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Category    string    `json:"category" binding:"required"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at" binding:"required"`
	Venue       string    `json:"venue"`
	City        string    `json:"city"`
	CapacityMax int       `json:"capacity_max" binding:"required"`
	UnitPrice   int64     `json:"unit_price"`
}

// UpdateEventRequest - partial update of an editable event. CapacityMax is
// immutable and deliberately absent.
type UpdateEventRequest struct {
	Title     *string    `json:"title,omitempty"`
	Category  *string    `json:"category,omitempty"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	Venue     *string    `json:"venue,omitempty"`
	City      *string    `json:"city,omitempty"`
	UnitPrice *int64     `json:"unit_price,omitempty"`
}

// EventResponse - event read model with the derived capacity ledger.
type EventResponse struct {
	Event
	CategoryInfo CategoryInfo `json:"category_info"`
	Metrics      EventMetrics `json:"metrics"`
	Reservable   bool         `json:"reservable"`
}

// ListEventsResponseItem - one row of the events listing.
type ListEventsResponseItem struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Category Category  `json:"category"`
	StartsAt time.Time `json:"starts_at"`
	City     string    `json:"city"`
	Status   EventStatus `json:"status"`
}

// ListEventsResponse - events listing.
type ListEventsResponse []ListEventsResponseItem

// CreateReservationRequest - payload for booking seats on an event.
type CreateReservationRequest struct {
	EventID   int64  `json:"event_id" binding:"required"`
	SeatCount int    `json:"seat_count" binding:"required"`
	Comment   string `json:"comment,omitempty"`
}

// CancelReservationRequest - optional operator-supplied reason, carried in
// the cancellation notification.
type CancelReservationRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ReviewRequest - payload for creating or updating the review of a
// reservation.
type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment,omitempty"`
}

// PendingReviewItem - a past attended event awaiting its first review.
type PendingReviewItem struct {
	ReservationID   int64     `json:"reservation_id"`
	ReservationCode string    `json:"reservation_code"`
	EventID         int64     `json:"event_id"`
	EventTitle      string    `json:"event_title"`
	StartsAt        time.Time `json:"starts_at"`
}
