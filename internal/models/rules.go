package models

import (
	"fmt"
	"math/rand"
	"time"

	apperrors "tessera/internal/errors"
)

const (
	MinSeatsPerReservation = 1
	MaxSeatsPerReservation = 10

	MaxReservationComment = 500
	MaxReviewComment      = 2000

	MinRating = 1
	MaxRating = 5

	// CancellationWindowHours is the minimum whole-hour lead time before an
	// event start inside which a holder can no longer cancel.
	CancellationWindowHours = 48
)

// NewReservationCode generates a human-readable reservation code in the
// EVT-NNNNN format. Uniqueness is enforced by the store; callers retry on
// collision.
func NewReservationCode() string {
	return fmt.Sprintf("EVT-%05d", rand.Intn(100000))
}

// ValidateSeatCount checks the per-reservation seat limit.
func ValidateSeatCount(n int) error {
	if n < MinSeatsPerReservation || n > MaxSeatsPerReservation {
		return apperrors.Ef(apperrors.KindValidation,
			"seat count must be between %d and %d", MinSeatsPerReservation, MaxSeatsPerReservation)
	}
	return nil
}

// ValidateRating checks the review rating bounds.
func ValidateRating(r int) error {
	if r < MinRating || r > MaxRating {
		return apperrors.Ef(apperrors.KindValidation,
			"rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

// ValidateForCreate checks the invariants of a new event.
func (e *Event) ValidateForCreate(now time.Time) error {
	if e.Title == "" {
		return apperrors.E(apperrors.KindValidation, "title is required")
	}
	if !e.StartsAt.After(now) {
		return apperrors.E(apperrors.KindValidation, "event start must be in the future")
	}
	if !e.EndsAt.After(e.StartsAt) {
		return apperrors.E(apperrors.KindValidation, "event end must be after start")
	}
	if e.CapacityMax < 1 {
		return apperrors.E(apperrors.KindValidation, "capacity must be at least 1")
	}
	if e.UnitPrice < 0 {
		return apperrors.E(apperrors.KindValidation, "unit price must not be negative")
	}
	return nil
}

// Editable reports whether the event still accepts field updates.
func (e *Event) Editable() bool {
	return e.Status == EventDraft || e.Status == EventPublished
}

// IsReservable reports whether a new reservation may be attempted right now.
// Recomputed on every read, never cached on the entity.
func (e *Event) IsReservable(now time.Time, availableSeats int) bool {
	return e.Status == EventPublished && now.Before(e.StartsAt) && availableSeats > 0
}

// ValidateAdmission applies the booking rules inside the transactional
// boundary: the event must accept reservations and enough seats must remain.
// reservedSeats is the current PENDING+CONFIRMED sum for the event.
func ValidateAdmission(e *Event, reservedSeats, seatCount int, now time.Time) error {
	if err := ValidateSeatCount(seatCount); err != nil {
		return err
	}
	if e.Status != EventPublished {
		return apperrors.Ef(apperrors.KindState, "event is not open for reservations (status %s)", e.Status)
	}
	if !now.Before(e.StartsAt) {
		return apperrors.E(apperrors.KindState, "event has already started")
	}
	if available := e.CapacityMax - reservedSeats; available < seatCount {
		return apperrors.Ef(apperrors.KindCapacity,
			"insufficient seats available: requested %d, available %d", seatCount, available)
	}
	return nil
}

// HoursUntil returns the whole hours between now and start, truncated.
// 47h59m yields 47.
func HoursUntil(start, now time.Time) int {
	return int(start.Sub(now).Hours())
}

// ValidateConfirm checks the PENDING -> CONFIRMED transition.
func (r *Reservation) ValidateConfirm() error {
	if r.Status != ReservationPending {
		return apperrors.Ef(apperrors.KindState, "only a pending reservation can be confirmed (status %s)", r.Status)
	}
	return nil
}

// ValidateCancel checks the transition to CANCELLED and enforces the
// cancellation window: exactly CancellationWindowHours remaining is still
// allowed, one minute less is not.
func (r *Reservation) ValidateCancel(eventStart, now time.Time) error {
	if r.Status == ReservationCancelled {
		return apperrors.E(apperrors.KindState, "reservation is already cancelled")
	}
	if HoursUntil(eventStart, now) < CancellationWindowHours {
		return apperrors.Ef(apperrors.KindCancellationWindow,
			"cancellation window has passed: less than %d hours remain before the event", CancellationWindowHours)
	}
	return nil
}

// EventMetrics is the derived capacity ledger of an event, always computed
// from the live reservation set.
type EventMetrics struct {
	ReservedSeats  int     `json:"reserved_seats"`
	AvailableSeats int     `json:"available_seats"`
	FillRate       float64 `json:"fill_rate"`
	TotalRevenue   int64   `json:"total_revenue"` // cents, CONFIRMED only
}

// ComputeMetrics derives the ledger figures from the reserved-seat sum and
// the confirmed revenue sum.
func ComputeMetrics(e *Event, reservedSeats int, confirmedRevenue int64) EventMetrics {
	m := EventMetrics{
		ReservedSeats:  reservedSeats,
		AvailableSeats: e.CapacityMax - reservedSeats,
		TotalRevenue:   confirmedRevenue,
	}
	if e.CapacityMax > 0 {
		m.FillRate = float64(reservedSeats) / float64(e.CapacityMax) * 100
	}
	return m
}
