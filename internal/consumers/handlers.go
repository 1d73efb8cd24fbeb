package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/stan.go"

	"tessera/internal/models"
	"tessera/internal/repository"
)

// Handlers delivers reservation notifications to their holders. Delivery
// here means a structured log line; the email and push channels hang off
// these handlers when they exist.
type Handlers struct {
	repos *repository.Repositories
}

func NewHandlers(repos *repository.Repositories) *Handlers {
	return &Handlers{repos: repos}
}

func (h *Handlers) HandleReservationCreated(m *stan.Msg) {
	var msg models.ReservationCreatedMessage
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		slog.Error("Failed to unmarshal reservation created message", "error", err)
		return
	}

	user, err := h.repos.Users.GetByID(context.Background(), msg.UserID)
	if err != nil {
		slog.Error("Failed to get user for notification", "error", err, "user_id", msg.UserID)
		return
	}
	if user == nil {
		slog.Warn("Reservation created for unknown user", "user_id", msg.UserID, "reservation_id", msg.ReservationID)
		m.Ack()
		return
	}

	slog.Info("Reservation confirmation notification",
		"email", user.Email,
		"reservation_id", msg.ReservationID,
		"code", msg.Code,
		"event", msg.EventTitle,
		"seat_count", msg.SeatCount,
		"total_amount", msg.TotalAmount)

	m.Ack()
}

func (h *Handlers) HandleReservationConfirmed(m *stan.Msg) {
	var msg models.ReservationConfirmedMessage
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		slog.Error("Failed to unmarshal reservation confirmed message", "error", err)
		return
	}

	slog.Info("Reservation confirmed notification",
		"reservation_id", msg.ReservationID,
		"code", msg.Code,
		"user_id", msg.UserID)

	m.Ack()
}

func (h *Handlers) HandleReservationCancelled(m *stan.Msg) {
	var msg models.ReservationCancelledMessage
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		slog.Error("Failed to unmarshal reservation cancelled message", "error", err)
		return
	}

	slog.Info("Reservation cancelled notification",
		"reservation_id", msg.ReservationID,
		"code", msg.Code,
		"user_id", msg.UserID,
		"reason", msg.Reason)

	m.Ack()
}

func (h *Handlers) HandleReservationReminder(m *stan.Msg) {
	var msg models.ReservationReminderMessage
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		slog.Error("Failed to unmarshal reservation reminder message", "error", err)
		return
	}

	slog.Info("Event reminder notification",
		"reservation_id", msg.ReservationID,
		"code", msg.Code,
		"user_id", msg.UserID,
		"event", msg.EventTitle,
		"starts_at", msg.StartsAt)

	m.Ack()
}
