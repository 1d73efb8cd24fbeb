package messaging

import (
	"context"
	"time"

	"tessera/internal/logger"
	"tessera/internal/metrics"
	"tessera/internal/models"
)

// Notifier publishes reservation lifecycle messages to NATS Streaming.
// Delivery is fire-and-forget: a failed publish is logged and counted, never
// surfaced to the operation that triggered it.
type Notifier struct {
	nats *NATSClient
}

func NewNotifier(nats *NATSClient) *Notifier {
	return &Notifier{nats: nats}
}

func (n *Notifier) ReservationCreated(ctx context.Context, res *models.Reservation, event *models.Event) {
	n.publish(ctx, models.SubjectReservationCreated, models.ReservationCreatedMessage{
		ReservationID: res.ID,
		Code:          res.Code,
		EventID:       event.ID,
		EventTitle:    event.Title,
		UserID:        res.UserID,
		SeatCount:     res.SeatCount,
		TotalAmount:   res.TotalAmount,
		Timestamp:     time.Now(),
	})
}

func (n *Notifier) ReservationConfirmed(ctx context.Context, res *models.Reservation) {
	n.publish(ctx, models.SubjectReservationConfirmed, models.ReservationConfirmedMessage{
		ReservationID: res.ID,
		Code:          res.Code,
		EventID:       res.EventID,
		UserID:        res.UserID,
		Timestamp:     time.Now(),
	})
}

func (n *Notifier) ReservationCancelled(ctx context.Context, res *models.Reservation, reason string) {
	n.publish(ctx, models.SubjectReservationCancelled, models.ReservationCancelledMessage{
		ReservationID: res.ID,
		Code:          res.Code,
		EventID:       res.EventID,
		UserID:        res.UserID,
		Reason:        reason,
		Timestamp:     time.Now(),
	})
}

func (n *Notifier) ReservationReminder(ctx context.Context, target models.ReservationReminderMessage) {
	target.Timestamp = time.Now()
	n.publish(ctx, models.SubjectReservationReminder, target)
}

func (n *Notifier) publish(ctx context.Context, subject string, message interface{}) {
	if err := n.nats.Publish(subject, message); err != nil {
		metrics.NotificationFailures.WithLabelValues(subject).Inc()
		logger.WithContext(ctx).Error("Failed to publish notification",
			"error", err,
			"subject", subject)
	}
}
