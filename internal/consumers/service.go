package consumers

import (
	"log/slog"

	"github.com/nats-io/stan.go"

	"tessera/internal/database"
	"tessera/internal/messaging"
	"tessera/internal/models"
	"tessera/internal/repository"
)

// ConsumerService runs the notification consumers off the reservation
// subjects. It shares the queue group "consumers" so reservations scale out
// without duplicate deliveries.
type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	handlers *Handlers
}

func NewConsumerService(db *database.DB, nats *messaging.NATSClient) *ConsumerService {
	repos := repository.NewRepositories(db)
	return &ConsumerService{
		db:       db,
		nats:     nats,
		handlers: NewHandlers(repos),
	}
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	subjects := []struct {
		subject string
		handler func(*stan.Msg)
	}{
		{models.SubjectReservationCreated, cs.handlers.HandleReservationCreated},
		{models.SubjectReservationConfirmed, cs.handlers.HandleReservationConfirmed},
		{models.SubjectReservationCancelled, cs.handlers.HandleReservationCancelled},
		{models.SubjectReservationReminder, cs.handlers.HandleReservationReminder},
	}

	for _, s := range subjects {
		if _, err := cs.nats.SubscribeQueue(s.subject, "consumers", s.handler); err != nil {
			return err
		}
	}

	slog.Info("All NATS consumers started successfully")
	return nil
}
