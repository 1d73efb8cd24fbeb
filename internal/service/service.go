package service

import (
	"context"
	"time"

	"tessera/internal/clock"
	"tessera/internal/models"
)

// EventStore is the persistence surface the event lifecycle needs.
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	List(ctx context.Context, category *models.Category, city, date string, page, pageSize int) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id int64) error
	ConditionalUpdateStatus(ctx context.Context, id int64, expected, next models.EventStatus) (bool, error)
	CountReservations(ctx context.Context, eventID int64) (int, error)
	CancelWithReservations(ctx context.Context, eventID int64) ([]models.Reservation, error)
}

// ReservationStore is the persistence surface of the booking orchestrator.
// CreateWithCapacityCheck must serialize capacity-check-then-insert per
// event; the Postgres implementation does this with a row lock on the event.
type ReservationStore interface {
	CreateWithCapacityCheck(ctx context.Context, res *models.Reservation, now time.Time) error
	GetByID(ctx context.Context, id int64) (*models.Reservation, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Reservation, error)
	SumSeats(ctx context.Context, eventID int64, statuses ...models.ReservationStatus) (int, error)
	SumConfirmedAmount(ctx context.Context, eventID int64) (int64, error)
	ConditionalUpdateStatus(ctx context.Context, id int64, expected, next models.ReservationStatus) (bool, error)
}

type ReviewStore interface {
	Upsert(ctx context.Context, review *models.Review) error
	PastUnreviewedEvents(ctx context.Context, userID int64, now time.Time) ([]models.PendingReviewItem, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Notifier is the fire-and-forget notification collaborator. Implementations
// never return errors to the triggering operation.
type Notifier interface {
	ReservationCreated(ctx context.Context, res *models.Reservation, event *models.Event)
	ReservationConfirmed(ctx context.Context, res *models.Reservation)
	ReservationCancelled(ctx context.Context, res *models.Reservation, reason string)
}

// SearchIndex is the optional event search read model.
type SearchIndex interface {
	IndexEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id int64) error
	Search(ctx context.Context, query, category, date string, page, pageSize int) ([]int64, error)
}

// AvailabilityCache is the optional, advisory availability snapshot.
type AvailabilityCache interface {
	GetAvailability(ctx context.Context, eventID int64) (int, bool, error)
	SetAvailability(ctx context.Context, eventID int64, seats int) error
	InvalidateAvailability(ctx context.Context, eventID int64) error
}

type Services struct {
	Events       *EventService
	Reservations *ReservationService
	Reviews      *ReviewService
}

// Deps bundles the collaborators of the service layer. Search and Cache may
// be nil; the services degrade to SQL-only reads.
type Deps struct {
	Events       EventStore
	Reservations ReservationStore
	Reviews      ReviewStore
	Users        UserStore
	Notifier     Notifier
	Search       SearchIndex
	Cache        AvailabilityCache
	Clock        clock.Clock
}

func NewServices(deps Deps) *Services {
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}

	return &Services{
		Events:       NewEventService(deps),
		Reservations: NewReservationService(deps),
		Reviews:      NewReviewService(deps),
	}
}
