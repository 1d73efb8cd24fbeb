package repository

import (
	"tessera/internal/database"
)

type Repositories struct {
	Events       *EventRepository
	Reservations *ReservationRepository
	Reviews      *ReviewRepository
	Users        *UserRepository
	JobRuns      *JobRunRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Events:       NewEventRepository(db),
		Reservations: NewReservationRepository(db),
		Reviews:      NewReviewRepository(db),
		Users:        NewUserRepository(db),
		JobRuns:      NewJobRunRepository(db),
	}
}
