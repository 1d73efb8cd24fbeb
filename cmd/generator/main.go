package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"tessera/internal/config"
	"tessera/internal/database"
	"tessera/internal/logger"
	"tessera/internal/models"
	"tessera/internal/repository"
)

var (
	userCount  = flag.Int("users", 50, "Number of client users to generate")
	eventCount = flag.Int("events", 20, "Number of events to generate")
	seed       = flag.Int64("seed", 0, "Random seed (0 = time-based)")
	dryRun     = flag.Bool("dry-run", false, "Show what would be generated without writing")
)

var cities = []string{"Almaty", "Astana", "Shymkent", "Karaganda", "Aktobe"}

var venues = []string{"Central Arena", "Palace of Culture", "Expo Hall", "Riverside Stage", "Old Theatre"}

var categories = []models.Category{
	models.CategoryConcert,
	models.CategoryTheatre,
	models.CategoryConference,
	models.CategorySport,
	models.CategoryOther,
}

type generator struct {
	repos *repository.Repositories
	rng   *rand.Rand
}

// The generator seeds a development database with organizers, clients,
// published events and a spread of reservations.
func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, "text")

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	slog.Info("Starting data generator", "users", *userCount, "events", *eventCount, "seed", *seed)

	if *dryRun {
		slog.Info("Dry run, nothing will be written")
		return
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	g := &generator{repos: repository.NewRepositories(db), rng: rng}

	if err := g.run(context.Background()); err != nil {
		slog.Error("Generation failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Data generation completed successfully")
}

func (g *generator) run(ctx context.Context) error {
	organizers, clients, err := g.generateUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate users: %w", err)
	}

	events, err := g.generateEvents(ctx, organizers)
	if err != nil {
		return fmt.Errorf("failed to generate events: %w", err)
	}

	if err := g.generateReservations(ctx, events, clients); err != nil {
		return fmt.Errorf("failed to generate reservations: %w", err)
	}

	return nil
}

func (g *generator) generateUsers(ctx context.Context) (organizers, clients []*models.User, err error) {
	organizerCount := *userCount/10 + 1

	for i := 0; i < organizerCount; i++ {
		user := &models.User{
			Email:     fmt.Sprintf("organizer%d@tessera.dev", i+1),
			FirstName: fmt.Sprintf("Org%d", i+1),
			Surname:   "Organizer",
			Role:      models.RoleOrganizer,
			IsActive:  true,
		}
		if err := g.repos.Users.Create(ctx, user); err != nil {
			return nil, nil, err
		}
		organizers = append(organizers, user)
	}

	for i := 0; i < *userCount; i++ {
		user := &models.User{
			Email:     fmt.Sprintf("client%d@tessera.dev", i+1),
			FirstName: fmt.Sprintf("Client%d", i+1),
			Surname:   "Tester",
			Role:      models.RoleClient,
			IsActive:  true,
		}
		if err := g.repos.Users.Create(ctx, user); err != nil {
			return nil, nil, err
		}
		clients = append(clients, user)
	}

	slog.Info("Generated users", "organizers", len(organizers), "clients", len(clients))
	return organizers, clients, nil
}

func (g *generator) generateEvents(ctx context.Context, organizers []*models.User) ([]*models.Event, error) {
	var events []*models.Event

	for i := 0; i < *eventCount; i++ {
		startsIn := time.Duration(g.rng.Intn(60*24)+49) * time.Hour
		start := time.Now().Add(startsIn).Truncate(time.Hour)

		event := &models.Event{
			Title:       fmt.Sprintf("Generated Event %d", i+1),
			Category:    categories[g.rng.Intn(len(categories))],
			StartsAt:    start,
			EndsAt:      start.Add(time.Duration(g.rng.Intn(5)+1) * time.Hour),
			Venue:       venues[g.rng.Intn(len(venues))],
			City:        cities[g.rng.Intn(len(cities))],
			CapacityMax: (g.rng.Intn(20) + 1) * 50,
			UnitPrice:   int64(g.rng.Intn(190)+10) * 100,
			Status:      models.EventPublished,
			OrganizerID: organizers[g.rng.Intn(len(organizers))].ID,
		}

		if err := g.repos.Events.Create(ctx, event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	slog.Info("Generated events", "count", len(events))
	return events, nil
}

func (g *generator) generateReservations(ctx context.Context, events []*models.Event, clients []*models.User) error {
	created := 0
	now := time.Now()

	for _, event := range events {
		// Fill roughly a third of each event.
		target := event.CapacityMax / 3
		filled := 0

		for filled < target {
			res := &models.Reservation{
				EventID:   event.ID,
				UserID:    clients[g.rng.Intn(len(clients))].ID,
				SeatCount: g.rng.Intn(models.MaxSeatsPerReservation) + 1,
				Code:      models.NewReservationCode(),
			}

			err := g.repos.Reservations.CreateWithCapacityCheck(ctx, res, now)
			if err == repository.ErrCodeTaken {
				continue
			}
			if err != nil {
				return err
			}

			// Confirm most of them so revenue figures look real.
			if g.rng.Intn(10) < 7 {
				if _, err := g.repos.Reservations.ConditionalUpdateStatus(ctx, res.ID,
					models.ReservationPending, models.ReservationConfirmed); err != nil {
					return err
				}
			}

			filled += res.SeatCount
			created++
		}
	}

	slog.Info("Generated reservations", "count", created)
	return nil
}
