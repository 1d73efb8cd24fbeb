package service

import (
	"context"
	"database/sql"
	"fmt"

	"tessera/internal/clock"
	apperrors "tessera/internal/errors"
	"tessera/internal/logger"
	"tessera/internal/models"
)

type EventService struct {
	events       EventStore
	reservations ReservationStore
	users        UserStore
	notifier     Notifier
	search       SearchIndex
	cache        AvailabilityCache
	clock        clock.Clock
}

func NewEventService(deps Deps) *EventService {
	return &EventService{
		events:       deps.Events,
		reservations: deps.Reservations,
		users:        deps.Users,
		notifier:     deps.Notifier,
		search:       deps.Search,
		cache:        deps.Cache,
		clock:        deps.Clock,
	}
}

// Create registers a new event in DRAFT for the acting organizer.
func (s *EventService) Create(ctx context.Context, actorID int64, req *models.CreateEventRequest) (*models.Event, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if actor == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "user not found")
	}
	if !actor.Role.CanCreateEvents() {
		return nil, apperrors.E(apperrors.KindForbidden, "only organizers may create events")
	}

	category, err := models.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		Title:       req.Title,
		Category:    category,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Venue:       req.Venue,
		City:        req.City,
		CapacityMax: req.CapacityMax,
		UnitPrice:   req.UnitPrice,
		Status:      models.EventDraft,
		OrganizerID: actor.ID,
	}

	if err := event.ValidateForCreate(s.clock.Now()); err != nil {
		return nil, err
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.reindex(ctx, event)

	return event, nil
}

// Get returns the event read model with its derived capacity ledger. The
// ledger is recomputed from the live reservation set on every call; the
// cache only short-circuits the seat sum and is dropped on every write.
func (s *EventService) Get(ctx context.Context, id int64) (*models.EventResponse, error) {
	event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	reserved, err := s.reservedSeats(ctx, event)
	if err != nil {
		return nil, err
	}

	revenue, err := s.reservations.SumConfirmedAmount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	metrics := models.ComputeMetrics(event, reserved, revenue)

	return &models.EventResponse{
		Event:        *event,
		CategoryInfo: event.Category.Info(),
		Metrics:      metrics,
		Reservable:   event.IsReservable(s.clock.Now(), metrics.AvailableSeats),
	}, nil
}

// List returns events filtered by category, city and date. A free-text query
// goes through the search index when one is configured.
func (s *EventService) List(ctx context.Context, query, category, city, date string, page, pageSize int) (models.ListEventsResponse, error) {
	if query != "" && s.search != nil {
		return s.listViaSearch(ctx, query, category, date, page, pageSize)
	}

	var catFilter *models.Category
	if category != "" {
		cat, err := models.ParseCategory(category)
		if err != nil {
			return nil, err
		}
		catFilter = &cat
	}

	events, err := s.events.List(ctx, catFilter, city, date, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return toListResponse(events), nil
}

func (s *EventService) listViaSearch(ctx context.Context, query, category, date string, page, pageSize int) (models.ListEventsResponse, error) {
	ids, err := s.search.Search(ctx, query, category, date, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}

	result := make(models.ListEventsResponse, 0, len(ids))
	for _, id := range ids {
		event, err := s.events.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get event: %w", err)
		}
		if event == nil {
			// Index lag: the document outlived the row.
			continue
		}
		result = append(result, toListItem(event))
	}

	return result, nil
}

// Update applies field changes to an editable event. Capacity is immutable.
func (s *EventService) Update(ctx context.Context, actorID, id int64, req *models.UpdateEventRequest) (*models.Event, error) {
	event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actorID, event); err != nil {
		return nil, err
	}
	if !event.Editable() {
		return nil, apperrors.Ef(apperrors.KindBusiness, "a %s event cannot be modified", event.Status)
	}

	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Category != nil {
		category, err := models.ParseCategory(*req.Category)
		if err != nil {
			return nil, err
		}
		event.Category = category
	}
	if req.StartsAt != nil {
		event.StartsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		event.EndsAt = *req.EndsAt
	}
	if req.Venue != nil {
		event.Venue = *req.Venue
	}
	if req.City != nil {
		event.City = *req.City
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice < 0 {
			return nil, apperrors.E(apperrors.KindValidation, "unit price must not be negative")
		}
		event.UnitPrice = *req.UnitPrice
	}

	if event.Title == "" {
		return nil, apperrors.E(apperrors.KindValidation, "title is required")
	}
	if !event.EndsAt.After(event.StartsAt) {
		return nil, apperrors.E(apperrors.KindValidation, "event end must be after start")
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	s.reindex(ctx, event)

	return event, nil
}

// Publish transitions DRAFT -> PUBLISHED.
func (s *EventService) Publish(ctx context.Context, actorID, id int64) (*models.Event, error) {
	event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actorID, event); err != nil {
		return nil, err
	}
	if !event.Status.CanTransitionTo(models.EventPublished) {
		return nil, apperrors.Ef(apperrors.KindState, "a %s event cannot be published", event.Status)
	}

	ok, err := s.events.ConditionalUpdateStatus(ctx, id, event.Status, models.EventPublished)
	if err != nil {
		return nil, fmt.Errorf("failed to publish event: %w", err)
	}
	if !ok {
		return nil, apperrors.E(apperrors.KindState, "event is no longer in draft")
	}

	event.Status = models.EventPublished
	s.reindex(ctx, event)

	return event, nil
}

// Cancel withdraws the event and cascades cancellation of all active
// reservations, bypassing their 48-hour window. One transaction per event;
// notifications go out after commit, best-effort.
func (s *EventService) Cancel(ctx context.Context, actorID, id int64) (*models.Event, error) {
	event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actorID, event); err != nil {
		return nil, err
	}
	if !event.Status.CanTransitionTo(models.EventCancelled) {
		return nil, apperrors.Ef(apperrors.KindState, "a %s event cannot be cancelled", event.Status)
	}

	cancelled, err := s.events.CancelWithReservations(ctx, id)
	if err == sql.ErrNoRows {
		return nil, apperrors.E(apperrors.KindState, "event is no longer cancellable")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel event: %w", err)
	}

	event.Status = models.EventCancelled

	if s.cache != nil {
		if err := s.cache.InvalidateAvailability(ctx, id); err != nil {
			logger.WithContext(ctx).Error("Failed to invalidate availability cache", "error", err, "event_id", id)
		}
	}

	for i := range cancelled {
		s.notifier.ReservationCancelled(ctx, &cancelled[i], "event cancelled by organizer")
	}

	s.reindex(ctx, event)

	logger.WithContext(ctx).Info("Event cancelled",
		"event_id", id,
		"reservations_cancelled", len(cancelled))

	return event, nil
}

// Delete removes a DRAFT event that never accumulated reservations.
func (s *EventService) Delete(ctx context.Context, actorID, id int64) error {
	event, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actorID, event); err != nil {
		return err
	}
	if event.Status != models.EventDraft {
		return apperrors.Ef(apperrors.KindBusiness, "only draft events can be deleted (status %s)", event.Status)
	}

	count, err := s.events.CountReservations(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count reservations: %w", err)
	}
	if count > 0 {
		return apperrors.E(apperrors.KindBusiness, "an event with reservations cannot be deleted")
	}

	if err := s.events.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if s.search != nil {
		if err := s.search.DeleteEvent(ctx, id); err != nil {
			logger.WithContext(ctx).Error("Failed to remove event from search index", "error", err, "event_id", id)
		}
	}

	return nil
}

func (s *EventService) load(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "event not found")
	}
	return event, nil
}

func (s *EventService) authorize(ctx context.Context, actorID int64, event *models.Event) error {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if actor == nil {
		return apperrors.E(apperrors.KindNotFound, "user not found")
	}
	if actor.Role == models.RoleAdmin || event.OrganizerID == actor.ID {
		return nil
	}
	return apperrors.E(apperrors.KindForbidden, "only the owning organizer may modify this event")
}

func (s *EventService) reservedSeats(ctx context.Context, event *models.Event) (int, error) {
	if s.cache != nil {
		if available, ok, err := s.cache.GetAvailability(ctx, event.ID); err == nil && ok {
			return event.CapacityMax - available, nil
		}
	}

	reserved, err := s.reservations.SumSeats(ctx, event.ID, models.ActiveReservationStatuses...)
	if err != nil {
		return 0, fmt.Errorf("failed to sum reserved seats: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetAvailability(ctx, event.ID, event.CapacityMax-reserved); err != nil {
			logger.WithContext(ctx).Error("Failed to store availability cache", "error", err, "event_id", event.ID)
		}
	}

	return reserved, nil
}

func (s *EventService) reindex(ctx context.Context, event *models.Event) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexEvent(ctx, event); err != nil {
		logger.WithContext(ctx).Error("Failed to index event", "error", err, "event_id", event.ID)
	}
}

func toListItem(event *models.Event) models.ListEventsResponseItem {
	return models.ListEventsResponseItem{
		ID:       event.ID,
		Title:    event.Title,
		Category: event.Category,
		StartsAt: event.StartsAt,
		City:     event.City,
		Status:   event.Status,
	}
}

func toListResponse(events []models.Event) models.ListEventsResponse {
	result := make(models.ListEventsResponse, len(events))
	for i := range events {
		result[i] = toListItem(&events[i])
	}
	return result
}
