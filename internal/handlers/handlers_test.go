package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/clock"
	"tessera/internal/middleware"
	"tessera/internal/models"
	"tessera/internal/service"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// stubStore backs the full service stack for handler tests. Single mutex,
// maps per entity, capacity math matching the SQL repositories.
type stubStore struct {
	mu           sync.Mutex
	events       map[int64]*models.Event
	reservations map[int64]*models.Reservation
	reviews      map[int64]*models.Review
	users        map[int64]*models.User
	nextID       int64
}

func newStubStore() *stubStore {
	return &stubStore{
		events:       make(map[int64]*models.Event),
		reservations: make(map[int64]*models.Reservation),
		reviews:      make(map[int64]*models.Review),
		users:        make(map[int64]*models.User),
	}
}

func (s *stubStore) id() int64 { s.nextID++; return s.nextID }

func (s *stubStore) Create(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.ID = s.id()
	copied := *event
	s.events[event.ID] = &copied
	return nil
}

func (s *stubStore) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

func (s *stubStore) List(ctx context.Context, category *models.Category, city, date string, page, pageSize int) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, e := range s.events {
		out = append(out, *e)
	}
	return out, nil
}

func (s *stubStore) Update(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *event
	s.events[event.ID] = &copied
	return nil
}

func (s *stubStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, id)
	return nil
}

func (s *stubStore) ConditionalUpdateStatus(ctx context.Context, id int64, expected, next models.EventStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok || e.Status != expected {
		return false, nil
	}
	e.Status = next
	return true, nil
}

func (s *stubStore) CountReservations(ctx context.Context, eventID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.reservations {
		if r.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (s *stubStore) CancelWithReservations(ctx context.Context, eventID int64) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok || (e.Status != models.EventDraft && e.Status != models.EventPublished) {
		return nil, sql.ErrNoRows
	}
	e.Status = models.EventCancelled
	var cancelled []models.Reservation
	for _, r := range s.reservations {
		if r.EventID == eventID && r.Status.Active() {
			r.Status = models.ReservationCancelled
			cancelled = append(cancelled, *r)
		}
	}
	return cancelled, nil
}

type stubReservations struct{ *stubStore }

func (s stubReservations) CreateWithCapacityCheck(ctx context.Context, res *models.Reservation, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[res.EventID]
	if !ok {
		return sql.ErrNoRows
	}
	reserved := 0
	for _, r := range s.reservations {
		if r.EventID == res.EventID && r.Status.Active() {
			reserved += r.SeatCount
		}
	}
	if err := models.ValidateAdmission(event, reserved, res.SeatCount, now); err != nil {
		return err
	}
	res.TotalAmount = int64(res.SeatCount) * event.UnitPrice
	res.Status = models.ReservationPending
	res.ID = s.id()
	copied := *res
	s.reservations[res.ID] = &copied
	return nil
}

func (s stubReservations) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reservations[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, nil
}

func (s stubReservations) ListByUser(ctx context.Context, userID int64) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reservation
	for _, r := range s.reservations {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s stubReservations) SumSeats(ctx context.Context, eventID int64, statuses ...models.ReservationStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := 0
	for _, r := range s.reservations {
		if r.EventID != eventID {
			continue
		}
		for _, st := range statuses {
			if r.Status == st {
				sum += r.SeatCount
				break
			}
		}
	}
	return sum, nil
}

func (s stubReservations) SumConfirmedAmount(ctx context.Context, eventID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, r := range s.reservations {
		if r.EventID == eventID && r.Status == models.ReservationConfirmed {
			sum += r.TotalAmount
		}
	}
	return sum, nil
}

func (s stubReservations) ConditionalUpdateStatus(ctx context.Context, id int64, expected, next models.ReservationStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok || r.Status != expected {
		return false, nil
	}
	r.Status = next
	return true, nil
}

func (s *stubStore) Upsert(ctx context.Context, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.reviews {
		if v.ReservationID == review.ReservationID {
			v.Rating = review.Rating
			v.Comment = review.Comment
			review.ID = v.ID
			return nil
		}
	}
	review.ID = s.id()
	copied := *review
	s.reviews[review.ID] = &copied
	return nil
}

func (s *stubStore) PastUnreviewedEvents(ctx context.Context, userID int64, now time.Time) ([]models.PendingReviewItem, error) {
	return nil, nil
}

type stubUsers struct{ *stubStore }

func (s stubUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

type noopNotifier struct{}

func (noopNotifier) ReservationCreated(ctx context.Context, res *models.Reservation, event *models.Event) {
}
func (noopNotifier) ReservationConfirmed(ctx context.Context, res *models.Reservation)          {}
func (noopNotifier) ReservationCancelled(ctx context.Context, res *models.Reservation, r string) {}

func setupRouter(store *stubStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	services := service.NewServices(service.Deps{
		Events:       store,
		Reservations: stubReservations{store},
		Reviews:      store,
		Users:        stubUsers{store},
		Notifier:     noopNotifier{},
		Clock:        clock.NewFake(testNow),
	})

	h := NewHandlers(services)

	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.Identity(stubUsers{store}))
	{
		events := api.Group("/events")
		{
			events.POST("", h.CreateEvent)
			events.GET("", h.ListEvents)
			events.GET("/:id", h.GetEvent)
			events.PATCH("/:id", h.UpdateEvent)
			events.DELETE("/:id", h.DeleteEvent)
			events.POST("/:id/publish", h.PublishEvent)
			events.POST("/:id/cancel", h.CancelEvent)
		}

		reservations := api.Group("/reservations")
		{
			reservations.POST("", h.CreateReservation)
			reservations.GET("", h.ListMyReservations)
			reservations.POST("/:id/confirm", h.ConfirmReservation)
			reservations.POST("/:id/cancel", h.CancelReservation)
			reservations.PUT("/:id/review", h.SaveReview)
		}

		api.GET("/reviews/pending", h.ListPendingReviews)
	}

	return r
}

func seedStore(store *stubStore) (organizer, client *models.User, event *models.Event) {
	organizer = &models.User{ID: 1, Email: "org@example.com", Role: models.RoleOrganizer, IsActive: true}
	client = &models.User{ID: 2, Email: "client@example.com", Role: models.RoleClient, IsActive: true}
	store.users[1] = organizer
	store.users[2] = client

	event = &models.Event{
		ID: 100, Title: "Gala Night", Category: models.CategoryTheatre,
		StartsAt: testNow.Add(72 * time.Hour), EndsAt: testNow.Add(76 * time.Hour),
		Venue: "Old Theatre", City: "Almaty",
		CapacityMax: 10, UnitPrice: 5000,
		Status: models.EventPublished, OrganizerID: 1,
	}
	store.events[100] = event
	return organizer, client, event
}

func doJSON(r *gin.Engine, method, path string, userID int64, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-User-ID", fmt.Sprintf("%d", userID))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdentityHeader(t *testing.T) {
	store := newStubStore()
	seedStore(store)
	r := setupRouter(store)

	t.Run("missing header is rejected", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/events", 0, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user is rejected", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/events", 999, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("known user passes", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/events", 2, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCreateReservationEndpoint(t *testing.T) {
	store := newStubStore()
	_, client, event := seedStore(store)
	r := setupRouter(store)

	t.Run("books seats", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/reservations", client.ID, models.CreateReservationRequest{
			EventID: event.ID, SeatCount: 4,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var res models.Reservation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, models.ReservationPending, res.Status)
		assert.Equal(t, int64(20000), res.TotalAmount)
	})

	t.Run("capacity exhaustion maps to 409", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/reservations", client.ID, models.CreateReservationRequest{
			EventID: event.ID, SeatCount: 7,
		})
		assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	})

	t.Run("bad seat count maps to 400", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/reservations", client.ID, models.CreateReservationRequest{
			EventID: event.ID, SeatCount: 11,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown event maps to 404", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/reservations", client.ID, models.CreateReservationRequest{
			EventID: 12345, SeatCount: 1,
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestReservationLifecycleEndpoints(t *testing.T) {
	store := newStubStore()
	_, client, event := seedStore(store)
	r := setupRouter(store)

	w := doJSON(r, "POST", "/api/reservations", client.ID, models.CreateReservationRequest{
		EventID: event.ID, SeatCount: 2,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var res models.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	t.Run("confirm", func(t *testing.T) {
		w := doJSON(r, "POST", fmt.Sprintf("/api/reservations/%d/confirm", res.ID), client.ID, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var confirmed models.Reservation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &confirmed))
		assert.Equal(t, models.ReservationConfirmed, confirmed.Status)
	})

	t.Run("confirm twice maps to 409", func(t *testing.T) {
		w := doJSON(r, "POST", fmt.Sprintf("/api/reservations/%d/confirm", res.ID), client.ID, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("a stranger gets 403", func(t *testing.T) {
		store.users[3] = &models.User{ID: 3, Role: models.RoleClient, IsActive: true}
		w := doJSON(r, "POST", fmt.Sprintf("/api/reservations/%d/cancel", res.ID), 3, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("cancel with reason", func(t *testing.T) {
		w := doJSON(r, "POST", fmt.Sprintf("/api/reservations/%d/cancel", res.ID), client.ID,
			models.CancelReservationRequest{Reason: "sick"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
}

func TestCancellationWindowEndpoint(t *testing.T) {
	store := newStubStore()
	_, client, _ := seedStore(store)

	// An event starting in 24 hours. Booking is allowed; cancelling is not.
	store.events[200] = &models.Event{
		ID: 200, Title: "Tomorrow Show", Category: models.CategoryConcert,
		StartsAt: testNow.Add(24 * time.Hour), EndsAt: testNow.Add(26 * time.Hour),
		CapacityMax: 10, UnitPrice: 1000,
		Status: models.EventPublished, OrganizerID: 1,
	}
	r := setupRouter(store)

	w := doJSON(r, "POST", "/api/reservations", client.ID, models.CreateReservationRequest{
		EventID: 200, SeatCount: 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var res models.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	w = doJSON(r, "POST", fmt.Sprintf("/api/reservations/%d/cancel", res.ID), client.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

func TestEventEndpoints(t *testing.T) {
	store := newStubStore()
	organizer, client, event := seedStore(store)
	r := setupRouter(store)

	t.Run("create event", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/events", organizer.ID, models.CreateEventRequest{
			Title: "New Conference", Category: "CONFERENCE",
			StartsAt: testNow.Add(240 * time.Hour), EndsAt: testNow.Add(248 * time.Hour),
			CapacityMax: 200, UnitPrice: 10000,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var created models.Event
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.Equal(t, models.EventDraft, created.Status)
	})

	t.Run("client creating an event gets 403", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/events", client.ID, models.CreateEventRequest{
			Title: "Nope", Category: "OTHER",
			StartsAt: testNow.Add(240 * time.Hour), EndsAt: testNow.Add(242 * time.Hour),
			CapacityMax: 10,
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("get event with metrics", func(t *testing.T) {
		w := doJSON(r, "GET", fmt.Sprintf("/api/events/%d", event.ID), client.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.EventResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, event.CapacityMax, resp.Metrics.AvailableSeats)
		assert.True(t, resp.Reservable)
	})

	t.Run("deleting a published event gets 422", func(t *testing.T) {
		w := doJSON(r, "DELETE", fmt.Sprintf("/api/events/%d", event.ID), organizer.ID, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("cancel cascades and conflicts on repeat", func(t *testing.T) {
		w := doJSON(r, "POST", fmt.Sprintf("/api/events/%d/cancel", event.ID), organizer.ID, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = doJSON(r, "POST", fmt.Sprintf("/api/events/%d/cancel", event.ID), organizer.ID, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("bad id maps to 400", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/events/abc", client.ID, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing event maps to 404", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/events/424242", client.ID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
