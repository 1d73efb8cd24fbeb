package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"tessera/internal/clock"
	"tessera/internal/models"
	"tessera/internal/repository"
)

// memStore is a mutex-serialized in-memory stand-in for the Postgres
// repositories. CreateWithCapacityCheck holds the lock across the check and
// the insert, mirroring the row-lock contract of the real store.
type memStore struct {
	mu           sync.Mutex
	events       map[int64]*models.Event
	reservations map[int64]*models.Reservation
	reviews      map[int64]*models.Review
	users        map[int64]*models.User
	codes        map[string]bool
	nextEventID  int64
	nextResID    int64
	nextReviewID int64
}

func newMemStore() *memStore {
	return &memStore{
		events:       make(map[int64]*models.Event),
		reservations: make(map[int64]*models.Reservation),
		reviews:      make(map[int64]*models.Review),
		users:        make(map[int64]*models.User),
		codes:        make(map[string]bool),
	}
}

func (m *memStore) addUser(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = &u
	return &u
}

func (m *memStore) addEvent(e models.Event) *models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == 0 {
		m.nextEventID++
		e.ID = m.nextEventID
	} else if e.ID > m.nextEventID {
		m.nextEventID = e.ID
	}
	m.events[e.ID] = &e
	return &e
}

func (m *memStore) addReservation(r models.Reservation) *models.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		m.nextResID++
		r.ID = m.nextResID
	} else if r.ID > m.nextResID {
		m.nextResID = r.ID
	}
	m.reservations[r.ID] = &r
	return &r
}

// EventStore

func (m *memStore) Create(ctx context.Context, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEventID++
	event.ID = m.nextEventID
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	copied := *event
	m.events[event.ID] = &copied
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (m *memStore) List(ctx context.Context, category *models.Category, city, date string, page, pageSize int) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, e := range m.events {
		if category != nil && e.Category != *category {
			continue
		}
		if city != "" && e.City != city {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (m *memStore) Update(ctx context.Context, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[event.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *event
	copied.UpdatedAt = time.Now()
	m.events[event.ID] = &copied
	return nil
}

func (m *memStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, id)
	return nil
}

func (m *memStore) ConditionalUpdateStatus(ctx context.Context, id int64, expected, next models.EventStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok || e.Status != expected {
		return false, nil
	}
	e.Status = next
	return true, nil
}

func (m *memStore) CountReservations(ctx context.Context, eventID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, r := range m.reservations {
		if r.EventID == eventID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) CancelWithReservations(ctx context.Context, eventID int64) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[eventID]
	if !ok || (e.Status != models.EventDraft && e.Status != models.EventPublished) {
		return nil, sql.ErrNoRows
	}
	e.Status = models.EventCancelled
	var cancelled []models.Reservation
	for _, r := range m.reservations {
		if r.EventID == eventID && r.Status.Active() {
			r.Status = models.ReservationCancelled
			cancelled = append(cancelled, *r)
		}
	}
	return cancelled, nil
}

// ReservationStore

func (m *memStore) CreateWithCapacityCheck(ctx context.Context, res *models.Reservation, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[res.EventID]
	if !ok {
		return sql.ErrNoRows
	}
	reserved := 0
	for _, r := range m.reservations {
		if r.EventID == res.EventID && r.Status.Active() {
			reserved += r.SeatCount
		}
	}
	if err := models.ValidateAdmission(event, reserved, res.SeatCount, now); err != nil {
		return err
	}
	if m.codes[res.Code] {
		return repository.ErrCodeTaken
	}
	m.codes[res.Code] = true
	res.TotalAmount = int64(res.SeatCount) * event.UnitPrice
	res.Status = models.ReservationPending
	m.nextResID++
	res.ID = m.nextResID
	res.CreatedAt = time.Now()
	copied := *res
	m.reservations[res.ID] = &copied
	return nil
}

func (m *memStore) GetReservationByID(ctx context.Context, id int64) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (m *memStore) ListByUser(ctx context.Context, userID int64) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, r := range m.reservations {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) SumSeats(ctx context.Context, eventID int64, statuses ...models.ReservationStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := 0
	for _, r := range m.reservations {
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

func (m *memStore) SumConfirmedAmount(ctx context.Context, eventID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, r := range m.reservations {
		if r.EventID == eventID && r.Status == models.ReservationConfirmed {
			sum += r.TotalAmount
		}
	}
	return sum, nil
}

func (m *memStore) ConditionalUpdateReservationStatus(ctx context.Context, id int64, expected, next models.ReservationStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.Status != expected {
		return false, nil
	}
	r.Status = next
	return true, nil
}

// ReviewStore

func (m *memStore) Upsert(ctx context.Context, review *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.reviews {
		if v.ReservationID == review.ReservationID {
			v.Rating = review.Rating
			v.Comment = review.Comment
			v.UpdatedAt = time.Now()
			review.ID = v.ID
			review.CreatedAt = v.CreatedAt
			review.UpdatedAt = v.UpdatedAt
			return nil
		}
	}
	m.nextReviewID++
	review.ID = m.nextReviewID
	review.CreatedAt = time.Now()
	review.UpdatedAt = review.CreatedAt
	copied := *review
	m.reviews[review.ID] = &copied
	return nil
}

func (m *memStore) PastUnreviewedEvents(ctx context.Context, userID int64, now time.Time) ([]models.PendingReviewItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PendingReviewItem
	for _, r := range m.reservations {
		if r.UserID != userID || r.Status == models.ReservationCancelled {
			continue
		}
		e, ok := m.events[r.EventID]
		if !ok || e.Status != models.EventTerminated || !e.StartsAt.Before(now) {
			continue
		}
		reviewed := false
		for _, v := range m.reviews {
			if v.ReservationID == r.ID {
				reviewed = true
				break
			}
		}
		if reviewed {
			continue
		}
		out = append(out, models.PendingReviewItem{
			ReservationID:   r.ID,
			ReservationCode: r.Code,
			EventID:         e.ID,
			EventTitle:      e.Title,
			StartsAt:        e.StartsAt,
		})
	}
	return out, nil
}

// UserStore

func (m *memStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

// Adapters so one memStore can back every store interface despite the
// overlapping method names.

type memEventStore struct{ *memStore }

type memReservationStore struct{ *memStore }

func (m memReservationStore) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	return m.GetReservationByID(ctx, id)
}

func (m memReservationStore) ConditionalUpdateStatus(ctx context.Context, id int64, expected, next models.ReservationStatus) (bool, error) {
	return m.ConditionalUpdateReservationStatus(ctx, id, expected, next)
}

type memUserStore struct{ *memStore }

func (m memUserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return m.GetUserByID(ctx, id)
}

// recordingNotifier captures every notification for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	created   []int64
	confirmed []int64
	cancelled []int64
	reasons   []string
}

func (n *recordingNotifier) ReservationCreated(ctx context.Context, res *models.Reservation, event *models.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, res.ID)
}

func (n *recordingNotifier) ReservationConfirmed(ctx context.Context, res *models.Reservation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, res.ID)
}

func (n *recordingNotifier) ReservationCancelled(ctx context.Context, res *models.Reservation, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, res.ID)
	n.reasons = append(n.reasons, reason)
}

type testEnv struct {
	store    *memStore
	notifier *recordingNotifier
	clock    *clock.Fake
	services *Services
}

func newTestEnv(now time.Time) *testEnv {
	store := newMemStore()
	notifier := &recordingNotifier{}
	fake := clock.NewFake(now)
	services := NewServices(Deps{
		Events:       memEventStore{store},
		Reservations: memReservationStore{store},
		Reviews:      store,
		Users:        memUserStore{store},
		Notifier:     notifier,
		Clock:        fake,
	})
	return &testEnv{store: store, notifier: notifier, clock: fake, services: services}
}
