package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tessera/internal/errors"
	"tessera/internal/models"
)

func terminatedEventWithReservation(env *testEnv, userID int64) (*models.Event, *models.Reservation) {
	event := env.store.addEvent(models.Event{
		Title: "Spring Derby", Category: models.CategorySport,
		StartsAt: testNow.Add(-72 * time.Hour), EndsAt: testNow.Add(-70 * time.Hour),
		CapacityMax: 100, UnitPrice: 3000,
		Status: models.EventTerminated, OrganizerID: 1,
	})
	res := env.store.addReservation(models.Reservation{
		EventID: event.ID, UserID: userID, SeatCount: 2,
		TotalAmount: 6000, Status: models.ReservationConfirmed, Code: "EVT-11111",
	})
	return event, res
}

func TestSaveOrUpdateReview(t *testing.T) {
	env := newTestEnv(testNow)
	user := client(env, 7)
	event, res := terminatedEventWithReservation(env, user.ID)

	review, err := env.services.Reviews.SaveOrUpdateReview(context.Background(), user.ID, res.ID, &models.ReviewRequest{
		Rating: 4, Comment: "great show",
	})
	require.NoError(t, err)
	assert.Equal(t, event.ID, review.EventID)
	assert.Equal(t, user.ID, review.UserID)
	assert.Equal(t, 4, review.Rating)

	t.Run("a second review replaces the first", func(t *testing.T) {
		updated, err := env.services.Reviews.SaveOrUpdateReview(context.Background(), user.ID, res.ID, &models.ReviewRequest{
			Rating: 2, Comment: "on reflection",
		})
		require.NoError(t, err)
		assert.Equal(t, review.ID, updated.ID)
		assert.Equal(t, 2, updated.Rating)
	})

	t.Run("rating bounds", func(t *testing.T) {
		for _, rating := range []int{0, 6} {
			_, err := env.services.Reviews.SaveOrUpdateReview(context.Background(), user.ID, res.ID, &models.ReviewRequest{Rating: rating})
			require.Error(t, err)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		}
	})

	t.Run("comment length cap", func(t *testing.T) {
		long := strings.Repeat("x", models.MaxReviewComment+1)
		_, err := env.services.Reviews.SaveOrUpdateReview(context.Background(), user.ID, res.ID, &models.ReviewRequest{
			Rating: 3, Comment: long,
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("only the holder may review", func(t *testing.T) {
		stranger := env.store.addUser(models.User{ID: 8, Role: models.RoleClient, IsActive: true})
		_, err := env.services.Reviews.SaveOrUpdateReview(context.Background(), stranger.ID, res.ID, &models.ReviewRequest{Rating: 5})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
	})

	t.Run("a still-published event cannot be reviewed", func(t *testing.T) {
		live := publishedEvent(env, 10, 1000)
		liveRes := env.store.addReservation(models.Reservation{
			EventID: live.ID, UserID: user.ID, SeatCount: 1,
			Status: models.ReservationConfirmed, Code: "EVT-22222",
		})
		_, err := env.services.Reviews.SaveOrUpdateReview(context.Background(), user.ID, liveRes.ID, &models.ReviewRequest{Rating: 5})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindBusiness, apperrors.KindOf(err))
	})

	t.Run("unknown reservation", func(t *testing.T) {
		_, err := env.services.Reviews.SaveOrUpdateReview(context.Background(), user.ID, 999, &models.ReviewRequest{Rating: 5})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})
}

func TestPastUnreviewedEvents(t *testing.T) {
	env := newTestEnv(testNow)
	user := client(env, 7)

	_, pending := terminatedEventWithReservation(env, user.ID)

	// A cancelled reservation never shows up in the review queue.
	cancelledEvent := env.store.addEvent(models.Event{
		Title: "Missed It", Category: models.CategoryConcert,
		StartsAt: testNow.Add(-96 * time.Hour), EndsAt: testNow.Add(-94 * time.Hour),
		CapacityMax: 10, Status: models.EventTerminated, OrganizerID: 1,
	})
	env.store.addReservation(models.Reservation{
		EventID: cancelledEvent.ID, UserID: user.ID, SeatCount: 1,
		Status: models.ReservationCancelled, Code: "EVT-33333",
	})

	items, err := env.services.Reviews.PastUnreviewedEvents(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, pending.ID, items[0].ReservationID)
	assert.Equal(t, pending.Code, items[0].ReservationCode)

	// Once reviewed, the item drops out of the queue.
	_, err = env.services.Reviews.SaveOrUpdateReview(context.Background(), user.ID, pending.ID, &models.ReviewRequest{Rating: 5})
	require.NoError(t, err)

	items, err = env.services.Reviews.PastUnreviewedEvents(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}
