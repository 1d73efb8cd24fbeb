package jobs

import (
	"context"
	"log/slog"
	"time"

	"tessera/internal/clock"
	"tessera/internal/metrics"
	"tessera/internal/models"
)

// LifecycleStore is the slice of the event store the reconciler needs.
type LifecycleStore interface {
	FindPublishedEndingBefore(ctx context.Context, t time.Time) ([]models.Event, error)
	ConditionalUpdateStatus(ctx context.Context, id int64, expected, next models.EventStatus) (bool, error)
}

// LifecycleReconciler sweeps PUBLISHED events whose end time has passed and
// terminates them. Each event is a separate conditional update, so the sweep
// is idempotent and safe to run from several processes at once.
type LifecycleReconciler struct {
	store    LifecycleStore
	clock    clock.Clock
	interval time.Duration
	ticker   *time.Ticker
	done     chan bool
}

func NewLifecycleReconciler(store LifecycleStore, clk clock.Clock, interval time.Duration) *LifecycleReconciler {
	return &LifecycleReconciler{
		store:    store,
		clock:    clk,
		interval: interval,
		done:     make(chan bool),
	}
}

// Start begins the periodic sweep. The first sweep runs immediately.
func (j *LifecycleReconciler) Start(ctx context.Context) {
	slog.Info("Starting lifecycle reconciler", "interval", j.interval.String())

	j.ticker = time.NewTicker(j.interval)

	go j.sweep(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.sweep(ctx)
			case <-j.done:
				slog.Info("Lifecycle reconciler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the reconciler.
func (j *LifecycleReconciler) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *LifecycleReconciler) sweep(ctx context.Context) {
	examined, terminated, err := j.RunOnce(ctx)
	if err != nil {
		slog.Error("Lifecycle sweep failed", "error", err)
		return
	}
	if examined > 0 {
		slog.Info("Lifecycle sweep finished", "examined", examined, "terminated", terminated)
	}
}

// RunOnce performs a single sweep and reports how many events it examined
// and how many it terminated. A failure on one event does not stop the
// sweep; the event is retried on the next tick.
func (j *LifecycleReconciler) RunOnce(ctx context.Context) (examined, terminated int, err error) {
	metrics.ReconcilerSweeps.Inc()

	ended, err := j.store.FindPublishedEndingBefore(ctx, j.clock.Now())
	if err != nil {
		return 0, 0, err
	}

	for _, event := range ended {
		examined++
		metrics.ReconcilerExamined.Inc()

		ok, err := j.store.ConditionalUpdateStatus(ctx, event.ID, models.EventPublished, models.EventTerminated)
		if err != nil {
			slog.Error("Failed to terminate event",
				"error", err,
				"event_id", event.ID,
				"ends_at", event.EndsAt)
			continue
		}
		if !ok {
			// Someone else moved the event first. Nothing to do.
			continue
		}

		terminated++
		metrics.EventsTerminated.Inc()
		slog.Info("Event terminated", "event_id", event.ID, "ends_at", event.EndsAt)
	}

	return examined, terminated, nil
}
