package jobs

import (
	"context"
	"log/slog"
	"time"

	"tessera/internal/clock"
	"tessera/internal/models"
)

const reminderJobName = "reservation_reminder"

// ReminderStore lists the active reservations whose event starts inside the
// reminder window.
type ReminderStore interface {
	ListReminderTargets(ctx context.Context, from, to time.Time) ([]models.ReservationReminderMessage, error)
}

// WatermarkStore persists the per-day run marker, so a restarted process
// does not send the day's reminders twice.
type WatermarkStore interface {
	GetLastRun(ctx context.Context, jobName string) (time.Time, bool, error)
	SetLastRun(ctx context.Context, jobName string, date time.Time) error
}

// ReminderNotifier delivers one reminder per target, best-effort.
type ReminderNotifier interface {
	ReservationReminder(ctx context.Context, target models.ReservationReminderMessage)
}

// ReminderJob sends day-before reminders for upcoming events. It runs at
// most once per calendar day, tracked through a persisted watermark.
type ReminderJob struct {
	store     ReminderStore
	watermark WatermarkStore
	notifier  ReminderNotifier
	clock     clock.Clock
	interval  time.Duration
	leadTime  time.Duration
	ticker    *time.Ticker
	done      chan bool
}

func NewReminderJob(store ReminderStore, watermark WatermarkStore, notifier ReminderNotifier, clk clock.Clock, interval, leadTime time.Duration) *ReminderJob {
	return &ReminderJob{
		store:     store,
		watermark: watermark,
		notifier:  notifier,
		clock:     clk,
		interval:  interval,
		leadTime:  leadTime,
		done:      make(chan bool),
	}
}

// Start begins the periodic check. The first check runs immediately.
func (j *ReminderJob) Start(ctx context.Context) {
	slog.Info("Starting reminder job", "interval", j.interval.String(), "lead_time", j.leadTime.String())

	j.ticker = time.NewTicker(j.interval)

	go j.check(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.check(ctx)
			case <-j.done:
				slog.Info("Reminder job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the job.
func (j *ReminderJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *ReminderJob) check(ctx context.Context) {
	sent, err := j.RunOnce(ctx)
	if err != nil {
		slog.Error("Reminder run failed", "error", err)
		return
	}
	if sent > 0 {
		slog.Info("Reminders sent", "count", sent)
	}
}

// RunOnce sends the day's reminders unless the watermark shows they already
// went out. Returns how many reminders were sent.
func (j *ReminderJob) RunOnce(ctx context.Context) (int, error) {
	now := j.clock.Now()

	last, found, err := j.watermark.GetLastRun(ctx, reminderJobName)
	if err != nil {
		return 0, err
	}
	if found && sameDay(last, now) {
		return 0, nil
	}

	targets, err := j.store.ListReminderTargets(ctx, now, now.Add(j.leadTime))
	if err != nil {
		return 0, err
	}

	for _, target := range targets {
		j.notifier.ReservationReminder(ctx, target)
	}

	// Advance the watermark even on an empty day, so the window query runs
	// once per day rather than every tick.
	if err := j.watermark.SetLastRun(ctx, reminderJobName, now); err != nil {
		return len(targets), err
	}

	return len(targets), nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
