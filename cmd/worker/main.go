package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tessera/internal/clock"
	"tessera/internal/config"
	"tessera/internal/consumers"
	"tessera/internal/database"
	"tessera/internal/jobs"
	"tessera/internal/logger"
	"tessera/internal/messaging"
	"tessera/internal/repository"
)

// The worker runs the lifecycle reconciler, the reminder job and the
// notification consumers, separate from the API so sweeps and deliveries
// never compete with request traffic.
func main() {
	cfg := config.Load()
	cfg.NATS.ClientID = "tessera-worker"
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}

	repos := repository.NewRepositories(db)
	notifier := messaging.NewNotifier(natsClient)
	clk := clock.System()

	ctx := context.Background()

	reconciler := jobs.NewLifecycleReconciler(repos.Events, clk, cfg.Jobs.ReconcilerInterval)
	reconciler.Start(ctx)

	reminder := jobs.NewReminderJob(repos.Reservations, repos.JobRuns, notifier, clk,
		cfg.Jobs.ReminderInterval, cfg.Jobs.ReminderLeadTime)
	reminder.Start(ctx)

	consumerService := consumers.NewConsumerService(db, natsClient)
	if err := consumerService.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	logger.Get().Info("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Get().Info("Shutting down worker...")

	reminder.Stop()
	reconciler.Stop()

	if err := natsClient.Close(); err != nil {
		logger.Get().Error("Failed to close NATS connection", "error", err)
	}
	if err := db.Close(); err != nil {
		logger.Get().Error("Failed to close database connection", "error", err)
	}

	logger.Get().Info("Worker stopped")
}
