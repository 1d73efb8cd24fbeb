package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"tessera/internal/config"
	"tessera/internal/database"
	"tessera/internal/logger"
	"tessera/internal/models"
	"tessera/internal/repository"
	"tessera/internal/search"
)

const pageSize = 500

// reindex rebuilds the Elasticsearch index from the events table. Run it
// after enabling search or after an index mapping change.
func main() {
	var statusFilter string
	flag.StringVar(&statusFilter, "status", "", "Only reindex events in this status (empty = all)")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, "text")

	esCfg := config.LoadElasticsearchConfig()
	if esCfg.URL == "" {
		logger.Fatal("ELASTICSEARCH_URL is not set")
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	esClient, err := search.NewElasticsearchClient(esCfg)
	if err != nil {
		logger.Fatal("Failed to connect to Elasticsearch", "error", err)
	}

	events := repository.NewEventRepository(db)

	if err := reindex(context.Background(), events, esClient, statusFilter); err != nil {
		logger.Fatal("Reindex failed", "error", err)
	}
}

func reindex(ctx context.Context, events *repository.EventRepository, es *search.ElasticsearchClient, statusFilter string) error {
	start := time.Now()
	indexed := 0

	var status models.EventStatus
	if statusFilter != "" {
		parsed, err := models.ParseEventStatus(statusFilter)
		if err != nil {
			return err
		}
		status = parsed
	}

	for page := 1; ; page++ {
		batch, err := events.List(ctx, nil, "", "", page, pageSize)
		if err != nil {
			return fmt.Errorf("failed to list events: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			if status != "" && batch[i].Status != status {
				continue
			}
			if err := es.IndexEvent(ctx, &batch[i]); err != nil {
				slog.Error("Failed to index event", "event_id", batch[i].ID, "error", err)
				continue
			}
			indexed++
		}

		slog.Info("Indexed batch", "page", page, "count", len(batch))

		if len(batch) < pageSize {
			break
		}
	}

	slog.Info("Reindex completed", "indexed", indexed, "elapsed", time.Since(start).String())
	return nil
}
