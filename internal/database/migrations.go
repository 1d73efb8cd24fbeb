package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createEventsTable,
		createReservationsTable,
		createReviewsTable,
		createJobRunsTable,
		createEventsStatusEndIndex,
		createReservationsEventStatusIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    first_name VARCHAR(100) NOT NULL,
    surname VARCHAR(100) NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'CLIENT',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    registered_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (role IN ('ADMIN', 'ORGANIZER', 'CLIENT'))
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    category VARCHAR(20) NOT NULL,
    starts_at TIMESTAMP NOT NULL,
    ends_at TIMESTAMP NOT NULL,
    venue VARCHAR(255) NOT NULL DEFAULT '',
    city VARCHAR(100) NOT NULL DEFAULT '',
    capacity_max INTEGER NOT NULL,
    unit_price BIGINT NOT NULL DEFAULT 0,
    status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
    organizer_id INTEGER NOT NULL REFERENCES users(id),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (capacity_max >= 1),
    CHECK (unit_price >= 0),
    CHECK (ends_at > starts_at),
    CHECK (category IN ('CONCERT', 'THEATRE', 'CONFERENCE', 'SPORT', 'OTHER')),
    CHECK (status IN ('DRAFT', 'PUBLISHED', 'TERMINATED', 'CANCELLED'))
);`

const createReservationsTable = `
CREATE TABLE IF NOT EXISTS reservations (
    id SERIAL PRIMARY KEY,
    event_id INTEGER NOT NULL REFERENCES events(id),
    user_id INTEGER NOT NULL REFERENCES users(id),
    seat_count INTEGER NOT NULL,
    total_amount BIGINT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    code VARCHAR(10) UNIQUE NOT NULL,
    comment VARCHAR(500) NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (seat_count BETWEEN 1 AND 10),
    CHECK (total_amount >= 0),
    CHECK (status IN ('PENDING', 'CONFIRMED', 'CANCELLED'))
);`

const createReviewsTable = `
CREATE TABLE IF NOT EXISTS reviews (
    id SERIAL PRIMARY KEY,
    reservation_id INTEGER UNIQUE NOT NULL REFERENCES reservations(id),
    event_id INTEGER NOT NULL REFERENCES events(id),
    user_id INTEGER NOT NULL REFERENCES users(id),
    rating INTEGER NOT NULL,
    comment VARCHAR(2000) NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (rating BETWEEN 1 AND 5)
);`

const createJobRunsTable = `
CREATE TABLE IF NOT EXISTS job_runs (
    job_name VARCHAR(100) PRIMARY KEY,
    last_run_date DATE NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createEventsStatusEndIndex = `
CREATE INDEX IF NOT EXISTS events_status_ends_at_idx
ON events (status, ends_at);`

const createReservationsEventStatusIndex = `
CREATE INDEX IF NOT EXISTS reservations_event_status_idx
ON reservations (event_id, status);`
