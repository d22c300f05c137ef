package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// OpenPostgres connects, pings and creates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	sqldb.SetMaxOpenConns(20)
	sqldb.SetMaxIdleConns(10)
	sqldb.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if err := CreateTables(ctx, sqldb); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return sqldb, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		organizer TEXT NOT NULL,
		location TEXT NOT NULL,
		date_time TIMESTAMPTZ NOT NULL,
		description TEXT NOT NULL,
		capacity INTEGER NOT NULL CHECK (capacity >= 0),
		available_seats INTEGER NOT NULL CHECK (available_seats >= 0 AND available_seats <= capacity),
		category TEXT NOT NULL,
		tags TEXT[] NOT NULL DEFAULT '{}'
	)`,
	// one row per seat held; both Event.registrants and User.registeredEvents are read from here
	`CREATE TABLE IF NOT EXISTS registrations (
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, event_id)
	)`,
	`CREATE INDEX IF NOT EXISTS registrations_event_id_idx ON registrations (event_id)`,
	`CREATE INDEX IF NOT EXISTS events_date_time_idx ON events (date_time)`,
}

func CreateTables(ctx context.Context, sqldb *sql.DB) error {
	for _, stmt := range schema {
		if _, err := sqldb.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
