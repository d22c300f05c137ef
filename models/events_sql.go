package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Events live in the events table; the registrant set is aggregated from the
// registrations join table, which is also the source of User.RegisteredEvents.
const selectEventsSQL = `
SELECT e.id, e.name, e.organizer, e.location, e.date_time, e.description,
       e.capacity, e.available_seats, e.category, e.tags,
       COALESCE(array_agg(r.user_id::text ORDER BY r.created_at) FILTER (WHERE r.user_id IS NOT NULL), '{}')
FROM events e
LEFT JOIN registrations r ON r.event_id = e.id`

const eventSearchDocumentSQL = `to_tsvector('simple', e.name || ' ' || e.description || ' ' || e.category || ' ' || e.location || ' ' || array_to_string(e.tags, ' '))`

type sqlEventRepo struct{ db *sql.DB }

func NewSQLEventRepository(db *sql.DB) EventRepository { return &sqlEventRepo{db} }

// EventFilterSQL builds the WHERE clause and its positional args for f.
func EventFilterSQL(f EventFilter) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		conds = append(conds, eventSearchDocumentSQL+" @@ plainto_tsquery('simple', "+arg(f.Search)+")")
	}
	if f.Date != nil {
		conds = append(conds, "e.date_time >= "+arg(*f.Date))
	}
	if f.Location != "" {
		conds = append(conds, "e.location ILIKE '%' || "+arg(escapeLike(f.Location))+" || '%'")
	}
	if f.Category != "" {
		conds = append(conds, "e.category = "+arg(f.Category))
	}
	if len(f.Tags) > 0 {
		conds = append(conds, "e.tags && "+arg(pq.Array(f.Tags)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *sqlEventRepo) Search(ctx context.Context, f EventFilter) ([]Event, error) {
	where, args := EventFilterSQL(f)
	return r.list(ctx, where, "ASC", args...)
}

func (r *sqlEventRepo) GetByID(ctx context.Context, id string) (Event, error) {
	events, err := r.list(ctx, " WHERE e.id = $1", "ASC", id)
	if err != nil {
		if isInvalidUUID(err) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, err
	}
	if len(events) == 0 {
		return Event{}, ErrEventNotFound
	}
	return events[0], nil
}

func (r *sqlEventRepo) GetMany(ctx context.Context, ids []string) ([]Event, error) {
	if len(ids) == 0 {
		return []Event{}, nil
	}
	return r.list(ctx, " WHERE e.id::text = ANY($1)", "ASC", pq.Array(ids))
}

func (r *sqlEventRepo) Upcoming(ctx context.Context, now time.Time) ([]Event, error) {
	return r.list(ctx, " WHERE e.date_time > $1", "ASC", now)
}

func (r *sqlEventRepo) Past(ctx context.Context, now time.Time) ([]Event, error) {
	return r.list(ctx, " WHERE e.date_time <= $1", "DESC", now)
}

func (r *sqlEventRepo) Create(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO events (id, name, organizer, location, date_time, description, capacity, available_seats, category, tags)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Name, e.Organizer, e.Location, e.DateTime, e.Description,
		e.Capacity, e.AvailableSeats, e.Category, pq.Array(e.Tags),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *sqlEventRepo) list(ctx context.Context, where, dir string, args ...any) ([]Event, error) {
	query := selectEventsSQL + where + " GROUP BY e.id ORDER BY e.date_time " + dir + ", e.id"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Name, &e.Organizer, &e.Location, &e.DateTime, &e.Description,
		&e.Capacity, &e.AvailableSeats, &e.Category, pq.Array(&e.Tags), pq.Array(&e.RegisteredUsers))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, fmt.Errorf("scan event: %w", err)
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if e.RegisteredUsers == nil {
		e.RegisteredUsers = []string{}
	}
	return e, nil
}
