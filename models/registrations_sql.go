package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type sqlRegistrationRepo struct{ db *sql.DB }

// NewSQLRegistrationRepository serialises transitions per event with a row
// lock. Both sides of a registration are the same registrations row, guarded
// by its (user_id, event_id) primary key.
func NewSQLRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &sqlRegistrationRepo{db}
}

func (r *sqlRegistrationRepo) Transition(ctx context.Context, eventID, userID string, fn TransitionFunc) (ev Event, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Event{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Event row first, then user row: every transition locks in this order.
	ev, err = scanEvent(tx.QueryRowContext(ctx, `
SELECT e.id, e.name, e.organizer, e.location, e.date_time, e.description,
       e.capacity, e.available_seats, e.category, e.tags, '{}'::text[]
FROM events e WHERE e.id = $1 FOR UPDATE`, eventID))
	if err != nil {
		if isInvalidUUID(err) {
			err = ErrEventNotFound
		}
		return Event{}, err
	}
	ev.RegisteredUsers, err = queryStrings(ctx, tx,
		`SELECT user_id::text FROM registrations WHERE event_id = $1 ORDER BY created_at`, eventID)
	if err != nil {
		return Event{}, fmt.Errorf("load registrants: %w", err)
	}

	u, err := loadSQLUser(ctx, tx, userID, true)
	if err != nil {
		return Event{}, err
	}

	wasRegistered := ev.HasRegistrant(userID)
	if err = fn(&ev, &u); err != nil {
		return Event{}, err
	}
	nowRegistered := ev.HasRegistrant(userID)
	if nowRegistered != u.HasEvent(eventID) {
		err = ErrInconsistentState
		return Event{}, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE events SET available_seats = $2 WHERE id = $1`,
		eventID, ev.AvailableSeats); err != nil {
		return Event{}, fmt.Errorf("update seats: %w", err)
	}

	switch {
	case nowRegistered && !wasRegistered:
		_, err = tx.ExecContext(ctx, `INSERT INTO registrations (user_id, event_id) VALUES ($1, $2)`, userID, eventID)
		if isUniqueViolation(err) {
			err = ErrAlreadyRegistered
		}
	case !nowRegistered && wasRegistered:
		var res sql.Result
		res, err = tx.ExecContext(ctx, `DELETE FROM registrations WHERE user_id = $1 AND event_id = $2`, userID, eventID)
		if err == nil {
			if n, _ := res.RowsAffected(); n == 0 {
				err = ErrNotRegistered
			}
		}
	}
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			return Event{}, err
		}
		return Event{}, fmt.Errorf("write registration: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return Event{}, fmt.Errorf("commit: %w", err)
	}
	return ev, nil
}
