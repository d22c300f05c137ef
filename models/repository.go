package models

import (
	"context"
	"time"
)

// ===== Events =====

// EventRepository is the event store: catalogue reads plus creation.
// Seat counts and registrants are only changed through RegistrationRepository.
type EventRepository interface {
	Search(ctx context.Context, f EventFilter) ([]Event, error)
	GetByID(ctx context.Context, id string) (Event, error)
	GetMany(ctx context.Context, ids []string) ([]Event, error)
	Upcoming(ctx context.Context, now time.Time) ([]Event, error)
	Past(ctx context.Context, now time.Time) ([]Event, error)
	Create(ctx context.Context, e *Event) error
}

// ===== Users =====

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	ValidateCredentials(ctx context.Context, email, plain string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
}

// ===== Registrations =====

// TransitionFunc mutates private copies of an event and a user. Returning an
// error discards both copies.
type TransitionFunc func(ev *Event, u *User) error

// RegistrationRepository persists registration transitions. Transition loads
// the event and the user, runs fn, and commits both records together or
// neither. Implementations serialise transitions on the same event.
type RegistrationRepository interface {
	Transition(ctx context.Context, eventID, userID string, fn TransitionFunc) (Event, error)
}
