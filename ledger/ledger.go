// Package ledger owns registration state transitions. It is the only code
// path that changes an event's seat count, its registrants, or a user's
// registered events, and it always changes them together.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"eventhub/metrics"
	"eventhub/models"
)

const (
	opRegister = "register"
	opCancel   = "cancel"
)

type Ledger struct {
	regs   models.RegistrationRepository
	logger *slog.Logger
}

type Option func(*Ledger)

// WithLogger overrides slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(led *Ledger) {
		if l != nil {
			led.logger = l
		}
	}
}

func New(regs models.RegistrationRepository, opts ...Option) *Ledger {
	l := &Ledger{regs: regs, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register gives userID one seat in eventID and returns the updated event.
//
// Failures, in the order they are checked: ErrEventNotFound, ErrUserNotFound,
// ErrAlreadyRegistered, ErrSeatsExhausted. On any failure neither record
// changes.
func (l *Ledger) Register(ctx context.Context, eventID, userID string) (models.Event, error) {
	return l.run(ctx, opRegister, eventID, userID, applyRegister)
}

// Cancel releases userID's seat in eventID and returns the updated event.
// It fails with ErrEventNotFound, ErrUserNotFound or ErrNotRegistered.
func (l *Ledger) Cancel(ctx context.Context, eventID, userID string) (models.Event, error) {
	return l.run(ctx, opCancel, eventID, userID, applyCancel)
}

func (l *Ledger) run(ctx context.Context, op, eventID, userID string, fn models.TransitionFunc) (models.Event, error) {
	if eventID == "" {
		return models.Event{}, models.ErrEventNotFound
	}
	if userID == "" {
		return models.Event{}, models.ErrUserNotFound
	}

	start := time.Now()
	ev, err := l.regs.Transition(ctx, eventID, userID, fn)
	metrics.LedgerDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.LedgerTransitions.WithLabelValues(op, outcome(err)).Inc()

	switch {
	case err == nil:
		l.logger.Info("registration "+op, "event", eventID, "user", userID, "availableSeats", ev.AvailableSeats)
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrInvalidState):
		l.logger.Debug("registration "+op+" rejected", "event", eventID, "user", userID, "reason", err)
	default:
		l.logger.Error("registration "+op+" failed", "event", eventID, "user", userID, "error", err)
	}
	return ev, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrInvalidState):
		return "invalid_state"
	default:
		return "error"
	}
}
