package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"eventhub/models"
	"eventhub/utils"

	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	utils.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type fixture struct {
	store  *models.MemoryStore
	ledger *Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := models.NewMemoryStore()
	return &fixture{store: store, ledger: New(store)}
}

func (f *fixture) event(t *testing.T, capacity int) string {
	t.Helper()
	ev, err := models.NewEvent(models.Event{
		Name:        fmt.Sprintf("Event %d", capacity),
		Organizer:   "Org",
		Location:    "Austin, TX",
		DateTime:    time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC),
		Description: "desc",
		Capacity:    capacity,
		Category:    "Music",
	})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if err := f.store.Create(context.Background(), &ev); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return ev.ID
}

func (f *fixture) user(t *testing.T, email string) string {
	t.Helper()
	u := models.User{Email: email, Password: "pw"}
	if err := f.store.Users().Create(context.Background(), &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func (f *fixture) snapshot(t *testing.T, eventID, userID string) (models.Event, models.User) {
	t.Helper()
	ev, err := f.store.GetByID(context.Background(), eventID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	u, err := f.store.Users().GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return ev, u
}

func assertBalanced(t *testing.T, ev models.Event) {
	t.Helper()
	if !ev.SeatsBalanced() {
		t.Fatalf("seat invariant broken: capacity=%d available=%d registrants=%d",
			ev.Capacity, ev.AvailableSeats, len(ev.RegisteredUsers))
	}
}

func TestLedger_Register(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("takes a seat and links both records", func(t *testing.T) {
		f := newFixture(t)
		eventID := f.event(t, 3)
		userID := f.user(t, "a@x.com")

		ev, err := f.ledger.Register(ctx, eventID, userID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ev.AvailableSeats != 2 {
			t.Fatalf("expected 2 seats left, got %d", ev.AvailableSeats)
		}
		if !ev.HasRegistrant(userID) {
			t.Fatalf("expected %s in registrants", userID)
		}

		stored, u := f.snapshot(t, eventID, userID)
		if !stored.HasRegistrant(userID) || !u.HasEvent(eventID) {
			t.Fatalf("expected registration on both sides, event=%v user=%v", stored.RegisteredUsers, u.RegisteredEvents)
		}
		assertBalanced(t, stored)
	})

	t.Run("seats exhausted leaves the event unmodified", func(t *testing.T) {
		f := newFixture(t)
		eventID := f.event(t, 1)
		first := f.user(t, "a@x.com")
		second := f.user(t, "b@x.com")

		if _, err := f.ledger.Register(ctx, eventID, first); err != nil {
			t.Fatalf("first register: %v", err)
		}
		before, _ := f.snapshot(t, eventID, second)

		_, err := f.ledger.Register(ctx, eventID, second)
		if !errors.Is(err, models.ErrSeatsExhausted) {
			t.Fatalf("expected ErrSeatsExhausted, got %v", err)
		}
		if !errors.Is(err, models.ErrInvalidState) {
			t.Fatalf("expected seats exhausted to be an invalid state")
		}

		after, u := f.snapshot(t, eventID, second)
		if after.AvailableSeats != before.AvailableSeats || !slices.Equal(after.RegisteredUsers, before.RegisteredUsers) {
			t.Fatalf("event changed on failure: before=%+v after=%+v", before, after)
		}
		if len(u.RegisteredEvents) != 0 {
			t.Fatalf("user changed on failure: %v", u.RegisteredEvents)
		}
	})

	t.Run("second register for same pair fails once state changed once", func(t *testing.T) {
		f := newFixture(t)
		eventID := f.event(t, 5)
		userID := f.user(t, "a@x.com")

		if _, err := f.ledger.Register(ctx, eventID, userID); err != nil {
			t.Fatalf("first register: %v", err)
		}
		_, err := f.ledger.Register(ctx, eventID, userID)
		if !errors.Is(err, models.ErrAlreadyRegistered) {
			t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
		}

		ev, u := f.snapshot(t, eventID, userID)
		if ev.AvailableSeats != 4 || len(ev.RegisteredUsers) != 1 || len(u.RegisteredEvents) != 1 {
			t.Fatalf("expected exactly one registration, got seats=%d registrants=%v user=%v",
				ev.AvailableSeats, ev.RegisteredUsers, u.RegisteredEvents)
		}
	})

	t.Run("already registered wins over seats exhausted", func(t *testing.T) {
		f := newFixture(t)
		eventID := f.event(t, 1)
		userID := f.user(t, "a@x.com")

		if _, err := f.ledger.Register(ctx, eventID, userID); err != nil {
			t.Fatalf("first register: %v", err)
		}
		if _, err := f.ledger.Register(ctx, eventID, userID); !errors.Is(err, models.ErrAlreadyRegistered) {
			t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
		}
	})

	t.Run("ten seats fill up and the eleventh fails", func(t *testing.T) {
		f := newFixture(t)
		eventID := f.event(t, 10)

		for i := 0; i < 10; i++ {
			userID := f.user(t, fmt.Sprintf("u%d@x.com", i))
			if _, err := f.ledger.Register(ctx, eventID, userID); err != nil {
				t.Fatalf("register %d: %v", i, err)
			}
		}
		ev, err := f.store.GetByID(ctx, eventID)
		if err != nil {
			t.Fatalf("get event: %v", err)
		}
		if ev.AvailableSeats != 0 || len(ev.RegisteredUsers) != 10 {
			t.Fatalf("expected full event, got seats=%d registrants=%d", ev.AvailableSeats, len(ev.RegisteredUsers))
		}

		eleventh := f.user(t, "u10@x.com")
		if _, err := f.ledger.Register(ctx, eventID, eleventh); !errors.Is(err, models.ErrSeatsExhausted) {
			t.Fatalf("expected ErrSeatsExhausted, got %v", err)
		}
	})

	t.Run("zero capacity event never accepts", func(t *testing.T) {
		f := newFixture(t)
		eventID := f.event(t, 0)
		userID := f.user(t, "a@x.com")

		if _, err := f.ledger.Register(ctx, eventID, userID); !errors.Is(err, models.ErrSeatsExhausted) {
			t.Fatalf("expected ErrSeatsExhausted, got %v", err)
		}
	})
}

func TestLedger_Cancel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("register then cancel restores both records", func(t *testing.T) {
		f := newFixture(t)
		eventID := f.event(t, 2)
		other := f.user(t, "other@x.com")
		userID := f.user(t, "a@x.com")
		if _, err := f.ledger.Register(ctx, eventID, other); err != nil {
			t.Fatalf("register other: %v", err)
		}
		beforeEv, beforeUser := f.snapshot(t, eventID, userID)

		if _, err := f.ledger.Register(ctx, eventID, userID); err != nil {
			t.Fatalf("register: %v", err)
		}
		ev, err := f.ledger.Cancel(ctx, eventID, userID)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if ev.HasRegistrant(userID) {
			t.Fatalf("expected %s removed from registrants", userID)
		}

		afterEv, afterUser := f.snapshot(t, eventID, userID)
		if afterEv.AvailableSeats != beforeEv.AvailableSeats {
			t.Fatalf("expected %d seats, got %d", beforeEv.AvailableSeats, afterEv.AvailableSeats)
		}
		if !slices.Equal(afterEv.RegisteredUsers, beforeEv.RegisteredUsers) {
			t.Fatalf("expected registrants %v, got %v", beforeEv.RegisteredUsers, afterEv.RegisteredUsers)
		}
		if !slices.Equal(afterUser.RegisteredEvents, beforeUser.RegisteredEvents) {
			t.Fatalf("expected user events %v, got %v", beforeUser.RegisteredEvents, afterUser.RegisteredEvents)
		}
	})

	t.Run("cancel without registration fails and changes nothing", func(t *testing.T) {
		f := newFixture(t)
		eventID := f.event(t, 2)
		userID := f.user(t, "a@x.com")
		before, _ := f.snapshot(t, eventID, userID)

		_, err := f.ledger.Cancel(ctx, eventID, userID)
		if !errors.Is(err, models.ErrNotRegistered) {
			t.Fatalf("expected ErrNotRegistered, got %v", err)
		}
		after, u := f.snapshot(t, eventID, userID)
		if after.AvailableSeats != before.AvailableSeats || len(u.RegisteredEvents) != 0 {
			t.Fatalf("state changed on failed cancel")
		}
	})

	t.Run("cancel frees a seat for someone else", func(t *testing.T) {
		f := newFixture(t)
		eventID := f.event(t, 1)
		first := f.user(t, "a@x.com")
		second := f.user(t, "b@x.com")

		if _, err := f.ledger.Register(ctx, eventID, first); err != nil {
			t.Fatalf("register first: %v", err)
		}
		if _, err := f.ledger.Cancel(ctx, eventID, first); err != nil {
			t.Fatalf("cancel first: %v", err)
		}
		if _, err := f.ledger.Register(ctx, eventID, second); err != nil {
			t.Fatalf("register second: %v", err)
		}
	})
}

func TestLedger_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	eventID := f.event(t, 1)
	userID := f.user(t, "a@x.com")

	tests := []struct {
		name    string
		eventID string
		userID  string
		want    error
	}{
		{"unknown event", "missing", userID, models.ErrEventNotFound},
		{"unknown user", eventID, "missing", models.ErrUserNotFound},
		{"empty event id", "", userID, models.ErrEventNotFound},
		{"empty user id", eventID, "", models.ErrUserNotFound},
		{"event checked before user", "missing", "missing", models.ErrEventNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ledger.Register(ctx, tt.eventID, tt.userID); !errors.Is(err, tt.want) {
				t.Fatalf("register: expected %v, got %v", tt.want, err)
			}
			if _, err := f.ledger.Cancel(ctx, tt.eventID, tt.userID); !errors.Is(err, tt.want) {
				t.Fatalf("cancel: expected %v, got %v", tt.want, err)
			}
			if !errors.Is(tt.want, models.ErrNotFound) {
				t.Fatalf("expected %v to be a not-found error", tt.want)
			}
		})
	}
}

func TestLedger_InconsistentRecordsAreNotTouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	userID := f.user(t, "a@x.com")

	broken := models.Event{
		Name: "Broken", Organizer: "Org", Location: "X", Description: "d", Category: "C",
		DateTime: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), Capacity: 2, AvailableSeats: 2,
		RegisteredUsers: []string{userID},
	}
	if err := f.store.Create(ctx, &broken); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.ledger.Register(ctx, broken.ID, userID); !errors.Is(err, models.ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState, got %v", err)
	}
	if _, err := f.ledger.Cancel(ctx, broken.ID, userID); !errors.Is(err, models.ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState, got %v", err)
	}
	ev, _ := f.snapshot(t, broken.ID, userID)
	if ev.AvailableSeats != 2 {
		t.Fatalf("expected broken record untouched, got %d seats", ev.AvailableSeats)
	}
}

type failingRegs struct{ err error }

func (f failingRegs) Transition(ctx context.Context, eventID, userID string, fn models.TransitionFunc) (models.Event, error) {
	return models.Event{}, f.err
}

func TestLedger_PropagatesStorageErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	l := New(failingRegs{err: boom})

	if _, err := l.Register(context.Background(), "e", "u"); !errors.Is(err, boom) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if got := outcome(boom); got != "error" {
		t.Fatalf("expected outcome error, got %s", got)
	}
}

func TestLedger_ConcurrentLastSeat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		f := newFixture(t)
		eventID := f.event(t, 1)
		users := []string{
			f.user(t, fmt.Sprintf("a%d@x.com", round)),
			f.user(t, fmt.Sprintf("b%d@x.com", round)),
		}

		start := make(chan struct{})
		errs := make([]error, len(users))
		var wg sync.WaitGroup
		for i, userID := range users {
			wg.Add(1)
			go func(i int, userID string) {
				defer wg.Done()
				<-start
				_, errs[i] = f.ledger.Register(ctx, eventID, userID)
			}(i, userID)
		}
		close(start)
		wg.Wait()

		var ok, exhausted int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, models.ErrSeatsExhausted):
				exhausted++
			default:
				t.Fatalf("round %d: unexpected error %v", round, err)
			}
		}
		if ok != 1 || exhausted != 1 {
			t.Fatalf("round %d: expected one success and one ErrSeatsExhausted, got ok=%d exhausted=%d", round, ok, exhausted)
		}

		ev, err := f.store.GetByID(ctx, eventID)
		if err != nil {
			t.Fatalf("get event: %v", err)
		}
		assertBalanced(t, ev)
	}
}

func TestLedger_ConcurrentMixedTraffic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	const capacity = 7
	const nUsers = 20
	eventID := f.event(t, capacity)
	users := make([]string, nUsers)
	for i := range users {
		users[i] = f.user(t, fmt.Sprintf("u%d@x.com", i))
	}

	var wg sync.WaitGroup
	for _, userID := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_, _ = f.ledger.Register(ctx, eventID, userID)
				if i%3 == 0 {
					_, _ = f.ledger.Cancel(ctx, eventID, userID)
				}
			}
		}(userID)
	}
	wg.Wait()

	ev, err := f.store.GetByID(ctx, eventID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	assertBalanced(t, ev)
	for _, userID := range users {
		u, err := f.store.Users().GetByID(ctx, userID)
		if err != nil {
			t.Fatalf("get user: %v", err)
		}
		if ev.HasRegistrant(userID) != u.HasEvent(eventID) {
			t.Fatalf("user %s: event and user records disagree", userID)
		}
	}
}

func TestLedger_SameUserManyEventsConcurrently(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	userID := f.user(t, "busy@x.com")

	events := make([]string, 12)
	for i := range events {
		events[i] = f.event(t, 3)
	}

	var wg sync.WaitGroup
	for _, eventID := range events {
		wg.Add(1)
		go func(eventID string) {
			defer wg.Done()
			if _, err := f.ledger.Register(ctx, eventID, userID); err != nil {
				t.Errorf("register %s: %v", eventID, err)
			}
		}(eventID)
	}
	wg.Wait()

	u, err := f.store.Users().GetByID(ctx, userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if len(u.RegisteredEvents) != len(events) {
		t.Fatalf("expected %d registered events, got %d", len(events), len(u.RegisteredEvents))
	}
}

func TestLedger_CancelledContext(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	eventID := f.event(t, 1)
	userID := f.user(t, "a@x.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.ledger.Register(ctx, eventID, userID); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	ev, _ := f.snapshot(t, eventID, userID)
	if ev.AvailableSeats != 1 {
		t.Fatalf("expected no seat taken, got %d left", ev.AvailableSeats)
	}
}
