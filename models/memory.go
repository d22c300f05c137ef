package models

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"eventhub/utils"

	"github.com/google/uuid"
)

// MemoryStore keeps events and users in process memory. It implements
// EventRepository and RegistrationRepository, Users returns its
// UserRepository. It backs STORE_DRIVER=memory and the unit tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]Event
	users  map[string]User
	emails map[string]string // email -> user id

	locks *keyedMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]Event),
		users:  make(map[string]User),
		emails: make(map[string]string),
		locks:  newKeyedMutex(),
	}
}

/* -------------------- Events -------------------- */

func (s *MemoryStore) Search(ctx context.Context, f EventFilter) ([]Event, error) {
	return s.selectEvents(f.Matches, ascending), nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return e.Clone(), nil
}

func (s *MemoryStore) GetMany(ctx context.Context, ids []string) ([]Event, error) {
	return s.selectEvents(func(e Event) bool { return slices.Contains(ids, e.ID) }, ascending), nil
}

func (s *MemoryStore) Upcoming(ctx context.Context, now time.Time) ([]Event, error) {
	return s.selectEvents(func(e Event) bool { return e.DateTime.After(now) }, ascending), nil
}

func (s *MemoryStore) Past(ctx context.Context, now time.Time) ([]Event, error) {
	return s.selectEvents(func(e Event) bool { return !e.DateTime.After(now) }, descending), nil
}

func (s *MemoryStore) Create(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e.Clone()
	return nil
}

func ascending(a, b Event) int  { return a.DateTime.Compare(b.DateTime) }
func descending(a, b Event) int { return b.DateTime.Compare(a.DateTime) }

func (s *MemoryStore) selectEvents(keep func(Event) bool, order func(a, b Event) int) []Event {
	s.mu.RLock()
	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	s.mu.RUnlock()
	slices.SortStableFunc(out, func(a, b Event) int {
		if c := order(a, b); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

/* -------------------- Users --------------------- */

// Users exposes the store's user side under the UserRepository method
// names, which collide with the event side (Create, GetByID).
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) Create(ctx context.Context, u *User) error {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, taken := m.s.emails[email]; taken {
		return ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = email
	u.Password = hashed
	if u.RegisteredEvents == nil {
		u.RegisteredEvents = []string{}
	}
	m.s.users[u.ID] = u.Clone()
	m.s.emails[email] = u.ID
	return nil
}

func (m memoryUsers) ValidateCredentials(ctx context.Context, email, plain string) (User, error) {
	m.s.mu.RLock()
	id, ok := m.s.emails[strings.ToLower(strings.TrimSpace(email))]
	u := m.s.users[id]
	m.s.mu.RUnlock()
	if !ok || !utils.CheckPasswordHash(plain, u.Password) {
		return User{}, ErrInvalidCredentials
	}
	return u.Clone(), nil
}

func (m memoryUsers) GetByID(ctx context.Context, id string) (User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	u, ok := m.s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u.Clone(), nil
}

/* --------------- Registrations ------------------ */

// Transition takes the event lock, then the user lock. The order is fixed so
// two transitions can never wait on each other in a cycle.
func (s *MemoryStore) Transition(ctx context.Context, eventID, userID string, fn TransitionFunc) (Event, error) {
	unlockEvent := s.locks.Lock("event:" + eventID)
	defer unlockEvent()
	unlockUser := s.locks.Lock("user:" + userID)
	defer unlockUser()

	if err := ctx.Err(); err != nil {
		return Event{}, err
	}

	s.mu.RLock()
	ev, evOK := s.events[eventID]
	u, userOK := s.users[userID]
	s.mu.RUnlock()
	if !evOK {
		return Event{}, ErrEventNotFound
	}
	if !userOK {
		return Event{}, ErrUserNotFound
	}

	ev, u = ev.Clone(), u.Clone()
	if err := fn(&ev, &u); err != nil {
		return Event{}, err
	}

	s.mu.Lock()
	ev.Version++
	s.events[eventID] = ev
	s.users[userID] = u
	s.mu.Unlock()
	return ev.Clone(), nil
}
