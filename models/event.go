package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type Event struct {
	ID              string    `json:"id" bson:"_id"`
	Name            string    `json:"name" bson:"name"`
	Organizer       string    `json:"organizer" bson:"organizer"`
	Location        string    `json:"location" bson:"location"`
	DateTime        time.Time `json:"dateTime" bson:"dateTime"`
	Description     string    `json:"description" bson:"description"`
	Capacity        int       `json:"capacity" bson:"capacity"`
	AvailableSeats  int       `json:"availableSeats" bson:"availableSeats"`
	Category        string    `json:"category" bson:"category"`
	Tags            []string  `json:"tags" bson:"tags"`
	RegisteredUsers []string  `json:"registeredUsers" bson:"registeredUsers"`
	// Version is bumped on every registration transition (Mongo CAS).
	Version int64 `json:"-" bson:"version"`
}

// NewEvent prepares a catalogue entry for insertion: all seats free, no
// registrants.
func NewEvent(e Event) (Event, error) {
	var missing []string
	for name, v := range map[string]string{
		"name":        e.Name,
		"organizer":   e.Organizer,
		"location":    e.Location,
		"description": e.Description,
		"category":    e.Category,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return Event{}, fmt.Errorf("%w: missing %s", ErrInvalidEvent, strings.Join(missing, ", "))
	}
	if e.DateTime.IsZero() {
		return Event{}, fmt.Errorf("%w: missing dateTime", ErrInvalidEvent)
	}
	if e.Capacity < 0 {
		return Event{}, fmt.Errorf("%w: capacity must not be negative", ErrInvalidEvent)
	}

	e.AvailableSeats = e.Capacity
	e.RegisteredUsers = []string{}
	e.Version = 0
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return e, nil
}

func (e Event) HasRegistrant(userID string) bool {
	return slices.Contains(e.RegisteredUsers, userID)
}

// Clone returns a copy that shares no slices with e.
func (e Event) Clone() Event {
	e.Tags = cloneStrings(e.Tags)
	e.RegisteredUsers = cloneStrings(e.RegisteredUsers)
	return e
}

// SeatsBalanced reports whether availableSeats + |registrants| == capacity
// with available seats inside [0, capacity].
func (e Event) SeatsBalanced() bool {
	if e.AvailableSeats < 0 || e.AvailableSeats > e.Capacity {
		return false
	}
	return e.AvailableSeats+len(e.RegisteredUsers) == e.Capacity
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func without(in []string, v string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// RemoveRegistrant drops userID from the registrant set.
func (e *Event) RemoveRegistrant(userID string) {
	e.RegisteredUsers = without(e.RegisteredUsers, userID)
}

// EventFilter carries the GET /events query parameters.
type EventFilter struct {
	Search   string
	Date     *time.Time
	Location string
	Category string
	Tags     []string
}

// Matches evaluates the filter in memory. Search is an any-term,
// case-insensitive match over name, description, category, location and tags,
// which mirrors a document-store text index.
func (f EventFilter) Matches(e Event) bool {
	if f.Date != nil && e.DateTime.Before(*f.Date) {
		return false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(e.Location), strings.ToLower(f.Location)) {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if len(f.Tags) > 0 && !slices.ContainsFunc(f.Tags, func(t string) bool { return slices.Contains(e.Tags, t) }) {
		return false
	}
	if terms := strings.Fields(strings.ToLower(f.Search)); len(terms) > 0 {
		haystack := strings.ToLower(strings.Join(append([]string{e.Name, e.Description, e.Category, e.Location}, e.Tags...), " "))
		return slices.ContainsFunc(terms, func(t string) bool { return strings.Contains(haystack, t) })
	}
	return true
}

// ParseTags splits the comma-separated tags parameter, trimming blanks.
func ParseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
