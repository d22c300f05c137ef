// Package seed loads a small sample catalogue into an empty event store.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventhub/models"
)

func at(value string) time.Time {
	t, err := time.Parse("2006-01-02T15:04", value)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

// SampleEvents returns fresh copies of the sample catalogue, upcoming and
// past events mixed.
func SampleEvents() []models.Event {
	return []models.Event{
		{
			Name:        "Tech Conference 2027",
			Organizer:   "Tech Innovations Inc.",
			Location:    "San Francisco, CA",
			DateTime:    at("2027-06-15T09:00"),
			Description: "Annual technology conference featuring the latest innovations in AI, blockchain, and cloud computing.",
			Capacity:    500,
			Category:    "Technology",
			Tags:        []string{"tech", "conference", "ai", "innovation"},
		},
		{
			Name:        "Music Festival",
			Organizer:   "Harmony Events",
			Location:    "Austin, TX",
			DateTime:    at("2027-07-20T12:00"),
			Description: "Multi-day music festival featuring top artists from various genres including rock, pop, and electronic music.",
			Capacity:    10000,
			Category:    "Music",
			Tags:        []string{"music", "festival", "concert", "rock"},
		},
		{
			Name:        "Business Workshop",
			Organizer:   "Leadership Academy",
			Location:    "New York, NY",
			DateTime:    at("2027-05-10T10:00"),
			Description: "Intensive workshop on business leadership, strategy, and innovation for professionals.",
			Capacity:    150,
			Category:    "Business",
			Tags:        []string{"business", "workshop", "leadership", "professional"},
		},
		{
			Name:        "Art Exhibition Opening",
			Organizer:   "Modern Art Gallery",
			Location:    "Chicago, IL",
			DateTime:    at("2024-04-25T18:00"),
			Description: "Opening night of our spring exhibition featuring contemporary art from emerging artists.",
			Capacity:    200,
			Category:    "Arts",
			Tags:        []string{"art", "exhibition", "gallery", "contemporary"},
		},
		{
			Name:        "Food & Wine Tasting",
			Organizer:   "Gourmet Society",
			Location:    "Napa Valley, CA",
			DateTime:    at("2024-08-05T15:00"),
			Description: "Exclusive tasting event featuring premium wines paired with gourmet cuisine.",
			Capacity:    80,
			Category:    "Food",
			Tags:        []string{"food", "wine", "tasting", "gourmet"},
		},
		{
			Name:        "Summer Tech Meetup",
			Organizer:   "Local Developers",
			Location:    "Seattle, WA",
			DateTime:    at("2024-07-15T14:00"),
			Description: "Monthly meetup for tech enthusiasts to network and share ideas.",
			Capacity:    50,
			Category:    "Technology",
			Tags:        []string{"tech", "meetup", "networking", "local"},
		},
	}
}

// Run inserts the sample events when the store holds none and returns how
// many were inserted. Existing events are never touched.
func Run(ctx context.Context, events models.EventRepository) (int, error) {
	existing, err := events.Search(ctx, models.EventFilter{})
	if err != nil {
		return 0, fmt.Errorf("seed: list events: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("seed skipped, catalogue not empty", "events", len(existing))
		return 0, nil
	}

	inserted := 0
	for _, sample := range SampleEvents() {
		ev, err := models.NewEvent(sample)
		if err != nil {
			return inserted, fmt.Errorf("seed: %q: %w", sample.Name, err)
		}
		if err := events.Create(ctx, &ev); err != nil {
			return inserted, fmt.Errorf("seed: %q: %w", sample.Name, err)
		}
		inserted++
	}
	slog.Info("seeded sample events", "events", inserted)
	return inserted, nil
}
