package models

import "slices"

type User struct {
	ID               string   `json:"id" bson:"_id"`
	Email            string   `json:"email" bson:"email"`
	Password         string   `json:"-" bson:"password"` // bcrypt hash once stored
	RegisteredEvents []string `json:"registeredEvents" bson:"registeredEvents"`
}

func (u User) HasEvent(eventID string) bool {
	return slices.Contains(u.RegisteredEvents, eventID)
}

func (u User) Clone() User {
	u.RegisteredEvents = cloneStrings(u.RegisteredEvents)
	return u
}

// RemoveEvent drops eventID from the user's registered events.
func (u *User) RemoveEvent(eventID string) {
	u.RegisteredEvents = without(u.RegisteredEvents, eventID)
}
