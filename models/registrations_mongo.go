package models

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// staleAttempts bounds how often a transition is replayed after its event
// version moved underneath it.
const staleAttempts = 3

var errStaleEvent = errors.New("event changed during transition")

type mongoRegistrationRepo struct {
	client *mongo.Client
	events *mongo.Collection
	users  *mongo.Collection
}

// NewMongoRegistrationRepository needs a replica set or sharded cluster:
// every transition runs in a multi-document transaction.
func NewMongoRegistrationRepository(client *mongo.Client, events, users *mongo.Collection) RegistrationRepository {
	return &mongoRegistrationRepo{client: client, events: events, users: users}
}

func (r *mongoRegistrationRepo) Transition(ctx context.Context, eventID, userID string, fn TransitionFunc) (Event, error) {
	var err error
	for attempt := 0; attempt < staleAttempts; attempt++ {
		var ev Event
		ev, err = r.transitionOnce(ctx, eventID, userID, fn)
		if !errors.Is(err, errStaleEvent) {
			return ev, err
		}
	}
	return Event{}, fmt.Errorf("transition %s: %w", eventID, err)
}

func (r *mongoRegistrationRepo) transitionOnce(ctx context.Context, eventID, userID string, fn TransitionFunc) (Event, error) {
	sess, err := r.client.StartSession()
	if err != nil {
		return Event{}, fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	res, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var ev Event
		if err := r.events.FindOne(sc, bson.M{"_id": eventID}).Decode(&ev); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrEventNotFound
			}
			return nil, fmt.Errorf("load event: %w", err)
		}
		var u User
		if err := r.users.FindOne(sc, bson.M{"_id": userID}).Decode(&u); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("load user: %w", err)
		}

		prev := ev.Version
		if err := fn(&ev, &u); err != nil {
			return nil, err
		}
		ev.Version = prev + 1

		upd, err := r.events.UpdateOne(sc,
			bson.M{"_id": eventID, "version": prev},
			bson.M{"$set": bson.M{
				"availableSeats":  ev.AvailableSeats,
				"registeredUsers": ev.RegisteredUsers,
				"version":         ev.Version,
			}},
		)
		if err != nil {
			return nil, fmt.Errorf("update event: %w", err)
		}
		if upd.MatchedCount == 0 {
			return nil, errStaleEvent
		}

		if _, err := r.users.UpdateOne(sc,
			bson.M{"_id": userID},
			bson.M{"$set": bson.M{"registeredEvents": u.RegisteredEvents}},
		); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		return ev, nil
	}, txnOpts)
	if err != nil {
		return Event{}, err
	}
	return res.(Event), nil
}
