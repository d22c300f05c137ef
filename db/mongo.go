package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EventsCollection = "events"
	UsersCollection  = "users"
)

// ConnectMongo connects and pings. Registration transitions need the URI to
// point at a replica set.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	mg, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect: %w", err)
	}
	if err := mg.Ping(ctx, nil); err != nil {
		_ = mg.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return mg, nil
}

// EnsureMongoIndexes creates the event text index used by search, a
// dateTime index for the dashboard, and the unique email index.
func EnsureMongoIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection(EventsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "name", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "category", Value: "text"},
				{Key: "location", Value: "text"},
				{Key: "tags", Value: "text"},
			},
			Options: options.Index().SetName("events_text"),
		},
		{
			Keys:    bson.D{{Key: "dateTime", Value: 1}},
			Options: options.Index().SetName("events_date_time"),
		},
	})
	if err != nil {
		return fmt.Errorf("create event indexes: %w", err)
	}

	_, err = database.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("users_email").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}
