package models

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoOpTimeout bounds every single Mongo round trip.
const mongoOpTimeout = 5 * time.Second

type mongoEventRepo struct {
	col *mongo.Collection
}

func NewMongoEventRepository(col *mongo.Collection) EventRepository {
	return &mongoEventRepo{col: col}
}

// EventFilterQuery translates an EventFilter into a Mongo query. Search uses
// the collection's text index.
func EventFilterQuery(f EventFilter) bson.M {
	query := bson.M{}
	if f.Search != "" {
		query["$text"] = bson.M{"$search": f.Search}
	}
	if f.Date != nil {
		query["dateTime"] = bson.M{"$gte": *f.Date}
	}
	if f.Location != "" {
		query["location"] = bson.M{"$regex": regexp.QuoteMeta(f.Location), "$options": "i"}
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if len(f.Tags) > 0 {
		query["tags"] = bson.M{"$in": f.Tags}
	}
	return query
}

func (r *mongoEventRepo) Search(ctx context.Context, f EventFilter) ([]Event, error) {
	return r.find(ctx, EventFilterQuery(f), 1)
}

func (r *mongoEventRepo) GetByID(ctx context.Context, id string) (Event, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var e Event
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *mongoEventRepo) GetMany(ctx context.Context, ids []string) ([]Event, error) {
	if len(ids) == 0 {
		return []Event{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, 1)
}

func (r *mongoEventRepo) Upcoming(ctx context.Context, now time.Time) ([]Event, error) {
	return r.find(ctx, bson.M{"dateTime": bson.M{"$gt": now}}, 1)
}

func (r *mongoEventRepo) Past(ctx context.Context, now time.Time) ([]Event, error) {
	return r.find(ctx, bson.M{"dateTime": bson.M{"$lte": now}}, -1)
}

func (r *mongoEventRepo) Create(ctx context.Context, e *Event) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, err := r.col.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *mongoEventRepo) find(ctx context.Context, query bson.M, dir int) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "dateTime", Value: dir}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer cur.Close(ctx)

	out := []Event{}
	for cur.Next(ctx) {
		var e Event
		if err := cur.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, e)
	}
	return out, cur.Err()
}
