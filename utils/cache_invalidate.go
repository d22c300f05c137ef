package utils

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Key prefixes shared with middlewares.CacheKeyFrom.
const (
	CacheEventsListPrefix = "cache:events:list:"
	CacheEventsItemPrefix = "cache:events:item:"
)

// CacheInvalidator drops cached event responses after a write so seat counts
// are not served stale.
type CacheInvalidator struct{ rdb *redis.Client }

func NewCacheInvalidator(rdb *redis.Client) *CacheInvalidator { return &CacheInvalidator{rdb} }

func (ci *CacheInvalidator) PurgeEventsList(ctx context.Context) {
	iter := ci.rdb.Scan(ctx, 0, CacheEventsListPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := ci.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			slog.Warn("can't purge cached event list", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		slog.Warn("can't scan cached event lists", "error", err)
	}
}

func (ci *CacheInvalidator) PurgeEventItem(ctx context.Context, id string) {
	if err := ci.rdb.Del(ctx, CacheEventsItemPrefix+id).Err(); err != nil {
		slog.Warn("can't purge cached event", "id", id, "error", err)
	}
}

// PurgeEvent drops both the single-event entry and every list page.
func (ci *CacheInvalidator) PurgeEvent(ctx context.Context, id string) {
	ci.PurgeEventItem(ctx, id)
	ci.PurgeEventsList(ctx)
}
