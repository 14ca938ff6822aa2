package cache

import (
	"context"
	"errors"
	"time"

	"bloh/internal/observability"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when no Redis client is configured.
var ErrUnavailable = errors.New("redis unavailable")

// ViewDeduper remembers which fingerprints viewed a post within a window.
type ViewDeduper struct {
	rdb *redis.Client
}

// NewViewDeduper returns a deduper backed by rdb. A nil client makes every call fail with ErrUnavailable.
func NewViewDeduper(rdb *redis.Client) *ViewDeduper {
	return &ViewDeduper{rdb: rdb}
}

// FirstView atomically records the (post, fingerprint) pair for ttl and reports
// whether this call created the record. SET NX is the only synchronization.
func (d *ViewDeduper) FirstView(ctx context.Context, postID uint, fingerprint string, ttl time.Duration) (bool, error) {
	if d == nil || d.rdb == nil {
		return false, ErrUnavailable
	}
	ctx, span := observability.StartRedisSpan(ctx, "setnx")
	created, err := d.rdb.SetNX(ctx, ViewKey(postID, fingerprint), 1, ttl).Result()
	observability.EndSpan(span, err)
	return created, err
}
