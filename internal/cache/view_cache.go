// Package cache implements the read-side view cache: a per-month
// snapshot of class sessions used for calendar rendering. It is fed by
// the coordinator's change signal and is never consulted for
// correctness; a miss always falls through to the database. The cache
// shares no mutable state with the transactional core; invalidation is
// its only write API besides the fill.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studioflow/class-booking/internal/model"
)

// ViewCache stores month-keyed class snapshots in Redis. A nil client
// degrades every operation to a pass-through, mirroring how the rate
// limiter behaves when Redis is unavailable.
type ViewCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewViewCache constructs a ViewCache. rdb may be nil to disable caching.
func NewViewCache(rdb *redis.Client, ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ViewCache{rdb: rdb, ttl: ttl, prefix: "viewcache:classes"}
}

func (v *ViewCache) monthKey(t time.Time) string {
	return fmt.Sprintf("%s:%s", v.prefix, t.UTC().Format("2006-01"))
}

// GetMonth returns the cached snapshot for the month containing t, or
// ok=false on a miss or any Redis error.
func (v *ViewCache) GetMonth(ctx context.Context, t time.Time) ([]model.ClassSession, bool) {
	if v.rdb == nil {
		return nil, false
	}
	raw, err := v.rdb.Get(ctx, v.monthKey(t)).Bytes()
	if err != nil {
		return nil, false
	}
	var classes []model.ClassSession
	if err := json.Unmarshal(raw, &classes); err != nil {
		return nil, false
	}
	return classes, true
}

// PutMonth stores a snapshot for the month containing t. Failures are
// logged and otherwise ignored; the cache is best-effort.
func (v *ViewCache) PutMonth(ctx context.Context, t time.Time, classes []model.ClassSession) {
	if v.rdb == nil {
		return
	}
	raw, err := json.Marshal(classes)
	if err != nil {
		return
	}
	if err := v.rdb.Set(ctx, v.monthKey(t), raw, v.ttl).Err(); err != nil {
		log.Printf("viewcache: set failed: %v", err)
	}
}

// ClassChanged implements the coordinator's change signal: the month
// holding the affected class is invalidated, never updated in place.
func (v *ViewCache) ClassChanged(ctx context.Context, classID string, startsAt time.Time) {
	if v.rdb == nil {
		return
	}
	if err := v.rdb.Del(ctx, v.monthKey(startsAt)).Err(); err != nil {
		log.Printf("viewcache: invalidate %s failed: %v", classID, err)
	}
}
