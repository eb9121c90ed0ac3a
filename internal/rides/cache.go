package rides

import (
	"context"
	"encoding/json"
	"log"
)

// SnapshotCache stores serialised ride snapshots (Redis in production).
// CacheRide must never replace a cached snapshot with an older version.
type SnapshotCache interface {
	CacheRide(ctx context.Context, rideID string, version int64, data []byte) (bool, error)
	GetCachedRide(ctx context.Context, rideID string) ([]byte, error)
	InvalidateRide(ctx context.Context, rideID string) error
}

// CachedStore is a read-through cache in front of a Store. Successful writes
// refresh the cache with their result; a read that raced a write cannot
// overwrite the newer snapshot because fills are version-guarded.
type CachedStore struct {
	Store
	cache SnapshotCache
}

// NewCachedStore wraps store with cache.
func NewCachedStore(store Store, cache SnapshotCache) *CachedStore {
	return &CachedStore{Store: store, cache: cache}
}

func (c *CachedStore) Get(ctx context.Context, id string) (*Ride, error) {
	if data, err := c.cache.GetCachedRide(ctx, id); err != nil {
		log.Printf("[rides] cache read %s: %v", id, err)
	} else if data != nil {
		var r Ride
		if err := json.Unmarshal(data, &r); err == nil {
			return &r, nil
		}
	}
	return c.GetFresh(ctx, id)
}

// GetFresh reads the underlying store and refreshes the cache. Decisions
// about a ride's next state are made on this read, never on a cached one.
func (c *CachedStore) GetFresh(ctx context.Context, id string) (*Ride, error) {
	r, err := c.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, r)
	return r, nil
}

func (c *CachedStore) Transition(ctx context.Context, id string, from, to Status, driver *DriverInfo) (*Ride, error) {
	r, err := c.Store.Transition(ctx, id, from, to, driver)
	if err == nil {
		c.fill(ctx, r)
	}
	return r, err
}

func (c *CachedStore) SetFeedback(ctx context.Context, id string, rating int, comment string) (*Ride, error) {
	r, err := c.Store.SetFeedback(ctx, id, rating, comment)
	if err == nil {
		c.fill(ctx, r)
	}
	return r, err
}

// fill caches r. If the cache cannot be written the key is dropped so no
// older snapshot outlives the write.
func (c *CachedStore) fill(ctx context.Context, r *Ride) {
	data, err := json.Marshal(r)
	if err == nil {
		_, err = c.cache.CacheRide(ctx, r.ID, r.Version, data)
	}
	if err == nil {
		return
	}
	log.Printf("[rides] cache write %s: %v", r.ID, err)
	if err := c.cache.InvalidateRide(ctx, r.ID); err != nil {
		log.Printf("[rides] cache invalidate %s: %v", r.ID, err)
	}
}
