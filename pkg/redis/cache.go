package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	rideCachePrefix = "cache:ride:"
	// RideCacheTTL bounds how stale a cached ride snapshot can be.
	RideCacheTTL = 10 * time.Second
)

// cacheIfNewer writes the snapshot only when no newer version is cached.
// KEYS[1] ride hash; ARGV version, data, ttl in ms.
var cacheIfNewer = goredis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'd', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// CacheRide stores a serialised ride snapshot unless the cache already holds
// the same or a later version. It reports whether the snapshot was stored.
func (c *Client) CacheRide(ctx context.Context, rideID string, version int64, data []byte) (bool, error) {
	n, err := cacheIfNewer.Run(ctx, c.rdb, []string{rideCachePrefix + rideID},
		version, data, RideCacheTTL.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetCachedRide returns the cached snapshot, or nil on a miss.
func (c *Client) GetCachedRide(ctx context.Context, rideID string) ([]byte, error) {
	data, err := c.rdb.HGet(ctx, rideCachePrefix+rideID, "d").Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	return data, err
}

// InvalidateRide removes a cached snapshot.
func (c *Client) InvalidateRide(ctx context.Context, rideID string) error {
	return c.rdb.Del(ctx, rideCachePrefix+rideID).Err()
}
