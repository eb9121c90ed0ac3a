package redis

import (
	"context"
	"time"
)

const (
	searchPrefix    = "searches:recent:"
	maxSearches     = 10
	searchRetention = 30 * 24 * time.Hour
)

// PushRecentSearch records a destination at the head of the user's history,
// dropping a previous occurrence and keeping the newest maxSearches entries.
func (c *Client) PushRecentSearch(ctx context.Context, userID, destination string) error {
	key := searchPrefix + userID
	pipe := c.rdb.TxPipeline()
	pipe.LRem(ctx, key, 0, destination)
	pipe.LPush(ctx, key, destination)
	pipe.LTrim(ctx, key, 0, maxSearches-1)
	pipe.Expire(ctx, key, searchRetention)
	_, err := pipe.Exec(ctx)
	return err
}

// RecentSearches returns up to limit destinations, newest first.
func (c *Client) RecentSearches(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 || limit > maxSearches {
		limit = maxSearches
	}
	return c.rdb.LRange(ctx, searchPrefix+userID, 0, int64(limit-1)).Result()
}
