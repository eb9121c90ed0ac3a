package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const draftPrefix = "booking:draft:"

// SaveDraft stores a user's serialised booking draft.
func (c *Client) SaveDraft(ctx context.Context, userID string, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, draftPrefix+userID, data, ttl).Err()
}

// LoadDraft returns the stored draft, or nil when there is none.
func (c *Client) LoadDraft(ctx context.Context, userID string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, draftPrefix+userID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	return data, err
}

// DeleteDraft discards the user's draft.
func (c *Client) DeleteDraft(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, draftPrefix+userID).Err()
}

const confirmPrefix = "booking:confirm:"

// ClaimConfirm takes the user's confirmation lock. It reports false when
// another confirmation holds it.
func (c *Client) ClaimConfirm(ctx context.Context, userID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, confirmPrefix+userID, 1, ttl).Result()
}

// ReleaseConfirm drops the user's confirmation lock.
func (c *Client) ReleaseConfirm(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, confirmPrefix+userID).Err()
}
