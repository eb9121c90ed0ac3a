package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const connectAttempts = 20

// Client wraps the Redis connection.
type Client struct {
	rdb *goredis.Client
}

// NewClient connects to Redis, retrying until the server answers a ping.
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	for i := 1; i <= connectAttempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err == nil {
			log.Println("[redis] connected")
			return &Client{rdb: rdb}, nil
		}
		log.Printf("[redis] waiting for server... (%d/%d)", i, connectAttempts)
		time.Sleep(2 * time.Second)
	}
	rdb.Close()
	return nil, fmt.Errorf("redis: failed to connect after %d attempts", connectAttempts)
}

// Close tears down the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }
