package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"
)

func availablePoolKey(vehicleClass string) string {
	return "drivers:available:" + vehicleClass
}

// AddAvailableDriver puts a driver into the pool of their vehicle class.
func (c *Client) AddAvailableDriver(ctx context.Context, vehicleClass, driverID string) error {
	return c.rdb.SAdd(ctx, availablePoolKey(vehicleClass), driverID).Err()
}

// RemoveAvailableDriver takes a driver out of the pool.
func (c *Client) RemoveAvailableDriver(ctx context.Context, vehicleClass, driverID string) error {
	return c.rdb.SRem(ctx, availablePoolKey(vehicleClass), driverID).Err()
}

// PopAvailableDriver atomically removes and returns one driver of the class.
// It returns "" when the pool is empty.
func (c *Client) PopAvailableDriver(ctx context.Context, vehicleClass string) (string, error) {
	id, err := c.rdb.SPop(ctx, availablePoolKey(vehicleClass)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	return id, err
}
