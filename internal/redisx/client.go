package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Dedup marks key as seen and reports whether it was already there.
// SetNX keeps check-and-set atomic across instances.
func Dedup(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	set, err := rdb.SetNX(ctx, key, "1", TTLDedup).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
