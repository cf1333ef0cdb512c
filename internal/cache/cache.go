package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Invalidator is the notification hook the HTTP layer calls after a
// successful mutation. Implementations evict whatever they cached under the
// given scope tags; the caller never depends on the eviction succeeding.
type Invalidator interface {
	Invalidate(ctx context.Context, scopes ...string) error
}

// NewRedisClient builds a client from explicit settings and pings it with a
// short timeout. A nil return means the cache layer is unavailable and
// callers should run without invalidation.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

// RedisInvalidator deletes every cached response keyed under a scope prefix.
// The external cache stores entries as "<scope>:<key-hash>".
type RedisInvalidator struct {
	client *redis.Client
}

func NewRedisInvalidator(client *redis.Client) *RedisInvalidator {
	return &RedisInvalidator{client: client}
}

func (r *RedisInvalidator) Invalidate(ctx context.Context, scopes ...string) error {
	for _, scope := range scopes {
		iter := r.client.Scan(ctx, 0, scope+":*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(keys) == 0 {
			continue
		}
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	return nil
}
