package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
)

// Deduper remembers which reminders were already sent
type Deduper interface {
	// Acquire returns true the first time key is seen within ttl
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisDeduper keeps reminder keys in redis with SETNX
type RedisDeduper struct {
	client *redis.Client
	prefix string
}

// NewRedisDeduper returns a Deduper storing keys under prefix
func NewRedisDeduper(client *redis.Client, prefix string) (*RedisDeduper, error) {
	if client == nil {
		return nil, fmt.Errorf("nil redis client is invalid")
	}
	return &RedisDeduper{
		client: client,
		prefix: prefix,
	}, nil
}

func (r *RedisDeduper) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.WithContext(ctx).SetNX(r.prefix+key, time.Now().Unix(), ttl).Result()
}

func (r *RedisDeduper) Release(ctx context.Context, key string) error {
	return r.client.WithContext(ctx).Del(r.prefix + key).Err()
}

func reminderKey(sub *Subscription) string {
	return fmt.Sprintf("reminder:%s:%d", sub.ID, sub.EndDate.Unix())
}
