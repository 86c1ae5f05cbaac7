// Package cache holds read-through caches in front of the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"to-dogether/internal/models"
)

// Identity caches user profiles by id. A miss is (nil, nil); errors mean
// the cache itself failed and callers should fall back to the store.
type Identity interface {
	Get(ctx context.Context, userID int) (*models.User, error)
	Set(ctx context.Context, u *models.User) error
	Invalidate(ctx context.Context, userID int) error
}

func identityKey(userID int) string {
	return fmt.Sprintf("user:%d", userID)
}

type RedisIdentity struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdentity(client *redis.Client, ttl time.Duration) *RedisIdentity {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisIdentity{client: client, ttl: ttl}
}

func (c *RedisIdentity) Get(ctx context.Context, userID int) (*models.User, error) {
	cached, err := c.client.Get(ctx, identityKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached user: %w", err)
	}
	var u models.User
	if err := json.Unmarshal([]byte(cached), &u); err != nil {
		return nil, fmt.Errorf("decode cached user: %w", err)
	}
	return &u, nil
}

// Set stores u without its password hash.
func (c *RedisIdentity) Set(ctx context.Context, u *models.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return c.client.SetEX(ctx, identityKey(u.ID), data, c.ttl).Err()
}

func (c *RedisIdentity) Invalidate(ctx context.Context, userID int) error {
	return c.client.Del(ctx, identityKey(userID)).Err()
}

// Noop never stores anything. It is used when Redis is disabled.
type Noop struct{}

func (Noop) Get(context.Context, int) (*models.User, error) { return nil, nil }
func (Noop) Set(context.Context, *models.User) error         { return nil }
func (Noop) Invalidate(context.Context, int) error            { return nil }

var (
	_ Identity = (*RedisIdentity)(nil)
	_ Identity = Noop{}
)
