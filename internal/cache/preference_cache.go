// Package cache holds per-channel dataset preferences.
package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"lawgpt/internal/model"
)

// PreferenceCache keeps channel preferences in Redis so they survive
// restarts and are shared between replicas. Entries expire after ttl of
// inactivity.
type PreferenceCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewPreferenceCache(client *redisv9.Client, ttl time.Duration) *PreferenceCache {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &PreferenceCache{client: client, ttl: ttl}
}

func (c *PreferenceCache) GetScope(ctx context.Context, channelID string) (model.Scope, bool, error) {
	raw, err := c.client.GetEx(ctx, preferenceKey(channelID), c.ttl).Result()
	if err == redisv9.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get preference failed: %w", err)
	}
	scope := model.Scope(raw)
	if !scope.Valid() {
		return "", false, nil
	}
	return scope, true, nil
}

// SetScope is last-write-wins per channel.
func (c *PreferenceCache) SetScope(ctx context.Context, channelID string, scope model.Scope) error {
	if err := c.client.Set(ctx, preferenceKey(channelID), string(scope), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set preference failed: %w", err)
	}
	return nil
}

func preferenceKey(channelID string) string {
	return "lawgpt:preference:" + channelID
}
