package game

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTrackerTTL = 6 * time.Hour

// RedisTracker marks live sessions in Redis so operators can see them.
// It never stores game state; sessions do not survive a restart.
type RedisTracker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Tracker = (*RedisTracker)(nil)

// NewRedisTracker builds a tracker with the given key prefix and TTL.
func NewRedisTracker(client *redis.Client, prefix string, ttl time.Duration) *RedisTracker {
	if prefix == "" {
		prefix = "partyquiz"
	}
	if ttl <= 0 {
		ttl = defaultTrackerTTL
	}
	return &RedisTracker{client: client, prefix: prefix, ttl: ttl}
}

// Track writes the liveness hash and adds the id to the live set.
func (t *RedisTracker) Track(ctx context.Context, info SessionInfo) error {
	key := t.sessionKey(info.ID)
	pipe := t.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"join_code":  info.JoinCode,
		"created_at": info.CreatedAt.UTC().Format(time.RFC3339),
	})
	pipe.Expire(ctx, key, t.ttl)
	pipe.SAdd(ctx, t.liveKey(), info.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("track session %s: %w", info.ID, err)
	}
	return nil
}

// Touch extends the liveness TTL.
func (t *RedisTracker) Touch(ctx context.Context, sessionID string) error {
	return t.client.Expire(ctx, t.sessionKey(sessionID), t.ttl).Err()
}

// Forget removes all markers of a session.
func (t *RedisTracker) Forget(ctx context.Context, sessionID string) error {
	pipe := t.client.TxPipeline()
	pipe.Del(ctx, t.sessionKey(sessionID))
	pipe.SRem(ctx, t.liveKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("forget session %s: %w", sessionID, err)
	}
	return nil
}

func (t *RedisTracker) sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", t.prefix, id)
}

func (t *RedisTracker) liveKey() string {
	return fmt.Sprintf("%s:sessions", t.prefix)
}
