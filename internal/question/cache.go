package question

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gokatarajesh/partyquiz/internal/game"
)

const defaultCacheTTL = 5 * time.Minute

// BankCache holds a copy of the full bank so sessions created without a
// custom question list do not hit the database.
type BankCache interface {
	Get(ctx context.Context) ([]game.Question, error)
	Set(ctx context.Context, qs []game.Question) error
	Invalidate(ctx context.Context) error
}

// Cache is the Redis-backed BankCache.
type Cache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ BankCache = (*Cache)(nil)

func NewCache(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if prefix == "" {
		prefix = "partyquiz"
	}
	return &Cache{client: client, key: prefix + ":questionbank", ttl: ttl}
}

// Get returns the cached bank, or nil on a miss.
func (c *Cache) Get(ctx context.Context) ([]game.Question, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var qs []game.Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

func (c *Cache) Set(ctx context.Context, qs []game.Question) error {
	data, err := json.Marshal(qs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, data, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
