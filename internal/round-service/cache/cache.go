package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache guarda o histórico de resultados por família com TTL curto; a
// origem da verdade segue sendo o Postgres.
type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

func keyHistory(family string) string { return "rounds:history:" + family }

func (c *Cache) GetHistory(ctx context.Context, family string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyHistory(family)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) SetHistory(ctx context.Context, family string, v any, ttl time.Duration) error {
	b, _ := json.Marshal(v)
	return c.R.Set(ctx, keyHistory(family), b, ttl).Err()
}
