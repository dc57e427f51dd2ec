package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sakif/vaccine-portal/internal/model"
)

// Cache stores parsed articles per search query.
type Cache interface {
	// Get reports ok=false on a miss; err is reserved for cache failures.
	Get(ctx context.Context, query string) (articles []model.Article, ok bool, err error)
	Set(ctx context.Context, query string, articles []model.Article, ttl time.Duration) error
}

// RedisCache keeps articles as JSON under "news:<query>".
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func cacheKey(query string) string {
	return "news:" + query
}

func (c *RedisCache) Get(ctx context.Context, query string) ([]model.Article, bool, error) {
	data, err := c.client.Get(ctx, cacheKey(query)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("news: redis get: %w", err)
	}

	var articles []model.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, false, fmt.Errorf("news: decoding cached articles: %w", err)
	}
	return articles, true, nil
}

func (c *RedisCache) Set(ctx context.Context, query string, articles []model.Article, ttl time.Duration) error {
	data, err := json.Marshal(articles)
	if err != nil {
		return fmt.Errorf("news: encoding articles: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(query), data, ttl).Err(); err != nil {
		return fmt.Errorf("news: redis set: %w", err)
	}
	return nil
}
