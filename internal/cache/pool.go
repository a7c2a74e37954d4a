// Package cache stores per-chapter question pools and topic lists in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcq-practice/backend/internal/models"
)

const keyPrefix = "mcq:chapter:"

func questionsKey(chapterID string) string { return keyPrefix + chapterID + ":questions" }
func topicsKey(chapterID string) string    { return keyPrefix + chapterID + ":topics" }

// PoolCache is a read-through cache for chapter content. A miss is reported
// as ok=false with a nil error.
type PoolCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPoolCache(rdb *redis.Client, ttl time.Duration) *PoolCache {
	return &PoolCache{rdb: rdb, ttl: ttl}
}

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	log.Printf("[cache] connected to redis at %s", addr)
	return rdb, nil
}

func (c *PoolCache) Questions(ctx context.Context, chapterID string) ([]models.Question, bool, error) {
	var qs []models.Question
	ok, err := c.get(ctx, questionsKey(chapterID), &qs)
	return qs, ok, err
}

func (c *PoolCache) SetQuestions(ctx context.Context, chapterID string, qs []models.Question) error {
	return c.set(ctx, questionsKey(chapterID), qs)
}

func (c *PoolCache) Topics(ctx context.Context, chapterID string) ([]models.Topic, bool, error) {
	var ts []models.Topic
	ok, err := c.get(ctx, topicsKey(chapterID), &ts)
	return ts, ok, err
}

func (c *PoolCache) SetTopics(ctx context.Context, chapterID string, ts []models.Topic) error {
	return c.set(ctx, topicsKey(chapterID), ts)
}

// Invalidate drops both cached entries of a chapter.
func (c *PoolCache) Invalidate(ctx context.Context, chapterID string) error {
	if err := c.rdb.Del(ctx, questionsKey(chapterID), topicsKey(chapterID)).Err(); err != nil {
		return fmt.Errorf("invalidate chapter %s: %w", chapterID, err)
	}
	return nil
}

func (c *PoolCache) get(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *PoolCache) set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
