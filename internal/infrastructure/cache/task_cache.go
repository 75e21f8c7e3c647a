// Package cache keeps recently read tasks in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/St1cky1/task-tracker/internal/entity"
)

// TaskCache is a cache-aside store for single tasks. A miss is (nil, false, nil).
type TaskCache interface {
	Get(ctx context.Context, taskID int) (*entity.Task, bool, error)
	Set(ctx context.Context, task *entity.Task) error
	Delete(ctx context.Context, taskID int) error
}

type RedisTaskCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ TaskCache = (*RedisTaskCache)(nil)

func NewRedisTaskCache(client *redis.Client, ttl time.Duration) *RedisTaskCache {
	return &RedisTaskCache{
		client: client,
		prefix: "task:",
		ttl:    ttl,
	}
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func (c *RedisTaskCache) key(taskID int) string {
	return c.prefix + strconv.Itoa(taskID)
}

func (c *RedisTaskCache) Get(ctx context.Context, taskID int) (*entity.Task, bool, error) {
	data, err := c.client.Get(ctx, c.key(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var task entity.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return &task, true, nil
}

func (c *RedisTaskCache) Set(ctx context.Context, task *entity.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(task.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisTaskCache) Delete(ctx context.Context, taskID int) error {
	if err := c.client.Del(ctx, c.key(taskID)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// NoopTaskCache always misses.
type NoopTaskCache struct{}

var _ TaskCache = NoopTaskCache{}

func (NoopTaskCache) Get(context.Context, int) (*entity.Task, bool, error) { return nil, false, nil }
func (NoopTaskCache) Set(context.Context, *entity.Task) error              { return nil }
func (NoopTaskCache) Delete(context.Context, int) error                    { return nil }
