// Copyright 2025 Cubedeck
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package olapadmin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"cubedeck/platform/shared/logger"
)

// MemoryRateLimiter is a fixed-window per-caller rate limiter. It is the
// default when no Redis URL is configured and the fallback when Redis is
// unreachable.
type MemoryRateLimiter struct {
	limitPerMinute int

	mu      sync.Mutex
	windows map[string]*rateWindow
}

type rateWindow struct {
	count     int
	resetTime time.Time
}

// NewMemoryRateLimiter creates an in-memory limiter allowing limitPerMinute
// requests per caller per minute.
func NewMemoryRateLimiter(limitPerMinute int) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		limitPerMinute: limitPerMinute,
		windows:        make(map[string]*rateWindow),
	}
}

func (l *MemoryRateLimiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	win, exists := l.windows[key]
	if !exists || now.After(win.resetTime) {
		l.windows[key] = &rateWindow{count: 1, resetTime: now.Add(time.Minute)}
		return true
	}

	win.count++
	return win.count <= l.limitPerMinute
}

// RedisRateLimiter enforces a sliding one-minute window in Redis so the
// limit holds across replicas. Redis errors fail open: an unreachable
// limiter must not take the admin API down with it.
type RedisRateLimiter struct {
	client         *redis.Client
	limitPerMinute int
	fallback       *MemoryRateLimiter
	log            *logger.Logger
}

// NewRedisRateLimiter connects to redisURL and returns a limiter backed by
// it. Connection failure is an error; the caller decides whether to fall
// back to the in-memory limiter.
func NewRedisRateLimiter(redisURL string, limitPerMinute int) (*RedisRateLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRateLimiter{
		client:         client,
		limitPerMinute: limitPerMinute,
		fallback:       NewMemoryRateLimiter(limitPerMinute),
		log:            logger.New("olap-admin-ratelimit"),
	}, nil
}

func (l *RedisRateLimiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	now := time.Now()
	redisKey := fmt.Sprintf("ratelimit:olap4j:%s", key)

	pipe := l.client.Pipeline()
	minScore := now.Add(-time.Minute).Unix()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", minScore))
	pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, &redis.Z{
		Score:  float64(now.Unix()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, redisKey, 2*time.Minute)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		l.log.Warn("", "", "Redis rate limit check failed, using in-memory fallback", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return l.fallback.Allow(key)
	}

	count := cmds[1].(*redis.IntCmd).Val()
	return count < int64(l.limitPerMinute)
}

// Close releases the Redis connection pool.
func (l *RedisRateLimiter) Close() error {
	return l.client.Close()
}
