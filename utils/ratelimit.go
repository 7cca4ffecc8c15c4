package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter ограничивает частоту запросов по ключу (обычно IP клиента)
type Limiter interface {
	Allow(ctx context.Context, key string) (LimitResult, error)
	Limit() int
}

// LimitResult результат проверки лимита
type LimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter реализует ограничение частоты запросов в памяти процесса (скользящее окно)
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// Allow проверяет, разрешен ли запрос
func (rl *RateLimiter) Allow(_ context.Context, key string) (LimitResult, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.pruneLocked(key, now)

	if len(valid) >= rl.limit {
		return LimitResult{Allowed: false, Remaining: 0, ResetAt: valid[0].Add(rl.window)}, nil
	}

	valid = append(valid, now)
	rl.requests[key] = valid
	return LimitResult{Allowed: true, Remaining: rl.limit - len(valid), ResetAt: valid[0].Add(rl.window)}, nil
}

// Reset сбрасывает счетчик для ключа
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.requests, key)
}

// pruneLocked очищает устаревшие отметки времени. Вызывается под мьютексом.
func (rl *RateLimiter) pruneLocked(key string, now time.Time) []time.Time {
	windowStart := now.Add(-rl.window)
	requests := rl.requests[key]
	valid := requests[:0]
	for _, t := range requests {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(rl.requests, key)
		return nil
	}
	rl.requests[key] = valid
	return valid
}

// RedisRateLimiter фиксированное окно в Redis, общее для всех экземпляров сервиса
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisRateLimiter создает лимитер и проверяет соединение с Redis
func NewRedisRateLimiter(ctx context.Context, client *redis.Client, limit int, window time.Duration) (*RedisRateLimiter, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
	}, nil
}

func (rl *RedisRateLimiter) Limit() int {
	return rl.limit
}

// Allow увеличивает счетчик текущего окна и сравнивает его с лимитом
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (LimitResult, error) {
	now := time.Now()
	windowStart := now.Truncate(rl.window)
	redisKey := fmt.Sprintf("%s%s:%d", rl.prefix, key, windowStart.Unix())

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return LimitResult{}, fmt.Errorf("redis rate limit: %w", err)
	}

	count := int(incr.Val())
	remaining := rl.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return LimitResult{
		Allowed:   count <= rl.limit,
		Remaining: remaining,
		ResetAt:   windowStart.Add(rl.window),
	}, nil
}
