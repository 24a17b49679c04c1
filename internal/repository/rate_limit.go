package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"contact_form/internal/domain"
	"contact_form/pkg/logger"
)

// RateWindowRepository хранит окна отметок времени. CheckAndRecord удаляет
// записи старше окна, отказывает при достижении лимита, иначе добавляет now.
type RateWindowRepository interface {
	CheckAndRecord(ctx context.Context, key string, now time.Time, rule domain.RateLimitRule) (domain.RateDecision, error)
	Reset(ctx context.Context, key string) error
}

type memoryRateWindowRepository struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewMemoryRateWindowRepository() RateWindowRepository {
	return &memoryRateWindowRepository{windows: make(map[string][]time.Time)}
}

func (r *memoryRateWindowRepository) CheckAndRecord(_ context.Context, key string, now time.Time, rule domain.RateLimitRule) (domain.RateDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.windows[key][:0]
	for _, ts := range r.windows[key] {
		if now.Sub(ts) < rule.Window {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= rule.Limit {
		r.windows[key] = kept
		return domain.RateDecision{Limited: true, Count: len(kept)}, nil
	}

	kept = append(kept, now)
	r.windows[key] = kept
	return domain.RateDecision{Limited: false, Count: len(kept)}, nil
}

func (r *memoryRateWindowRepository) Reset(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.windows, key)
	r.mu.Unlock()
	return nil
}

// Окно в sorted set: score: время в миллисекундах. Проверка и запись
// выполняются атомарно.
var rateWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  return {1, count}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {0, count + 1}
`)

type redisRateWindowRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRedisRateWindowRepository(redis *redis.Client, log logger.Logger) RateWindowRepository {
	return &redisRateWindowRepository{redis: redis, log: log}
}

func (r *redisRateWindowRepository) CheckAndRecord(ctx context.Context, key string, now time.Time, rule domain.RateLimitRule) (domain.RateDecision, error) {
	res, err := rateWindowScript.Run(ctx, r.redis, []string{key},
		now.UnixMilli(), rule.Window.Milliseconds(), rule.Limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		r.log.Error("Failed to check rate window", "error", err, "key", key)
		return domain.RateDecision{}, fmt.Errorf("failed to check rate window: %w", err)
	}
	if len(res) != 2 {
		return domain.RateDecision{}, fmt.Errorf("unexpected rate window reply: %v", res)
	}

	return domain.RateDecision{Limited: res[0] == 1, Count: int(res[1])}, nil
}

func (r *redisRateWindowRepository) Reset(ctx context.Context, key string) error {
	if err := r.redis.Del(ctx, key).Err(); err != nil {
		r.log.Warn("Failed to reset rate window", "error", err, "key", key)
		return fmt.Errorf("failed to reset rate window: %w", err)
	}
	return nil
}
