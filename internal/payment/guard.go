package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultReplayTTL задаёт, сколько помнить обработанное уведомление.
const DefaultReplayTTL = 24 * time.Hour

// ReplayGuard отсекает повторную доставку одного и того же уведомления.
// Защита от двойного начисления обеспечивается условным обновлением статуса заказа,
// guard лишь избавляет от лишних обращений к БД.
type ReplayGuard interface {
	// Acquire возвращает false, если ключ уже был захвачен.
	Acquire(ctx context.Context, key string) (bool, error)
	// Release освобождает ключ, чтобы повтор уведомления был обработан снова.
	Release(ctx context.Context, key string) error
}

// ReplayKey строит ключ уведомления по идентификатору платежа и статусу.
func ReplayKey(paymentID, status string) string {
	return fmt.Sprintf("webhook:tbank:%s:%s", paymentID, status)
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisGuard хранит ключи обработанных уведомлений в Redis.
type RedisGuard struct {
	store redisStore
	ttl   time.Duration
}

// NewRedisGuard создаёт guard поверх клиента Redis.
func NewRedisGuard(client redisStore, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultReplayTTL
	}
	return &RedisGuard{store: client, ttl: ttl}
}

// Acquire атомарно захватывает ключ командой SET NX.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.store.SetNX(ctx, key, time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Release удаляет ключ.
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.store.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// NopGuard пропускает все уведомления.
type NopGuard struct{}

// Acquire всегда разрешает обработку.
func (NopGuard) Acquire(context.Context, string) (bool, error) { return true, nil }

// Release ничего не делает.
func (NopGuard) Release(context.Context, string) error { return nil }
