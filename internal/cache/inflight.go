package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
)

// InFlightLock claims an event for the duration of its processing so that a
// concurrent redelivery can be turned away without touching the database. It
// is an optimization only; storage constraints stay authoritative.
//
// Acquire returns a token identifying this holder. Release only frees the
// lock while that token still owns it.
type InFlightLock interface {
	Acquire(ctx context.Context, provider models.Provider, eventID string) (token string, ok bool, err error)
	Release(ctx context.Context, provider models.Provider, eventID, token string) error
}

// releaseScript deletes the key only if it still holds the caller's token, so
// a holder that outlived its TTL cannot free a newer holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLock struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisLock(client redis.Cmdable, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLock{client: client, ttl: ttl}
}

func (l *RedisLock) Acquire(ctx context.Context, provider models.Provider, eventID string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(provider, eventID), token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire webhook lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *RedisLock) Release(ctx context.Context, provider models.Provider, eventID, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockKey(provider, eventID)}, token).Err(); err != nil {
		return fmt.Errorf("release webhook lock: %w", err)
	}
	return nil
}

// NoopLock always grants the lock. Used when Redis is not configured.
type NoopLock struct{}

func (NoopLock) Acquire(context.Context, models.Provider, string) (string, bool, error) {
	return "", true, nil
}

func (NoopLock) Release(context.Context, models.Provider, string, string) error { return nil }

func lockKey(provider models.Provider, eventID string) string {
	return fmt.Sprintf("webhook_lock:%s:%s", provider, eventID)
}
