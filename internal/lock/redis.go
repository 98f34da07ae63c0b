package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisTTL    = 10 * time.Second
	defaultRedisPrefix = "scheduler:lock:"
	minRetryDelay      = 5 * time.Millisecond
	maxRetryDelay      = 200 * time.Millisecond
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every process connected to the same
// Redis. Locks expire after the TTL so a crashed holder cannot block a
// resource forever.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// RedisOption configures a RedisLocker.
type RedisOption func(*RedisLocker)

// WithTTL sets the expiry of each lock key.
func WithTTL(ttl time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithPrefix sets the namespace prepended to every key.
func WithPrefix(prefix string) RedisOption {
	return func(l *RedisLocker) {
		l.prefix = prefix
	}
}

// WithLogger sets the logger used to report release failures.
func WithLogger(logger *slog.Logger) RedisOption {
	return func(l *RedisLocker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRedisLocker creates a RedisLocker on client.
func NewRedisLocker(client redis.UniversalClient, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		client: client,
		ttl:    defaultRedisTTL,
		prefix: defaultRedisPrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire takes every key with SET NX, polling until ctx ends. On failure no
// key remains held.
func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	normalized := normalizeKeys(keys)
	token := uuid.NewString()
	releases := make([]func(), 0, len(normalized))

	for _, key := range normalized {
		redisKey := l.prefix + key
		if err := l.acquireOne(ctx, redisKey, token); err != nil {
			releaseAll(releases)()
			return nil, err
		}
		releases = append(releases, func() { l.releaseOne(redisKey, token) })
	}

	var once sync.Once
	release := releaseAll(releases)
	return func() { once.Do(release) }, nil
}

func (l *RedisLocker) acquireOne(ctx context.Context, key, token string) error {
	delay := minRetryDelay
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctxErr)
			}
			return fmt.Errorf("lock: set %s: %w", key, err)
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
		case <-timer.C:
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

func (l *RedisLocker) releaseOne(key, token string) {
	// Release must run even when the request context is already cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		l.logger.Warn("failed to release lock", "key", key, "error", err)
	}
}
