// Package lock provides a Redis-backed mutex that serialises admin carousel
// writes across replicas.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrTimeout is returned when the lock could not be obtained in time.
var ErrTimeout = errors.New("timeout acquiring lock")

const (
	initialBackoff = 50 * time.Millisecond
	maxBackoff     = 500 * time.Millisecond
)

// Options configures a Mutex.
type Options struct {
	Key            string
	TTL            time.Duration
	AcquireTimeout time.Duration
}

// DefaultOptions locks "photo_bridge:carousel_lock" for at most 30s and waits up to 10s.
func DefaultOptions() Options {
	return Options{
		Key:            "photo_bridge:carousel_lock",
		TTL:            30 * time.Second,
		AcquireTimeout: 10 * time.Second,
	}
}

// Mutex is a single Redis key held with SET NX and a TTL.
type Mutex struct {
	client redis.Cmdable
	opts   Options
}

// New creates a Mutex.
func New(client redis.Cmdable, opts Options) *Mutex {
	return &Mutex{client: client, opts: opts}
}

// Acquire blocks with exponential backoff until the lock is held, the
// acquire timeout passes or ctx is done. The returned token is needed for Release.
func (m *Mutex) Acquire(ctx context.Context) (string, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(m.opts.AcquireTimeout)
	backoff := initialBackoff

	for {
		ok, err := m.client.SetNX(ctx, m.opts.Key, token, m.opts.TTL).Result()
		if err != nil {
			return "", fmt.Errorf("redis setnx %s: %w", m.opts.Key, err)
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, m.opts.AcquireTimeout)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`)

// Release frees the lock if token still owns it.
func (m *Mutex) Release(ctx context.Context, token string) error {
	err := releaseScript.Run(ctx, m.client, []string{m.opts.Key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Do runs fn while holding the lock.
func (m *Mutex) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	token, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = m.Release(context.WithoutCancel(ctx), token) }()
	return fn(ctx)
}
