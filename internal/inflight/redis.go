package inflight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"whatsup-go/internal/whatsup"
)

// DefaultKeyPrefix namespaces lease keys in redis.
const DefaultKeyPrefix = "whatsup:inflight:"

// The lease value is the acquiring token. Both scripts act only while the
// key still carries it, so a lease that expired and was taken over is left alone.
var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)
)

// RedisTracker keeps leases as redis keys with a TTL. Several whatsup
// processes sharing one database can share one tracker.
type RedisTracker struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

var _ whatsup.InFlightTracker = (*RedisTracker)(nil)

// NewRedisTracker creates a tracker on client. An empty keyPrefix uses DefaultKeyPrefix.
func NewRedisTracker(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisTracker {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisTracker{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Acquire sets the lease key to token if it does not exist.
func (t *RedisTracker) Acquire(ctx context.Context, id string, token string) (bool, error) {
	ok, err := t.client.SetNX(ctx, t.key(id), token, t.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring lease for %s: %w", id, err)
	}
	return ok, nil
}

// Renew resets the key TTL if token still holds it.
func (t *RedisTracker) Renew(ctx context.Context, id string, token string) (bool, error) {
	n, err := renewScript.Run(ctx, t.client, []string{t.key(id)}, token, t.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("renewing lease for %s: %w", id, err)
	}
	return n == 1, nil
}

// Release deletes the key if token holds it.
func (t *RedisTracker) Release(ctx context.Context, id string, token string) error {
	if err := releaseScript.Run(ctx, t.client, []string{t.key(id)}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("releasing lease for %s: %w", id, err)
	}
	return nil
}

// Close closes the underlying client.
func (t *RedisTracker) Close() error {
	return t.client.Close()
}

func (t *RedisTracker) key(id string) string {
	return t.keyPrefix + id
}
