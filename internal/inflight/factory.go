package inflight

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"whatsup-go/internal/config"
	"whatsup-go/internal/whatsup"
)

// NewTrackerFromConfig creates an InFlightTracker based on the inflight config type.
// The redis tracker is pinged before it is returned.
func NewTrackerFromConfig(cfg config.InFlightConfig, clock whatsup.Clock) (whatsup.InFlightTracker, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryTracker(cfg.LeaseTTL.Duration, clock), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis_addr required for redis tracker")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisTracker(client, cfg.RedisKeyPrefix, cfg.LeaseTTL.Duration), nil
	default:
		return nil, fmt.Errorf("unknown inflight type: %s", cfg.Type)
	}
}
