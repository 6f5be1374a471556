package inflight

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"whatsup-go/internal/config"
	"whatsup-go/internal/testutil"
)

func TestMemoryTracker(t *testing.T) {
	ctx := context.Background()

	t.Run("held lease blocks a second acquire", func(t *testing.T) {
		tr := NewMemoryTracker(time.Minute, testutil.FixedClock())

		ok, err := tr.Acquire(ctx, "w1", "t1")
		if err != nil || !ok {
			t.Fatalf("first Acquire() = %v, %v; want true, nil", ok, err)
		}
		ok, err = tr.Acquire(ctx, "w1", "t1")
		if err != nil || ok {
			t.Fatalf("second Acquire() = %v, %v; want false, nil", ok, err)
		}
		if ok, _ := tr.Acquire(ctx, "w2", "t2"); !ok {
			t.Error("Acquire(w2) = false, want true")
		}
	})

	t.Run("release frees the lease", func(t *testing.T) {
		tr := NewMemoryTracker(time.Minute, testutil.FixedClock())
		tr.Acquire(ctx, "w1", "t1")

		if err := tr.Release(ctx, "w1", "t1"); err != nil {
			t.Fatalf("Release() error = %v", err)
		}
		if ok, _ := tr.Acquire(ctx, "w1", "t1"); !ok {
			t.Error("Acquire() after Release = false, want true")
		}
	})

	t.Run("release of unheld lease is a no-op", func(t *testing.T) {
		tr := NewMemoryTracker(time.Minute, testutil.FixedClock())
		if err := tr.Release(ctx, "nope", "t1"); err != nil {
			t.Errorf("Release() error = %v", err)
		}
	})

	t.Run("lease expires after ttl", func(t *testing.T) {
		clock := testutil.FixedClock()
		tr := NewMemoryTracker(time.Minute, clock)
		tr.Acquire(ctx, "w1", "t1")

		clock.Advance(59 * time.Second)
		if ok, _ := tr.Acquire(ctx, "w1", "t1"); ok {
			t.Fatal("Acquire() before expiry = true, want false")
		}
		if tr.Len() != 1 {
			t.Errorf("Len() = %d, want 1", tr.Len())
		}

		clock.Advance(2 * time.Second)
		if tr.Len() != 0 {
			t.Errorf("Len() after expiry = %d, want 0", tr.Len())
		}
		if ok, _ := tr.Acquire(ctx, "w1", "t1"); !ok {
			t.Error("Acquire() after expiry = false, want true")
		}
	})

	t.Run("renew extends only the holder's lease", func(t *testing.T) {
		clock := testutil.FixedClock()
		tr := NewMemoryTracker(time.Minute, clock)
		tr.Acquire(ctx, "w1", "t1")

		clock.Advance(50 * time.Second)
		if ok, _ := tr.Renew(ctx, "w1", "t2"); ok {
			t.Error("Renew() with foreign token = true, want false")
		}
		if ok, err := tr.Renew(ctx, "w1", "t1"); err != nil || !ok {
			t.Fatalf("Renew() = %v, %v; want true, nil", ok, err)
		}

		clock.Advance(50 * time.Second)
		if ok, _ := tr.Acquire(ctx, "w1", "t3"); ok {
			t.Error("Acquire() within renewed ttl = true, want false")
		}
	})

	t.Run("stale holder cannot touch a lease taken over after expiry", func(t *testing.T) {
		clock := testutil.FixedClock()
		tr := NewMemoryTracker(time.Minute, clock)
		tr.Acquire(ctx, "w1", "old")

		clock.Advance(61 * time.Second)
		if ok, _ := tr.Renew(ctx, "w1", "old"); ok {
			t.Fatal("Renew() of expired lease = true, want false")
		}
		if ok, _ := tr.Acquire(ctx, "w1", "new"); !ok {
			t.Fatal("Acquire() after expiry = false, want true")
		}
		if ok, _ := tr.Renew(ctx, "w1", "old"); ok {
			t.Error("Renew() by stale holder = true, want false")
		}
		if err := tr.Release(ctx, "w1", "old"); err != nil {
			t.Fatalf("Release() error = %v", err)
		}
		if tr.Len() != 1 {
			t.Errorf("Len() after stale Release = %d, want 1", tr.Len())
		}
		if ok, _ := tr.Acquire(ctx, "w1", "other"); ok {
			t.Error("Acquire() while newer lease held = true, want false")
		}
	})

	t.Run("concurrent acquires grant one lease", func(t *testing.T) {
		tr := NewMemoryTracker(time.Minute, testutil.FixedClock())

		var wg sync.WaitGroup
		var mu sync.Mutex
		granted := 0
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if ok, _ := tr.Acquire(ctx, "w1", fmt.Sprintf("t%d", i)); ok {
					mu.Lock()
					granted++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		if granted != 1 {
			t.Errorf("granted = %d, want 1", granted)
		}
	})
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisTracker(t *testing.T) {
	ctx := context.Background()

	t.Run("acquire sets key with ttl", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		tr := NewRedisTracker(client, "test:", time.Minute)

		ok, err := tr.Acquire(ctx, "w1", "t1")
		if err != nil || !ok {
			t.Fatalf("Acquire() = %v, %v; want true, nil", ok, err)
		}
		if !mr.Exists("test:w1") {
			t.Fatal("lease key not set")
		}
		if ttl := mr.TTL("test:w1"); ttl != time.Minute {
			t.Errorf("TTL = %s, want 1m0s", ttl)
		}

		ok, err = tr.Acquire(ctx, "w1", "t1")
		if err != nil || ok {
			t.Errorf("second Acquire() = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("release deletes own lease", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		tr := NewRedisTracker(client, "test:", time.Minute)
		tr.Acquire(ctx, "w1", "t1")

		if err := tr.Release(ctx, "w1", "t1"); err != nil {
			t.Fatalf("Release() error = %v", err)
		}
		if mr.Exists("test:w1") {
			t.Error("lease key still present after Release")
		}
	})

	t.Run("release leaves a foreign lease alone", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		tr := NewRedisTracker(client, "test:", time.Minute)

		tr.Acquire(ctx, "w1", "theirs")
		if err := tr.Release(ctx, "w1", "mine"); err != nil {
			t.Fatalf("Release() error = %v", err)
		}
		if v, _ := mr.Get("test:w1"); v != "theirs" {
			t.Errorf("lease value = %q, want %q", v, "theirs")
		}
	})

	t.Run("renew restarts ttl for the holder only", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		tr := NewRedisTracker(client, "test:", time.Minute)
		tr.Acquire(ctx, "w1", "t1")
		mr.FastForward(40 * time.Second)

		ok, err := tr.Renew(ctx, "w1", "t1")
		if err != nil || !ok {
			t.Fatalf("Renew() = %v, %v; want true, nil", ok, err)
		}
		if ttl := mr.TTL("test:w1"); ttl != time.Minute {
			t.Errorf("TTL after Renew = %s, want 1m0s", ttl)
		}

		if ok, _ := tr.Renew(ctx, "w1", "t2"); ok {
			t.Error("Renew() with foreign token = true, want false")
		}
	})

	t.Run("stale holder cannot touch a lease taken over after expiry", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		tr := NewRedisTracker(client, "test:", time.Minute)
		tr.Acquire(ctx, "w1", "old")
		mr.FastForward(2 * time.Minute)

		if ok, _ := tr.Acquire(ctx, "w1", "new"); !ok {
			t.Fatal("Acquire() after expiry = false, want true")
		}
		if ok, _ := tr.Renew(ctx, "w1", "old"); ok {
			t.Error("Renew() by stale holder = true, want false")
		}
		if err := tr.Release(ctx, "w1", "old"); err != nil {
			t.Fatalf("Release() error = %v", err)
		}
		if v, _ := mr.Get("test:w1"); v != "new" {
			t.Errorf("lease value = %q, want %q", v, "new")
		}
	})

	t.Run("renew of expired lease fails", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		tr := NewRedisTracker(client, "test:", time.Minute)
		tr.Acquire(ctx, "w1", "t1")
		mr.FastForward(2 * time.Minute)

		ok, err := tr.Renew(ctx, "w1", "t1")
		if err != nil || ok {
			t.Errorf("Renew() = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("lease expires", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		tr := NewRedisTracker(client, "", time.Minute)
		tr.Acquire(ctx, "w1", "t1")

		mr.FastForward(2 * time.Minute)
		if ok, _ := tr.Acquire(ctx, "w1", "t1"); !ok {
			t.Error("Acquire() after expiry = false, want true")
		}
		if !mr.Exists(DefaultKeyPrefix + "w1") {
			t.Error("expected default key prefix")
		}
	})

	t.Run("unreachable redis returns error", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		tr := NewRedisTracker(client, "test:", time.Minute)
		mr.Close()

		if _, err := tr.Acquire(ctx, "w1", "t1"); err == nil {
			t.Error("Acquire() expected error with redis down")
		}
	})
}

func TestNewTrackerFromConfig(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		tr, err := NewTrackerFromConfig(config.InFlightConfig{Type: "memory", LeaseTTL: config.Duration{Duration: time.Minute}}, nil)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if _, ok := tr.(*MemoryTracker); !ok {
			t.Errorf("got %T, want *MemoryTracker", tr)
		}
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		tr, err := NewTrackerFromConfig(config.InFlightConfig{
			Type:      "redis",
			RedisAddr: mr.Addr(),
			LeaseTTL:  config.Duration{Duration: time.Minute},
		}, nil)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		rt, ok := tr.(*RedisTracker)
		if !ok {
			t.Fatalf("got %T, want *RedisTracker", tr)
		}
		t.Cleanup(func() { rt.Close() })

		rt.Acquire(context.Background(), "w1", "t1")
		if v, _ := mr.Get(DefaultKeyPrefix + "w1"); v != "t1" {
			t.Errorf("lease value = %q, want %q", v, "t1")
		}
		if ttl := mr.TTL(DefaultKeyPrefix + "w1"); ttl != time.Minute {
			t.Errorf("TTL = %s, want 1m0s", ttl)
		}
	})

	t.Run("redis without addr", func(t *testing.T) {
		_, err := NewTrackerFromConfig(config.InFlightConfig{Type: "redis"}, nil)
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewTrackerFromConfig(config.InFlightConfig{Type: "etcd"}, nil)
		if err == nil {
			t.Fatal("expected error")
		}
	})
}
