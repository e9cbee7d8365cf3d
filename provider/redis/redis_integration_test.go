package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Keksclan/goRawrCache/key"
	"github.com/Keksclan/goRawrCache/policy"
	"github.com/Keksclan/goRawrCache/provider"
	"github.com/Keksclan/goRawrCache/provider/memory"
)

func redisDriver(t *testing.T, cfg Config) *Driver {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis integration test")
	}
	cfg.Addr = addr
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rawrcache-test:" + t.Name() + ":"
	}
	d := New(cfg)
	t.Cleanup(func() { _ = d.Close() })
	if err := d.Ping(t.Context()); err != nil {
		t.Fatalf("cannot reach Redis at %s: %v", addr, err)
	}
	return d
}

func TestDriver_GetSetDelete(t *testing.T) {
	d := redisDriver(t, Config{})
	ctx := t.Context()

	// Miss returns false.
	_, ok, err := d.Get(ctx, "users", "k")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}

	if err := d.Set(ctx, "users", "k", []byte("v1"), 10*time.Second); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	val, ok, err := d.Get(ctx, "users", "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(val.([]byte)) != "v1" {
		t.Fatalf("got %q, want %q", val, "v1")
	}

	if err := d.Delete(ctx, "users", "k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, ok, _ := d.Get(ctx, "users", "k"); ok {
		t.Fatal("expected miss after Delete")
	}
}

func TestDriver_ClearOnlyTouchesOneCache(t *testing.T) {
	d := redisDriver(t, Config{ScanCount: 2})
	ctx := t.Context()

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		_ = d.Set(ctx, "users", k, []byte(k), time.Minute)
	}
	_ = d.Set(ctx, "orders", "a", []byte("keep"), time.Minute)

	if err := d.Clear(ctx, "users"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		if _, ok, _ := d.Get(ctx, "users", k); ok {
			t.Fatalf("users:%s survived Clear", k)
		}
	}
	if _, ok, _ := d.Get(ctx, "orders", "a"); !ok {
		t.Fatal("orders:a must survive clearing users")
	}
}

func TestTiered_PromotesFromRedis(t *testing.T) {
	l2 := redisDriver(t, Config{})
	ctx := t.Context()

	newL1 := func() *memory.Driver {
		l1, err := memory.New(memory.Config{Caches: []string{"users"}})
		if err != nil {
			t.Fatalf("memory.New: %v", err)
		}
		t.Cleanup(l1.Close)
		return l1
	}

	m := policy.CacheModel{Cache: "users", TTL: 30 * time.Second}
	k := key.Key{Hash: 1, Checksum: 2}

	f := provider.NewFacade(provider.Tiered(newL1(), l2, time.Minute))
	if err := f.Put(ctx, k, m, "alice"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// A fresh L1 simulates another process: the value comes from Redis and
	// is promoted.
	l1 := newL1()
	f2 := provider.NewFacade(provider.Tiered(l1, l2, time.Minute))
	v, ok, err := f2.Get(ctx, k, m)
	if err != nil || !ok || v != "alice" {
		t.Fatalf("got %v %v %v", v, ok, err)
	}
	if _, ok, _ := l1.Get(ctx, "users", k.String()); !ok {
		t.Fatal("expected value promoted into L1")
	}
}

func TestDriver_InvalidationClearsLocal(t *testing.T) {
	d := redisDriver(t, Config{InvalidationChannel: "rawrcache-test:invalidate:" + t.Name()})

	local, err := memory.New(memory.Config{Caches: []string{"users"}})
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	t.Cleanup(local.Close)
	_ = local.Set(t.Context(), "users", "k", "v", 0)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- d.Subscribe(ctx, local) }()

	// Give the subscription time to register.
	time.Sleep(100 * time.Millisecond)
	if err := d.Clear(t.Context(), "users"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok, _ := local.Get(t.Context(), "users", "k"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("local cache was not invalidated")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Subscribe returned %v", err)
	}
}
