package cachemem

import (
	"context"
	"testing"
	"time"

	"learntrust/internal/domain"
)

func TestCacheExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := NewWithClock(func() time.Time { return now })
	ctx := context.Background()

	report := domain.ChainVerification{Valid: true, Entries: 5, TailHash: "abc"}
	if err := cache.Put(ctx, "k", report, 30*time.Second); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, found, err := cache.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("expected hit, found=%v err=%v", found, err)
	}
	if got.Entries != 5 || got.TailHash != "abc" {
		t.Fatalf("unexpected cached value %+v", got)
	}

	now = now.Add(31 * time.Second)
	if _, found, _ := cache.Get(ctx, "k"); found {
		t.Fatal("expired entry must miss")
	}
}

func TestCacheZeroTTLNeverExpires(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := NewWithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := cache.Put(ctx, "k", domain.ChainVerification{Valid: true}, 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	now = now.Add(24 * time.Hour)
	if _, found, _ := cache.Get(ctx, "k"); !found {
		t.Fatal("zero ttl entry must persist")
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var cache *Cache
	ctx := context.Background()
	if err := cache.Put(ctx, "k", domain.ChainVerification{}, time.Second); err != nil {
		t.Fatalf("nil put: %v", err)
	}
	if _, found, err := cache.Get(ctx, "k"); found || err != nil {
		t.Fatalf("nil get must miss cleanly, found=%v err=%v", found, err)
	}
}
