package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a present")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a should survive, got %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("monthly", "x")
	c.Set("weekly", "y")
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("monthly"); !ok {
		t.Fatalf("entry should still be fresh")
	}

	now = now.Add(time.Minute)
	if removed := c.CleanExpired(); removed != 2 {
		t.Fatalf("expected 2 expired entries, got %d", removed)
	}
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
}

func TestLRUCachePurgeAndDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("a should be deleted")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("purge should empty the cache")
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("cache should be usable after purge")
	}
}

func TestJanitorStopsWithContext(t *testing.T) {
	c := NewLRUCache[int](10, time.Nanosecond)
	c.Set("a", 1)

	ctx, cancel := context.WithCancel(context.Background())
	j := NewJanitor(c)
	go j.Run(ctx, time.Millisecond)

	deadline := time.After(2 * time.Second)
	for c.Size() != 0 {
		select {
		case <-deadline:
			t.Fatalf("janitor did not clean expired entry")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case <-j.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("janitor did not stop")
	}
}
