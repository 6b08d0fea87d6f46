package cache

import (
	"testing"
	"time"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRU[string](2, 0)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" {
		t.Fatalf("overwrite lost: got %q", v)
	}
	if c.Size() != 1 {
		t.Fatalf("Size = %d, want 1", c.Size())
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)

	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRU[int](10, 10*time.Millisecond)
	c.Set("a", 1)

	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected fresh entry to be present")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestLRUPurge(t *testing.T) {
	c := NewLRU[int](10, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("Size after Purge = %d", c.Size())
	}
}

func TestLRUCleanExpired(t *testing.T) {
	c := NewLRU[int](10, 5*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(10 * time.Millisecond)
	c.Set("c", 3)

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired = %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Fatalf("Size = %d, want 1", c.Size())
	}

	// TTL-less caches never clean anything.
	nc := NewLRU[int](10, 0)
	nc.Set("a", 1)
	if n := nc.CleanExpired(); n != 0 {
		t.Fatalf("CleanExpired on ttl-less cache = %d", n)
	}
}
