package dataset

import "testing"

func TestCachePutGet(t *testing.T) {
	c := NewCache(4)

	if _, ok := c.Get("a"); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	c.Put("a", []float32{1, 2, 3})
	data, ok := c.Get("a")
	if !ok || len(data) != 3 {
		t.Fatalf("Get(a) = %v, %v", data, ok)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("stats = %+v, want 1 hit, 1 miss, size 1", stats)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)
	c.Put("a", []float32{1})
	c.Put("b", []float32{2})

	// Touch "a" so "b" is the eviction candidate.
	c.Get("a")
	c.Put("c", []float32{3})

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should have survived")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
}

func TestCacheClearKeepsStats(t *testing.T) {
	c := NewCache(2)
	c.Put("a", []float32{1})
	c.Get("a")
	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Error("cache should be empty after Clear")
	}
	stats := c.Stats()
	if stats.Size != 0 {
		t.Errorf("Size = %d, want 0", stats.Size)
	}
	if stats.Hits != 1 {
		t.Errorf("Hits = %d, want 1 (cumulative)", stats.Hits)
	}
}
