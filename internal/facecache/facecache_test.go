package facecache

import (
	"sync"
	"testing"
)

func TestGetOrCreate(t *testing.T) {
	c := New[int](4)
	k := Key{Family: "kokuryu", Gen: 1, SizePx: 120}
	created := 0
	create := func() int {
		created++
		return 42
	}

	if v := c.GetOrCreate(k, create); v != 42 {
		t.Errorf("GetOrCreate = %d, want 42", v)
	}
	if v := c.GetOrCreate(k, create); v != 42 {
		t.Errorf("second GetOrCreate = %d, want 42", v)
	}
	if created != 1 {
		t.Errorf("create called %d times, want 1", created)
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Len != 1 {
		t.Errorf("Stats = %+v, want 1 hit, 1 miss, 1 entry", st)
	}
}

func TestKeysDistinguishGenerationAndSize(t *testing.T) {
	c := New[string](0)
	c.GetOrCreate(Key{Family: "a", Gen: 1, SizePx: 120}, func() string { return "g1" })
	c.GetOrCreate(Key{Family: "a", Gen: 2, SizePx: 120}, func() string { return "g2" })
	c.GetOrCreate(Key{Family: "a", Gen: 2, SizePx: 60}, func() string { return "small" })

	if got := c.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}
	if v, ok := c.Get(Key{Family: "a", Gen: 2, SizePx: 60}); !ok || v != "small" {
		t.Errorf("Get = %q, %v; want small, true", v, ok)
	}
	if _, ok := c.Get(Key{Family: "a", Gen: 3, SizePx: 120}); ok {
		t.Error("Get of unknown generation should miss")
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](2)
	// Three keys in one shard, so a per-shard capacity of 2 evicts one.
	var keys []Key
	target := Key{Family: "f", SizePx: 1}.hash() & shardMask
	for size := 1.0; len(keys) < 3; size++ {
		k := Key{Family: "f", SizePx: size}
		if k.hash()&shardMask == target {
			keys = append(keys, k)
		}
	}

	c.GetOrCreate(keys[0], func() int { return 0 })
	c.GetOrCreate(keys[1], func() int { return 1 })
	c.Get(keys[0])
	c.GetOrCreate(keys[2], func() int { return 2 })

	if _, ok := c.Get(keys[1]); ok {
		t.Error("least recently used face was not evicted")
	}
	if _, ok := c.Get(keys[0]); !ok {
		t.Error("recently used face was evicted")
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestDropFamily(t *testing.T) {
	c := New[int](16)
	for i := 1; i <= 5; i++ {
		c.GetOrCreate(Key{Family: "a", SizePx: float64(i)}, func() int { return i })
		c.GetOrCreate(Key{Family: "b", SizePx: float64(i)}, func() int { return i })
	}

	if n := c.DropFamily("a"); n != 5 {
		t.Errorf("DropFamily = %d, want 5", n)
	}
	if got := c.Len(); got != 5 {
		t.Errorf("Len = %d, want 5", got)
	}
	if _, ok := c.Get(Key{Family: "b", SizePx: 3}); !ok {
		t.Error("other family was dropped")
	}

	c.Clear()
	if got := c.Len(); got != 0 {
		t.Errorf("Len after Clear = %d, want 0", got)
	}
}

func TestConcurrentGetOrCreate(t *testing.T) {
	c := New[int](64)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.GetOrCreate(Key{Family: "f", SizePx: float64(i % 10)}, func() int {
					mu.Lock()
					created++
					mu.Unlock()
					return i
				})
			}
		}()
	}
	wg.Wait()

	if created != 10 {
		t.Errorf("created %d faces, want 10", created)
	}
}
