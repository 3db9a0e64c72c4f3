package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestLRU(cfg LRUConfig) (*LRUCache, *fakeClock) {
	clock := newFakeClock()
	c := NewLRUCache(cfg)
	c.now = clock.Now
	return c, clock
}

func set(t *testing.T, c Cache, key, value string) {
	t.Helper()
	if err := c.Set(context.Background(), key, []byte(value)); err != nil {
		t.Fatalf("Set(%q) error = %v", key, err)
	}
}

func keys(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

func TestNewLRUCache_Defaults(t *testing.T) {
	c := NewLRUCache(LRUConfig{})
	if c.config.MaxSize != 1000 {
		t.Errorf("MaxSize = %d, want 1000", c.config.MaxSize)
	}
	if c.config.TTL != DefaultTTL {
		t.Errorf("TTL = %v, want %v", c.config.TTL, DefaultTTL)
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(LRUConfig{MaxSize: 3})
	ctx := context.Background()

	set(t, c, "a", "1")
	set(t, c, "b", "2")
	set(t, c, "c", "3")
	set(t, c, "d", "4")

	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("Get(a) found, want evicted")
	}
	if v, ok := c.Get(ctx, "d"); !ok || string(v) != "4" {
		t.Errorf("Get(d) = (%s, %v), want (4, true)", v, ok)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", c.Stats().Evictions)
	}
}

func TestLRUCache_GetRefreshesRecency(t *testing.T) {
	c, _ := newTestLRU(LRUConfig{MaxSize: 3})
	ctx := context.Background()

	set(t, c, "a", "1")
	set(t, c, "b", "2")
	set(t, c, "c", "3")
	c.Get(ctx, "a")
	set(t, c, "d", "4")

	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("Get(b) found, want b evicted as least recently used")
	}
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Error("Get(a) missing, want kept after refresh")
	}
}

func TestLRUCache_OverwriteDoesNotEvict(t *testing.T) {
	c, _ := newTestLRU(LRUConfig{MaxSize: 2})
	ctx := context.Background()

	set(t, c, "a", "1")
	set(t, c, "b", "2")
	set(t, c, "a", "updated")

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if v, _ := c.Get(ctx, "a"); string(v) != "updated" {
		t.Errorf("Get(a) = %s, want updated", v)
	}
	if _, ok := c.Get(ctx, "b"); !ok {
		t.Error("Get(b) missing after overwrite of a")
	}

	// a was refreshed by the overwrite, so b goes next.
	set(t, c, "a", "again")
	set(t, c, "c", "3")
	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("Get(b) found, want evicted")
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestLRU(LRUConfig{MaxSize: 10, TTL: time.Minute})
	ctx := context.Background()

	set(t, c, "cnpj:11222333000181", "payload")

	clock.Advance(time.Minute)
	if _, ok := c.Get(ctx, "cnpj:11222333000181"); !ok {
		t.Error("Get() at exactly expiresAt missing, want present")
	}

	clock.Advance(time.Millisecond)
	if _, ok := c.Get(ctx, "cnpj:11222333000181"); ok {
		t.Error("Get() after expiry found, want absent")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want expired entry removed", c.Len())
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Expirations != 1 {
		t.Errorf("Stats() = %+v, want hits=1 misses=1 expirations=1", s)
	}
}

func TestLRUCache_SetRestartsTTL(t *testing.T) {
	c, clock := newTestLRU(LRUConfig{TTL: time.Minute})
	ctx := context.Background()

	set(t, c, "k", "v1")
	clock.Advance(50 * time.Second)
	set(t, c, "k", "v2")
	clock.Advance(50 * time.Second)

	if v, ok := c.Get(ctx, "k"); !ok || string(v) != "v2" {
		t.Errorf("Get(k) = (%s, %v), want (v2, true)", v, ok)
	}
}

func TestLRUCache_Entries(t *testing.T) {
	c, clock := newTestLRU(LRUConfig{MaxSize: 10, TTL: time.Minute})

	set(t, c, "old", "1")
	clock.Advance(30 * time.Second)
	set(t, c, "b", "2")
	set(t, c, "c", "3")
	clock.Advance(31 * time.Second)

	got := keys(c.Entries())
	if fmt.Sprint(got) != "[c b]" {
		t.Errorf("Entries() keys = %v, want [c b]", got)
	}
	if c.Len() != 2 {
		t.Errorf("Len() after Entries = %d, want 2", c.Len())
	}
}

func TestLRUCache_Clear(t *testing.T) {
	c, _ := newTestLRU(LRUConfig{MaxSize: 2})
	ctx := context.Background()

	set(t, c, "a", "1")
	set(t, c, "b", "2")
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}

	set(t, c, "x", "1")
	set(t, c, "y", "2")
	if c.Len() != 2 || c.Stats().Evictions != 0 {
		t.Errorf("after Clear: Len=%d evictions=%d, want 2 and 0", c.Len(), c.Stats().Evictions)
	}
}

func TestLRUCache_ClearResetsStats(t *testing.T) {
	c, clock := newTestLRU(LRUConfig{MaxSize: 1, TTL: time.Minute})
	ctx := context.Background()

	set(t, c, "a", "1")
	set(t, c, "b", "2")
	c.Get(ctx, "b")
	c.Get(ctx, "a")
	clock.Advance(2 * time.Minute)
	c.Get(ctx, "b")
	if c.Stats() == (Stats{}) {
		t.Fatal("Stats() before Clear is zero, want counters")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := c.Stats(); got != (Stats{}) {
		t.Errorf("Stats() after Clear = %+v, want %+v", got, Stats{})
	}
}

func TestLRUCache_ValuesAreCopied(t *testing.T) {
	c, _ := newTestLRU(LRUConfig{MaxSize: 2})
	ctx := context.Background()

	in := []byte("original")
	if err := c.Set(ctx, "k", in); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	in[0] = 'X'

	got, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("Get() miss, want hit")
	}
	got[0] = 'Y'

	again, _ := c.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("Get() after mutation = %q, want %q", again, "original")
	}
	entries := c.Entries()
	entries[0].Value[0] = 'Z'
	if again, _ := c.Get(ctx, "k"); string(again) != "original" {
		t.Errorf("Get() after Entries mutation = %q, want %q", again, "original")
	}
}

func TestLRUCache_Sweeper(t *testing.T) {
	c := NewLRUCache(LRUConfig{TTL: 5 * time.Millisecond, SweepInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	set(t, c, "a", "1")
	c.StartSweeper(ctx)

	deadline := time.Now().Add(time.Second)
	for c.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper did not purge expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLRUCache_SweeperDisabled(t *testing.T) {
	c, _ := newTestLRU(LRUConfig{})
	c.StartSweeper(context.Background())

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopSweep != nil {
		t.Error("StartSweeper with zero interval started a goroutine")
	}
}

func TestLRUCache_ConcurrentNeverExceedsMaxSize(t *testing.T) {
	c := NewLRUCache(LRUConfig{MaxSize: 16})
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d-%d", g, i%40)
				_ = c.Set(ctx, key, []byte("v"))
				c.Get(ctx, key)
				if n := c.Len(); n > 16 {
					t.Errorf("Len() = %d, want <= 16", n)
					return
				}
			}
		}()
	}
	wg.Wait()
}
