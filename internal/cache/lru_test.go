package cache

import (
	"context"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLRU(size int, ttl time.Duration) (*LRU[string], *clock) {
	clk := &clock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRU_GetSet(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set("2025-03", "march")
	if got, ok := c.Get("2025-03"); !ok || got != "march" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if _, ok := c.Get("2025-04"); ok {
		t.Error("unexpected hit for missing key")
	}
	c.Set("2025-03", "march v2")
	if got, _ := c.Get("2025-03"); got != "march v2" {
		t.Errorf("overwrite not applied: %q", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
}

func TestLRU_Expiry(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("c", "3")
	clk.t = clk.t.Add(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if n := c.Sweep(); n != 1 {
		t.Errorf("Sweep = %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestLRU_DeleteAndClear(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be gone")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
	c.Set("d", "4")
	if _, ok := c.Get("d"); !ok {
		t.Error("cache unusable after Clear")
	}
}

func TestJanitor_StopsCleanly(t *testing.T) {
	c := NewLRU[int](4, time.Nanosecond)
	c.Set("x", 1)
	j := NewJanitor(c)
	j.Start(context.Background(), time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	j.Stop()
	if c.Len() != 0 {
		t.Errorf("expired entry survived the janitor")
	}
}
