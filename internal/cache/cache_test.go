// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache[string], *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := New[string](ttl)
	c.now = clk.now
	t.Cleanup(c.Close)
	return c, clk
}

func TestCache_GetSet(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get on empty cache should miss")
	}
	c.Set("u1", "Alice")
	got, ok := c.Get("u1")
	if !ok || got != "Alice" {
		t.Fatalf("Get(u1) = %q, %v; want Alice, true", got, ok)
	}

	s := c.GetStats()
	if s.Hits != 1 || s.Misses != 1 || s.TotalKeys != 1 {
		t.Errorf("stats = %+v", s)
	}
	if rate := c.HitRate(); rate != 50 {
		t.Errorf("HitRate() = %v, want 50", rate)
	}
}

func TestCache_Expiry(t *testing.T) {
	c, clk := newTestCache(t, time.Minute)

	c.Set("u1", "Alice")
	c.SetWithTTL("u2", "Bob", 3*time.Minute)

	clk.advance(time.Minute)
	if _, ok := c.Get("u1"); ok {
		t.Error("u1 should expire exactly at its TTL")
	}
	if _, ok := c.Get("u2"); !ok {
		t.Error("u2 should still be live")
	}
	if c.GetStats().Evictions != 1 {
		t.Errorf("evictions = %d, want 1", c.GetStats().Evictions)
	}

	clk.advance(5 * time.Minute)
	c.cleanup()
	if c.Len() != 0 {
		t.Errorf("Len() after cleanup = %d, want 0", c.Len())
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v")
	}

	c.Delete("k0")
	c.Delete("absent")
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	c.Clear()
	s := c.GetStats()
	if c.Len() != 0 || s.TotalKeys != 0 || s.Evictions != 3 {
		t.Errorf("after Clear: len=%d stats=%+v", c.Len(), s)
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New[int](0)
	c.Close()
	c.Close()
	c.Set("k", 1)
	if v, ok := c.Get("k"); !ok || v != 1 {
		t.Errorf("cache should stay usable after Close, got %d, %v", v, ok)
	}
}

func TestCache_Concurrent(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			c.Set(key, "v")
			c.Get(key)
			if i%7 == 0 {
				c.Delete(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 5 {
		t.Errorf("Len() = %d, want <= 5", c.Len())
	}
}
