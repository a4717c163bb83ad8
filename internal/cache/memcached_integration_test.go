//go:build integration
// +build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func memcachedAddrs(t *testing.T) string {
	addrs := os.Getenv("MEMCACHED_ADDRS")
	if addrs == "" {
		t.Skip("MEMCACHED_ADDRS not set, skipping memcached integration test")
	}
	return addrs
}

// TestMemcachedCache_GetSet_Integration verifies that MemcachedCache successfully
// stores and retrieves values when memcached server is available.
func TestMemcachedCache_GetSet_Integration(t *testing.T) {
	c := NewMemcachedCache(memcachedAddrs(t), 500*time.Millisecond, 2)
	defer c.Close()

	ctx := context.Background()
	val := []byte(`["USC00519397","USC00513117"]`)
	if err := c.Set(ctx, "stations", val, time.Minute); err != nil {
		t.Skipf("Set failed (memcached may not be running): %v", err)
	}

	got, ok, err := c.Get(ctx, "stations")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if string(got) != string(val) {
		t.Errorf("Get() = %s, want %s", got, val)
	}
}

// TestMemcachedCache_Get_Miss_Integration verifies that MemcachedCache returns
// ok=false when requested key does not exist in memcached.
func TestMemcachedCache_Get_Miss_Integration(t *testing.T) {
	c := NewMemcachedCache(memcachedAddrs(t), 500*time.Millisecond, 2)
	defer c.Close()

	_, ok, err := c.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Skipf("Get failed (memcached may not be running): %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

func TestMemcachedCache_Ping_Integration(t *testing.T) {
	c := NewMemcachedCache(memcachedAddrs(t), 500*time.Millisecond, 2)
	defer c.Close()

	if err := c.Ping(); err != nil {
		t.Skipf("Ping failed (memcached may not be running): %v", err)
	}
}
