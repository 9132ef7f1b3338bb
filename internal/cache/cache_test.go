package cache

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string](time.Minute)

	c.Set("k", "v")

	got, ok := c.Get("k")

	if !ok || got != "v" {
		t.Fatalf("got (%q, %v), want (v, true)", got, ok)
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New[int](10 * time.Millisecond)

	c.Set("k", 42)

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to be gone")
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New[[]string](time.Minute)

	c.Set("a", []string{"x"})
	c.Set("b", []string{"y"})

	c.Delete("a")

	if _, ok := c.Get("a"); ok {
		t.Fatal("deleted key still present")
	}

	c.Clear()

	if _, ok := c.Get("b"); ok {
		t.Fatal("cleared cache still has entries")
	}
}

func TestCache_ZeroTTLFallsBack(t *testing.T) {
	c := New[string](0)

	c.Set("k", "v")

	if _, ok := c.Get("k"); !ok {
		t.Fatal("default ttl should keep fresh entries")
	}
}
