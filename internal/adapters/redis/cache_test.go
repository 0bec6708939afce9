package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "stayscore/internal/adapters/redis"
)

func TestCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	ctx := context.Background()

	type payload struct {
		Count int     `json:"count"`
		Avg   float64 `json:"avg"`
	}

	var out payload
	hit, err := c.Get(ctx, "summary:x:all", &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hit {
		t.Fatal("expected miss on empty cache")
	}

	if err := c.Set(ctx, "summary:x:all", payload{Count: 3, Avg: 4.25}, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	hit, err = c.Get(ctx, "summary:x:all", &out)
	if err != nil {
		t.Fatalf("get after set: %v", err)
	}
	if !hit || out.Count != 3 || out.Avg != 4.25 {
		t.Fatalf("got hit=%v out=%+v", hit, out)
	}

	if err := c.Del(ctx, "summary:x:all"); err != nil {
		t.Fatalf("del: %v", err)
	}
	hit, err = c.Get(ctx, "summary:x:all", &out)
	if err != nil {
		t.Fatalf("get after del: %v", err)
	}
	if hit {
		t.Fatal("expected miss after delete")
	}
}

func TestCache_TTLExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	ctx := context.Background()

	if err := c.Set(ctx, "k", map[string]int{"n": 1}, 30); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(31 * time.Second) // past the TTL

	var out map[string]int
	hit, err := c.Get(ctx, "k", &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hit {
		t.Fatal("expected miss after TTL expiry")
	}
}
