package store

import (
	"context"
	"os"
	"testing"

	"github.com/rushteam/cinerec/core"
)

// 需要本地 Redis：REDIS_ADDR=localhost:6379 go test ./store/
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := NewRedisStore(addr, 0)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	defer s.Close()

	key := "cinerec:test:redis"
	defer s.Delete(ctx, key)

	if err := s.Set(ctx, key, []byte("v"), 60); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil || string(got) != "v" {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	batch, err := s.BatchGet(ctx, []string{key, key + ":missing"})
	if err != nil || len(batch) != 1 {
		t.Fatalf("BatchGet() = %v, %v", batch, err)
	}
	_ = s.Delete(ctx, key)
	if _, err := s.Get(ctx, key); !core.IsStoreNotFound(err) {
		t.Errorf("Get(deleted) error = %v", err)
	}
}
