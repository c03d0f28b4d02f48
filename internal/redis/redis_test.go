package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return &Client{rdb: rdb, logger: zap.NewNop()}, mr
}

func TestConfigAddr(t *testing.T) {
	cfg := Config{Host: "cache.internal", Port: 6380}
	if got := cfg.Addr(); got != "cache.internal:6380" {
		t.Errorf("Addr() = %q", got)
	}
}
