// Package redis is a replay cache for resolved idempotency keys. It only ever
// holds mappings that a committed unit of work already proved, so a stale or
// missing entry falls back to the store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	interfaces "github.com/sheikh-saqib/ledger-posting-engine/internal/interfaces"
)

const (
	DefaultTTL = 24 * time.Hour
	keyPrefix  = "ledger:idem:"
)

type ReplayCache struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

func NewReplayCache(client goredis.UniversalClient, ttl time.Duration) *ReplayCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ReplayCache{client: client, ttl: ttl}
}

// Connect dials addr and verifies the server answers.
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func (c *ReplayCache) Get(ctx context.Context, key string) (string, bool, error) {
	txnID, err := c.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return txnID, true, nil
}

// Set stores the mapping unless one exists already. The first committed
// mapping for a key is the only one that can exist, so it is never replaced.
func (c *ReplayCache) Set(ctx context.Context, key, txnID string) error {
	return c.client.SetNX(ctx, keyPrefix+key, txnID, c.ttl).Err()
}

var _ interfaces.ReplayCache = (*ReplayCache)(nil)
