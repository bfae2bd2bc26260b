package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ix-decoder-sol/internal/logic/core"

	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/jsonx"
)

// Redis key 前缀
const decodedTxPrefix = "decoded:tx"

const defaultTTL = 24 * time.Hour

// DecodedTxCache 按交易签名缓存解码结果，避免重复拉取 RPC
type DecodedTxCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDecodedTxCache ttl <= 0 时使用默认 24h
func NewDecodedTxCache(rdb *redis.Client, ttl time.Duration) *DecodedTxCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &DecodedTxCache{rdb: rdb, ttl: ttl}
}

func (c *DecodedTxCache) getKey(signature string) string {
	return fmt.Sprintf("%s:%s", decodedTxPrefix, signature)
}

// Get 未命中时返回 (nil, false, nil)
func (c *DecodedTxCache) Get(ctx context.Context, signature string) (*core.DecodedTx, bool, error) {
	data, err := c.rdb.Get(ctx, c.getKey(signature)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("redis get error: %w", err)
	}

	var tx core.DecodedTx
	if err := jsonx.Unmarshal(data, &tx); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached tx %s: %w", signature, err)
	}
	return &tx, true, nil
}

func (c *DecodedTxCache) Set(ctx context.Context, tx *core.DecodedTx) error {
	data, err := jsonx.Marshal(tx)
	if err != nil {
		return fmt.Errorf("marshal tx %s: %w", tx.Signature, err)
	}
	return c.rdb.Set(ctx, c.getKey(tx.Signature), data, c.ttl).Err()
}
