package svc

import (
	"fmt"

	"ix-decoder-sol/internal/cache"
	"ix-decoder-sol/internal/config"
	"ix-decoder-sol/internal/decoder"
	"ix-decoder-sol/internal/layout"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/redis/go-redis/v9"
)

// DecoderServiceContext 命令行工具使用的资源；未配置 redis 时 Cache 为 nil
type DecoderServiceContext struct {
	Config  config.DecoderConfig
	Decoder *decoder.Dispatcher
	Client  *client.Client
	Cache   *cache.DecodedTxCache

	rdb *redis.Client
}

func NewDecoderServiceContext(c config.DecoderConfig) (*DecoderServiceContext, error) {
	registry, err := layout.LoadRegistry(c.LayoutsFile)
	if err != nil {
		return nil, fmt.Errorf("load layouts: %w", err)
	}

	ctx := &DecoderServiceContext{
		Config:  c,
		Decoder: decoder.New(registry),
		Client:  client.NewClient(c.RpcConf.Endpoint),
	}
	if c.RedisConf.Enabled() {
		ctx.rdb = redis.NewClient(&redis.Options{
			Addr:     c.RedisConf.Addr,
			Password: c.RedisConf.Password,
			DB:       c.RedisConf.DB,
		})
		ctx.Cache = cache.NewDecodedTxCache(ctx.rdb, c.RedisConf.TTL())
	}
	return ctx, nil
}

func (ctx *DecoderServiceContext) Close() {
	if ctx.rdb != nil {
		_ = ctx.rdb.Close()
	}
}
