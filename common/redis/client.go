package redis

import (
	"context"
	"time"

	"wisefido-wearable/common/config"

	"github.com/go-redis/redis/v8"
)

// Client go-redis 客户端别名，调用方不必直接引用 go-redis
type Client = redis.Client

// NewRedisClient 按配置创建客户端（不连接，首个命令时建连）
func NewRedisClient(cfg *config.RedisConfig) *Client {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	return redis.NewClient(opts)
}

// Ping 探活；ctx 没有截止时间时默认等 3 秒
func Ping(ctx context.Context, client *Client) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
	}
	return client.Ping(ctx).Err()
}

// Close 关闭客户端，nil 安全
func Close(client *Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
