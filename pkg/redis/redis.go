package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mudit2103/csm-web/config"
)

// Client Redis 客户端封装
// 当前用于测试数据生成任务的互斥锁与最近一次运行记录
type Client struct {
	rdb    goredis.UniversalClient
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// NewWithClient 包装已有连接（测试注入）
func NewWithClient(rdb goredis.UniversalClient, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

// ── 生成任务互斥锁 ──

const (
	runLockKey = "csm:fixture:lock"
	lastRunKey = "csm:fixture:last_run"
)

// 仅当锁仍归 owner 所有时才删除
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireRunLock 以 SETNX 抢占生成锁，TTL 到期自动释放
func (c *Client) AcquireRunLock(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, runLockKey, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("获取生成锁失败: %w", err)
	}
	return ok, nil
}

// ReleaseRunLock 释放生成锁；锁已过期或被他人持有时不做任何事
func (c *Client) ReleaseRunLock(ctx context.Context, owner string) error {
	if err := releaseScript.Run(ctx, c.rdb, []string{runLockKey}, owner).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("释放生成锁失败: %w", err)
	}
	return nil
}

// RecordRun 覆盖写入最近一次生成的摘要
func (c *Client) RecordRun(ctx context.Context, fields map[string]interface{}) error {
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, lastRunKey)
	pipe.HSet(ctx, lastRunKey, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("记录生成摘要失败: %w", err)
	}
	return nil
}

// LastRun 读取最近一次生成的摘要；从未生成时返回空 map
func (c *Client) LastRun(ctx context.Context) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, lastRunKey).Result()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
