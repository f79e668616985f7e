package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dashboardKey = "qrate:event:%s:dashboard" // String: 序列化后的 DJ 面板状态
	poolKey      = "qrate:event:%s:pool"      // String: 排名池快照 JSON
)

// DashboardCache DJ 面板状态与排名池快照的 Redis 缓存
// 客户端由启动时注入，不依赖包级全局变量
type DashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDashboardCache 创建面板缓存
func NewDashboardCache(client *redis.Client, ttl time.Duration) *DashboardCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DashboardCache{client: client, ttl: ttl}
}

// SaveState 持久化 DJ 面板状态
func (c *DashboardCache) SaveState(ctx context.Context, eventID string, data []byte) error {
	if c.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	key := fmt.Sprintf(dashboardKey, eventID)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save dashboard state: %w", err)
	}
	return nil
}

// LoadState 读取 DJ 面板状态，不存在时返回 (nil, nil)
func (c *DashboardCache) LoadState(ctx context.Context, eventID string) ([]byte, error) {
	if c.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}
	key := fmt.Sprintf(dashboardKey, eventID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load dashboard state: %w", err)
	}
	return data, nil
}

// SavePool 持久化排名池快照
func (c *DashboardCache) SavePool(ctx context.Context, eventID string, data []byte) error {
	if c.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	key := fmt.Sprintf(poolKey, eventID)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save pool snapshot: %w", err)
	}
	return nil
}

// LoadPool 读取排名池快照，不存在时返回 (nil, nil)
func (c *DashboardCache) LoadPool(ctx context.Context, eventID string) ([]byte, error) {
	if c.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}
	key := fmt.Sprintf(poolKey, eventID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load pool snapshot: %w", err)
	}
	return data, nil
}

// Clear 清除活动相关缓存
func (c *DashboardCache) Clear(ctx context.Context, eventID string) error {
	if c.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	pipe := c.client.Pipeline()
	pipe.Del(ctx, fmt.Sprintf(dashboardKey, eventID))
	pipe.Del(ctx, fmt.Sprintf(poolKey, eventID))
	_, err := pipe.Exec(ctx)
	return err
}
