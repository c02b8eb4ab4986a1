package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// 缓存键
const (
	ShiftTemplatesPattern = "shift-templates:*"
	salaryKeyPrefix       = "salary:user:"
)

// SalaryKey 单个用户某月工资
func SalaryKey(userID int64, yearMonth string) string {
	return fmt.Sprintf("%s%d:%s", salaryKeyPrefix, userID, yearMonth)
}

// SalaryUserPattern 用户全部月份
func SalaryUserPattern(userID int64) string {
	return fmt.Sprintf("%s%d:*", salaryKeyPrefix, userID)
}

// Cache cache-aside 助手：JSON 序列化 + TTL + 按模式失效
// Enabled=false 时 GetOrSet 直接调用 loader，Invalidate 为空操作
type Cache struct {
	kv      KV
	ttl     time.Duration
	enabled bool
	logger  *zap.Logger
}

// NewCache 创建缓存助手；kv 为 nil 视为禁用
func NewCache(kv KV, ttl time.Duration, enabled bool, logger *zap.Logger) *Cache {
	return &Cache{kv: kv, ttl: ttl, enabled: enabled && kv != nil, logger: logger}
}

// GetOrSet 命中则反序列化到 out；未命中调用 load 并回写。
// 缓存读写失败只记录日志，不影响结果。
func (c *Cache) GetOrSet(ctx context.Context, key string, out any, load func(ctx context.Context) (any, error)) error {
	if c.enabled {
		raw, err := c.kv.Get(ctx, key)
		if err == nil {
			if jerr := json.Unmarshal([]byte(raw), out); jerr == nil {
				return nil
			}
			c.logger.Warn("Discarding undecodable cache entry", zap.String("key", key))
		} else if !errors.Is(err, ErrMiss) {
			c.logger.Warn("Cache get failed", zap.String("key", key), zap.Error(err))
		}
	}

	v, err := load(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to copy cache value: %w", err)
	}

	if c.enabled {
		if err := c.kv.Set(ctx, key, string(data), c.ttl); err != nil {
			c.logger.Warn("Cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// Invalidate 删除 key；包含 '*' 时按模式 SCAN 后删除
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if !c.enabled {
		return nil
	}
	if !strings.Contains(key, "*") {
		return c.kv.Del(ctx, key)
	}
	keys, err := c.kv.ScanKeys(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", key, err)
	}
	return c.kv.Del(ctx, keys...)
}
