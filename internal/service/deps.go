package service

import "context"

// CacheInvalidator 缓存失效（key 可含 '*' 模式）
type CacheInvalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// SalaryCache cache-aside 读取 + 失效
type SalaryCache interface {
	CacheInvalidator
	GetOrSet(ctx context.Context, key string, out any, load func(ctx context.Context) (any, error)) error
}

// EventPublisher 事件发布（Redis Streams）
type EventPublisher interface {
	Publish(ctx context.Context, event any) (string, error)
}
