package service

import (
	"context"
	"time"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/repository"

	"go.uber.org/zap"
)

// PinCleaner 定期删除已使用或已过期的 PIN
type PinCleaner struct {
	pins     repository.PinRepository
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewPinCleaner(pins repository.PinRepository, interval time.Duration, logger *zap.Logger) *PinCleaner {
	return &PinCleaner{pins: pins, interval: interval, logger: logger, now: time.Now}
}

// Run 阻塞直到 ctx 取消
func (c *PinCleaner) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("Starting PIN cleanup", zap.Duration("interval", c.interval))

	// 启动时先清理一次
	c.cleanOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.cleanOnce(ctx)
		}
	}
}

func (c *PinCleaner) cleanOnce(ctx context.Context) int64 {
	n, err := c.pins.DeleteStalePins(ctx, c.now())
	if err != nil {
		c.logger.Error("Failed to delete stale PINs", zap.Error(err))
		return 0
	}
	if n > 0 {
		c.logger.Info("Deleted stale PINs", zap.Int64("count", n))
	}
	return n
}
