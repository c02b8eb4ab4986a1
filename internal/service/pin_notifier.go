package service

import (
	"context"
	"fmt"
	"time"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// PinNotifier PIN 下发通知
type PinNotifier interface {
	NotifyPin(ctx context.Context, n PinNotification) error
}

// PinNotification 推送给 webhook 的 PIN 信息
type PinNotification struct {
	UserID       int64             `json:"user_id"`
	Purpose      domain.PinPurpose `json:"purpose"`
	Pin          string            `json:"pin"`
	AttendanceID *int64            `json:"attendance_id,omitempty"`
	ExpiresAt    time.Time         `json:"expires_at"`
}

// WebhookPinNotifier 通过 HTTP webhook 下发 PIN
type WebhookPinNotifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewWebhookPinNotifier 创建 webhook 通知客户端
func NewWebhookPinNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookPinNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(1 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookPinNotifier{
		httpClient: client,
		url:        url,
		logger:     logger,
	}
}

// NotifyPin POST 到 webhook；非 2xx 视为失败
func (n *WebhookPinNotifier) NotifyPin(ctx context.Context, pn PinNotification) error {
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(pn).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to call PIN webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("PIN webhook returned status %d", resp.StatusCode())
	}

	n.logger.Debug("PIN webhook delivered",
		zap.Int64("user_id", pn.UserID),
		zap.String("purpose", string(pn.Purpose)),
		zap.Int("status_code", resp.StatusCode()),
	)
	return nil
}
