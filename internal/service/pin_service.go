package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"time"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/repository"

	"go.uber.org/zap"
)

var pinPattern = regexp.MustCompile(`^\d{6}$`)

// PinService 一次性 PIN 服务接口
type PinService interface {
	GeneratePin(ctx context.Context, req GeneratePinRequest) (*GeneratePinResponse, error)
}

// GeneratePinRequest 生成 PIN 请求
type GeneratePinRequest struct {
	UserID       int64
	Purpose      domain.PinPurpose
	AttendanceID *int64
}

// GeneratePinResponse 生成 PIN 响应
type GeneratePinResponse struct {
	PinID     int64             `json:"pin_id"`
	Pin       string            `json:"pin"`
	Purpose   domain.PinPurpose `json:"purpose"`
	ExpiresAt time.Time         `json:"expires_at"`
	ExpiresIn int               `json:"expires_in"` // 秒
}

// PinCheck 校验并消费 PIN 的条件
type PinCheck struct {
	Code    string
	Purpose domain.PinPurpose
	// OwnerID 非空时 PIN 必须属于该用户
	OwnerID *int64
	// AttendanceID 非空且 PIN 绑定了考勤记录时两者必须一致
	AttendanceID *int64
}

// PinIssuer 生成与消费一次性 PIN
type PinIssuer struct {
	pins     repository.PinRepository
	notifier PinNotifier
	logger   *zap.Logger
	now      func() time.Time
	random   io.Reader
}

var _ PinService = (*PinIssuer)(nil)

// NewPinIssuer 创建 PinIssuer；notifier 可为 nil
func NewPinIssuer(pins repository.PinRepository, notifier PinNotifier, logger *zap.Logger) *PinIssuer {
	return &PinIssuer{
		pins:     pins,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		random:   rand.Reader,
	}
}

// GeneratePin 生成 6 位数字 PIN，有效期 10 分钟
func (s *PinIssuer) GeneratePin(ctx context.Context, req GeneratePinRequest) (*GeneratePinResponse, error) {
	if req.UserID <= 0 {
		return nil, InvalidInput("user_id is required")
	}
	if !req.Purpose.Valid() {
		return nil, InvalidInput("invalid PIN purpose %q", req.Purpose)
	}

	code, err := s.randomCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pin: %w", err)
	}

	created, err := s.pins.CreatePin(ctx, &domain.PinVerification{
		UserID:       req.UserID,
		Pin:          code,
		Purpose:      req.Purpose,
		AttendanceID: req.AttendanceID,
		ExpiresAt:    s.now().Add(domain.PinTTL),
	})
	if err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, InvalidInput("user %d or its attendance record does not exist", req.UserID)
		}
		return nil, err
	}

	s.logger.Info("PIN generated",
		zap.Int64("pin_id", created.PinID),
		zap.Int64("user_id", created.UserID),
		zap.String("purpose", string(created.Purpose)),
	)

	if s.notifier != nil {
		n := PinNotification{
			UserID:       created.UserID,
			Purpose:      created.Purpose,
			Pin:          created.Pin,
			AttendanceID: created.AttendanceID,
			ExpiresAt:    created.ExpiresAt,
		}
		if err := s.notifier.NotifyPin(ctx, n); err != nil {
			s.logger.Warn("PIN notification failed", zap.Int64("pin_id", created.PinID), zap.Error(err))
		}
	}

	return &GeneratePinResponse{
		PinID:     created.PinID,
		Pin:       created.Pin,
		Purpose:   created.Purpose,
		ExpiresAt: created.ExpiresAt,
		ExpiresIn: int(domain.PinTTL / time.Second),
	}, nil
}

// Consume 校验 PIN 并标记为已使用。
// 标记在调用方写入考勤之前完成；之后写入失败时 PIN 不会恢复。
func (s *PinIssuer) Consume(ctx context.Context, check PinCheck) (*domain.PinVerification, error) {
	if !pinPattern.MatchString(check.Code) {
		return nil, InvalidInput("PIN must be 6 digits")
	}

	now := s.now()
	listed, err := s.pins.ListActivePinsByCode(ctx, check.Code, now)
	if err != nil {
		return nil, err
	}
	pins := listed[:0:0]
	for _, p := range listed {
		if p.Active(now) {
			pins = append(pins, p)
		}
	}
	if len(pins) == 0 {
		return nil, InvalidInput("invalid or expired PIN")
	}

	if check.OwnerID != nil {
		owned := pins[:0:0]
		for _, p := range pins {
			if p.UserID == *check.OwnerID {
				owned = append(owned, p)
			}
		}
		if len(owned) == 0 {
			return nil, Forbidden("PIN does not belong to this user")
		}
		pins = owned
	}

	var (
		match        *domain.PinVerification
		purposeFound bool
	)
	for _, p := range pins {
		if p.Purpose != check.Purpose {
			continue
		}
		purposeFound = true
		if p.AttendanceID != nil && check.AttendanceID != nil && *p.AttendanceID != *check.AttendanceID {
			continue
		}
		match = p
		break
	}
	if match == nil {
		if purposeFound {
			return nil, InvalidInput("PIN is bound to another attendance record")
		}
		return nil, InvalidInput("PIN is not valid for %s", check.Purpose)
	}

	if err := s.pins.MarkPinAsUsed(ctx, match.PinID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, InvalidInput("PIN has already been used")
		}
		return nil, err
	}
	match.Used = true
	return match, nil
}

func (s *PinIssuer) randomCode() (string, error) {
	n, err := rand.Int(s.random, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
