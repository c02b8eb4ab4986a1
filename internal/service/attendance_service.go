package service

import (
	"context"
	"errors"
	"time"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/repository"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AttendanceService 考勤服务接口
type AttendanceService interface {
	CheckIn(ctx context.Context, req CheckInRequest) (*domain.Attendance, error)
	CheckOut(ctx context.Context, req CheckOutRequest) (*CheckOutResult, error)
	UpdateAttendanceStatus(ctx context.Context, req UpdateStatusRequest) (*domain.Attendance, error)
	GetAttendance(ctx context.Context, attendanceID int64, viewer Viewer) (*domain.Attendance, error)
}

// CheckInRequest 签到请求
type CheckInRequest struct {
	UserID  int64
	ShiftID int64
	Lat     float64
	Lng     float64
	Pin     string // 可选；提供时签到直接为 CONFIRMED
}

// CheckOutRequest 签退请求
type CheckOutRequest struct {
	UserID       int64
	AttendanceID int64
	Lat          float64
	Lng          float64
	Pin          string
}

// CheckOutResult 签退结果
type CheckOutResult struct {
	Attendance *domain.Attendance `json:"attendance"`
	DistanceKm float64            `json:"distance_km"` // 签到点到签退点的直线距离
}

// UpdateStatusRequest 修改考勤状态请求；Pin 可选，提供时必须为 STATUS_UPDATE
type UpdateStatusRequest struct {
	AttendanceID int64
	Status       domain.AttendanceStatus
	Type         domain.AttendanceHalf
	Pin          string
}

// Viewer 当前调用者
type Viewer struct {
	UserID int64
	Role   string
}

// AttendanceEvent 写入事件流的考勤事件
type AttendanceEvent struct {
	EventID      string                  `json:"event_id"`
	Type         string                  `json:"type"`
	AttendanceID int64                   `json:"attendance_id"`
	ShiftID      int64                   `json:"shift_id"`
	UserID       int64                   `json:"user_id"`
	Status       domain.AttendanceStatus `json:"status"`
	DistanceKm   *float64                `json:"distance_km,omitempty"`
	OccurredAt   time.Time               `json:"occurred_at"`
}

// 事件类型
const (
	EventCheckedIn     = "attendance.checked_in"
	EventCheckedOut    = "attendance.checked_out"
	EventStatusUpdated = "attendance.status_updated"
)

// PinConsumer 校验并消费 PIN
type PinConsumer interface {
	Consume(ctx context.Context, check PinCheck) (*domain.PinVerification, error)
}

// AttendanceDeps AttendanceEngine 依赖；Cache/Events 可为 nil
type AttendanceDeps struct {
	Shifts     repository.ShiftsRepository
	Attendance repository.AttendanceRepository
	Pins       PinConsumer
	Cache      CacheInvalidator
	Events     EventPublisher
	Logger     *zap.Logger
}

// AttendanceEngine 签到/签退/状态修改
type AttendanceEngine struct {
	shifts     repository.ShiftsRepository
	attendance repository.AttendanceRepository
	pins       PinConsumer
	cache      CacheInvalidator
	events     EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

var _ AttendanceService = (*AttendanceEngine)(nil)

func NewAttendanceService(deps AttendanceDeps) *AttendanceEngine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceEngine{
		shifts:     deps.Shifts,
		attendance: deps.Attendance,
		pins:       deps.Pins,
		cache:      deps.Cache,
		events:     deps.Events,
		logger:     logger,
		now:        time.Now,
	}
}

// CheckIn 签到
func (s *AttendanceEngine) CheckIn(ctx context.Context, req CheckInRequest) (*domain.Attendance, error) {
	shift, err := s.shifts.GetShift(ctx, req.ShiftID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("shift %d not found", req.ShiftID)
		}
		return nil, err
	}
	if !shift.AssignedTo(req.UserID) {
		return nil, Forbidden("shift %d is not assigned to user %d", req.ShiftID, req.UserID)
	}

	existing, err := s.attendance.GetAttendanceByShiftAndUser(ctx, req.ShiftID, req.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.CheckedIn() {
		return nil, Conflict("already checked in for shift %d", req.ShiftID)
	}

	status := domain.AttendancePending
	var pinCode *string
	if req.Pin != "" {
		if _, err := s.pins.Consume(ctx, PinCheck{
			Code:    req.Pin,
			Purpose: domain.PinCheckIn,
			OwnerID: &req.UserID,
		}); err != nil {
			return nil, err
		}
		status = domain.AttendanceConfirmed
		pin := req.Pin
		pinCode = &pin
	}

	now := s.now()
	lat, lng := req.Lat, req.Lng

	rec := existing
	if rec == nil {
		rec = &domain.Attendance{
			ShiftID:        req.ShiftID,
			UserID:         req.UserID,
			CheckOutStatus: domain.AttendancePending,
		}
	}
	rec.CheckInTime = &now
	rec.CheckInLat = &lat
	rec.CheckInLng = &lng
	rec.CheckInStatus = status
	rec.CheckInPin = pinCode

	var saved *domain.Attendance
	if existing != nil {
		saved, err = s.attendance.UpdateAttendance(ctx, rec)
	} else {
		saved, err = s.attendance.CreateAttendance(ctx, rec)
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict("already checked in for shift %d", req.ShiftID)
		}
		return nil, err
	}

	s.logger.Info("Checked in",
		zap.Int64("attendance_id", saved.AttendanceID),
		zap.Int64("shift_id", saved.ShiftID),
		zap.Int64("user_id", saved.UserID),
		zap.String("status", string(saved.CheckInStatus)),
	)
	s.afterWrite(ctx, EventCheckedIn, saved, saved.CheckInStatus, nil)
	return saved, nil
}

// CheckOut 签退，并返回签到点到签退点的距离
func (s *AttendanceEngine) CheckOut(ctx context.Context, req CheckOutRequest) (*CheckOutResult, error) {
	rec, err := s.attendance.GetAttendance(ctx, req.AttendanceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("attendance %d not found", req.AttendanceID)
		}
		return nil, err
	}
	if rec.UserID != req.UserID {
		return nil, Forbidden("attendance %d does not belong to user %d", req.AttendanceID, req.UserID)
	}
	if !rec.CheckedIn() {
		return nil, InvalidState("attendance %d has not been checked in", req.AttendanceID)
	}
	if rec.CheckedOut() {
		return nil, Conflict("attendance %d is already checked out", req.AttendanceID)
	}

	status := domain.AttendancePending
	var pinCode *string
	if req.Pin != "" {
		if _, err := s.pins.Consume(ctx, PinCheck{
			Code:         req.Pin,
			Purpose:      domain.PinCheckOut,
			OwnerID:      &req.UserID,
			AttendanceID: &rec.AttendanceID,
		}); err != nil {
			return nil, err
		}
		status = domain.AttendanceConfirmed
		pin := req.Pin
		pinCode = &pin
	}

	now := s.now()
	lat, lng := req.Lat, req.Lng
	rec.CheckOutTime = &now
	rec.CheckOutLat = &lat
	rec.CheckOutLng = &lng
	rec.CheckOutStatus = status
	rec.CheckOutPin = pinCode

	var distance float64
	if rec.CheckInLat != nil && rec.CheckInLng != nil {
		distance = HaversineKm(
			domain.Coordinates{Lat: *rec.CheckInLat, Lng: *rec.CheckInLng},
			domain.Coordinates{Lat: lat, Lng: lng},
		)
	}

	saved, err := s.attendance.UpdateAttendance(ctx, rec)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Checked out",
		zap.Int64("attendance_id", saved.AttendanceID),
		zap.Int64("user_id", saved.UserID),
		zap.String("status", string(saved.CheckOutStatus)),
		zap.Float64("distance_km", distance),
	)
	s.afterWrite(ctx, EventCheckedOut, saved, saved.CheckOutStatus, &distance)
	return &CheckOutResult{Attendance: saved, DistanceKm: distance}, nil
}

// UpdateAttendanceStatus 修改签到或签退状态
func (s *AttendanceEngine) UpdateAttendanceStatus(ctx context.Context, req UpdateStatusRequest) (*domain.Attendance, error) {
	if !req.Status.Valid() {
		return nil, InvalidInput("invalid status %q", req.Status)
	}
	if !req.Type.Valid() {
		return nil, InvalidInput("invalid type %q", req.Type)
	}
	rec, err := s.attendance.GetAttendance(ctx, req.AttendanceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("attendance %d not found", req.AttendanceID)
		}
		return nil, err
	}

	if req.Pin != "" {
		if _, err := s.pins.Consume(ctx, PinCheck{
			Code:         req.Pin,
			Purpose:      domain.PinStatusUpdate,
			AttendanceID: &rec.AttendanceID,
		}); err != nil {
			return nil, err
		}
	}

	if err := rec.SetStatus(req.Type, req.Status); err != nil {
		return nil, InvalidInput("%s", err.Error())
	}

	saved, err := s.attendance.UpdateAttendance(ctx, rec)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Attendance status updated",
		zap.Int64("attendance_id", saved.AttendanceID),
		zap.String("type", string(req.Type)),
		zap.String("status", string(req.Status)),
	)
	s.afterWrite(ctx, EventStatusUpdated, saved, req.Status, nil)
	return saved, nil
}

// GetAttendance 查询考勤记录；护士只能查看自己的记录
func (s *AttendanceEngine) GetAttendance(ctx context.Context, attendanceID int64, viewer Viewer) (*domain.Attendance, error) {
	rec, err := s.attendance.GetAttendance(ctx, attendanceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("attendance %d not found", attendanceID)
		}
		return nil, err
	}
	switch viewer.Role {
	case domain.RoleAdmin, domain.RoleFacilityManager:
	default:
		if rec.UserID != viewer.UserID {
			return nil, Forbidden("attendance %d does not belong to user %d", attendanceID, viewer.UserID)
		}
	}
	return rec, nil
}

// afterWrite 失效排班模板缓存并发布事件；失败只记录日志
func (s *AttendanceEngine) afterWrite(ctx context.Context, eventType string, rec *domain.Attendance, status domain.AttendanceStatus, distance *float64) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, store.ShiftTemplatesPattern); err != nil {
			s.logger.Warn("Failed to invalidate shift template cache", zap.Error(err))
		}
	}
	if s.events == nil {
		return
	}
	ev := AttendanceEvent{
		EventID:      uuid.NewString(),
		Type:         eventType,
		AttendanceID: rec.AttendanceID,
		ShiftID:      rec.ShiftID,
		UserID:       rec.UserID,
		Status:       status,
		DistanceKm:   distance,
		OccurredAt:   s.now().UTC(),
	}
	if _, err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("Failed to publish attendance event",
			zap.String("type", eventType),
			zap.Int64("attendance_id", rec.AttendanceID),
			zap.Error(err),
		)
	}
}
