package repository

import (
	"context"
	"errors"
	"time"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
)

var (
	// ErrNotFound 记录不存在（或条件更新未命中任何行）
	ErrNotFound = errors.New("not found")
	// ErrDuplicate 违反唯一约束（pq 23505）
	ErrDuplicate = errors.New("duplicate record")
	// ErrForeignKey 引用的记录不存在（pq 23503）
	ErrForeignKey = errors.New("referenced record not found")
)

// ShiftsRepository 班次（只读）
type ShiftsRepository interface {
	GetShift(ctx context.Context, shiftID int64) (*domain.Shift, error)
	// ListShiftsByUser 返回 start_datetime ∈ [from, to) 的班次，按开始时间升序
	ListShiftsByUser(ctx context.Context, userID int64, from, to time.Time) ([]*domain.Shift, error)
}

// AttendanceRepository 考勤记录
type AttendanceRepository interface {
	GetAttendance(ctx context.Context, attendanceID int64) (*domain.Attendance, error)
	GetAttendanceByShiftAndUser(ctx context.Context, shiftID, userID int64) (*domain.Attendance, error)
	// CreateAttendance 插入新记录；(shift_id, user_id) 重复时返回 ErrDuplicate
	CreateAttendance(ctx context.Context, a *domain.Attendance) (*domain.Attendance, error)
	// UpdateAttendance 单语句整行更新
	UpdateAttendance(ctx context.Context, a *domain.Attendance) (*domain.Attendance, error)
}

// PinRepository 一次性 PIN
type PinRepository interface {
	CreatePin(ctx context.Context, p *domain.PinVerification) (*domain.PinVerification, error)
	// ListActivePinsByCode 未使用且 expires_at > now 的 PIN，最新的在前
	ListActivePinsByCode(ctx context.Context, code string, now time.Time) ([]*domain.PinVerification, error)
	// MarkPinAsUsed 条件更新 used=FALSE→TRUE；已被使用时返回 ErrNotFound
	MarkPinAsUsed(ctx context.Context, pinID int64) error
	// DeleteStalePins 删除已使用或已过期的 PIN
	DeleteStalePins(ctx context.Context, now time.Time) (int64, error)
}

// UsersRepository 用户（只读）
type UsersRepository interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
}

// FacilitiesRepository 设施与入住者（只读）
type FacilitiesRepository interface {
	GetFacility(ctx context.Context, facilityID int64) (*domain.Facility, error)
	// ListEligibleResidentIDs 设施内 is_excluded = FALSE 的入住者
	ListEligibleResidentIDs(ctx context.Context, facilityID int64) ([]int64, error)
}

// VitalsRepository 生命体征（只需计数）
type VitalsRepository interface {
	// CountVitals 统计 measured_at ∈ [from, to) 的记录数
	CountVitals(ctx context.Context, residentIDs []int64, from, to time.Time) (int64, error)
}

// SalariesRepository 月度工资
type SalariesRepository interface {
	GetSalaryByUserAndMonth(ctx context.Context, userID int64, yearMonth string) (*domain.Salary, error)
	// CreateSalary INSERT ... ON CONFLICT (user_id, year_month) DO UPDATE
	CreateSalary(ctx context.Context, s *domain.Salary) (*domain.Salary, error)
	UpdateSalary(ctx context.Context, s *domain.Salary) (*domain.Salary, error)
	ListSalariesByMonth(ctx context.Context, yearMonth string) ([]*domain.Salary, error)
}
