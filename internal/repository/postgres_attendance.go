package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
)

const attendanceColumns = `attendance_id, shift_id, user_id,
		check_in_time, check_in_lat, check_in_lng, check_in_status, check_in_pin,
		check_out_time, check_out_lat, check_out_lng, check_out_status, check_out_pin,
		notes, created_at, updated_at`

// PostgresAttendanceRepository 考勤 Repository 实现
type PostgresAttendanceRepository struct {
	db *sql.DB
}

// NewPostgresAttendanceRepository 创建考勤 Repository
func NewPostgresAttendanceRepository(db *sql.DB) *PostgresAttendanceRepository {
	return &PostgresAttendanceRepository{db: db}
}

var _ AttendanceRepository = (*PostgresAttendanceRepository)(nil)

func scanAttendance(row rowScanner) (*domain.Attendance, error) {
	var (
		a                         domain.Attendance
		checkInTime, checkOutTime sql.NullTime
		checkInLat, checkInLng    sql.NullFloat64
		checkOutLat, checkOutLng  sql.NullFloat64
		checkInPin, checkOutPin   sql.NullString
		checkInStatus             string
		checkOutStatus            string
		notes                     sql.NullString
	)
	if err := row.Scan(
		&a.AttendanceID, &a.ShiftID, &a.UserID,
		&checkInTime, &checkInLat, &checkInLng, &checkInStatus, &checkInPin,
		&checkOutTime, &checkOutLat, &checkOutLng, &checkOutStatus, &checkOutPin,
		&notes, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.CheckInTime = timePtr(checkInTime)
	a.CheckInLat = float64Ptr(checkInLat)
	a.CheckInLng = float64Ptr(checkInLng)
	a.CheckInStatus = domain.AttendanceStatus(checkInStatus)
	a.CheckInPin = stringPtr(checkInPin)
	a.CheckOutTime = timePtr(checkOutTime)
	a.CheckOutLat = float64Ptr(checkOutLat)
	a.CheckOutLng = float64Ptr(checkOutLng)
	a.CheckOutStatus = domain.AttendanceStatus(checkOutStatus)
	a.CheckOutPin = stringPtr(checkOutPin)
	a.Notes = stringPtr(notes)
	return &a, nil
}

// GetAttendance 根据 ID 查询
func (r *PostgresAttendanceRepository) GetAttendance(ctx context.Context, attendanceID int64) (*domain.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE attendance_id = $1`
	a, err := scanAttendance(r.db.QueryRowContext(ctx, query, attendanceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attendance %d: %w", attendanceID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return a, nil
}

// GetAttendanceByShiftAndUser 根据 (shift_id, user_id) 查询
func (r *PostgresAttendanceRepository) GetAttendanceByShiftAndUser(ctx context.Context, shiftID, userID int64) (*domain.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE shift_id = $1 AND user_id = $2`
	a, err := scanAttendance(r.db.QueryRowContext(ctx, query, shiftID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attendance for shift %d user %d: %w", shiftID, userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return a, nil
}

// CreateAttendance 插入考勤记录
func (r *PostgresAttendanceRepository) CreateAttendance(ctx context.Context, a *domain.Attendance) (*domain.Attendance, error) {
	query := `
		INSERT INTO attendance (
			shift_id, user_id,
			check_in_time, check_in_lat, check_in_lng, check_in_status, check_in_pin,
			check_out_time, check_out_lat, check_out_lng, check_out_status, check_out_pin,
			notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + attendanceColumns

	created, err := scanAttendance(r.db.QueryRowContext(ctx, query, r.writeArgs(a)...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("attendance for shift %d user %d: %w", a.ShiftID, a.UserID, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create attendance: %w", err)
	}
	return created, nil
}

// UpdateAttendance 整行更新（单语句）
func (r *PostgresAttendanceRepository) UpdateAttendance(ctx context.Context, a *domain.Attendance) (*domain.Attendance, error) {
	query := `
		UPDATE attendance SET
			shift_id = $1, user_id = $2,
			check_in_time = $3, check_in_lat = $4, check_in_lng = $5, check_in_status = $6, check_in_pin = $7,
			check_out_time = $8, check_out_lat = $9, check_out_lng = $10, check_out_status = $11, check_out_pin = $12,
			notes = $13,
			updated_at = NOW()
		WHERE attendance_id = $14
		RETURNING ` + attendanceColumns

	args := append(r.writeArgs(a), a.AttendanceID)
	updated, err := scanAttendance(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attendance %d: %w", a.AttendanceID, ErrNotFound)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("attendance for shift %d user %d: %w", a.ShiftID, a.UserID, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to update attendance: %w", err)
	}
	return updated, nil
}

func (r *PostgresAttendanceRepository) writeArgs(a *domain.Attendance) []any {
	return []any{
		a.ShiftID, a.UserID,
		nullableTime(a.CheckInTime), nullableFloat64(a.CheckInLat), nullableFloat64(a.CheckInLng),
		statusOrPending(a.CheckInStatus), nullableString(a.CheckInPin),
		nullableTime(a.CheckOutTime), nullableFloat64(a.CheckOutLat), nullableFloat64(a.CheckOutLng),
		statusOrPending(a.CheckOutStatus), nullableString(a.CheckOutPin),
		nullableString(a.Notes),
	}
}

func statusOrPending(s domain.AttendanceStatus) string {
	if s == "" {
		return string(domain.AttendancePending)
	}
	return string(s)
}
