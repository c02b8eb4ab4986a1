package domain

import (
	"fmt"
	"time"
)

// AttendanceStatus 签到/签退状态
type AttendanceStatus string

const (
	AttendancePending   AttendanceStatus = "PENDING"
	AttendanceConfirmed AttendanceStatus = "CONFIRMED"
	AttendanceRejected  AttendanceStatus = "REJECTED"
)

// Valid reports whether s is one of the known statuses.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePending, AttendanceConfirmed, AttendanceRejected:
		return true
	}
	return false
}

// AttendanceHalf 区分签到 / 签退
type AttendanceHalf string

const (
	HalfCheckIn  AttendanceHalf = "check_in"
	HalfCheckOut AttendanceHalf = "check_out"
)

func (h AttendanceHalf) Valid() bool {
	return h == HalfCheckIn || h == HalfCheckOut
}

// Attendance 考勤记录（对应 attendance 表）
// UNIQUE(shift_id, user_id)；签退字段仅在签到之后有意义
type Attendance struct {
	AttendanceID int64 `db:"attendance_id" json:"attendance_id"`
	ShiftID      int64 `db:"shift_id" json:"shift_id"`
	UserID       int64 `db:"user_id" json:"user_id"`

	CheckInTime   *time.Time       `db:"check_in_time" json:"check_in_time"`
	CheckInLat    *float64         `db:"check_in_lat" json:"check_in_lat"`
	CheckInLng    *float64         `db:"check_in_lng" json:"check_in_lng"`
	CheckInStatus AttendanceStatus `db:"check_in_status" json:"check_in_status"`
	CheckInPin    *string          `db:"check_in_pin" json:"-"`

	CheckOutTime   *time.Time       `db:"check_out_time" json:"check_out_time"`
	CheckOutLat    *float64         `db:"check_out_lat" json:"check_out_lat"`
	CheckOutLng    *float64         `db:"check_out_lng" json:"check_out_lng"`
	CheckOutStatus AttendanceStatus `db:"check_out_status" json:"check_out_status"`
	CheckOutPin    *string          `db:"check_out_pin" json:"-"`

	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CheckedIn 是否已签到
func (a *Attendance) CheckedIn() bool { return a.CheckInTime != nil }

// CheckedOut 是否已签退
func (a *Attendance) CheckedOut() bool { return a.CheckOutTime != nil }

// SetStatus 设置指定一半的状态
func (a *Attendance) SetStatus(half AttendanceHalf, status AttendanceStatus) error {
	switch half {
	case HalfCheckIn:
		a.CheckInStatus = status
	case HalfCheckOut:
		a.CheckOutStatus = status
	default:
		return fmt.Errorf("unknown attendance half %q", half)
	}
	return nil
}
