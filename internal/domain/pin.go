package domain

import "time"

// PinPurpose 一次性 PIN 用途
type PinPurpose string

const (
	PinCheckIn      PinPurpose = "CHECK_IN"
	PinCheckOut     PinPurpose = "CHECK_OUT"
	PinStatusUpdate PinPurpose = "STATUS_UPDATE"
)

func (p PinPurpose) Valid() bool {
	switch p {
	case PinCheckIn, PinCheckOut, PinStatusUpdate:
		return true
	}
	return false
}

// PinTTL PIN 有效期
const PinTTL = 10 * time.Minute

// PinVerification 一次性 PIN（对应 pin_verifications 表）
// 过期或已使用的 PIN 在查询时被过滤，由清理任务物理删除
type PinVerification struct {
	PinID        int64      `db:"pin_id"`
	UserID       int64      `db:"user_id"`
	Pin          string     `db:"pin"`
	Purpose      PinPurpose `db:"purpose"`
	AttendanceID *int64     `db:"attendance_id"`
	ExpiresAt    time.Time  `db:"expires_at"`
	Used         bool       `db:"used"`
	CreatedAt    time.Time  `db:"created_at"`
}

// Active 未使用且未过期
func (p *PinVerification) Active(now time.Time) bool {
	return !p.Used && now.Before(p.ExpiresAt)
}
