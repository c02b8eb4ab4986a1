package domain

import "time"

// Shift 排班（对应 shifts 表）
// 由排班/导入流程创建，考勤与工资计算只读
type Shift struct {
	ShiftID       int64      `db:"shift_id"`
	UserID        *int64     `db:"user_id"`        // 指派的护士，可为空（未指派）
	FacilityID    *int64     `db:"facility_id"`    // 可为空
	StartDatetime time.Time  `db:"start_datetime"` // NOT NULL
	EndDatetime   *time.Time `db:"end_datetime"`
	RequiredTime  *int       `db:"required_time"` // 分钟
	DistanceKm    *float64   `db:"distance_km"`   // 预先计算的移动距离
	ServiceRoute  *string    `db:"service_route"`
	ShiftPeriod   *string    `db:"shift_period"`
}

// AssignedTo 判断班次是否指派给该用户
func (s *Shift) AssignedTo(userID int64) bool {
	return s.UserID != nil && *s.UserID == userID
}
