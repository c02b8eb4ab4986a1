package domain

import "time"

// SalaryShiftDetail 单个班次的计算明细（审计用）
type SalaryShiftDetail struct {
	ShiftID    int64   `json:"shift_id"`
	ShiftDate  string  `json:"shift_date"` // YYYY-MM-DD
	FacilityID *int64  `json:"facility_id"`
	DistanceKm float64 `json:"distance_km"`
	Minutes    int64   `json:"minutes"`
	VitalCount int64   `json:"vital_count"`
}

// Salary 月度工资（对应 salaries 表）
// UNIQUE(user_id, year_month)，重新计算时覆盖
type Salary struct {
	SalaryID           int64               `db:"salary_id" json:"salary_id"`
	UserID             int64               `db:"user_id" json:"user_id"`
	YearMonth          string              `db:"year_month" json:"year_month"`
	TotalAmount        int64               `db:"total_amount" json:"total_amount"`
	DistancePay        int64               `db:"distance_pay" json:"distance_pay"`
	TimePay            int64               `db:"time_pay" json:"time_pay"`
	VitalPay           int64               `db:"vital_pay" json:"vital_pay"`
	TotalDistanceKm    float64             `db:"total_distance_km" json:"total_distance_km"`
	TotalMinutes       int64               `db:"total_minutes" json:"total_minutes"`
	TotalVitalCount    int64               `db:"total_vital_count" json:"total_vital_count"`
	CalculationDetails []SalaryShiftDetail `db:"calculation_details" json:"calculation_details"`
	CalculatedBy       *int64              `db:"calculated_by" json:"calculated_by,omitempty"`
	CreatedAt          time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at" json:"updated_at"`
}
