package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
)

const salaryColumns = `salary_id, user_id, year_month, total_amount,
		distance_pay, time_pay, vital_pay,
		total_distance_km, total_minutes, total_vital_count,
		calculation_details, calculated_by, created_at, updated_at`

// PostgresSalariesRepository 工资 Repository 实现
type PostgresSalariesRepository struct {
	db *sql.DB
}

// NewPostgresSalariesRepository 创建工资 Repository
func NewPostgresSalariesRepository(db *sql.DB) *PostgresSalariesRepository {
	return &PostgresSalariesRepository{db: db}
}

var _ SalariesRepository = (*PostgresSalariesRepository)(nil)

func scanSalary(row rowScanner) (*domain.Salary, error) {
	var (
		s            domain.Salary
		details      []byte
		calculatedBy sql.NullInt64
	)
	if err := row.Scan(
		&s.SalaryID, &s.UserID, &s.YearMonth, &s.TotalAmount,
		&s.DistancePay, &s.TimePay, &s.VitalPay,
		&s.TotalDistanceKm, &s.TotalMinutes, &s.TotalVitalCount,
		&details, &calculatedBy, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.CalculatedBy = int64Ptr(calculatedBy)
	s.CalculationDetails = []domain.SalaryShiftDetail{}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &s.CalculationDetails); err != nil {
			return nil, fmt.Errorf("failed to decode calculation_details: %w", err)
		}
	}
	return &s, nil
}

func marshalDetails(details []domain.SalaryShiftDetail) ([]byte, error) {
	if details == nil {
		details = []domain.SalaryShiftDetail{}
	}
	return json.Marshal(details)
}

// GetSalaryByUserAndMonth 根据自然键查询
func (r *PostgresSalariesRepository) GetSalaryByUserAndMonth(ctx context.Context, userID int64, yearMonth string) (*domain.Salary, error) {
	query := `SELECT ` + salaryColumns + ` FROM salaries WHERE user_id = $1 AND year_month = $2`
	s, err := scanSalary(r.db.QueryRowContext(ctx, query, userID, yearMonth))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("salary for user %d month %s: %w", userID, yearMonth, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get salary: %w", err)
	}
	return s, nil
}

// CreateSalary 插入工资记录；并发插入同一自然键时退化为更新
func (r *PostgresSalariesRepository) CreateSalary(ctx context.Context, s *domain.Salary) (*domain.Salary, error) {
	details, err := marshalDetails(s.CalculationDetails)
	if err != nil {
		return nil, fmt.Errorf("failed to encode calculation_details: %w", err)
	}
	query := `
		INSERT INTO salaries (
			user_id, year_month, total_amount,
			distance_pay, time_pay, vital_pay,
			total_distance_km, total_minutes, total_vital_count,
			calculation_details, calculated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, year_month) DO UPDATE SET
			total_amount = EXCLUDED.total_amount,
			distance_pay = EXCLUDED.distance_pay,
			time_pay = EXCLUDED.time_pay,
			vital_pay = EXCLUDED.vital_pay,
			total_distance_km = EXCLUDED.total_distance_km,
			total_minutes = EXCLUDED.total_minutes,
			total_vital_count = EXCLUDED.total_vital_count,
			calculation_details = EXCLUDED.calculation_details,
			calculated_by = EXCLUDED.calculated_by,
			updated_at = NOW()
		RETURNING ` + salaryColumns

	saved, err := scanSalary(r.db.QueryRowContext(ctx, query,
		s.UserID, s.YearMonth, s.TotalAmount,
		s.DistancePay, s.TimePay, s.VitalPay,
		s.TotalDistanceKm, s.TotalMinutes, s.TotalVitalCount,
		details, nullableInt64(s.CalculatedBy),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create salary: %w", err)
	}
	return saved, nil
}

// UpdateSalary 覆盖已有工资记录
func (r *PostgresSalariesRepository) UpdateSalary(ctx context.Context, s *domain.Salary) (*domain.Salary, error) {
	details, err := marshalDetails(s.CalculationDetails)
	if err != nil {
		return nil, fmt.Errorf("failed to encode calculation_details: %w", err)
	}
	query := `
		UPDATE salaries SET
			total_amount = $2,
			distance_pay = $3,
			time_pay = $4,
			vital_pay = $5,
			total_distance_km = $6,
			total_minutes = $7,
			total_vital_count = $8,
			calculation_details = $9,
			calculated_by = $10,
			updated_at = NOW()
		WHERE salary_id = $1
		RETURNING ` + salaryColumns

	saved, err := scanSalary(r.db.QueryRowContext(ctx, query,
		s.SalaryID, s.TotalAmount,
		s.DistancePay, s.TimePay, s.VitalPay,
		s.TotalDistanceKm, s.TotalMinutes, s.TotalVitalCount,
		details, nullableInt64(s.CalculatedBy),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("salary %d: %w", s.SalaryID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update salary: %w", err)
	}
	return saved, nil
}

// ListSalariesByMonth 某月全部工资记录（按用户排序）
func (r *PostgresSalariesRepository) ListSalariesByMonth(ctx context.Context, yearMonth string) ([]*domain.Salary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+salaryColumns+` FROM salaries WHERE year_month = $1 ORDER BY user_id ASC`,
		yearMonth,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query salaries: %w", err)
	}
	defer rows.Close()

	salaries := []*domain.Salary{}
	for rows.Next() {
		s, err := scanSalary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan salary: %w", err)
		}
		salaries = append(salaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate salaries: %w", err)
	}
	return salaries, nil
}
