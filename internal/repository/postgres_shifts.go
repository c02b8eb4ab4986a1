package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
)

const shiftColumns = `shift_id, user_id, facility_id, start_datetime, end_datetime,
		required_time, distance_km, service_route, shift_period`

// PostgresShiftsRepository 班次 Repository 实现
type PostgresShiftsRepository struct {
	db *sql.DB
}

// NewPostgresShiftsRepository 创建班次 Repository
func NewPostgresShiftsRepository(db *sql.DB) *PostgresShiftsRepository {
	return &PostgresShiftsRepository{db: db}
}

var _ ShiftsRepository = (*PostgresShiftsRepository)(nil)

func scanShift(row rowScanner) (*domain.Shift, error) {
	var (
		s            domain.Shift
		userID       sql.NullInt64
		facilityID   sql.NullInt64
		endDatetime  sql.NullTime
		requiredTime sql.NullInt64
		distanceKm   sql.NullFloat64
		serviceRoute sql.NullString
		shiftPeriod  sql.NullString
	)
	if err := row.Scan(
		&s.ShiftID, &userID, &facilityID, &s.StartDatetime, &endDatetime,
		&requiredTime, &distanceKm, &serviceRoute, &shiftPeriod,
	); err != nil {
		return nil, err
	}
	s.UserID = int64Ptr(userID)
	s.FacilityID = int64Ptr(facilityID)
	s.EndDatetime = timePtr(endDatetime)
	s.RequiredTime = intPtr(requiredTime)
	s.DistanceKm = float64Ptr(distanceKm)
	s.ServiceRoute = stringPtr(serviceRoute)
	s.ShiftPeriod = stringPtr(shiftPeriod)
	return &s, nil
}

// GetShift 根据 ID 查询班次
func (r *PostgresShiftsRepository) GetShift(ctx context.Context, shiftID int64) (*domain.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE shift_id = $1`
	s, err := scanShift(r.db.QueryRowContext(ctx, query, shiftID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("shift %d: %w", shiftID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}
	return s, nil
}

// ListShiftsByUser 查询用户在 [from, to) 内开始的班次
func (r *PostgresShiftsRepository) ListShiftsByUser(ctx context.Context, userID int64, from, to time.Time) ([]*domain.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE user_id = $1
		  AND start_datetime >= $2
		  AND start_datetime < $3
		ORDER BY start_datetime ASC, shift_id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	shifts := []*domain.Shift{}
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shifts: %w", err)
	}
	return shifts, nil
}
