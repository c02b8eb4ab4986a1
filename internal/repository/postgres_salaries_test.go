package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
)

var salaryRowColumns = []string{
	"salary_id", "user_id", "year_month", "total_amount",
	"distance_pay", "time_pay", "vital_pay",
	"total_distance_km", "total_minutes", "total_vital_count",
	"calculation_details", "calculated_by", "created_at", "updated_at",
}

func TestCreateSalary_UpsertReturnsRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresSalariesRepository(db)

	now := time.Now()
	admin := int64(1)
	in := &domain.Salary{
		UserID: 7, YearMonth: "2025-06",
		TotalAmount: 1270, DistancePay: 500, TimePay: 70, VitalPay: 700,
		TotalDistanceKm: 10, TotalMinutes: 120, TotalVitalCount: 2,
		CalculationDetails: []domain.SalaryShiftDetail{{ShiftID: 11, ShiftDate: "2025-06-03", DistanceKm: 10, Minutes: 120, VitalCount: 2}},
		CalculatedBy:       &admin,
	}
	details := `[{"shift_id":11,"shift_date":"2025-06-03","facility_id":null,"distance_km":10,"minutes":120,"vital_count":2}]`

	mock.ExpectQuery(`INSERT INTO salaries .* ON CONFLICT \(user_id, year_month\) DO UPDATE`).
		WithArgs(int64(7), "2025-06", int64(1270), int64(500), int64(70), int64(700), 10.0, int64(120), int64(2), []byte(details), int64(1)).
		WillReturnRows(sqlmock.NewRows(salaryRowColumns).AddRow(
			int64(3), int64(7), "2025-06", int64(1270),
			int64(500), int64(70), int64(700),
			10.0, int64(120), int64(2),
			[]byte(details), int64(1), now, now,
		))

	out, err := repo.CreateSalary(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.SalaryID)
	require.Len(t, out.CalculationDetails, 1)
	assert.Equal(t, int64(11), out.CalculationDetails[0].ShiftID)
	assert.Equal(t, int64(120), out.CalculationDetails[0].Minutes)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSalaryByUserAndMonth_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresSalariesRepository(db)

	mock.ExpectQuery(`FROM salaries WHERE user_id = \$1 AND year_month = \$2`).
		WithArgs(int64(7), "2025-06").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetSalaryByUserAndMonth(context.Background(), 7, "2025-06")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateSalary_EmptyDetails(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresSalariesRepository(db)

	now := time.Now()
	mock.ExpectQuery(`UPDATE salaries SET`).
		WithArgs(int64(3), int64(0), int64(0), int64(0), int64(0), 0.0, int64(0), int64(0), []byte("[]"), nil).
		WillReturnRows(sqlmock.NewRows(salaryRowColumns).AddRow(
			int64(3), int64(7), "2025-07", int64(0),
			int64(0), int64(0), int64(0),
			0.0, int64(0), int64(0),
			nil, nil, now, now,
		))

	out, err := repo.UpdateSalary(context.Background(), &domain.Salary{SalaryID: 3, UserID: 7, YearMonth: "2025-07"})
	require.NoError(t, err)
	assert.NotNil(t, out.CalculationDetails)
	assert.Len(t, out.CalculationDetails, 0)
	assert.Nil(t, out.CalculatedBy)
}

func TestListSalariesByMonth(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresSalariesRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM salaries WHERE year_month = \$1 ORDER BY user_id`).
		WithArgs("2025-06").
		WillReturnRows(sqlmock.NewRows(salaryRowColumns).
			AddRow(int64(1), int64(7), "2025-06", int64(10), int64(0), int64(10), int64(0), 0.0, int64(17), int64(0), []byte("[]"), nil, now, now).
			AddRow(int64(2), int64(8), "2025-06", int64(20), int64(20), int64(0), int64(0), 0.4, int64(0), int64(0), []byte("[]"), nil, now, now))

	out, err := repo.ListSalariesByMonth(context.Background(), "2025-06")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(8), out[1].UserID)
}
