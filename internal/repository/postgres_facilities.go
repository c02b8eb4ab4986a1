package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
)

// PostgresFacilitiesRepository 设施/入住者 Repository 实现
type PostgresFacilitiesRepository struct {
	db *sql.DB
}

func NewPostgresFacilitiesRepository(db *sql.DB) *PostgresFacilitiesRepository {
	return &PostgresFacilitiesRepository{db: db}
}

var _ FacilitiesRepository = (*PostgresFacilitiesRepository)(nil)

// GetFacility 查询设施
func (r *PostgresFacilitiesRepository) GetFacility(ctx context.Context, facilityID int64) (*domain.Facility, error) {
	var (
		f        domain.Facility
		lat, lng sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT facility_id, name, lat, lng FROM facilities WHERE facility_id = $1`,
		facilityID,
	).Scan(&f.FacilityID, &f.Name, &lat, &lng)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("facility %d: %w", facilityID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get facility: %w", err)
	}
	f.Lat = float64Ptr(lat)
	f.Lng = float64Ptr(lng)
	return &f, nil
}

// ListEligibleResidentIDs 查询设施内参与统计的入住者
func (r *PostgresFacilitiesRepository) ListEligibleResidentIDs(ctx context.Context, facilityID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT resident_id FROM residents WHERE facility_id = $1 AND is_excluded = FALSE ORDER BY resident_id`,
		facilityID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query residents: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan resident: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
