package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type PostgresVitalsRepository struct {
	db *sql.DB
}

func NewPostgresVitalsRepository(db *sql.DB) *PostgresVitalsRepository {
	return &PostgresVitalsRepository{db: db}
}

var _ VitalsRepository = (*PostgresVitalsRepository)(nil)

// CountVitals 统计指定入住者在时间窗口内的生命体征记录数
func (r *PostgresVitalsRepository) CountVitals(ctx context.Context, residentIDs []int64, from, to time.Time) (int64, error) {
	if len(residentIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM vitals
		WHERE resident_id = ANY($1)
		  AND measured_at >= $2
		  AND measured_at < $3
	`, pq.Array(residentIDs), from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count vitals: %w", err)
	}
	return n, nil
}
