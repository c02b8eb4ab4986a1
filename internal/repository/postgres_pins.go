package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
)

const pinColumns = `pin_id, user_id, pin, purpose, attendance_id, expires_at, used, created_at`

// PostgresPinRepository 一次性 PIN Repository 实现
type PostgresPinRepository struct {
	db *sql.DB
}

// NewPostgresPinRepository 创建 PIN Repository
func NewPostgresPinRepository(db *sql.DB) *PostgresPinRepository {
	return &PostgresPinRepository{db: db}
}

var _ PinRepository = (*PostgresPinRepository)(nil)

func scanPin(row rowScanner) (*domain.PinVerification, error) {
	var (
		p            domain.PinVerification
		purpose      string
		attendanceID sql.NullInt64
	)
	if err := row.Scan(&p.PinID, &p.UserID, &p.Pin, &purpose, &attendanceID, &p.ExpiresAt, &p.Used, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Purpose = domain.PinPurpose(purpose)
	p.AttendanceID = int64Ptr(attendanceID)
	return &p, nil
}

// CreatePin 保存新 PIN
func (r *PostgresPinRepository) CreatePin(ctx context.Context, p *domain.PinVerification) (*domain.PinVerification, error) {
	query := `
		INSERT INTO pin_verifications (user_id, pin, purpose, attendance_id, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + pinColumns

	created, err := scanPin(r.db.QueryRowContext(ctx, query,
		p.UserID, p.Pin, string(p.Purpose), nullableInt64(p.AttendanceID), p.ExpiresAt,
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("pin for user %d: %w", p.UserID, ErrForeignKey)
		}
		return nil, fmt.Errorf("failed to create pin: %w", err)
	}
	return created, nil
}

// ListActivePinsByCode 按 PIN 码查询有效记录
func (r *PostgresPinRepository) ListActivePinsByCode(ctx context.Context, code string, now time.Time) ([]*domain.PinVerification, error) {
	query := `
		SELECT ` + pinColumns + `
		FROM pin_verifications
		WHERE pin = $1
		  AND used = FALSE
		  AND expires_at > $2
		ORDER BY created_at DESC, pin_id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, code, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query pins: %w", err)
	}
	defer rows.Close()

	var pins []*domain.PinVerification
	for rows.Next() {
		p, err := scanPin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pin: %w", err)
		}
		pins = append(pins, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pins: %w", err)
	}
	return pins, nil
}

// MarkPinAsUsed 标记为已使用（仅当尚未使用）
func (r *PostgresPinRepository) MarkPinAsUsed(ctx context.Context, pinID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pin_verifications SET used = TRUE, used_at = NOW() WHERE pin_id = $1 AND used = FALSE`,
		pinID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark pin as used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark pin as used: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("pin %d already used: %w", pinID, ErrNotFound)
	}
	return nil
}

// DeleteStalePins 清理已使用或已过期的 PIN
func (r *PostgresPinRepository) DeleteStalePins(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM pin_verifications WHERE used = TRUE OR expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale pins: %w", err)
	}
	return res.RowsAffected()
}
