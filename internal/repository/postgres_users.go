package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
)

type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

// GetUser 查询用户角色与位置
func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	var (
		u        domain.User
		position sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, role, position FROM users WHERE user_id = $1`,
		userID,
	).Scan(&u.UserID, &u.Role, &position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Position = stringPtr(position)
	return &u, nil
}
