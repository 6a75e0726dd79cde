package repo

import (
	"context"

	"woovideo/internal/domain"
	"woovideo/internal/infra"
	"woovideo/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// GetByID fetches a user by identifier.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectUserByID, id)
	var user domain.User
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PointsBalance, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GrantPoints adds amount (may be negative) to the balance, never going below zero.
func (r *UserRepositoryPG) GrantPoints(ctx context.Context, id int64, amount int64) (int64, error) {
	var balance int64
	if err := r.sql.QueryRow(ctx, sqlinline.QGrantUserPoints, id, amount).Scan(&balance); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
