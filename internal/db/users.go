package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vendoralerts/internal/model"
)

const userColumns = `user_id, username, email, role, is_active, created_at`

// UsersByIDs looks up explicitly addressed users. Unknown ids are ignored.
func (s *Store) UsersByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE user_id IN (?) ORDER BY user_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	var users []model.User
	if err := s.selectAll(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

// ActiveUsersByRoles returns every active user holding any of roles.
func (s *Store) ActiveUsersByRoles(ctx context.Context, roles []string) ([]model.User, error) {
	if len(roles) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT `+userColumns+` FROM users
		WHERE role IN (?) AND is_active = ?
		ORDER BY user_id
	`, roles, true)
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	var users []model.User
	if err := s.selectAll(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get users by role: %w", err)
	}
	return users, nil
}

// CreateUser inserts a catalog user. Used for seeding and by tests; user
// administration is owned by the catalog API.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	now := s.now()
	err := s.get(ctx, &u.ID, `
		INSERT INTO users (username, email, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING user_id
	`, u.Username, u.Email, u.Role, u.IsActive, now, now)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", u.Username, err)
	}
	u.CreatedAt = now
	return nil
}
