package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/crossing.space/internal/auth/storage"
	"github.com/louisbranch/crossing.space/internal/auth/user"
)

// CreateUser inserts a user record and returns it with the assigned ID.
func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}
	if err := s.ensureDB(); err != nil {
		return user.User{}, err
	}
	if strings.TrimSpace(u.Email) == "" {
		return user.User{}, fmt.Errorf("email is required")
	}

	result, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (email, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		u.Email, u.DisplayName, toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	if err != nil {
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return user.User{}, fmt.Errorf("resolve user id: %w", err)
	}
	u.ID = id
	return u, nil
}

// GetUser resolves an owner identity by ID.
func (s *Store) GetUser(ctx context.Context, userID int64) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}
	if err := s.ensureDB(); err != nil {
		return user.User{}, err
	}
	if userID <= 0 {
		return user.User{}, fmt.Errorf("user id is required")
	}

	return s.scanUser(s.sqlDB.QueryRowContext(ctx,
		`SELECT id, email, display_name, created_at, updated_at
		FROM users WHERE id = ?`, userID,
	))
}

// GetUserByEmail resolves an owner identity by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}
	if err := s.ensureDB(); err != nil {
		return user.User{}, err
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return user.User{}, fmt.Errorf("email is required")
	}

	return s.scanUser(s.sqlDB.QueryRowContext(ctx,
		`SELECT id, email, display_name, created_at, updated_at
		FROM users WHERE email = ?`, normalized,
	))
}

func (s *Store) scanUser(row *sql.Row) (user.User, error) {
	var u user.User
	var createdAt, updatedAt int64
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}
