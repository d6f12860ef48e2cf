package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"pharmapos/m/domain"
)

// CreateUser inserts a staff member. Password must already be hashed.
func (s *Store) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	err := s.db.QueryRowxContext(ctx, s.q(`INSERT INTO users (username, email, password, role) VALUES (?, ?, ?, ?) RETURNING id`),
		u.Username, u.Email, u.Password, u.Role).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, fail(ErrConflict, "email already exists")
		}
		return domain.User{}, errors.Wrap(err, "insert user")
	}
	return u, nil
}

// UserByEmail loads a user including the password hash.
func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT id, username, email, password, role, created_at FROM users WHERE email = ?`),
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return domain.User{}, notFound(err, "user %s", email)
	}
	return u, nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE users SET password = ? WHERE id = ?`), hash, userID)
	if err != nil {
		return errors.Wrap(err, "update password")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fail(ErrNotFound, "user %d not found", userID)
	}
	return nil
}
