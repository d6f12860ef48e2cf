package seed

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pharmapos/m/domain"
	"pharmapos/m/internal/store"
)

// EnsureAdmin creates the administrator account when both credentials are
// configured and no user owns the e-mail yet.
func EnsureAdmin(ctx context.Context, st *store.Store, email, password string, logger *zap.Logger) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil
	}
	if _, err := st.UserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}
	username := email
	if at := strings.Index(email, "@"); at > 0 {
		username = email[:at]
	}
	u, err := st.CreateUser(ctx, domain.User{Username: username, Email: email, Password: string(hash), Role: domain.RoleAdmin})
	if err != nil {
		return err
	}
	logger.Info("created administrator account", zap.Int64("user_id", u.ID), zap.String("email", u.Email))
	return nil
}
