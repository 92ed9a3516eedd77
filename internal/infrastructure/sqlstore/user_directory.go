package sqlstore

import (
	"context"
	"database/sql"

	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"
	"auction-engine/pkg/utils"

	"github.com/pkg/errors"
)

var _ repositories.UserDirectory = (*UserDirectory)(nil)

// UserDirectory reads the identity service's users table. It never writes.
type UserDirectory struct {
	conn
}

func NewUserDirectory(db *sql.DB, dialect Dialect, retry utils.RetryPolicy) *UserDirectory {
	return &UserDirectory{conn: conn{db: db, dialect: dialect, retry: retry}}
}

func (d *UserDirectory) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	var role string
	err := d.do(ctx, "get user", func() error {
		return d.db.QueryRowContext(ctx, d.q(`SELECT id, name, email, role FROM users WHERE id = ?`), userID).
			Scan(&user.ID, &user.Name, &user.Email, &role)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(domain.ErrNotFound, "user %s", userID)
	}
	if err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	return &user, nil
}
