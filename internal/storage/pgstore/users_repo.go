package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/BoaTracking/internal/models"
)

const userColumns = `id, name, email, password, role, reset_token, reset_token_expiry, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.ResetToken, &u.ResetTokenExpiry, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Storage) CreateUser(ctx context.Context, in models.UserCreateInput, at time.Time) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `
INSERT INTO users (name, email, password, role, created_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING `+userColumns, in.Name, in.Email, in.PasswordHash, in.Role, at.UTC()))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrap(models.ErrDuplicate, "insert user")
		}
		return nil, errors.Wrap(err, "insert user")
	}
	return u, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "select users")
	}
	defer rows.Close()

	out := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		out = append(out, u)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *Storage) GetUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token = $1`, token)
}

func (s *Storage) getUser(ctx context.Context, q string, arg any) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, q, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.Wrap(models.NotFound("user"), "select user")
		}
		return nil, errors.Wrap(err, "select user")
	}
	return u, nil
}

func (s *Storage) SetResetToken(ctx context.Context, userID uint64, token string, expiry time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET reset_token = $2, reset_token_expiry = $3 WHERE id = $1`, userID, token, expiry.UTC())
	if err != nil {
		return errors.Wrap(err, "set reset token")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(models.NotFound("user"), "set reset token")
	}
	return nil
}

func (s *Storage) ResetPassword(ctx context.Context, userID uint64, passwordHash string) error {
	tag, err := s.db.Exec(ctx, `
UPDATE users SET password = $2, reset_token = NULL, reset_token_expiry = NULL WHERE id = $1
`, userID, passwordHash)
	if err != nil {
		return errors.Wrap(err, "reset password")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(models.NotFound("user"), "reset password")
	}
	return nil
}
