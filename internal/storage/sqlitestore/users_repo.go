package sqlitestore

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/BoaTracking/internal/models"
)

func (s *Storage) CreateUser(ctx context.Context, in models.UserCreateInput, at time.Time) (*models.User, error) {
	row := &userRow{
		Name:      in.Name,
		Email:     in.Email,
		Password:  in.PasswordHash,
		Role:      in.Role,
		CreatedAt: at.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrap(models.ErrDuplicate, "insert user")
		}
		return nil, errors.Wrap(err, "insert user")
	}
	return row.toModel(), nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "select users")
	}
	out := make([]*models.User, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

func (s *Storage) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

func (s *Storage) GetUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	return s.getUser(ctx, "reset_token = ?", token)
}

func (s *Storage) getUser(ctx context.Context, cond string, arg any) (*models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where(cond, arg).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, errors.Wrap(models.NotFound("user"), "select user")
		}
		return nil, errors.Wrap(err, "select user")
	}
	return row.toModel(), nil
}

func (s *Storage) SetResetToken(ctx context.Context, userID uint64, token string, expiry time.Time) error {
	res := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", userID).UpdateColumns(map[string]any{
		"reset_token":        token,
		"reset_token_expiry": expiry.UTC(),
	})
	if res.Error != nil {
		return errors.Wrap(res.Error, "set reset token")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(models.NotFound("user"), "set reset token")
	}
	return nil
}

func (s *Storage) ResetPassword(ctx context.Context, userID uint64, passwordHash string) error {
	res := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", userID).UpdateColumns(map[string]any{
		"password":           passwordHash,
		"reset_token":        nil,
		"reset_token_expiry": nil,
	})
	if res.Error != nil {
		return errors.Wrap(res.Error, "reset password")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(models.NotFound("user"), "reset password")
	}
	return nil
}
