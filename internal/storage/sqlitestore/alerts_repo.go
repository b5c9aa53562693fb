package sqlitestore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/BearBump/BoaTracking/internal/models"
)

func (s *Storage) CreateAlert(ctx context.Context, a *models.Alert) (*models.Alert, error) {
	status := a.Status
	if status == "" {
		status = models.AlertStatusActive
	}
	row := &alertRow{
		UserEmail:       a.UserEmail,
		PackageTracking: a.PackageTracking,
		AlertType:       a.AlertType,
		Title:           a.Title,
		Description:     a.Description,
		Severity:        string(a.Severity),
		Status:          string(status),
		SMSEnabled:      a.SMSEnabled,
		EmailEnabled:    a.EmailEnabled,
		PushEnabled:     a.PushEnabled,
		CreatedAt:       a.CreatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrap(models.ErrDuplicate, "insert alert")
		}
		return nil, errors.Wrap(err, "insert alert")
	}
	return row.toModel(), nil
}

func (s *Storage) ListAlerts(ctx context.Context, f models.AlertFilter) ([]*models.Alert, error) {
	db := s.db.WithContext(ctx)
	q := db.Model(&alertRow{})
	if f.UserEmail != "" {
		q = q.Where("user_email = ?", f.UserEmail)
	}
	if f.AlertType != "" {
		q = q.Where("alert_type = ?", f.AlertType)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}

	var rows []alertRow
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "select alerts")
	}

	tracking := make([]string, 0, len(rows))
	for i := range rows {
		tracking = append(tracking, rows[i].PackageTracking)
	}
	desc, err := packageDescriptions(db, tracking)
	if err != nil {
		return nil, errors.Wrap(err, "select alerts")
	}

	out := make([]*models.Alert, 0, len(rows))
	for i := range rows {
		a := rows[i].toModel()
		if d, ok := desc[a.PackageTracking]; ok {
			a.PackageDescription = &d
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Storage) GetAlert(ctx context.Context, id uint64) (*models.Alert, error) {
	row, err := findAlert(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func findAlert(db *gorm.DB, id uint64) (*alertRow, error) {
	var row alertRow
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, errors.Wrap(models.NotFound("alert"), "select alert")
		}
		return nil, errors.Wrap(err, "select alert")
	}
	return &row, nil
}

func (s *Storage) LatestAlert(ctx context.Context, trackingNumber, alertType string) (*models.Alert, error) {
	var row alertRow
	err := s.db.WithContext(ctx).
		Where("package_tracking = ? AND alert_type = ?", trackingNumber, alertType).
		Order("created_at DESC, id DESC").
		Limit(1).
		Take(&row).Error
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Wrap(models.NotFound("alert"), "select latest alert")
		}
		return nil, errors.Wrap(err, "select latest alert")
	}
	return row.toModel(), nil
}

func (s *Storage) UpdateAlertChannels(ctx context.Context, id uint64, ch models.AlertChannels) error {
	res := s.db.WithContext(ctx).Model(&alertRow{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"sms_enabled":   ch.SMS,
		"email_enabled": ch.Email,
		"push_enabled":  ch.Push,
	})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update alert channels")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(models.NotFound("alert"), "update alert channels")
	}
	return nil
}

func (s *Storage) SetAlertStatus(ctx context.Context, id uint64, to models.AlertStatus, at time.Time) (*models.Alert, error) {
	var out *models.Alert
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findAlert(tx, id)
		if err != nil {
			return err
		}
		if err := models.CheckAlertTransition(models.AlertStatus(row.Status), to); err != nil {
			return err
		}

		var solvedAt *time.Time
		if to == models.AlertStatusSolved {
			t := at.UTC()
			solvedAt = &t
		}
		err = tx.Model(&alertRow{}).Where("id = ?", id).UpdateColumns(map[string]any{
			"status":    string(to),
			"solved_at": solvedAt,
		}).Error
		if err != nil {
			if isUniqueViolation(err) {
				return errors.Wrap(models.ErrDuplicate, "update alert status")
			}
			return errors.Wrap(err, "update alert status")
		}
		row.Status = string(to)
		row.SolvedAt = solvedAt
		out = row.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Storage) DeleteAlert(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&alertRow{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete alert")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(models.NotFound("alert"), "delete alert")
	}
	return nil
}

// packageDescriptions maps tracking numbers to the description of the
// package that still carries them. Returned packages are absent.
func packageDescriptions(db *gorm.DB, tracking []string) (map[string]string, error) {
	out := make(map[string]string, len(tracking))
	if len(tracking) == 0 {
		return out, nil
	}
	var rows []struct {
		TrackingNumber string
		Description    *string
	}
	err := db.Model(&packageRow{}).
		Select("tracking_number, description").
		Where("tracking_number IN ?", tracking).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "select package descriptions")
	}
	for _, r := range rows {
		if r.Description != nil {
			out[r.TrackingNumber] = *r.Description
		}
	}
	return out, nil
}
