package sqlitestore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/BearBump/BoaTracking/internal/models"
)

const maxTrackingAttempts = 5

func (s *Storage) CreatePreregistration(ctx context.Context, p *models.Preregistration) (uint64, error) {
	status := p.Status
	if status == "" {
		status = models.PreregistrationPending
	}
	row := &preregistrationRow{
		UserEmail:                     p.UserEmail,
		PreregistrationTrackingNumber: p.TrackingNumber,
		SenderName:                    p.SenderName,
		SenderPhone:                   p.SenderPhone,
		SenderAddress:                 p.SenderAddress,
		SenderEmail:                   p.SenderEmail,
		RecipientName:                 p.RecipientName,
		RecipientPhone:                p.RecipientPhone,
		RecipientAddress:              p.RecipientAddress,
		RecipientEmail:                p.RecipientEmail,
		Weight:                        p.Weight,
		CargoType:                     p.CargoType,
		OriginCity:                    p.OriginCity,
		DestinationCity:               p.DestinationCity,
		Description:                   p.Description,
		Priority:                      p.Priority,
		ShippingType:                  p.ShippingType,
		Cost:                          p.Cost,
		EstimatedDeliveryDate:         p.EstimatedDeliveryDate,
		Status:                        string(status),
		CreatedAt:                     p.CreatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return 0, errors.Wrap(err, "insert preregistration")
	}
	return row.ID, nil
}

func (s *Storage) ListPreregistrations(ctx context.Context, f models.PreregistrationFilter) ([]*models.Preregistration, error) {
	q := s.db.WithContext(ctx)
	if f.Search != "" {
		q = q.Where("preregistration_tracking_number LIKE ?", "%"+f.Search+"%")
	}
	switch f.Status {
	case models.PreregistrationApproved:
		q = q.Where("status = ?", string(models.PreregistrationApproved))
	case models.PreregistrationPending:
		q = q.Where("status <> ?", string(models.PreregistrationApproved))
	}
	return findPreregistrations(q)
}

func (s *Storage) ListPreregistrationsByEmail(ctx context.Context, email string) ([]*models.Preregistration, error) {
	return findPreregistrations(s.db.WithContext(ctx).Where("user_email = ?", email))
}

func findPreregistrations(q *gorm.DB) ([]*models.Preregistration, error) {
	var rows []preregistrationRow
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "select preregistrations")
	}
	out := make([]*models.Preregistration, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

func (s *Storage) GetPreregistration(ctx context.Context, id uint64) (*models.Preregistration, error) {
	row, err := findPreregistration(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func findPreregistration(db *gorm.DB, id uint64) (*preregistrationRow, error) {
	var row preregistrationRow
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, errors.Wrap(models.NotFound("preregistration"), "select preregistration")
		}
		return nil, errors.Wrap(err, "select preregistration")
	}
	return &row, nil
}

func (s *Storage) UpdatePreregistration(ctx context.Context, id uint64, upd models.PreregistrationUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findPreregistration(tx, id)
		if err != nil {
			return err
		}
		if models.PreregistrationStatus(row.Status) == models.PreregistrationApproved {
			return &models.TransitionError{Entity: "preregistration", From: row.Status, To: "edited"}
		}
		err = tx.Model(&preregistrationRow{}).Where("id = ?", id).UpdateColumns(map[string]any{
			"sender_name":     upd.SenderName,
			"sender_email":    upd.SenderEmail,
			"recipient_name":  upd.RecipientName,
			"recipient_email": upd.RecipientEmail,
			"weight":          upd.Weight,
			"cost":            upd.Cost,
		}).Error
		return errors.Wrap(err, "update preregistration")
	})
}

func (s *Storage) DeletePreregistration(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&preregistrationRow{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete preregistration")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(models.NotFound("preregistration"), "delete preregistration")
	}
	return nil
}

func (s *Storage) ApprovePreregistration(ctx context.Context, id uint64, newTrackingNumber func() string, at time.Time) (*models.PreregistrationApproval, error) {
	at = at.UTC()

	var out *models.PreregistrationApproval
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findPreregistration(tx, id)
		if err != nil {
			return err
		}
		pr := row.toModel()
		if err := models.CheckPreregistrationTransition(pr.Status, models.PreregistrationApproved); err != nil {
			return err
		}

		trackingNumber := ""
		for i := 0; i < maxTrackingAttempts; i++ {
			candidate := newTrackingNumber()
			var taken int64
			if err := tx.Model(&packageRow{}).Where("tracking_number = ?", candidate).Count(&taken).Error; err != nil {
				return errors.Wrap(err, "check tracking number")
			}
			if taken == 0 {
				trackingNumber = candidate
				break
			}
		}
		if trackingNumber == "" {
			return errors.Wrap(models.ErrDuplicate, "generate tracking number")
		}

		pkg, err := createPackage(tx, pr.PackageInput(trackingNumber), at)
		if err != nil {
			return err
		}

		err = tx.Model(&preregistrationRow{}).Where("id = ?", id).UpdateColumns(map[string]any{
			"status":                   string(models.PreregistrationApproved),
			"approved_at":              at,
			"approved_tracking_number": trackingNumber,
		}).Error
		if err != nil {
			return errors.Wrap(err, "update preregistration")
		}

		out = &models.PreregistrationApproval{
			PreregistrationID: id,
			TrackingNumber:    trackingNumber,
			PackageID:         pkg.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
