package sqlitestore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/BearBump/BoaTracking/internal/models"
)

func (s *Storage) CreateReturnRequest(ctx context.Context, in models.ReturnRequestInput, at time.Time) (uint64, error) {
	row := &returnRequestRow{
		UserEmail:             in.UserEmail,
		PackageTrackingNumber: in.TrackingNumber,
		FirstName:             in.FirstName,
		LastName:              in.LastName,
		Reason:                in.Reason,
		Status:                string(models.ReturnPending),
		CreatedAt:             at.UTC(),
		UpdatedAt:             at.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return 0, errors.Wrap(err, "insert return request")
	}
	return row.ID, nil
}

func (s *Storage) ListReturnRequests(ctx context.Context, status models.ReturnStatus) ([]*models.ReturnRequest, error) {
	q := s.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	return findReturnRequests(q)
}

func (s *Storage) ListReturnRequestsByEmail(ctx context.Context, email string) ([]*models.ReturnRequest, error) {
	return findReturnRequests(s.db.WithContext(ctx).Where("user_email = ?", email))
}

func findReturnRequests(q *gorm.DB) ([]*models.ReturnRequest, error) {
	var rows []returnRequestRow
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "select return requests")
	}
	out := make([]*models.ReturnRequest, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

func (s *Storage) ListReturns(ctx context.Context) ([]*models.Return, error) {
	var rows []returnRow
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "select returns")
	}
	out := make([]*models.Return, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

func findReturnRequest(db *gorm.DB, id uint64) (*returnRequestRow, error) {
	var row returnRequestRow
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, errors.Wrap(models.NotFound("return request"), "select return request")
		}
		return nil, errors.Wrap(err, "select return request")
	}
	return &row, nil
}

// ApproveReturnRequest archives the package, removes it with its events and
// closes the request in one transaction.
func (s *Storage) ApproveReturnRequest(ctx context.Context, id uint64, returnTrackingNumber string, at time.Time) (*models.Return, error) {
	at = at.UTC()

	var out *models.Return
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := findReturnRequest(tx, id)
		if err != nil {
			return err
		}
		if err := models.CheckReturnTransition(models.ReturnStatus(req.Status), models.ReturnApproved); err != nil {
			return err
		}

		pkg, err := findPackage(tx, "tracking_number = ?", req.PackageTrackingNumber)
		if err != nil {
			return err
		}

		ret := &returnRow{
			OriginalTrackingNumber: pkg.TrackingNumber,
			ReturnTrackingNumber:   returnTrackingNumber,
			Description:            pkg.Description,
			SenderName:             pkg.SenderName,
			RecipientName:          pkg.RecipientName,
			Origin:                 pkg.Origin,
			Destination:            pkg.Destination,
			Weight:                 pkg.Weight,
			Cost:                   pkg.Cost,
			CreatedAt:              at,
		}
		if err := tx.Create(ret).Error; err != nil {
			return errors.Wrap(err, "insert return")
		}

		if err := tx.Where("package_id = ?", pkg.ID).Delete(&trackingEventRow{}).Error; err != nil {
			return errors.Wrap(err, "delete events")
		}
		if err := tx.Delete(&packageRow{}, pkg.ID).Error; err != nil {
			return errors.Wrap(err, "delete package")
		}

		err = tx.Model(&returnRequestRow{}).Where("id = ?", id).UpdateColumns(map[string]any{
			"status":                 string(models.ReturnApproved),
			"return_tracking_number": returnTrackingNumber,
			"updated_at":             at,
		}).Error
		if err != nil {
			return errors.Wrap(err, "update return request")
		}
		out = ret.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Storage) RejectReturnRequest(ctx context.Context, id uint64, comment string, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := findReturnRequest(tx, id)
		if err != nil {
			return err
		}
		if err := models.CheckReturnTransition(models.ReturnStatus(req.Status), models.ReturnRejected); err != nil {
			return err
		}
		err = tx.Model(&returnRequestRow{}).Where("id = ?", id).UpdateColumns(map[string]any{
			"status":            string(models.ReturnRejected),
			"rejection_comment": comment,
			"updated_at":        at.UTC(),
		}).Error
		return errors.Wrap(err, "update return request")
	})
}
