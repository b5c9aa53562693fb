package sqlitestore

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/BoaTracking/internal/models"
)

func (s *Storage) CreateClaim(ctx context.Context, in models.ClaimInput, at time.Time) (uint64, error) {
	row := &claimRow{
		TrackingNumber: in.TrackingNumber,
		Name:           in.Name,
		Email:          in.Email,
		ClaimType:      in.ClaimType,
		Description:    in.Description,
		Status:         models.ClaimStatusPending,
		CreatedAt:      at.UTC(),
		UpdatedAt:      at.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return 0, errors.Wrap(err, "insert claim")
	}
	return row.ID, nil
}

func (s *Storage) ListClaims(ctx context.Context, f models.ClaimFilter) ([]*models.Claim, error) {
	db := s.db.WithContext(ctx)
	q := db.Model(&claimRow{})
	if f.Email != "" {
		q = q.Where("email = ?", f.Email)
	}
	if f.ClaimType != "" {
		q = q.Where("claim_type = ?", f.ClaimType)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var rows []claimRow
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "select claims")
	}

	tracking := make([]string, 0, len(rows))
	for _, r := range rows {
		tracking = append(tracking, r.TrackingNumber)
	}
	desc, err := packageDescriptions(db, tracking)
	if err != nil {
		return nil, errors.Wrap(err, "select claims")
	}

	out := make([]*models.Claim, 0, len(rows))
	for _, r := range rows {
		c := &models.Claim{
			ID:             r.ID,
			TrackingNumber: r.TrackingNumber,
			Name:           r.Name,
			Email:          r.Email,
			ClaimType:      r.ClaimType,
			Description:    r.Description,
			Status:         r.Status,
			Response:       r.Response,
			ResponseBy:     r.ResponseBy,
			CreatedAt:      r.CreatedAt.UTC(),
			UpdatedAt:      r.UpdatedAt.UTC(),
		}
		if d, ok := desc[r.TrackingNumber]; ok {
			c.PackageDescription = &d
		}
		if r.RespondedAt != nil {
			t := r.RespondedAt.UTC()
			c.RespondedAt = &t
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Storage) RespondClaim(ctx context.Context, id uint64, response, respondedBy string, at time.Time) error {
	at = at.UTC()
	res := s.db.WithContext(ctx).Model(&claimRow{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"response":     response,
		"response_by":  respondedBy,
		"responded_at": at,
		"status":       models.ClaimStatusResponded,
		"updated_at":   at,
	})
	if res.Error != nil {
		return errors.Wrap(res.Error, "respond claim")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(models.NotFound("claim"), "respond claim")
	}
	return nil
}

func (s *Storage) SetClaimStatus(ctx context.Context, id uint64, status string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&claimRow{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"status":     status,
		"updated_at": at.UTC(),
	})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update claim status")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(models.NotFound("claim"), "update claim status")
	}
	return nil
}
