package pgstore

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/BoaTracking/internal/models"
)

func (s *Storage) CreateClaim(ctx context.Context, in models.ClaimInput, at time.Time) (uint64, error) {
	var id uint64
	err := s.db.QueryRow(ctx, `
INSERT INTO claims (tracking_number, name, email, claim_type, description, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
RETURNING id
`, in.TrackingNumber, in.Name, in.Email, in.ClaimType, in.Description, models.ClaimStatusPending, at.UTC()).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "insert claim")
	}
	return id, nil
}

func (s *Storage) ListClaims(ctx context.Context, f models.ClaimFilter) ([]*models.Claim, error) {
	var (
		conds []string
		args  []any
	)
	add := func(col string, v string) {
		args = append(args, v)
		conds = append(conds, col+" = $"+strconv.Itoa(len(args)))
	}
	if f.Email != "" {
		add("c.email", f.Email)
	}
	if f.ClaimType != "" {
		add("c.claim_type", f.ClaimType)
	}
	if f.Status != "" {
		add("c.status", f.Status)
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := s.db.Query(ctx, `
SELECT c.id, c.tracking_number, c.name, c.email, c.claim_type, c.description, c.status,
       c.response, c.response_by, c.responded_at, c.created_at, c.updated_at, p.description
FROM claims c
LEFT JOIN packages p ON p.tracking_number = c.tracking_number
`+where+`
ORDER BY c.created_at DESC, c.id DESC
`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select claims")
	}
	defer rows.Close()

	out := make([]*models.Claim, 0)
	for rows.Next() {
		var c models.Claim
		if err := rows.Scan(
			&c.ID, &c.TrackingNumber, &c.Name, &c.Email, &c.ClaimType, &c.Description, &c.Status,
			&c.Response, &c.ResponseBy, &c.RespondedAt, &c.CreatedAt, &c.UpdatedAt, &c.PackageDescription,
		); err != nil {
			return nil, errors.Wrap(err, "scan claim")
		}
		out = append(out, &c)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) RespondClaim(ctx context.Context, id uint64, response, respondedBy string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
UPDATE claims
SET response = $2, response_by = $3, responded_at = $4, status = $5, updated_at = $4
WHERE id = $1
`, id, response, respondedBy, at.UTC(), models.ClaimStatusResponded)
	if err != nil {
		return errors.Wrap(err, "respond claim")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(models.NotFound("claim"), "respond claim")
	}
	return nil
}

func (s *Storage) SetClaimStatus(ctx context.Context, id uint64, status string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE claims SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at.UTC())
	if err != nil {
		return errors.Wrap(err, "update claim status")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(models.NotFound("claim"), "update claim status")
	}
	return nil
}
