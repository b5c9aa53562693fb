package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/BoaTracking/internal/models"
)

const returnRequestColumns = `
  id, user_email, package_tracking_number, first_name, last_name, reason,
  status, rejection_comment, return_tracking_number, created_at, updated_at`

func scanReturnRequest(row pgx.Row) (*models.ReturnRequest, error) {
	var r models.ReturnRequest
	err := row.Scan(
		&r.ID, &r.UserEmail, &r.PackageTrackingNumber, &r.FirstName, &r.LastName, &r.Reason,
		&r.Status, &r.RejectionComment, &r.ReturnTrackingNumber, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Storage) CreateReturnRequest(ctx context.Context, in models.ReturnRequestInput, at time.Time) (uint64, error) {
	var id uint64
	err := s.db.QueryRow(ctx, `
INSERT INTO return_requests (user_email, package_tracking_number, first_name, last_name, reason, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
RETURNING id
`, in.UserEmail, in.TrackingNumber, in.FirstName, in.LastName, in.Reason, models.ReturnPending, at.UTC()).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "insert return request")
	}
	return id, nil
}

func (s *Storage) ListReturnRequests(ctx context.Context, status models.ReturnStatus) ([]*models.ReturnRequest, error) {
	if status == "" {
		return s.queryReturnRequests(ctx, `SELECT`+returnRequestColumns+` FROM return_requests ORDER BY created_at DESC, id DESC`)
	}
	return s.queryReturnRequests(ctx, `SELECT`+returnRequestColumns+` FROM return_requests WHERE status = $1 ORDER BY created_at DESC, id DESC`, status)
}

func (s *Storage) ListReturnRequestsByEmail(ctx context.Context, email string) ([]*models.ReturnRequest, error) {
	return s.queryReturnRequests(ctx, `SELECT`+returnRequestColumns+` FROM return_requests WHERE user_email = $1 ORDER BY created_at DESC, id DESC`, email)
}

func (s *Storage) queryReturnRequests(ctx context.Context, q string, args ...any) ([]*models.ReturnRequest, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select return requests")
	}
	defer rows.Close()

	out := make([]*models.ReturnRequest, 0)
	for rows.Next() {
		r, err := scanReturnRequest(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan return request")
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) ListReturns(ctx context.Context) ([]*models.Return, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, original_tracking_number, return_tracking_number, description, sender_name, recipient_name,
       origin, destination, weight, cost, created_at
FROM returns
ORDER BY created_at DESC, id DESC
`)
	if err != nil {
		return nil, errors.Wrap(err, "select returns")
	}
	defer rows.Close()

	out := make([]*models.Return, 0)
	for rows.Next() {
		var r models.Return
		if err := rows.Scan(
			&r.ID, &r.OriginalTrackingNumber, &r.ReturnTrackingNumber, &r.Description, &r.SenderName, &r.RecipientName,
			&r.Origin, &r.Destination, &r.Weight, &r.Cost, &r.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan return")
		}
		out = append(out, &r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// ApproveReturnRequest archives the package, deletes it (events cascade) and
// closes the request, all in one transaction.
func (s *Storage) ApproveReturnRequest(ctx context.Context, id uint64, returnTrackingNumber string, at time.Time) (*models.Return, error) {
	at = at.UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := scanReturnRequest(tx.QueryRow(ctx, `SELECT`+returnRequestColumns+` FROM return_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.Wrap(models.NotFound("return request"), "lock return request")
		}
		return nil, errors.Wrap(err, "lock return request")
	}
	if err := models.CheckReturnTransition(req.Status, models.ReturnApproved); err != nil {
		return nil, err
	}

	pkg, err := scanPackage(tx.QueryRow(ctx, `SELECT`+packageColumns+` FROM packages p WHERE p.tracking_number = $1 FOR UPDATE`, req.PackageTrackingNumber))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.Wrap(models.NotFound("package"), "lock package")
		}
		return nil, errors.Wrap(err, "lock package")
	}

	ret := &models.Return{
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
	err = tx.QueryRow(ctx, `
INSERT INTO returns (
  original_tracking_number, return_tracking_number, description, sender_name, recipient_name,
  origin, destination, weight, cost, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id
`, ret.OriginalTrackingNumber, ret.ReturnTrackingNumber, ret.Description, ret.SenderName, ret.RecipientName,
		ret.Origin, ret.Destination, ret.Weight, ret.Cost, ret.CreatedAt).Scan(&ret.ID)
	if err != nil {
		return nil, errors.Wrap(err, "insert return")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM packages WHERE id = $1`, pkg.ID); err != nil {
		return nil, errors.Wrap(err, "delete package")
	}

	_, err = tx.Exec(ctx, `
UPDATE return_requests SET status = $2, return_tracking_number = $3, updated_at = $4 WHERE id = $1
`, id, models.ReturnApproved, returnTrackingNumber, at)
	if err != nil {
		return nil, errors.Wrap(err, "update return request")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return ret, nil
}

func (s *Storage) RejectReturnRequest(ctx context.Context, id uint64, comment string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status models.ReturnStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM return_requests WHERE id = $1 FOR UPDATE`, id).Scan(&status); err != nil {
		if isNoRows(err) {
			return errors.Wrap(models.NotFound("return request"), "lock return request")
		}
		return errors.Wrap(err, "lock return request")
	}
	if err := models.CheckReturnTransition(status, models.ReturnRejected); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `UPDATE return_requests SET status = $2, rejection_comment = $3, updated_at = $4 WHERE id = $1`,
		id, models.ReturnRejected, comment, at.UTC())
	if err != nil {
		return errors.Wrap(err, "update return request")
	}
	return errors.Wrap(tx.Commit(ctx), "commit tx")
}
