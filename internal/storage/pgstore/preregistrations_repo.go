package pgstore

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/BoaTracking/internal/models"
)

// maxTrackingAttempts bounds the retries on a generated tracking number collision.
const maxTrackingAttempts = 5

const preregistrationColumns = `
  id, user_email, preregistration_tracking_number,
  sender_name, sender_phone, sender_address, sender_email,
  recipient_name, recipient_phone, recipient_address, recipient_email,
  weight, cargo_type, origin_city, destination_city, description, priority, shipping_type,
  cost, estimated_delivery_date, status, approved_at, approved_tracking_number, created_at`

func scanPreregistration(row pgx.Row) (*models.Preregistration, error) {
	var p models.Preregistration
	err := row.Scan(
		&p.ID, &p.UserEmail, &p.TrackingNumber,
		&p.SenderName, &p.SenderPhone, &p.SenderAddress, &p.SenderEmail,
		&p.RecipientName, &p.RecipientPhone, &p.RecipientAddress, &p.RecipientEmail,
		&p.Weight, &p.CargoType, &p.OriginCity, &p.DestinationCity, &p.Description, &p.Priority, &p.ShippingType,
		&p.Cost, &p.EstimatedDeliveryDate, &p.Status, &p.ApprovedAt, &p.ApprovedTrackingNumber, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Storage) CreatePreregistration(ctx context.Context, p *models.Preregistration) (uint64, error) {
	if p.Status == "" {
		p.Status = models.PreregistrationPending
	}
	var id uint64
	err := s.db.QueryRow(ctx, `
INSERT INTO preregistrations (
  user_email, preregistration_tracking_number,
  sender_name, sender_phone, sender_address, sender_email,
  recipient_name, recipient_phone, recipient_address, recipient_email,
  weight, cargo_type, origin_city, destination_city, description, priority, shipping_type,
  cost, estimated_delivery_date, status, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
RETURNING id
`,
		p.UserEmail, p.TrackingNumber,
		p.SenderName, p.SenderPhone, p.SenderAddress, p.SenderEmail,
		p.RecipientName, p.RecipientPhone, p.RecipientAddress, p.RecipientEmail,
		p.Weight, p.CargoType, p.OriginCity, p.DestinationCity, p.Description, p.Priority, p.ShippingType,
		p.Cost, p.EstimatedDeliveryDate, p.Status, p.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "insert preregistration")
	}
	return id, nil
}

func (s *Storage) ListPreregistrations(ctx context.Context, f models.PreregistrationFilter) ([]*models.Preregistration, error) {
	var (
		conds []string
		args  []any
	)
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, "preregistration_tracking_number LIKE $"+strconv.Itoa(len(args)))
	}
	switch f.Status {
	case models.PreregistrationApproved:
		conds = append(conds, "status = 'Aprobado'")
	case models.PreregistrationPending:
		conds = append(conds, "status <> 'Aprobado'")
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	return s.queryPreregistrations(ctx, `SELECT`+preregistrationColumns+` FROM preregistrations `+where+` ORDER BY created_at DESC, id DESC`, args...)
}

func (s *Storage) ListPreregistrationsByEmail(ctx context.Context, email string) ([]*models.Preregistration, error) {
	return s.queryPreregistrations(ctx, `SELECT`+preregistrationColumns+` FROM preregistrations WHERE user_email = $1 ORDER BY created_at DESC, id DESC`, email)
}

func (s *Storage) queryPreregistrations(ctx context.Context, q string, args ...any) ([]*models.Preregistration, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select preregistrations")
	}
	defer rows.Close()

	out := make([]*models.Preregistration, 0)
	for rows.Next() {
		p, err := scanPreregistration(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan preregistration")
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) GetPreregistration(ctx context.Context, id uint64) (*models.Preregistration, error) {
	p, err := scanPreregistration(s.db.QueryRow(ctx, `SELECT`+preregistrationColumns+` FROM preregistrations WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.Wrap(models.NotFound("preregistration"), "select preregistration")
		}
		return nil, errors.Wrap(err, "select preregistration")
	}
	return p, nil
}

// UpdatePreregistration edits a pending record. Approved records are frozen.
func (s *Storage) UpdatePreregistration(ctx context.Context, id uint64, upd models.PreregistrationUpdate) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status models.PreregistrationStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM preregistrations WHERE id = $1 FOR UPDATE`, id).Scan(&status); err != nil {
		if isNoRows(err) {
			return errors.Wrap(models.NotFound("preregistration"), "lock preregistration")
		}
		return errors.Wrap(err, "lock preregistration")
	}
	if status == models.PreregistrationApproved {
		return &models.TransitionError{Entity: "preregistration", From: string(status), To: "edited"}
	}

	_, err = tx.Exec(ctx, `
UPDATE preregistrations
SET sender_name = $2, sender_email = $3, recipient_name = $4, recipient_email = $5, weight = $6, cost = $7
WHERE id = $1
`, id, upd.SenderName, upd.SenderEmail, upd.RecipientName, upd.RecipientEmail, upd.Weight, upd.Cost)
	if err != nil {
		return errors.Wrap(err, "update preregistration")
	}

	return errors.Wrap(tx.Commit(ctx), "commit tx")
}

func (s *Storage) DeletePreregistration(ctx context.Context, id uint64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM preregistrations WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete preregistration")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(models.NotFound("preregistration"), "delete preregistration")
	}
	return nil
}

// ApprovePreregistration turns a pending pre-registration into a package. The
// package insert and the approval stamp commit together or not at all.
func (s *Storage) ApprovePreregistration(ctx context.Context, id uint64, newTrackingNumber func() string, at time.Time) (*models.PreregistrationApproval, error) {
	at = at.UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	pr, err := scanPreregistration(tx.QueryRow(ctx, `SELECT`+preregistrationColumns+` FROM preregistrations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.Wrap(models.NotFound("preregistration"), "lock preregistration")
		}
		return nil, errors.Wrap(err, "lock preregistration")
	}
	if err := models.CheckPreregistrationTransition(pr.Status, models.PreregistrationApproved); err != nil {
		return nil, err
	}

	trackingNumber := ""
	for i := 0; i < maxTrackingAttempts; i++ {
		candidate := newTrackingNumber()
		var taken bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM packages WHERE tracking_number = $1)`, candidate).Scan(&taken); err != nil {
			return nil, errors.Wrap(err, "check tracking number")
		}
		if !taken {
			trackingNumber = candidate
			break
		}
	}
	if trackingNumber == "" {
		return nil, errors.Wrap(models.ErrDuplicate, "generate tracking number")
	}

	pkg, err := createPackage(ctx, tx, pr.PackageInput(trackingNumber), at)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
UPDATE preregistrations
SET status = $2, approved_at = $3, approved_tracking_number = $4
WHERE id = $1
`, id, models.PreregistrationApproved, at, trackingNumber)
	if err != nil {
		return nil, errors.Wrap(err, "update preregistration")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return &models.PreregistrationApproval{
		PreregistrationID: id,
		TrackingNumber:    trackingNumber,
		PackageID:         pkg.ID,
	}, nil
}
