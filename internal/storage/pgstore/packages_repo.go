package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/BoaTracking/internal/models"
)

const packageColumns = `
  p.id, p.tracking_number, p.description, p.status, p.location, p.user_email,
  p.sender_name, p.sender_email, p.sender_phone, p.sender_address,
  p.recipient_name, p.recipient_email, p.recipient_phone, p.recipient_address,
  p.weight, p.cost, p.priority, p.origin, p.destination, p.estimated_delivery_date,
  p.created_at, p.updated_at`

func scanPackage(row pgx.Row, extra ...any) (*models.Package, error) {
	var p models.Package
	dest := []any{
		&p.ID, &p.TrackingNumber, &p.Description, &p.Status, &p.Location, &p.UserEmail,
		&p.SenderName, &p.SenderEmail, &p.SenderPhone, &p.SenderAddress,
		&p.RecipientName, &p.RecipientEmail, &p.RecipientPhone, &p.RecipientAddress,
		&p.Weight, &p.Cost, &p.Priority, &p.Origin, &p.Destination, &p.EstimatedDeliveryDate,
		&p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Storage) CreatePackage(ctx context.Context, in models.PackageCreateInput, at time.Time) (*models.Package, error) {
	return createPackage(ctx, s.db, in, at)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func createPackage(ctx context.Context, q queryRower, in models.PackageCreateInput, at time.Time) (*models.Package, error) {
	at = at.UTC()
	row := q.QueryRow(ctx, `
INSERT INTO packages AS p (
  tracking_number, description, status, user_email,
  sender_name, sender_email, sender_phone, sender_address,
  recipient_name, recipient_email, recipient_phone, recipient_address,
  weight, cost, priority, origin, destination, estimated_delivery_date,
  created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$19)
RETURNING`+packageColumns,
		in.TrackingNumber, in.Description, in.Status, in.UserEmail,
		in.SenderName, in.SenderEmail, in.SenderPhone, in.SenderAddress,
		in.RecipientName, in.RecipientEmail, in.RecipientPhone, in.RecipientAddress,
		in.Weight, in.Cost, in.Priority, in.Origin, in.Destination, in.EstimatedDeliveryDate,
		at,
	)
	p, err := scanPackage(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrap(models.ErrDuplicate, "insert package")
		}
		return nil, errors.Wrap(err, "insert package")
	}
	return p, nil
}

func (s *Storage) ListPackages(ctx context.Context) ([]*models.Package, error) {
	return s.listPackages(ctx, "", nil)
}

func (s *Storage) ListPackagesByEmail(ctx context.Context, email string) ([]*models.Package, error) {
	return s.listPackages(ctx, `WHERE p.sender_email = $1 OR p.recipient_email = $1`, []any{email})
}

func (s *Storage) listPackages(ctx context.Context, where string, args []any) ([]*models.Package, error) {
	rows, err := s.db.Query(ctx, `
SELECT`+packageColumns+`,
  COUNT(te.id) AS events_count,
  MAX(te.timestamp) AS last_event_time
FROM packages p
LEFT JOIN tracking_events te ON te.package_id = p.id
`+where+`
GROUP BY p.id
ORDER BY p.created_at DESC, p.id DESC
`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select packages")
	}
	defer rows.Close()

	out := make([]*models.Package, 0)
	for rows.Next() {
		var (
			count int
			last  *time.Time
		)
		p, err := scanPackage(rows, &count, &last)
		if err != nil {
			return nil, errors.Wrap(err, "scan package")
		}
		p.EventsCount = count
		p.LastEventTime = last
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) GetPackageByTracking(ctx context.Context, trackingNumber string) (*models.Package, error) {
	p, err := scanPackage(s.db.QueryRow(ctx, `SELECT`+packageColumns+` FROM packages p WHERE p.tracking_number = $1`, trackingNumber))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.Wrap(models.NotFound("package"), "select package")
		}
		return nil, errors.Wrap(err, "select package")
	}
	return p, nil
}

func (s *Storage) ListTrackingEvents(ctx context.Context, packageID uint64) ([]*models.TrackingEvent, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, package_id, event_type, location, operator, notes, coordinates, timestamp, updated_at
FROM tracking_events
WHERE package_id = $1
ORDER BY timestamp DESC, id DESC
`, packageID)
	if err != nil {
		return nil, errors.Wrap(err, "select events")
	}
	defer rows.Close()

	out := make([]*models.TrackingEvent, 0)
	for rows.Next() {
		var e models.TrackingEvent
		if err := rows.Scan(
			&e.ID, &e.PackageID, &e.EventType, &e.Location, &e.Operator,
			&e.Notes, &e.Coordinates, &e.Timestamp, &e.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) UpdatePackageStatus(ctx context.Context, id uint64, status models.PackageStatus, location string, at time.Time) (string, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		trackingNumber string
		current        models.PackageStatus
	)
	err = tx.QueryRow(ctx, `SELECT tracking_number, status FROM packages WHERE id = $1 FOR UPDATE`, id).
		Scan(&trackingNumber, &current)
	if err != nil {
		if isNoRows(err) {
			return "", errors.Wrap(models.NotFound("package"), "lock package")
		}
		return "", errors.Wrap(err, "lock package")
	}
	if err := models.CheckPackageTransition(current, status); err != nil {
		return "", err
	}

	_, err = tx.Exec(ctx, `
UPDATE packages
SET status = $2, location = COALESCE(NULLIF($3, ''), location), updated_at = $4
WHERE id = $1
`, id, status, location, at.UTC())
	if err != nil {
		return "", errors.Wrap(err, "update package status")
	}

	if err := tx.Commit(ctx); err != nil {
		return "", errors.Wrap(err, "commit tx")
	}
	return trackingNumber, nil
}

// AddTrackingEvent appends the event and moves the package to the event's
// status and location in one transaction.
func (s *Storage) AddTrackingEvent(ctx context.Context, in models.TrackingEventInput, at time.Time) (*models.TrackingEvent, error) {
	at = at.UTC()
	ts := in.Timestamp
	if ts.IsZero() {
		ts = at
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		packageID uint64
		current   models.PackageStatus
	)
	err = tx.QueryRow(ctx, `SELECT id, status FROM packages WHERE tracking_number = $1 FOR UPDATE`, in.TrackingNumber).
		Scan(&packageID, &current)
	if err != nil {
		if isNoRows(err) {
			return nil, errors.Wrap(models.NotFound("package"), "lock package")
		}
		return nil, errors.Wrap(err, "lock package")
	}
	if err := models.CheckPackageTransition(current, in.EventType); err != nil {
		return nil, err
	}

	ev := &models.TrackingEvent{
		PackageID: packageID,
		EventType: string(in.EventType),
		Location:  in.Location,
		Operator:  in.Operator,
		Notes:     in.Notes,
		Timestamp: ts.UTC(),
		UpdatedAt: at,
	}
	err = tx.QueryRow(ctx, `
INSERT INTO tracking_events (package_id, event_type, location, operator, notes, timestamp, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id
`, ev.PackageID, ev.EventType, ev.Location, ev.Operator, ev.Notes, ev.Timestamp, ev.UpdatedAt).Scan(&ev.ID)
	if err != nil {
		return nil, errors.Wrap(err, "insert event")
	}

	_, err = tx.Exec(ctx, `UPDATE packages SET status = $2, location = $3, updated_at = $4 WHERE id = $1`,
		packageID, in.EventType, in.Location, at)
	if err != nil {
		return nil, errors.Wrap(err, "update package")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return ev, nil
}

func (s *Storage) UpdateTrackingEvent(ctx context.Context, upd models.TrackingEventUpdate, at time.Time) (string, error) {
	var trackingNumber string
	err := s.db.QueryRow(ctx, `
UPDATE tracking_events te
SET event_type = $2, location = $3, operator = $4, notes = $5, coordinates = $6, updated_at = $7
FROM packages p
WHERE te.id = $1 AND p.id = te.package_id
RETURNING p.tracking_number
`, upd.ID, upd.EventType, upd.Location, upd.Operator, upd.Notes, upd.Coordinates, at.UTC()).Scan(&trackingNumber)
	if err != nil {
		if isNoRows(err) {
			return "", errors.Wrap(models.NotFound("tracking event"), "update event")
		}
		return "", errors.Wrap(err, "update event")
	}
	return trackingNumber, nil
}

func (s *Storage) DeleteTrackingEvent(ctx context.Context, id uint64) (string, error) {
	var trackingNumber string
	err := s.db.QueryRow(ctx, `
DELETE FROM tracking_events te
USING packages p
WHERE te.id = $1 AND p.id = te.package_id
RETURNING p.tracking_number
`, id).Scan(&trackingNumber)
	if err != nil {
		if isNoRows(err) {
			return "", errors.Wrap(models.NotFound("tracking event"), "delete event")
		}
		return "", errors.Wrap(err, "delete event")
	}
	return trackingNumber, nil
}

func (s *Storage) ListPackageClocks(ctx context.Context) ([]models.PackageClock, error) {
	rows, err := s.db.Query(ctx, `SELECT id, tracking_number, updated_at FROM packages ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "select package clocks")
	}
	defer rows.Close()

	var out []models.PackageClock
	for rows.Next() {
		var c models.PackageClock
		if err := rows.Scan(&c.ID, &c.TrackingNumber, &c.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan package clock")
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
