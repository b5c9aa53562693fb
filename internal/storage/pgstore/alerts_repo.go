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

const alertColumns = `
  a.id, a.user_email, a.package_tracking, a.alert_type, a.title, a.description,
  a.severity, a.status, a.sms_enabled, a.email_enabled, a.push_enabled,
  a.created_at, a.solved_at`

func scanAlert(row pgx.Row, extra ...any) (*models.Alert, error) {
	var a models.Alert
	dest := []any{
		&a.ID, &a.UserEmail, &a.PackageTracking, &a.AlertType, &a.Title, &a.Description,
		&a.Severity, &a.Status, &a.SMSEnabled, &a.EmailEnabled, &a.PushEnabled,
		&a.CreatedAt, &a.SolvedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Storage) CreateAlert(ctx context.Context, a *models.Alert) (*models.Alert, error) {
	if a.Status == "" {
		a.Status = models.AlertStatusActive
	}
	row := s.db.QueryRow(ctx, `
INSERT INTO alerts AS a (
  user_email, package_tracking, alert_type, title, description, severity, status,
  sms_enabled, email_enabled, push_enabled, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING`+alertColumns,
		a.UserEmail, a.PackageTracking, a.AlertType, a.Title, a.Description, a.Severity, a.Status,
		a.SMSEnabled, a.EmailEnabled, a.PushEnabled, a.CreatedAt.UTC(),
	)
	out, err := scanAlert(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrap(models.ErrDuplicate, "insert alert")
		}
		return nil, errors.Wrap(err, "insert alert")
	}
	return out, nil
}

func (s *Storage) ListAlerts(ctx context.Context, f models.AlertFilter) ([]*models.Alert, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.UserEmail != "" {
		add("a.user_email = ?", f.UserEmail)
	}
	if f.AlertType != "" {
		add("a.alert_type = ?", f.AlertType)
	}
	if f.Status != "" {
		add("a.status = ?", f.Status)
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := s.db.Query(ctx, `
SELECT`+alertColumns+`, p.description
FROM alerts a
LEFT JOIN packages p ON p.tracking_number = a.package_tracking
`+where+`
ORDER BY a.created_at DESC, a.id DESC
`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select alerts")
	}
	defer rows.Close()

	out := make([]*models.Alert, 0)
	for rows.Next() {
		var desc *string
		a, err := scanAlert(rows, &desc)
		if err != nil {
			return nil, errors.Wrap(err, "scan alert")
		}
		a.PackageDescription = desc
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) GetAlert(ctx context.Context, id uint64) (*models.Alert, error) {
	a, err := scanAlert(s.db.QueryRow(ctx, `SELECT`+alertColumns+` FROM alerts a WHERE a.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.Wrap(models.NotFound("alert"), "select alert")
		}
		return nil, errors.Wrap(err, "select alert")
	}
	return a, nil
}

func (s *Storage) LatestAlert(ctx context.Context, trackingNumber, alertType string) (*models.Alert, error) {
	a, err := scanAlert(s.db.QueryRow(ctx, `
SELECT`+alertColumns+`
FROM alerts a
WHERE a.package_tracking = $1 AND a.alert_type = $2
ORDER BY a.created_at DESC, a.id DESC
LIMIT 1
`, trackingNumber, alertType))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.Wrap(models.NotFound("alert"), "select latest alert")
		}
		return nil, errors.Wrap(err, "select latest alert")
	}
	return a, nil
}

func (s *Storage) UpdateAlertChannels(ctx context.Context, id uint64, ch models.AlertChannels) error {
	tag, err := s.db.Exec(ctx, `UPDATE alerts SET sms_enabled = $2, email_enabled = $3, push_enabled = $4 WHERE id = $1`,
		id, ch.SMS, ch.Email, ch.Push)
	if err != nil {
		return errors.Wrap(err, "update alert channels")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(models.NotFound("alert"), "update alert channels")
	}
	return nil
}

// SetAlertStatus moves the alert to status "to". solved_at is stamped on solve
// and cleared on reactivation.
func (s *Storage) SetAlertStatus(ctx context.Context, id uint64, to models.AlertStatus, at time.Time) (*models.Alert, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current models.AlertStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM alerts WHERE id = $1 FOR UPDATE`, id).Scan(&current); err != nil {
		if isNoRows(err) {
			return nil, errors.Wrap(models.NotFound("alert"), "lock alert")
		}
		return nil, errors.Wrap(err, "lock alert")
	}
	if err := models.CheckAlertTransition(current, to); err != nil {
		return nil, err
	}

	var solvedAt *time.Time
	if to == models.AlertStatusSolved {
		t := at.UTC()
		solvedAt = &t
	}
	a, err := scanAlert(tx.QueryRow(ctx, `
UPDATE alerts a SET status = $2, solved_at = $3
WHERE a.id = $1
RETURNING`+alertColumns, id, to, solvedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrap(models.ErrDuplicate, "update alert status")
		}
		return nil, errors.Wrap(err, "update alert status")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return a, nil
}

func (s *Storage) DeleteAlert(ctx context.Context, id uint64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete alert")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(models.NotFound("alert"), "delete alert")
	}
	return nil
}
