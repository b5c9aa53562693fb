package sqlitestore

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/BearBump/BoaTracking/internal/models"
)

func (s *Storage) CreatePackage(ctx context.Context, in models.PackageCreateInput, at time.Time) (*models.Package, error) {
	return createPackage(s.db.WithContext(ctx), in, at)
}

func createPackage(db *gorm.DB, in models.PackageCreateInput, at time.Time) (*models.Package, error) {
	row := newPackageRow(in, at.UTC())
	if err := db.Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrap(models.ErrDuplicate, "insert package")
		}
		return nil, errors.Wrap(err, "insert package")
	}
	return row.toModel(), nil
}

type eventStats struct {
	PackageID uint64
	Cnt       int
	Last      sql.NullString
}

func (s *Storage) ListPackages(ctx context.Context) ([]*models.Package, error) {
	return s.listPackages(ctx, s.db.WithContext(ctx))
}

func (s *Storage) ListPackagesByEmail(ctx context.Context, email string) ([]*models.Package, error) {
	return s.listPackages(ctx, s.db.WithContext(ctx).Where("sender_email = ? OR recipient_email = ?", email, email))
}

func (s *Storage) listPackages(ctx context.Context, q *gorm.DB) ([]*models.Package, error) {
	var rows []packageRow
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "select packages")
	}

	var stats []eventStats
	err := s.db.WithContext(ctx).Model(&trackingEventRow{}).
		Select("package_id, COUNT(id) AS cnt, MAX(timestamp) AS last").
		Group("package_id").
		Scan(&stats).Error
	if err != nil {
		return nil, errors.Wrap(err, "select event stats")
	}
	byPackage := make(map[uint64]eventStats, len(stats))
	for _, st := range stats {
		byPackage[st.PackageID] = st
	}

	out := make([]*models.Package, 0, len(rows))
	for i := range rows {
		p := rows[i].toModel()
		if st, ok := byPackage[p.ID]; ok {
			p.EventsCount = st.Cnt
			p.LastEventTime = parseTime(st.Last)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Storage) GetPackageByTracking(ctx context.Context, trackingNumber string) (*models.Package, error) {
	row, err := findPackage(s.db.WithContext(ctx), "tracking_number = ?", trackingNumber)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func findPackage(db *gorm.DB, cond string, arg any) (*packageRow, error) {
	var row packageRow
	if err := db.Where(cond, arg).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, errors.Wrap(models.NotFound("package"), "select package")
		}
		return nil, errors.Wrap(err, "select package")
	}
	return &row, nil
}

func (s *Storage) ListTrackingEvents(ctx context.Context, packageID uint64) ([]*models.TrackingEvent, error) {
	var rows []trackingEventRow
	err := s.db.WithContext(ctx).
		Where("package_id = ?", packageID).
		Order("timestamp DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "select events")
	}
	out := make([]*models.TrackingEvent, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

func (s *Storage) UpdatePackageStatus(ctx context.Context, id uint64, status models.PackageStatus, location string, at time.Time) (string, error) {
	var trackingNumber string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findPackage(tx, "id = ?", id)
		if err != nil {
			return err
		}
		if err := models.CheckPackageTransition(models.PackageStatus(row.Status), status); err != nil {
			return err
		}
		upd := map[string]any{"status": string(status), "updated_at": at.UTC()}
		if location != "" {
			upd["location"] = location
		}
		if err := tx.Model(&packageRow{}).Where("id = ?", id).UpdateColumns(upd).Error; err != nil {
			return errors.Wrap(err, "update package status")
		}
		trackingNumber = row.TrackingNumber
		return nil
	})
	if err != nil {
		return "", err
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

	var ev *models.TrackingEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pkg, err := findPackage(tx, "tracking_number = ?", in.TrackingNumber)
		if err != nil {
			return err
		}
		if err := models.CheckPackageTransition(models.PackageStatus(pkg.Status), in.EventType); err != nil {
			return err
		}

		row := &trackingEventRow{
			PackageID: pkg.ID,
			EventType: string(in.EventType),
			Location:  in.Location,
			Operator:  in.Operator,
			Notes:     in.Notes,
			Timestamp: ts.UTC(),
			UpdatedAt: at,
		}
		if err := tx.Create(row).Error; err != nil {
			return errors.Wrap(err, "insert event")
		}

		err = tx.Model(&packageRow{}).Where("id = ?", pkg.ID).UpdateColumns(map[string]any{
			"status":     string(in.EventType),
			"location":   in.Location,
			"updated_at": at,
		}).Error
		if err != nil {
			return errors.Wrap(err, "update package")
		}
		ev = row.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *Storage) UpdateTrackingEvent(ctx context.Context, upd models.TrackingEventUpdate, at time.Time) (string, error) {
	var trackingNumber string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row trackingEventRow
		if err := tx.Where("id = ?", upd.ID).First(&row).Error; err != nil {
			if isNotFound(err) {
				return errors.Wrap(models.NotFound("tracking event"), "select event")
			}
			return errors.Wrap(err, "select event")
		}
		err := tx.Model(&trackingEventRow{}).Where("id = ?", upd.ID).UpdateColumns(map[string]any{
			"event_type":  upd.EventType,
			"location":    upd.Location,
			"operator":    upd.Operator,
			"notes":       upd.Notes,
			"coordinates": upd.Coordinates,
			"updated_at":  at.UTC(),
		}).Error
		if err != nil {
			return errors.Wrap(err, "update event")
		}
		pkg, err := findPackage(tx, "id = ?", row.PackageID)
		if err != nil {
			return err
		}
		trackingNumber = pkg.TrackingNumber
		return nil
	})
	if err != nil {
		return "", err
	}
	return trackingNumber, nil
}

func (s *Storage) DeleteTrackingEvent(ctx context.Context, id uint64) (string, error) {
	var trackingNumber string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row trackingEventRow
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			if isNotFound(err) {
				return errors.Wrap(models.NotFound("tracking event"), "select event")
			}
			return errors.Wrap(err, "select event")
		}
		if err := tx.Delete(&trackingEventRow{}, row.ID).Error; err != nil {
			return errors.Wrap(err, "delete event")
		}
		pkg, err := findPackage(tx, "id = ?", row.PackageID)
		if err != nil {
			return err
		}
		trackingNumber = pkg.TrackingNumber
		return nil
	})
	if err != nil {
		return "", err
	}
	return trackingNumber, nil
}

func (s *Storage) ListPackageClocks(ctx context.Context) ([]models.PackageClock, error) {
	var rows []packageRow
	err := s.db.WithContext(ctx).
		Select("id", "tracking_number", "updated_at").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "select package clocks")
	}
	out := make([]models.PackageClock, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.PackageClock{ID: r.ID, TrackingNumber: r.TrackingNumber, UpdatedAt: r.UpdatedAt.UTC()})
	}
	return out, nil
}
