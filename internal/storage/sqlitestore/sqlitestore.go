package sqlitestore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage is the embedded single-file backend. One connection serialises
// every write, so transactions need no row locks.
type Storage struct {
	db *gorm.DB
}

func New(path string) (*Storage, error) {
	db, err := gorm.Open(sqlite.Open(withPragmas(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "sqlite handle")
	}
	sqlDB.SetMaxOpenConns(1)

	s := &Storage{db: db}
	if err := s.initSchema(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func withPragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func (s *Storage) initSchema() error {
	err := s.db.AutoMigrate(
		&packageRow{},
		&trackingEventRow{},
		&alertRow{},
		&preregistrationRow{},
		&returnRequestRow{},
		&returnRow{},
		&claimRow{},
		&userRow{},
	)
	if err != nil {
		return errors.Wrap(err, "init schema")
	}
	// At most one active alert of a kind per package.
	err = s.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_alerts_active ON alerts(package_tracking, alert_type) WHERE status = 'active' AND alert_type = 'internal_monitoring'`).Error
	return errors.Wrap(err, "init schema")
}

func (s *Storage) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "sqlite handle")
	}
	return errors.Wrap(sqlDB.PingContext(ctx), "ping sqlite")
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		(err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed"))
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// Aggregates come back untyped, so MAX(timestamp) arrives as text.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v.String); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
