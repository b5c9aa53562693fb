package storage

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/BoaTracking/config"
	"github.com/BearBump/BoaTracking/internal/models"
	"github.com/BearBump/BoaTracking/internal/storage/pgstore"
	"github.com/BearBump/BoaTracking/internal/storage/sqlitestore"
)

// Store is everything the services persist. Both backends implement it.
type Store interface {
	// packages
	CreatePackage(ctx context.Context, in models.PackageCreateInput, at time.Time) (*models.Package, error)
	ListPackages(ctx context.Context) ([]*models.Package, error)
	ListPackagesByEmail(ctx context.Context, email string) ([]*models.Package, error)
	GetPackageByTracking(ctx context.Context, trackingNumber string) (*models.Package, error)
	ListTrackingEvents(ctx context.Context, packageID uint64) ([]*models.TrackingEvent, error)
	UpdatePackageStatus(ctx context.Context, id uint64, status models.PackageStatus, location string, at time.Time) (string, error)
	AddTrackingEvent(ctx context.Context, in models.TrackingEventInput, at time.Time) (*models.TrackingEvent, error)
	UpdateTrackingEvent(ctx context.Context, upd models.TrackingEventUpdate, at time.Time) (string, error)
	DeleteTrackingEvent(ctx context.Context, id uint64) (string, error)
	ListPackageClocks(ctx context.Context) ([]models.PackageClock, error)

	// alerts
	CreateAlert(ctx context.Context, a *models.Alert) (*models.Alert, error)
	ListAlerts(ctx context.Context, f models.AlertFilter) ([]*models.Alert, error)
	GetAlert(ctx context.Context, id uint64) (*models.Alert, error)
	LatestAlert(ctx context.Context, trackingNumber, alertType string) (*models.Alert, error)
	UpdateAlertChannels(ctx context.Context, id uint64, ch models.AlertChannels) error
	SetAlertStatus(ctx context.Context, id uint64, to models.AlertStatus, at time.Time) (*models.Alert, error)
	DeleteAlert(ctx context.Context, id uint64) error

	// pre-registrations
	CreatePreregistration(ctx context.Context, p *models.Preregistration) (uint64, error)
	ListPreregistrations(ctx context.Context, f models.PreregistrationFilter) ([]*models.Preregistration, error)
	ListPreregistrationsByEmail(ctx context.Context, email string) ([]*models.Preregistration, error)
	GetPreregistration(ctx context.Context, id uint64) (*models.Preregistration, error)
	UpdatePreregistration(ctx context.Context, id uint64, upd models.PreregistrationUpdate) error
	DeletePreregistration(ctx context.Context, id uint64) error
	ApprovePreregistration(ctx context.Context, id uint64, newTrackingNumber func() string, at time.Time) (*models.PreregistrationApproval, error)

	// returns
	CreateReturnRequest(ctx context.Context, in models.ReturnRequestInput, at time.Time) (uint64, error)
	ListReturnRequests(ctx context.Context, status models.ReturnStatus) ([]*models.ReturnRequest, error)
	ListReturnRequestsByEmail(ctx context.Context, email string) ([]*models.ReturnRequest, error)
	ListReturns(ctx context.Context) ([]*models.Return, error)
	ApproveReturnRequest(ctx context.Context, id uint64, returnTrackingNumber string, at time.Time) (*models.Return, error)
	RejectReturnRequest(ctx context.Context, id uint64, comment string, at time.Time) error

	// claims
	CreateClaim(ctx context.Context, in models.ClaimInput, at time.Time) (uint64, error)
	ListClaims(ctx context.Context, f models.ClaimFilter) ([]*models.Claim, error)
	RespondClaim(ctx context.Context, id uint64, response, respondedBy string, at time.Time) error
	SetClaimStatus(ctx context.Context, id uint64, status string, at time.Time) error

	// users
	CreateUser(ctx context.Context, in models.UserCreateInput, at time.Time) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*models.User, error)
	SetResetToken(ctx context.Context, userID uint64, token string, expiry time.Time) error
	ResetPassword(ctx context.Context, userID uint64, passwordHash string) error

	Ping(ctx context.Context) error
	Close()
}

var (
	_ Store = (*pgstore.Storage)(nil)
	_ Store = (*sqlitestore.Storage)(nil)
)

// Open connects the backend selected by cfg.Driver ("postgres" when empty).
func Open(cfg config.DatabaseConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "postgres", "postgresql", "pg":
		return pgstore.New(cfg.PostgresConnString())
	case "sqlite", "sqlite3":
		path := cfg.SQLitePath
		if path == "" {
			path = "boa.db"
		}
		return sqlitestore.New(path)
	default:
		return nil, errors.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// OpenWithRetry calls Open every interval until it succeeds, wait elapses or
// ctx is done. Databases started next to the service are often not accepting
// connections yet.
func OpenWithRetry(ctx context.Context, cfg config.DatabaseConfig, wait, interval time.Duration) (Store, error) {
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.Now().Add(wait)
	for {
		st, err := Open(cfg)
		if err == nil {
			return st, nil
		}
		if !time.Now().Add(interval).Before(deadline) {
			return nil, errors.Wrapf(err, "database not ready after %s", wait)
		}
		slog.Warn("database not ready", "driver", cfg.Driver, "error", err.Error())

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, errors.Wrap(ctx.Err(), "open database")
		case <-t.C:
		}
	}
}
