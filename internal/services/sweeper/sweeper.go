package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/BoaTracking/internal/broker/messages"
	"github.com/BearBump/BoaTracking/internal/cache"
	"github.com/BearBump/BoaTracking/internal/clock"
	"github.com/BearBump/BoaTracking/internal/metrics"
	"github.com/BearBump/BoaTracking/internal/models"
)

// LockKey guards the sweep across worker replicas.
const LockKey = "lock:alerts:sweep"

type Repository interface {
	ListPackageClocks(ctx context.Context) ([]models.PackageClock, error)
	LatestAlert(ctx context.Context, trackingNumber, alertType string) (*models.Alert, error)
	CreateAlert(ctx context.Context, a *models.Alert) (*models.Alert, error)
}

type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any)
}

// Classify maps hours without an update to a severity. Under two hours
// there is nothing to report.
func Classify(hours float64) (models.Severity, bool) {
	switch {
	case hours >= 4:
		return models.SeverityCritical, true
	case hours >= 3:
		return models.SeverityHigh, true
	case hours >= 2:
		return models.SeverityMedium, true
	}
	return "", false
}

type Sweeper struct {
	repo   Repository
	clock  clock.Clock
	locker cache.Locker
	events Publisher

	interval      time.Duration
	lockTTL       time.Duration
	recreateAfter time.Duration

	running   sync.Mutex
	triggerCh chan struct{}

	startedAtUnixNano int64
	lastSweepUnixNano atomic.Int64
	sweeps            atomic.Int64
	skippedLocked     atomic.Int64
	packagesScanned   atomic.Int64
	alertsCreated     atomic.Int64
	alertsSkipped     atomic.Int64
	totalErrors       atomic.Int64
	lastErrorMu       sync.Mutex
	lastError         string
}

func New(repo Repository, clk clock.Clock) *Sweeper {
	return &Sweeper{
		repo:              repo,
		clock:             clk,
		interval:          30 * time.Minute,
		lockTTL:           10 * time.Minute,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

// WithSettings overrides the defaults. recreateAfter of zero means a solved
// alert is never reopened by the sweep.
func (s *Sweeper) WithSettings(interval, lockTTL, recreateAfter time.Duration) *Sweeper {
	if interval > 0 {
		s.interval = interval
	}
	if lockTTL > 0 {
		s.lockTTL = lockTTL
	}
	if recreateAfter >= 0 {
		s.recreateAfter = recreateAfter
	}
	return s
}

func (s *Sweeper) WithLocker(l cache.Locker) *Sweeper {
	s.locker = l
	return s
}

func (s *Sweeper) WithPublisher(p Publisher) *Sweeper {
	s.events = p
	return s
}

// Trigger asks for an extra sweep without waiting for the ticker.
func (s *Sweeper) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt       time.Time  `json:"startedAt"`
	LastSweepAt     *time.Time `json:"lastSweepAt,omitempty"`
	Sweeps          int64      `json:"sweeps"`
	SkippedLocked   int64      `json:"skippedLocked"`
	PackagesScanned int64      `json:"packagesScanned"`
	AlertsCreated   int64      `json:"alertsCreated"`
	AlertsSkipped   int64      `json:"alertsSkipped"`
	Errors          int64      `json:"errors"`
	LastError       string     `json:"lastError,omitempty"`
}

func (s *Sweeper) Stats() Stats {
	st := Stats{
		StartedAt:       time.Unix(0, s.startedAtUnixNano).UTC(),
		Sweeps:          s.sweeps.Load(),
		SkippedLocked:   s.skippedLocked.Load(),
		PackagesScanned: s.packagesScanned.Load(),
		AlertsCreated:   s.alertsCreated.Load(),
		AlertsSkipped:   s.alertsSkipped.Load(),
		Errors:          s.totalErrors.Load(),
	}
	if n := s.lastSweepUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastSweepAt = &t
	}
	s.lastErrorMu.Lock()
	st.LastError = s.lastError
	s.lastErrorMu.Unlock()
	return st
}

// Run sweeps once right away and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.sweep(ctx)

	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.sweep(ctx)
		case <-s.triggerCh:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, ErrLocked) {
		slog.Error("delay sweep failed", "error", err.Error())
	}
}

var ErrLocked = errors.New("sweep already running")

type Result struct {
	Scanned int
	Created int
	Skipped int
	Errors  int
}

// SweepOnce scans every package and opens alerts for the stale ones.
// Failures on a single package are logged and the scan goes on.
func (s *Sweeper) SweepOnce(ctx context.Context) (Result, error) {
	var res Result

	if !s.running.TryLock() {
		s.skippedLocked.Add(1)
		metrics.RecordSweep("locked", 0)
		return res, ErrLocked
	}
	defer s.running.Unlock()

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, LockKey, s.lockTTL)
		switch {
		case err != nil:
			// redis unavailable: the in-process lock still holds
			slog.Warn("sweep lock unavailable", "error", err.Error())
		case !ok:
			s.skippedLocked.Add(1)
			metrics.RecordSweep("locked", 0)
			slog.Info("delay sweep skipped, lock held elsewhere")
			return res, ErrLocked
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					slog.Warn("sweep lock release", "error", err.Error())
				}
			}()
		}
	}

	start := time.Now()
	now := s.clock.Now()
	s.lastSweepUnixNano.Store(now.UTC().UnixNano())
	s.sweeps.Add(1)

	clocks, err := s.repo.ListPackageClocks(ctx)
	if err != nil {
		s.recordError(err)
		metrics.RecordSweep("error", time.Since(start))
		return res, err
	}

	for _, pc := range clocks {
		if ctx.Err() != nil {
			break
		}
		res.Scanned++
		hours := now.Sub(pc.UpdatedAt).Hours()
		sev, ok := Classify(hours)
		if !ok {
			continue
		}

		created, err := s.process(ctx, pc, sev, hours, now)
		switch {
		case err != nil:
			res.Errors++
			s.recordError(err)
			slog.Error("delay alert", "tracking_number", pc.TrackingNumber, "error", err.Error())
		case created:
			res.Created++
		default:
			res.Skipped++
		}
	}

	s.packagesScanned.Add(int64(res.Scanned))
	s.alertsCreated.Add(int64(res.Created))
	s.alertsSkipped.Add(int64(res.Skipped))
	metrics.RecordSweep("ok", time.Since(start))

	slog.Info("delay sweep done",
		"scanned", res.Scanned, "created", res.Created, "skipped", res.Skipped, "errors", res.Errors,
		"took", time.Since(start).String())
	return res, nil
}

func (s *Sweeper) process(ctx context.Context, pc models.PackageClock, sev models.Severity, hours float64, now time.Time) (bool, error) {
	latest, err := s.repo.LatestAlert(ctx, pc.TrackingNumber, models.AlertTypeInternalMonitoring)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return false, err
	}
	if latest != nil {
		if latest.Status == models.AlertStatusActive {
			slog.Debug("alert already active", "tracking_number", pc.TrackingNumber, "alert_id", latest.ID)
			return false, nil
		}
		if !s.mayRecreate(latest, now) {
			slog.Debug("alert solved before, skipping", "tracking_number", pc.TrackingNumber, "alert_id", latest.ID)
			return false, nil
		}
	}

	a, err := s.repo.CreateAlert(ctx, &models.Alert{
		UserEmail:       models.SystemUserEmail,
		PackageTracking: pc.TrackingNumber,
		AlertType:       models.AlertTypeInternalMonitoring,
		Title:           "Retraso - " + sev.Title(),
		Description:     fmt.Sprintf("El paquete %s tiene un retraso de más de %d horas.", pc.TrackingNumber, int(math.Floor(hours))),
		Severity:        sev,
		Status:          models.AlertStatusActive,
		CreatedAt:       now,
	})
	if errors.Is(err, models.ErrDuplicate) {
		// another sweep or request opened it first
		return false, nil
	}
	if err != nil {
		return false, err
	}

	metrics.IncAlertCreated(string(sev))
	slog.Info("delay alert created", "tracking_number", pc.TrackingNumber, "severity", sev, "alert_id", a.ID)
	if s.events != nil {
		s.events.Publish(ctx, messages.TypeAlertRaised, pc.TrackingNumber, messages.AlertRaised{
			AlertID:        int64(a.ID),
			TrackingNumber: pc.TrackingNumber,
			Severity:       string(sev),
			DelayHours:     hours,
		})
	}
	return true, nil
}

func (s *Sweeper) mayRecreate(latest *models.Alert, now time.Time) bool {
	if s.recreateAfter <= 0 || latest.SolvedAt == nil {
		return false
	}
	return now.Sub(*latest.SolvedAt) >= s.recreateAfter
}

func (s *Sweeper) recordError(err error) {
	s.totalErrors.Add(1)
	s.lastErrorMu.Lock()
	s.lastError = err.Error()
	s.lastErrorMu.Unlock()
}
