package packages

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/BoaTracking/internal/broker/messages"
	"github.com/BearBump/BoaTracking/internal/cache"
	"github.com/BearBump/BoaTracking/internal/clock"
	"github.com/BearBump/BoaTracking/internal/models"
)

type Repository interface {
	CreatePackage(ctx context.Context, in models.PackageCreateInput, at time.Time) (*models.Package, error)
	ListPackages(ctx context.Context) ([]*models.Package, error)
	ListPackagesByEmail(ctx context.Context, email string) ([]*models.Package, error)
	GetPackageByTracking(ctx context.Context, trackingNumber string) (*models.Package, error)
	ListTrackingEvents(ctx context.Context, packageID uint64) ([]*models.TrackingEvent, error)
	UpdatePackageStatus(ctx context.Context, id uint64, status models.PackageStatus, location string, at time.Time) (string, error)
	AddTrackingEvent(ctx context.Context, in models.TrackingEventInput, at time.Time) (*models.TrackingEvent, error)
	UpdateTrackingEvent(ctx context.Context, upd models.TrackingEventUpdate, at time.Time) (string, error)
	DeleteTrackingEvent(ctx context.Context, id uint64) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any)
}

type Service struct {
	repo     Repository
	cache    cache.BytesCache
	cacheTTL time.Duration
	events   Publisher
	clock    clock.Clock
}

// New builds the service. A nil cache or a zero TTL disables caching.
func New(repo Repository, c cache.BytesCache, cacheTTL time.Duration, events Publisher, clk clock.Clock) *Service {
	return &Service{repo: repo, cache: c, cacheTTL: cacheTTL, events: events, clock: clk}
}

func (s *Service) List(ctx context.Context) ([]*models.Package, error) {
	return s.repo.ListPackages(ctx)
}

// ListByEmail returns packages where email is the sender or the recipient.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]*models.Package, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, models.NewValidationError("Email es requerido")
	}
	return s.repo.ListPackagesByEmail(ctx, email)
}

// Get returns the package with its events, newest first.
func (s *Service) Get(ctx context.Context, trackingNumber string) (*models.Package, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, models.NewValidationError("Número de tracking es requerido")
	}

	if s.cacheEnabled() {
		b, ok, err := s.cache.Get(ctx, cacheKey(trackingNumber))
		if err != nil {
			slog.Debug("package cache get", "tracking_number", trackingNumber, "error", err.Error())
		}
		if ok {
			var p models.Package
			if json.Unmarshal(b, &p) == nil {
				if p.Events == nil {
					p.Events = []*models.TrackingEvent{}
				}
				return &p, nil
			}
		}
	}

	p, err := s.repo.GetPackageByTracking(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListTrackingEvents(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*models.TrackingEvent{}
	}
	p.Events = events

	if s.cacheEnabled() {
		if b, err := json.Marshal(p); err == nil {
			_ = s.cache.Set(ctx, cacheKey(trackingNumber), b, s.cacheTTL)
		}
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, in models.PackageCreateInput) (*models.Package, error) {
	in.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
	if in.TrackingNumber == "" {
		return nil, models.NewValidationError("Número de tracking es requerido")
	}
	if in.Priority == "" {
		in.Priority = models.DefaultPackagePriority
	}
	if in.Status == "" {
		in.Status = models.PackageStatusPending
	} else if _, err := models.ParsePackageStatus(string(in.Status)); err != nil {
		return nil, err
	}

	p, err := s.repo.CreatePackage(ctx, in, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.changed(ctx, p.TrackingNumber, messages.PackageUpdated{
		PackageID:      int64(p.ID),
		TrackingNumber: p.TrackingNumber,
		Status:         string(p.Status),
		Location:       p.Location,
		UpdatedAt:      p.UpdatedAt,
	})
	return p, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uint64, status, location string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return models.NewValidationError("Estado es requerido")
	}
	st, err := models.ParsePackageStatus(status)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	trackingNumber, err := s.repo.UpdatePackageStatus(ctx, id, st, location, now)
	if err != nil {
		return err
	}
	s.changed(ctx, trackingNumber, messages.PackageUpdated{
		PackageID:      int64(id),
		TrackingNumber: trackingNumber,
		Status:         string(st),
		Location:       location,
		UpdatedAt:      now.UTC(),
	})
	return nil
}

// AddEvent records a tracking event and moves the package to its status.
func (s *Service) AddEvent(ctx context.Context, in models.TrackingEventInput) (*models.TrackingEvent, error) {
	in.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
	in.Location = strings.TrimSpace(in.Location)
	if in.TrackingNumber == "" || in.EventType == "" || in.Location == "" {
		return nil, models.NewValidationError("Faltan campos requeridos (tracking, tipo de evento, ubicación).")
	}
	if _, err := models.ParsePackageStatus(string(in.EventType)); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ev, err := s.repo.AddTrackingEvent(ctx, in, now)
	if err != nil {
		return nil, err
	}
	id := int64(ev.ID)
	s.changed(ctx, in.TrackingNumber, messages.PackageUpdated{
		PackageID:      int64(ev.PackageID),
		TrackingNumber: in.TrackingNumber,
		Status:         string(in.EventType),
		Location:       in.Location,
		EventID:        &id,
		UpdatedAt:      now.UTC(),
	})
	return ev, nil
}

func (s *Service) UpdateEvent(ctx context.Context, upd models.TrackingEventUpdate) error {
	if strings.TrimSpace(upd.EventType) == "" || strings.TrimSpace(upd.Location) == "" {
		return models.NewValidationError("Tipo de evento y ubicación son requeridos")
	}
	if _, err := models.ParsePackageStatus(upd.EventType); err != nil {
		return err
	}
	trackingNumber, err := s.repo.UpdateTrackingEvent(ctx, upd, s.clock.Now())
	if err != nil {
		return err
	}
	s.Invalidate(ctx, trackingNumber)
	return nil
}

func (s *Service) DeleteEvent(ctx context.Context, id uint64) error {
	trackingNumber, err := s.repo.DeleteTrackingEvent(ctx, id)
	if err != nil {
		return err
	}
	s.Invalidate(ctx, trackingNumber)
	return nil
}

type ReturnEligibility struct {
	Eligible       bool                 `json:"elegible"`
	TrackingNumber string               `json:"tracking_number"`
	Status         models.PackageStatus `json:"status"`
	Cost           float64              `json:"cost"`
}

// CheckReturn reports whether a return can be requested for the package.
func (s *Service) CheckReturn(ctx context.Context, trackingNumber string) (*ReturnEligibility, error) {
	p, err := s.repo.GetPackageByTracking(ctx, strings.TrimSpace(trackingNumber))
	if err != nil {
		return nil, err
	}
	return &ReturnEligibility{
		Eligible:       p.Status.ReturnEligible(),
		TrackingNumber: p.TrackingNumber,
		Status:         p.Status,
		Cost:           p.Cost,
	}, nil
}

func (s *Service) changed(ctx context.Context, trackingNumber string, msg messages.PackageUpdated) {
	s.Invalidate(ctx, trackingNumber)
	if s.events != nil {
		s.events.Publish(ctx, messages.TypePackageUpdated, trackingNumber, msg)
	}
}

// Invalidate drops the cached view of a package.
func (s *Service) Invalidate(ctx context.Context, trackingNumber string) {
	if s.cache == nil || trackingNumber == "" {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(trackingNumber)); err != nil {
		slog.Warn("package cache invalidate", "tracking_number", trackingNumber, "error", err.Error())
	}
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.cacheTTL > 0
}

func cacheKey(trackingNumber string) string {
	return "package:" + trackingNumber + ":view"
}
