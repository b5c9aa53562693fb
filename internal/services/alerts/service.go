package alerts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/BearBump/BoaTracking/internal/clock"
	"github.com/BearBump/BoaTracking/internal/models"
)

const DefaultReactivateCooldown = 24 * time.Hour

type Repository interface {
	CreateAlert(ctx context.Context, a *models.Alert) (*models.Alert, error)
	ListAlerts(ctx context.Context, f models.AlertFilter) ([]*models.Alert, error)
	GetAlert(ctx context.Context, id uint64) (*models.Alert, error)
	LatestAlert(ctx context.Context, trackingNumber, alertType string) (*models.Alert, error)
	UpdateAlertChannels(ctx context.Context, id uint64, ch models.AlertChannels) error
	SetAlertStatus(ctx context.Context, id uint64, to models.AlertStatus, at time.Time) (*models.Alert, error)
	DeleteAlert(ctx context.Context, id uint64) error
}

type Service struct {
	repo     Repository
	clock    clock.Clock
	cooldown time.Duration
}

func New(repo Repository, clk clock.Clock, cooldown time.Duration) *Service {
	if cooldown <= 0 {
		cooldown = DefaultReactivateCooldown
	}
	return &Service{repo: repo, clock: clk, cooldown: cooldown}
}

type CreateInput struct {
	UserEmail       string
	PackageTracking string
	AlertType       string
	Channels        models.AlertChannels
}

func (s *Service) List(ctx context.Context, f models.AlertFilter) ([]*models.Alert, error) {
	return s.repo.ListAlerts(ctx, f)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Alert, error) {
	in.UserEmail = strings.TrimSpace(in.UserEmail)
	in.AlertType = strings.TrimSpace(in.AlertType)
	if in.UserEmail == "" || in.AlertType == "" {
		return nil, models.NewValidationError("Email y tipo de alerta son requeridos")
	}
	return s.repo.CreateAlert(ctx, &models.Alert{
		UserEmail:       in.UserEmail,
		PackageTracking: strings.TrimSpace(in.PackageTracking),
		AlertType:       in.AlertType,
		Status:          models.AlertStatusActive,
		SMSEnabled:      in.Channels.SMS,
		EmailEnabled:    in.Channels.Email,
		PushEnabled:     in.Channels.Push,
		CreatedAt:       s.clock.Now(),
	})
}

func (s *Service) UpdateChannels(ctx context.Context, id uint64, ch models.AlertChannels) error {
	return s.repo.UpdateAlertChannels(ctx, id, ch)
}

func (s *Service) Solve(ctx context.Context, id uint64) (*models.Alert, error) {
	a, err := s.repo.SetAlertStatus(ctx, id, models.AlertStatusSolved, s.clock.Now())
	var te *models.TransitionError
	if errors.As(err, &te) && te.Reason == "" {
		te.Reason = "La alerta ya está solucionada."
	}
	return a, err
}

func (s *Service) Delete(ctx context.Context, id uint64) error {
	return s.repo.DeleteAlert(ctx, id)
}

type Reactivation struct {
	CanReactivate  bool       `json:"canReactivate"`
	Reason         string     `json:"reason"`
	LastSolvedAt   *time.Time `json:"lastSolvedAt,omitempty"`
	RemainingHours *int       `json:"remainingHours,omitempty"`
}

// CanReactivate looks at the latest internal monitoring alert of the package.
func (s *Service) CanReactivate(ctx context.Context, trackingNumber string) (*Reactivation, error) {
	latest, err := s.repo.LatestAlert(ctx, strings.TrimSpace(trackingNumber), models.AlertTypeInternalMonitoring)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	return s.evaluate(latest, s.clock.Now()), nil
}

// Reactivate reopens a solved monitoring alert once the cooldown is over.
// Only the newest monitoring alert of a package can come back.
func (s *Service) Reactivate(ctx context.Context, id uint64) (*models.Alert, error) {
	a, err := s.repo.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	reject := func(reason string) error {
		return &models.TransitionError{Entity: "alert", From: string(a.Status), To: string(models.AlertStatusActive), Reason: reason}
	}
	if a.AlertType != models.AlertTypeInternalMonitoring {
		return nil, reject("Solo las alertas de monitoreo interno se pueden reactivar")
	}

	latest, err := s.repo.LatestAlert(ctx, a.PackageTracking, models.AlertTypeInternalMonitoring)
	if err != nil {
		return nil, err
	}
	if latest.ID != a.ID {
		return nil, reject("Solo se puede reactivar la alerta más reciente del paquete")
	}

	now := s.clock.Now()
	if r := s.evaluate(latest, now); !r.CanReactivate {
		return nil, reject(r.Reason)
	}
	return s.repo.SetAlertStatus(ctx, id, models.AlertStatusActive, now)
}

func (s *Service) evaluate(latest *models.Alert, now time.Time) *Reactivation {
	if latest == nil {
		return &Reactivation{CanReactivate: true, Reason: "No hay alertas previas"}
	}
	if latest.Status == models.AlertStatusActive {
		return &Reactivation{CanReactivate: false, Reason: "Ya existe una alerta activa"}
	}
	if latest.SolvedAt == nil {
		return &Reactivation{CanReactivate: true, Reason: "Estado desconocido"}
	}

	solvedAt := *latest.SolvedAt
	elapsed := now.Sub(solvedAt).Hours()
	cooldown := s.cooldown.Hours()
	if elapsed >= cooldown {
		return &Reactivation{
			CanReactivate: true,
			Reason:        fmt.Sprintf("Han pasado %d horas desde la última solución", int(math.Floor(elapsed))),
			LastSolvedAt:  &solvedAt,
		}
	}

	remaining := int(math.Ceil(cooldown - elapsed))
	if remaining < 1 {
		remaining = 1
	}
	return &Reactivation{
		CanReactivate:  false,
		Reason:         fmt.Sprintf("Deben pasar al menos %d horas desde la última solución (%d horas restantes)", int(cooldown), remaining),
		LastSolvedAt:   &solvedAt,
		RemainingHours: &remaining,
	}
}
