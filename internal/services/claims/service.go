package claims

import (
	"context"
	"strings"
	"time"

	"github.com/BearBump/BoaTracking/internal/clock"
	"github.com/BearBump/BoaTracking/internal/models"
)

type Repository interface {
	CreateClaim(ctx context.Context, in models.ClaimInput, at time.Time) (uint64, error)
	ListClaims(ctx context.Context, f models.ClaimFilter) ([]*models.Claim, error)
	RespondClaim(ctx context.Context, id uint64, response, respondedBy string, at time.Time) error
	SetClaimStatus(ctx context.Context, id uint64, status string, at time.Time) error
}

type Service struct {
	repo  Repository
	clock clock.Clock
}

func New(repo Repository, clk clock.Clock) *Service {
	return &Service{repo: repo, clock: clk}
}

func (s *Service) Create(ctx context.Context, in models.ClaimInput) (uint64, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" ||
		strings.TrimSpace(in.ClaimType) == "" || strings.TrimSpace(in.Description) == "" {
		return 0, models.NewValidationError("Faltan campos requeridos: nombre, email, tipo de reclamo y descripción.")
	}
	in.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
	return s.repo.CreateClaim(ctx, in, s.clock.Now())
}

func (s *Service) List(ctx context.Context, f models.ClaimFilter) ([]*models.Claim, error) {
	return s.repo.ListClaims(ctx, f)
}

// Respond stores the answer and marks the claim as responded.
func (s *Service) Respond(ctx context.Context, id uint64, response, adminName string) error {
	if strings.TrimSpace(response) == "" || strings.TrimSpace(adminName) == "" {
		return models.NewValidationError("La respuesta y el nombre del administrador son requeridos.")
	}
	return s.repo.RespondClaim(ctx, id, response, adminName, s.clock.Now())
}

func (s *Service) SetStatus(ctx context.Context, id uint64, status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return models.NewValidationError("Estado es requerido")
	}
	return s.repo.SetClaimStatus(ctx, id, status, s.clock.Now())
}
