package preregistrations

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/BoaTracking/internal/broker/messages"
	"github.com/BearBump/BoaTracking/internal/clock"
	"github.com/BearBump/BoaTracking/internal/models"
)

type Repository interface {
	CreatePreregistration(ctx context.Context, p *models.Preregistration) (uint64, error)
	ListPreregistrations(ctx context.Context, f models.PreregistrationFilter) ([]*models.Preregistration, error)
	ListPreregistrationsByEmail(ctx context.Context, email string) ([]*models.Preregistration, error)
	GetPreregistration(ctx context.Context, id uint64) (*models.Preregistration, error)
	UpdatePreregistration(ctx context.Context, id uint64, upd models.PreregistrationUpdate) error
	DeletePreregistration(ctx context.Context, id uint64) error
	ApprovePreregistration(ctx context.Context, id uint64, newTrackingNumber func() string, at time.Time) (*models.PreregistrationApproval, error)
}

type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any)
}

type Service struct {
	repo   Repository
	events Publisher
	clock  clock.Clock
	intn   func(n int) int
}

func New(repo Repository, events Publisher, clk clock.Clock) *Service {
	return &Service{repo: repo, events: events, clock: clk, intn: rand.Intn}
}

// TrackingNumber returns BOA-<year>-<1000..9999>, the year taken from the
// service clock so it follows the configured timezone.
func (s *Service) TrackingNumber() string {
	return fmt.Sprintf("BOA-%d-%d", s.clock.Now().Year(), 1000+s.intn(9000))
}

func (s *Service) Create(ctx context.Context, p *models.Preregistration) (uint64, error) {
	if strings.TrimSpace(p.UserEmail) == "" || strings.TrimSpace(p.Description) == "" ||
		strings.TrimSpace(p.SenderName) == "" || strings.TrimSpace(p.RecipientName) == "" {
		return 0, models.NewValidationError("Faltan campos requeridos. Asegúrate de incluir al menos email, descripción, y nombres de remitente y destinatario.")
	}
	if p.Weight < 0 {
		return 0, models.NewValidationError("El peso no puede ser negativo")
	}

	now := s.clock.Now()
	if p.TrackingNumber == "" {
		p.TrackingNumber = "PRE-" + strconv.FormatInt(now.UnixMilli(), 10)
	}
	if p.Cost <= 0 && p.Weight > 0 {
		p.Cost = Cost(p.Weight)
	}
	if p.Priority == "" {
		p.Priority = models.DefaultPackagePriority
	}
	p.Status = models.PreregistrationPending
	p.ApprovedAt = nil
	p.ApprovedTrackingNumber = nil
	p.CreatedAt = now
	return s.repo.CreatePreregistration(ctx, p)
}

// List filters by a substring of the pre-registration tracking number and
// by status. Pendiente also matches rows without a status.
func (s *Service) List(ctx context.Context, search, status string) ([]*models.Preregistration, error) {
	f := models.PreregistrationFilter{Search: strings.TrimSpace(search)}
	switch models.PreregistrationStatus(status) {
	case models.PreregistrationPending, models.PreregistrationApproved:
		f.Status = models.PreregistrationStatus(status)
	}
	return s.repo.ListPreregistrations(ctx, f)
}

func (s *Service) ListByEmail(ctx context.Context, email string) ([]*models.Preregistration, error) {
	return s.repo.ListPreregistrationsByEmail(ctx, strings.TrimSpace(email))
}

type UpdateInput struct {
	SenderName     string
	SenderEmail    string
	RecipientName  string
	RecipientEmail string
	Weight         *float64
}

// Update edits contact data and weight; the cost follows the weight.
func (s *Service) Update(ctx context.Context, id uint64, in UpdateInput) (*models.PreregistrationUpdate, error) {
	if strings.TrimSpace(in.SenderName) == "" || strings.TrimSpace(in.RecipientName) == "" || in.Weight == nil {
		return nil, models.NewValidationError("Faltan campos requeridos: sender_name, recipient_name, weight")
	}
	if *in.Weight < 0 {
		return nil, models.NewValidationError("El peso no puede ser negativo")
	}
	upd := models.PreregistrationUpdate{
		SenderName:     in.SenderName,
		SenderEmail:    in.SenderEmail,
		RecipientName:  in.RecipientName,
		RecipientEmail: in.RecipientEmail,
		Weight:         *in.Weight,
		Cost:           Cost(*in.Weight),
	}
	if err := s.repo.UpdatePreregistration(ctx, id, upd); err != nil {
		return nil, err
	}
	return &upd, nil
}

func (s *Service) Delete(ctx context.Context, id uint64) error {
	return s.repo.DeletePreregistration(ctx, id)
}

// Approve turns a pending pre-registration into a package, once.
func (s *Service) Approve(ctx context.Context, id uint64) (*models.PreregistrationApproval, error) {
	res, err := s.repo.ApprovePreregistration(ctx, id, s.TrackingNumber, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		msg := messages.PreregistrationApproved{
			PreregistrationID: int64(res.PreregistrationID),
			PackageID:         int64(res.PackageID),
			TrackingNumber:    res.TrackingNumber,
		}
		if pr, err := s.repo.GetPreregistration(ctx, id); err == nil {
			msg.SenderEmail = pr.SenderEmail
		}
		s.events.Publish(ctx, messages.TypePreregistrationApproved, res.TrackingNumber, msg)
	}
	return res, nil
}
