package returns

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/BoaTracking/internal/broker/messages"
	"github.com/BearBump/BoaTracking/internal/clock"
	"github.com/BearBump/BoaTracking/internal/models"
)

type Repository interface {
	GetPackageByTracking(ctx context.Context, trackingNumber string) (*models.Package, error)
	CreateReturnRequest(ctx context.Context, in models.ReturnRequestInput, at time.Time) (uint64, error)
	ListReturnRequests(ctx context.Context, status models.ReturnStatus) ([]*models.ReturnRequest, error)
	ListReturnRequestsByEmail(ctx context.Context, email string) ([]*models.ReturnRequest, error)
	ListReturns(ctx context.Context) ([]*models.Return, error)
	ApproveReturnRequest(ctx context.Context, id uint64, returnTrackingNumber string, at time.Time) (*models.Return, error)
	RejectReturnRequest(ctx context.Context, id uint64, comment string, at time.Time) error
}

type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any)
}

// PackageCache drops cached package views once a package leaves tracking.
type PackageCache interface {
	Invalidate(ctx context.Context, trackingNumber string)
}

type Service struct {
	repo   Repository
	events Publisher
	cache  PackageCache
	clock  clock.Clock
}

func New(repo Repository, events Publisher, pc PackageCache, clk clock.Clock) *Service {
	return &Service{repo: repo, events: events, cache: pc, clock: clk}
}

// Request files a return for a package that has not been classified yet.
func (s *Service) Request(ctx context.Context, in models.ReturnRequestInput) (uint64, error) {
	in.UserEmail = strings.TrimSpace(in.UserEmail)
	in.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
	if in.UserEmail == "" || in.TrackingNumber == "" || strings.TrimSpace(in.FirstName) == "" ||
		strings.TrimSpace(in.LastName) == "" || strings.TrimSpace(in.Reason) == "" {
		return 0, models.NewValidationError("Todos los campos son requeridos.")
	}

	pkg, err := s.repo.GetPackageByTracking(ctx, in.TrackingNumber)
	if err != nil {
		return 0, err
	}
	if !pkg.Status.ReturnEligible() {
		return 0, models.NewValidationError(fmt.Sprintf("No se puede solicitar la devolución. Estado actual: %s.", pkg.Status))
	}
	return s.repo.CreateReturnRequest(ctx, in, s.clock.Now())
}

// ListRequests filters by status when it names a known one.
func (s *Service) ListRequests(ctx context.Context, status string) ([]*models.ReturnRequest, error) {
	st, _ := models.ParseReturnStatus(status)
	return s.repo.ListReturnRequests(ctx, st)
}

func (s *Service) ListRequestsByEmail(ctx context.Context, email string) ([]*models.ReturnRequest, error) {
	return s.repo.ListReturnRequestsByEmail(ctx, strings.TrimSpace(email))
}

func (s *Service) ListArchive(ctx context.Context) ([]*models.Return, error) {
	return s.repo.ListReturns(ctx)
}

// ReturnTrackingNumber is RTN-<unix millis>.
func (s *Service) ReturnTrackingNumber() string {
	return "RTN-" + strconv.FormatInt(s.clock.Now().UnixMilli(), 10)
}

// Approve archives the package and takes it out of active tracking.
func (s *Service) Approve(ctx context.Context, id uint64) (*models.Return, error) {
	ret, err := s.repo.ApproveReturnRequest(ctx, id, s.ReturnTrackingNumber(), s.clock.Now())
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, ret.OriginalTrackingNumber)
	}
	if s.events != nil {
		s.events.Publish(ctx, messages.TypeReturnApproved, ret.OriginalTrackingNumber, messages.ReturnApproved{
			RequestID:            int64(id),
			TrackingNumber:       ret.OriginalTrackingNumber,
			ReturnTrackingNumber: ret.ReturnTrackingNumber,
		})
	}
	return ret, nil
}

func (s *Service) Reject(ctx context.Context, id uint64, comment string) error {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return models.NewValidationError("El motivo del rechazo es requerido.")
	}
	return s.repo.RejectReturnRequest(ctx, id, comment, s.clock.Now())
}
