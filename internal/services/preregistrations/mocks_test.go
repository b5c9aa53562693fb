package preregistrations

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/BearBump/BoaTracking/internal/models"
)

type repoMock struct {
	mock.Mock
}

func (m *repoMock) CreatePreregistration(ctx context.Context, p *models.Preregistration) (uint64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *repoMock) ListPreregistrations(ctx context.Context, f models.PreregistrationFilter) ([]*models.Preregistration, error) {
	args := m.Called(ctx, f)
	out, _ := args.Get(0).([]*models.Preregistration)
	return out, args.Error(1)
}

func (m *repoMock) ListPreregistrationsByEmail(ctx context.Context, email string) ([]*models.Preregistration, error) {
	args := m.Called(ctx, email)
	out, _ := args.Get(0).([]*models.Preregistration)
	return out, args.Error(1)
}

func (m *repoMock) GetPreregistration(ctx context.Context, id uint64) (*models.Preregistration, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*models.Preregistration)
	return out, args.Error(1)
}

func (m *repoMock) UpdatePreregistration(ctx context.Context, id uint64, upd models.PreregistrationUpdate) error {
	return m.Called(ctx, id, upd).Error(0)
}

func (m *repoMock) DeletePreregistration(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *repoMock) ApprovePreregistration(ctx context.Context, id uint64, newTrackingNumber func() string, at time.Time) (*models.PreregistrationApproval, error) {
	args := m.Called(ctx, id, newTrackingNumber, at)
	out, _ := args.Get(0).(*models.PreregistrationApproval)
	return out, args.Error(1)
}

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, eventType, key string, payload any) {
	m.Called(ctx, eventType, key, payload)
}
