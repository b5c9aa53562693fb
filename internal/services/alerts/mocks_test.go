package alerts

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/BearBump/BoaTracking/internal/models"
)

type repoMock struct {
	mock.Mock
}

func (m *repoMock) CreateAlert(ctx context.Context, a *models.Alert) (*models.Alert, error) {
	args := m.Called(ctx, a)
	out, _ := args.Get(0).(*models.Alert)
	return out, args.Error(1)
}

func (m *repoMock) ListAlerts(ctx context.Context, f models.AlertFilter) ([]*models.Alert, error) {
	args := m.Called(ctx, f)
	out, _ := args.Get(0).([]*models.Alert)
	return out, args.Error(1)
}

func (m *repoMock) GetAlert(ctx context.Context, id uint64) (*models.Alert, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*models.Alert)
	return out, args.Error(1)
}

func (m *repoMock) LatestAlert(ctx context.Context, trackingNumber, alertType string) (*models.Alert, error) {
	args := m.Called(ctx, trackingNumber, alertType)
	out, _ := args.Get(0).(*models.Alert)
	return out, args.Error(1)
}

func (m *repoMock) UpdateAlertChannels(ctx context.Context, id uint64, ch models.AlertChannels) error {
	return m.Called(ctx, id, ch).Error(0)
}

func (m *repoMock) SetAlertStatus(ctx context.Context, id uint64, to models.AlertStatus, at time.Time) (*models.Alert, error) {
	args := m.Called(ctx, id, to, at)
	out, _ := args.Get(0).(*models.Alert)
	return out, args.Error(1)
}

func (m *repoMock) DeleteAlert(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}
