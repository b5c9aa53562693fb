package packages

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/BearBump/BoaTracking/internal/models"
)

type repoMock struct {
	mock.Mock
}

func (m *repoMock) CreatePackage(ctx context.Context, in models.PackageCreateInput, at time.Time) (*models.Package, error) {
	args := m.Called(ctx, in, at)
	p, _ := args.Get(0).(*models.Package)
	return p, args.Error(1)
}

func (m *repoMock) ListPackages(ctx context.Context) ([]*models.Package, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]*models.Package)
	return out, args.Error(1)
}

func (m *repoMock) ListPackagesByEmail(ctx context.Context, email string) ([]*models.Package, error) {
	args := m.Called(ctx, email)
	out, _ := args.Get(0).([]*models.Package)
	return out, args.Error(1)
}

func (m *repoMock) GetPackageByTracking(ctx context.Context, trackingNumber string) (*models.Package, error) {
	args := m.Called(ctx, trackingNumber)
	p, _ := args.Get(0).(*models.Package)
	return p, args.Error(1)
}

func (m *repoMock) ListTrackingEvents(ctx context.Context, packageID uint64) ([]*models.TrackingEvent, error) {
	args := m.Called(ctx, packageID)
	out, _ := args.Get(0).([]*models.TrackingEvent)
	return out, args.Error(1)
}

func (m *repoMock) UpdatePackageStatus(ctx context.Context, id uint64, status models.PackageStatus, location string, at time.Time) (string, error) {
	args := m.Called(ctx, id, status, location, at)
	return args.String(0), args.Error(1)
}

func (m *repoMock) AddTrackingEvent(ctx context.Context, in models.TrackingEventInput, at time.Time) (*models.TrackingEvent, error) {
	args := m.Called(ctx, in, at)
	ev, _ := args.Get(0).(*models.TrackingEvent)
	return ev, args.Error(1)
}

func (m *repoMock) UpdateTrackingEvent(ctx context.Context, upd models.TrackingEventUpdate, at time.Time) (string, error) {
	args := m.Called(ctx, upd, at)
	return args.String(0), args.Error(1)
}

func (m *repoMock) DeleteTrackingEvent(ctx context.Context, id uint64) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

type cacheMock struct {
	mock.Mock
}

func (m *cacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	b, _ := args.Get(0).([]byte)
	return b, args.Bool(1), args.Error(2)
}

func (m *cacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *cacheMock) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, eventType, key string, payload any) {
	m.Called(ctx, eventType, key, payload)
}
