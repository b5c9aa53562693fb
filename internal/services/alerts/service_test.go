package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/BearBump/BoaTracking/internal/clock"
	"github.com/BearBump/BoaTracking/internal/models"
)

type ServiceSuite struct {
	suite.Suite

	repo  *repoMock
	clock *clock.Fixed
	svc   *Service
	ctx   context.Context
	now   time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.repo = &repoMock{}
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.clock = clock.NewFixed(s.now)
	s.svc = New(s.repo, s.clock, 0)
	s.ctx = context.Background()
}

func (s *ServiceSuite) TearDownTest() {
	s.repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) solvedAlert(id uint64, solvedAgo time.Duration) *models.Alert {
	at := s.now.Add(-solvedAgo)
	return &models.Alert{
		ID: id, PackageTracking: "BOA-2024-0001", AlertType: models.AlertTypeInternalMonitoring,
		Status: models.AlertStatusSolved, SolvedAt: &at,
	}
}

func (s *ServiceSuite) TestCreate() {
	s.repo.On("CreateAlert", mock.Anything, mock.MatchedBy(func(a *models.Alert) bool {
		return a.UserEmail == "ana@boa.bo" && a.AlertType == "delivery" && a.Status == models.AlertStatusActive &&
			a.EmailEnabled && !a.SMSEnabled && a.CreatedAt.Equal(s.now)
	})).Return(&models.Alert{ID: 1}, nil).Once()

	a, err := s.svc.Create(s.ctx, CreateInput{UserEmail: "ana@boa.bo", AlertType: "delivery", Channels: models.AlertChannels{Email: true}})
	s.Require().NoError(err)
	s.Require().Equal(uint64(1), a.ID)
}

func (s *ServiceSuite) TestCreate_Validation() {
	_, err := s.svc.Create(s.ctx, CreateInput{UserEmail: "ana@boa.bo"})
	s.Require().EqualError(err, "Email y tipo de alerta son requeridos")
}

func (s *ServiceSuite) TestCanReactivate_NoPrior() {
	s.repo.On("LatestAlert", mock.Anything, "BOA-2024-0001", models.AlertTypeInternalMonitoring).
		Return(nil, models.NotFound("alert")).Once()

	r, err := s.svc.CanReactivate(s.ctx, "BOA-2024-0001")
	s.Require().NoError(err)
	s.Require().True(r.CanReactivate)
	s.Require().Equal("No hay alertas previas", r.Reason)
	s.Require().Nil(r.LastSolvedAt)
}

func (s *ServiceSuite) TestCanReactivate_Active() {
	s.repo.On("LatestAlert", mock.Anything, "BOA-2024-0001", models.AlertTypeInternalMonitoring).
		Return(&models.Alert{ID: 2, Status: models.AlertStatusActive}, nil).Once()

	r, err := s.svc.CanReactivate(s.ctx, "BOA-2024-0001")
	s.Require().NoError(err)
	s.Require().False(r.CanReactivate)
	s.Require().Equal("Ya existe una alerta activa", r.Reason)
}

func (s *ServiceSuite) TestCanReactivate_CooldownRunning() {
	s.repo.On("LatestAlert", mock.Anything, "BOA-2024-0001", models.AlertTypeInternalMonitoring).
		Return(s.solvedAlert(3, 10*time.Hour+30*time.Minute), nil).Once()

	r, err := s.svc.CanReactivate(s.ctx, "BOA-2024-0001")
	s.Require().NoError(err)
	s.Require().False(r.CanReactivate)
	s.Require().NotNil(r.RemainingHours)
	s.Require().Equal(14, *r.RemainingHours)
	s.Require().Equal("Deben pasar al menos 24 horas desde la última solución (14 horas restantes)", r.Reason)
	s.Require().NotNil(r.LastSolvedAt)
}

func (s *ServiceSuite) TestCanReactivate_RemainingNeverZero() {
	s.repo.On("LatestAlert", mock.Anything, mock.Anything, mock.Anything).
		Return(s.solvedAlert(3, 24*time.Hour-time.Minute), nil).Once()

	r, err := s.svc.CanReactivate(s.ctx, "BOA-2024-0001")
	s.Require().NoError(err)
	s.Require().False(r.CanReactivate)
	s.Require().Equal(1, *r.RemainingHours)
}

func (s *ServiceSuite) TestCanReactivate_ExactlyCooldown() {
	s.repo.On("LatestAlert", mock.Anything, mock.Anything, mock.Anything).
		Return(s.solvedAlert(3, 24*time.Hour), nil).Once()

	r, err := s.svc.CanReactivate(s.ctx, "BOA-2024-0001")
	s.Require().NoError(err)
	s.Require().True(r.CanReactivate)
	s.Require().Equal("Han pasado 24 horas desde la última solución", r.Reason)
	s.Require().Nil(r.RemainingHours)
}

func (s *ServiceSuite) TestCanReactivate_CustomCooldown() {
	svc := New(s.repo, s.clock, 2*time.Hour)
	s.repo.On("LatestAlert", mock.Anything, mock.Anything, mock.Anything).
		Return(s.solvedAlert(3, 3*time.Hour), nil).Once()

	r, err := svc.CanReactivate(s.ctx, "BOA-2024-0001")
	s.Require().NoError(err)
	s.Require().True(r.CanReactivate)
}

func (s *ServiceSuite) TestReactivate_OK() {
	old := s.solvedAlert(5, 30*time.Hour)
	s.repo.On("GetAlert", mock.Anything, uint64(5)).Return(old, nil).Once()
	s.repo.On("LatestAlert", mock.Anything, "BOA-2024-0001", models.AlertTypeInternalMonitoring).Return(old, nil).Once()
	s.repo.On("SetAlertStatus", mock.Anything, uint64(5), models.AlertStatusActive, s.now).
		Return(&models.Alert{ID: 5, Status: models.AlertStatusActive}, nil).Once()

	a, err := s.svc.Reactivate(s.ctx, 5)
	s.Require().NoError(err)
	s.Require().Equal(models.AlertStatusActive, a.Status)
}

func (s *ServiceSuite) TestReactivate_TooEarly() {
	old := s.solvedAlert(5, time.Hour)
	s.repo.On("GetAlert", mock.Anything, uint64(5)).Return(old, nil).Once()
	s.repo.On("LatestAlert", mock.Anything, "BOA-2024-0001", models.AlertTypeInternalMonitoring).Return(old, nil).Once()

	_, err := s.svc.Reactivate(s.ctx, 5)
	s.Require().ErrorIs(err, models.ErrInvalidTransition)
	s.Require().Contains(err.Error(), "23 horas restantes")
}

func (s *ServiceSuite) TestReactivate_NotLatest() {
	old := s.solvedAlert(5, 48*time.Hour)
	s.repo.On("GetAlert", mock.Anything, uint64(5)).Return(old, nil).Once()
	s.repo.On("LatestAlert", mock.Anything, "BOA-2024-0001", models.AlertTypeInternalMonitoring).
		Return(s.solvedAlert(6, 30*time.Hour), nil).Once()

	_, err := s.svc.Reactivate(s.ctx, 5)
	s.Require().ErrorIs(err, models.ErrInvalidTransition)
}

func (s *ServiceSuite) TestReactivate_UserAlertRejected() {
	s.repo.On("GetAlert", mock.Anything, uint64(7)).
		Return(&models.Alert{ID: 7, AlertType: "delivery", Status: models.AlertStatusActive}, nil).Once()

	_, err := s.svc.Reactivate(s.ctx, 7)
	s.Require().ErrorIs(err, models.ErrInvalidTransition)
}

func (s *ServiceSuite) TestSolve() {
	s.repo.On("SetAlertStatus", mock.Anything, uint64(1), models.AlertStatusSolved, s.now).
		Return(&models.Alert{ID: 1, Status: models.AlertStatusSolved}, nil).Once()
	s.repo.On("SetAlertStatus", mock.Anything, uint64(2), models.AlertStatusSolved, s.now).
		Return(nil, &models.TransitionError{Entity: "alert", From: "solved", To: "solved"}).Once()
	s.repo.On("SetAlertStatus", mock.Anything, uint64(3), models.AlertStatusSolved, s.now).
		Return(nil, models.NotFound("alert")).Once()

	_, err := s.svc.Solve(s.ctx, 1)
	s.Require().NoError(err)

	_, err = s.svc.Solve(s.ctx, 2)
	s.Require().ErrorIs(err, models.ErrInvalidTransition)
	s.Require().EqualError(err, "La alerta ya está solucionada.")

	_, err = s.svc.Solve(s.ctx, 3)
	s.Require().ErrorIs(err, models.ErrNotFound)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
