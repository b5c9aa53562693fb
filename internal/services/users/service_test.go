package users

import (
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/BearBump/BoaTracking/internal/broker/messages"
	"github.com/BearBump/BoaTracking/internal/cache/rediscache"
	"github.com/BearBump/BoaTracking/internal/clock"
	"github.com/BearBump/BoaTracking/internal/integrations/mailer"
	"github.com/BearBump/BoaTracking/internal/models"
	"github.com/BearBump/BoaTracking/internal/storage/sqlitestore"
)

type capturePublisher struct {
	mu       sync.Mutex
	payloads []messages.PasswordResetRequested
}

func (p *capturePublisher) Publish(_ context.Context, eventType, _ string, payload any) {
	if eventType != messages.TypePasswordResetRequested {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload.(messages.PasswordResetRequested))
}

type mailerMock struct {
	mock.Mock
}

func (m *mailerMock) Send(ctx context.Context, msg mailer.Message) error {
	return m.Called(ctx, msg).Error(0)
}

var resetLinkRe = regexp.MustCompile(`reset-password\?token=([0-9a-f]{64})`)

type UsersSuite struct {
	suite.Suite
	ctx   context.Context
	st    *sqlitestore.Storage
	mr    *miniredis.Miniredis
	clock *clock.Fixed
	pub   *capturePublisher
	mail  *mailerMock
	sent  []mailer.Message
	svc   *Service
}

func (s *UsersSuite) SetupTest() {
	s.ctx = context.Background()
	st, err := sqlitestore.New(filepath.Join(s.T().TempDir(), "boa.db"))
	s.Require().NoError(err)
	s.st = st
	s.mr = miniredis.RunT(s.T())
	s.clock = clock.NewFixed(time.Date(2025, 9, 10, 15, 0, 0, 0, time.UTC))
	s.pub = &capturePublisher{}
	s.sent = nil
	s.mail = &mailerMock{}
	s.mail.On("Send", mock.Anything, mock.AnythingOfType("mailer.Message")).
		Run(func(args mock.Arguments) { s.sent = append(s.sent, args.Get(1).(mailer.Message)) }).
		Return(nil).Maybe()
	s.svc = New(st, rediscache.NewRateLimiter(s.mr.Addr()), s.pub, s.clock, Settings{
		JWTSecret:             []byte("test-secret"),
		TokenTTL:              time.Hour,
		LoginPerMinute:        3,
		ForgotPasswordPerHour: 2,
	}).WithBcryptCost(bcrypt.MinCost).WithMailer(s.mail, "https://boa.bo/")
}

// mailedToken pulls the token out of the last reset mail.
func (s *UsersSuite) mailedToken() string {
	s.Require().NotEmpty(s.sent)
	m := resetLinkRe.FindStringSubmatch(s.sent[len(s.sent)-1].Body)
	s.Require().Len(m, 2)
	return m[1]
}

func (s *UsersSuite) TearDownTest() {
	s.st.Close()
}

func (s *UsersSuite) register(email, password string) *models.User {
	u, err := s.svc.Register(s.ctx, RegisterInput{Name: "Ana Rojas", Email: email, Password: password})
	s.Require().NoError(err)
	return u
}

func (s *UsersSuite) TestRegister() {
	u := s.register("ana@boa.bo", "secreto1")
	s.Require().Equal(models.DefaultUserRole, u.Role)
	s.Require().NotEqual("secreto1", u.PasswordHash)

	_, err := s.svc.Register(s.ctx, RegisterInput{Name: "Otra", Email: "ana@boa.bo", Password: "x"})
	s.Require().ErrorIs(err, models.ErrDuplicate)

	_, err = s.svc.Register(s.ctx, RegisterInput{Email: "b@boa.bo"})
	s.Require().EqualError(err, "Nombre, email y contraseña son requeridos")

	got, err := s.svc.Get(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().Equal("ana@boa.bo", got.Email)
}

func (s *UsersSuite) TestLoginAndMe() {
	u := s.register("ana@boa.bo", "secreto1")

	_, err := s.svc.Login(s.ctx, "ana@boa.bo", "wrong")
	s.Require().ErrorIs(err, models.ErrInvalidCredentials)
	_, err = s.svc.Login(s.ctx, "nadie@boa.bo", "secreto1")
	s.Require().ErrorIs(err, models.ErrInvalidCredentials)

	res, err := s.svc.Login(s.ctx, "ana@boa.bo", "secreto1")
	s.Require().NoError(err)
	s.Require().Equal(u.ID, res.User.ID)

	me, err := s.svc.Me(s.ctx, res.Token)
	s.Require().NoError(err)
	s.Require().Equal(u.ID, me.ID)

	s.clock.Advance(2 * time.Hour)
	_, err = s.svc.Me(s.ctx, res.Token)
	s.Require().ErrorIs(err, models.ErrInvalidToken)

	_, err = s.svc.Me(s.ctx, "garbage")
	s.Require().ErrorIs(err, models.ErrInvalidToken)
}

func (s *UsersSuite) TestLoginRateLimited() {
	s.register("ana@boa.bo", "secreto1")
	for i := 0; i < 3; i++ {
		_, err := s.svc.Login(s.ctx, "ana@boa.bo", "wrong")
		s.Require().ErrorIs(err, models.ErrInvalidCredentials)
	}
	_, err := s.svc.Login(s.ctx, "ANA@boa.bo", "secreto1")
	s.Require().ErrorIs(err, models.ErrRateLimited)

	s.mr.FastForward(time.Minute)
	_, err = s.svc.Login(s.ctx, "ana@boa.bo", "secreto1")
	s.Require().NoError(err)
}

func (s *UsersSuite) TestLimiterDownFailsOpen() {
	s.register("ana@boa.bo", "secreto1")
	s.mr.Close()
	_, err := s.svc.Login(s.ctx, "ana@boa.bo", "secreto1")
	s.Require().NoError(err)
}

func (s *UsersSuite) TestPasswordResetFlow() {
	s.register("ana@boa.bo", "secreto1")

	s.Require().NoError(s.svc.ForgotPassword(s.ctx, "nadie@boa.bo"))
	s.Require().Empty(s.pub.payloads)
	s.Require().Empty(s.sent)

	s.Require().NoError(s.svc.ForgotPassword(s.ctx, "ana@boa.bo"))
	s.Require().Len(s.sent, 1)
	s.Require().Equal("ana@boa.bo", s.sent[0].To)
	s.Require().Equal(resetSubject, s.sent[0].Subject)
	s.Require().Contains(s.sent[0].Body, "Hola Ana Rojas")
	s.Require().Contains(s.sent[0].Body, "https://boa.bo/reset-password?token=")
	token := s.mailedToken()

	s.Require().Len(s.pub.payloads, 1)
	ev := s.pub.payloads[0]
	s.Require().Equal("ana@boa.bo", ev.Email)
	s.Require().Equal(s.clock.Now().Add(time.Hour), ev.ExpiresAt)
	raw, err := json.Marshal(ev)
	s.Require().NoError(err)
	s.Require().NotContains(string(raw), token)

	u, err := s.svc.VerifyResetToken(s.ctx, token)
	s.Require().NoError(err)
	s.Require().Equal("ana@boa.bo", u.Email)

	err = s.svc.ResetPassword(s.ctx, token, "corta")
	s.Require().EqualError(err, "La contraseña debe tener al menos 6 caracteres")

	s.Require().NoError(s.svc.ResetPassword(s.ctx, token, "nueva123"))
	_, err = s.svc.VerifyResetToken(s.ctx, token)
	s.Require().ErrorIs(err, models.ErrInvalidToken)

	_, err = s.svc.Login(s.ctx, "ana@boa.bo", "nueva123")
	s.Require().NoError(err)
}

func (s *UsersSuite) TestResetTokenExpiresAfterOneHour() {
	s.register("ana@boa.bo", "secreto1")
	s.Require().NoError(s.svc.ForgotPassword(s.ctx, "ana@boa.bo"))
	token := s.mailedToken()

	s.clock.Advance(59 * time.Minute)
	_, err := s.svc.VerifyResetToken(s.ctx, token)
	s.Require().NoError(err)

	s.clock.Advance(time.Minute)
	err = s.svc.ResetPassword(s.ctx, token, "nueva123")
	s.Require().ErrorIs(err, models.ErrInvalidToken)
}

func (s *UsersSuite) TestForgotPasswordRateLimited() {
	s.register("ana@boa.bo", "secreto1")
	s.Require().NoError(s.svc.ForgotPassword(s.ctx, "ana@boa.bo"))
	s.Require().NoError(s.svc.ForgotPassword(s.ctx, "ana@boa.bo"))
	s.Require().ErrorIs(s.svc.ForgotPassword(s.ctx, "ana@boa.bo"), models.ErrRateLimited)
}

func (s *UsersSuite) TestForgotPasswordWithoutPublisher() {
	s.svc.events = nil
	s.register("ana@boa.bo", "secreto1")

	s.Require().NoError(s.svc.ForgotPassword(s.ctx, "ana@boa.bo"))
	s.Require().Len(s.sent, 1)
	_, err := s.svc.VerifyResetToken(s.ctx, s.mailedToken())
	s.Require().NoError(err)
}

func (s *UsersSuite) TestForgotPasswordMailFailure() {
	s.register("ana@boa.bo", "secreto1")
	m := &mailerMock{}
	m.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	s.svc.WithMailer(m, "https://boa.bo")

	err := s.svc.ForgotPassword(s.ctx, "ana@boa.bo")
	s.Require().ErrorIs(err, models.ErrMailDelivery)
	s.Require().Empty(s.pub.payloads)
	m.AssertExpectations(s.T())
}

func TestUsersSuite(t *testing.T) {
	suite.Run(t, new(UsersSuite))
}

func TestResetLink_EscapesToken(t *testing.T) {
	svc := New(nil, nil, nil, clock.NewFixed(time.Now()), Settings{}).WithMailer(nil, "http://localhost:5173/")
	require.Equal(t, "http://localhost:5173/reset-password?token=a%2Bb", svc.ResetLink("a+b"))
}

func TestNew_DefaultsTokenTTL(t *testing.T) {
	svc := New(nil, nil, nil, clock.NewFixed(time.Now()), Settings{})
	require.Equal(t, 12*time.Hour, svc.settings.TokenTTL)
}
