package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/BearBump/BoaTracking/internal/broker/messages"
	"github.com/BearBump/BoaTracking/internal/cache"
	"github.com/BearBump/BoaTracking/internal/clock"
	"github.com/BearBump/BoaTracking/internal/integrations/mailer"
	"github.com/BearBump/BoaTracking/internal/models"
)

const (
	ResetTokenTTL     = time.Hour
	MinPasswordLength = 6
)

type Repository interface {
	CreateUser(ctx context.Context, in models.UserCreateInput, at time.Time) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*models.User, error)
	SetResetToken(ctx context.Context, userID uint64, token string, expiry time.Time) error
	ResetPassword(ctx context.Context, userID uint64, passwordHash string) error
}

type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any)
}

type Settings struct {
	JWTSecret             []byte
	TokenTTL              time.Duration
	LoginPerMinute        int64
	ForgotPasswordPerHour int64
}

type Service struct {
	repo       Repository
	limiter    cache.Limiter
	events     Publisher
	clock      clock.Clock
	settings   Settings
	bcryptCost int

	mailer  mailer.Mailer
	baseURL string
}

// New builds the service. A nil limiter disables rate limiting.
func New(repo Repository, limiter cache.Limiter, events Publisher, clk clock.Clock, settings Settings) *Service {
	if settings.TokenTTL <= 0 {
		settings.TokenTTL = 12 * time.Hour
	}
	return &Service{
		repo:       repo,
		limiter:    limiter,
		events:     events,
		clock:      clk,
		settings:   settings,
		bcryptCost: bcrypt.DefaultCost,
	}
}

func (s *Service) WithBcryptCost(cost int) *Service {
	s.bcryptCost = cost
	return s
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *Service) Get(ctx context.Context, id uint64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("Nombre, email y contraseña son requeridos")
	}
	if in.Role == "" {
		in.Role = models.DefaultUserRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	return s.repo.CreateUser(ctx, models.UserCreateInput{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
	}, s.clock.Now())
}

type LoginResult struct {
	User  *models.User
	Token string
}

// Login checks the password and issues a signed token. Unknown emails and
// wrong passwords both come back as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email y contraseña son requeridos")
	}
	if err := s.allow(ctx, "rl:login:"+strings.ToLower(email), s.settings.LoginPerMinute, time.Minute); err != nil {
		return nil, err
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Token: token}, nil
}

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Service) issueToken(u *models.User) (string, error) {
	now := s.clock.Now()
	c := claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.settings.TokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.settings.JWTSecret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Me resolves a bearer token to its user.
func (s *Service) Me(ctx context.Context, token string) (*models.User, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.settings.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return nil, models.ErrInvalidToken
	}
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return nil, models.ErrInvalidToken
	}
	return s.repo.GetUserByID(ctx, id)
}

// ForgotPassword issues a reset token for a known email and mails the link.
// Unknown emails are not an error so callers cannot enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.NewValidationError("Email es requerido")
	}
	if err := s.allow(ctx, "rl:forgot:"+strings.ToLower(email), s.settings.ForgotPasswordPerHour, time.Hour); err != nil {
		return err
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	expiry := s.clock.Now().Add(ResetTokenTTL)
	if err := s.repo.SetResetToken(ctx, u.ID, token, expiry); err != nil {
		return err
	}

	if s.mailer == nil {
		slog.Warn("no mailer configured: reset mail not sent", "user_id", u.ID)
	} else if err := s.sendResetMail(ctx, u, token, expiry); err != nil {
		return err
	}

	if s.events != nil {
		s.events.Publish(ctx, messages.TypePasswordResetRequested, u.Email, messages.PasswordResetRequested{
			UserID:    int64(u.ID),
			Email:     u.Email,
			ExpiresAt: expiry,
		})
	}
	return nil
}

// VerifyResetToken returns the token owner while the token is still valid.
func (s *Service) VerifyResetToken(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, models.NewValidationError("Token es requerido")
	}
	u, err := s.repo.GetUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		return nil, err
	}
	if u.ResetTokenExpiry == nil || !s.clock.Now().Before(*u.ResetTokenExpiry) {
		return nil, models.ErrInvalidToken
	}
	return u, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" || newPassword == "" {
		return models.NewValidationError("Token y nueva contraseña son requeridos")
	}
	if len([]rune(newPassword)) < MinPasswordLength {
		return models.NewValidationError("La contraseña debe tener al menos 6 caracteres")
	}
	u, err := s.VerifyResetToken(ctx, token)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	return s.repo.ResetPassword(ctx, u.ID, string(hash))
}

// allow fails open when the limiter itself is unavailable.
func (s *Service) allow(ctx context.Context, key string, limit int64, window time.Duration) error {
	if s.limiter == nil || limit <= 0 {
		return nil
	}
	ok, _, err := s.limiter.Allow(ctx, key, limit, window)
	if err != nil {
		slog.Warn("rate limiter unavailable", "key", key, "err", err)
		return nil
	}
	if !ok {
		return models.ErrRateLimited
	}
	return nil
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generate reset token")
	}
	return hex.EncodeToString(b), nil
}
