package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/BoaTracking/config"
	"github.com/BearBump/BoaTracking/internal/api/httpapi"
	"github.com/BearBump/BoaTracking/internal/broker/events"
	"github.com/BearBump/BoaTracking/internal/broker/kafka"
	"github.com/BearBump/BoaTracking/internal/cache"
	"github.com/BearBump/BoaTracking/internal/cache/rediscache"
	"github.com/BearBump/BoaTracking/internal/clock"
	"github.com/BearBump/BoaTracking/internal/integrations/mailer"
	"github.com/BearBump/BoaTracking/internal/integrations/mailer/logmailer"
	"github.com/BearBump/BoaTracking/internal/integrations/mailer/smtpmailer"
	"github.com/BearBump/BoaTracking/internal/logging"
	"github.com/BearBump/BoaTracking/internal/services/alerts"
	"github.com/BearBump/BoaTracking/internal/services/claims"
	"github.com/BearBump/BoaTracking/internal/services/packages"
	"github.com/BearBump/BoaTracking/internal/services/preregistrations"
	"github.com/BearBump/BoaTracking/internal/services/returns"
	"github.com/BearBump/BoaTracking/internal/services/users"
	"github.com/BearBump/BoaTracking/internal/storage"
)

type eventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload any)
}

type boaAPIApp struct {
	ctx     context.Context
	cancel  context.CancelFunc
	opts    boaAPIOpts
	api     *httpapi.API
	closers []func()
}

func mustBootstrapBoaAPI() *boaAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("config parse error: %v", err))
	}

	_, logCloser := logging.Setup(cfg.Log)
	app := &boaAPIApp{closers: []func(){func() { _ = logCloser.Close() }}}

	clk, err := clock.NewLocal(cfg.Boa.Timezone)
	if err != nil {
		panic(err)
	}

	httpAddr := cfg.Boa.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	swaggerPath := cfg.Boa.SwaggerPath
	if p := os.Getenv("swaggerPath"); p != "" {
		swaggerPath = p
	}
	topic := cfg.Kafka.EventsTopicName
	if topic == "" {
		topic = "boa.events"
	}
	cacheTTL := time.Duration(cfg.Boa.PackageCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	cooldown := time.Duration(cfg.Boa.AlertReactivateCooldownHours) * time.Hour
	if cooldown <= 0 {
		cooldown = alerts.DefaultReactivateCooldown
	}
	jwtTTL := time.Duration(cfg.Boa.JWTTTLMinutes) * time.Minute
	if jwtTTL <= 0 {
		jwtTTL = 12 * time.Hour
	}
	loginLimit := int64(cfg.Boa.LoginRateLimitPerMinute)
	if loginLimit <= 0 {
		loginLimit = 10
	}
	forgotLimit := int64(cfg.Boa.ForgotPasswordRateLimitPerHour)
	if forgotLimit <= 0 {
		forgotLimit = 5
	}
	if cfg.Boa.JWTSecret == "" {
		panic("boa.jwt_secret is required")
	}

	st := mustOpenStoreWithRetry(cfg.Database, 60*time.Second)
	app.closers = append(app.closers, st.Close)

	var (
		byteCache cache.BytesCache
		limiter   cache.Limiter
	)
	if cfg.Redis.Enabled() {
		rc := rediscache.NewClient(cfg.Redis.Addr())
		byteCache = rediscache.NewWithClient(rc)
		limiter = rediscache.NewRateLimiterWithClient(rc)
		app.closers = append(app.closers, func() { _ = rc.Close() })
	} else {
		slog.Warn("redis disabled: no package cache and no rate limits")
	}

	var publisher eventPublisher
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer([]string{cfg.Kafka.Addr()})
		publisher = events.New(producer, topic, clk)
		app.closers = append(app.closers, func() { _ = producer.Close() })
	} else {
		slog.Warn("kafka disabled: domain events are not published")
	}

	var mail mailer.Mailer
	if cfg.SMTP.Enabled() {
		mail = smtpmailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	} else {
		slog.Warn("smtp disabled: reset mails are only logged")
		mail = logmailer.New(slog.Default())
	}

	pkgs := packages.New(st, byteCache, cacheTTL, publisher, clk)
	app.api = httpapi.New(httpapi.Services{
		Packages:         pkgs,
		Alerts:           alerts.New(st, clk, cooldown),
		Preregistrations: preregistrations.New(st, publisher, clk),
		Returns:          returns.New(st, publisher, pkgs, clk),
		Claims:           claims.New(st, clk),
		Users: users.New(st, limiter, publisher, clk, users.Settings{
			JWTSecret:             []byte(cfg.Boa.JWTSecret),
			TokenTTL:              jwtTTL,
			LoginPerMinute:        loginLimit,
			ForgotPasswordPerHour: forgotLimit,
		}).WithMailer(mail, cfg.Boa.PublicBaseURL),
	}, st)

	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app.opts = boaAPIOpts{httpAddr: httpAddr, swaggerPath: swaggerPath}
	return app
}

func mustOpenStoreWithRetry(cfg config.DatabaseConfig, wait time.Duration) storage.Store {
	st, err := storage.OpenWithRetry(context.Background(), cfg, wait, time.Second)
	if err != nil {
		panic(err)
	}
	return st
}

// Close releases resources in reverse order of acquisition.
func (a *boaAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *boaAPIApp) Run() error {
	return runBoaAPI(a.ctx, a.opts, a.api)
}

