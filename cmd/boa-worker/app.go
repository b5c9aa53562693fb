package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/BoaTracking/config"
	"github.com/BearBump/BoaTracking/internal/broker/events"
	"github.com/BearBump/BoaTracking/internal/broker/kafka"
	"github.com/BearBump/BoaTracking/internal/cache"
	"github.com/BearBump/BoaTracking/internal/cache/rediscache"
	"github.com/BearBump/BoaTracking/internal/clock"
	"github.com/BearBump/BoaTracking/internal/integrations/mailer"
	"github.com/BearBump/BoaTracking/internal/integrations/mailer/logmailer"
	"github.com/BearBump/BoaTracking/internal/integrations/mailer/smtpmailer"
	"github.com/BearBump/BoaTracking/internal/services/notifier"
	"github.com/BearBump/BoaTracking/internal/services/sweeper"
	"github.com/BearBump/BoaTracking/internal/storage"
)

type workerStore interface {
	sweeper.Repository
	Ping(ctx context.Context) error
}

type eventConsumer interface {
	Consume(ctx context.Context, h kafka.Handler) error
	Close() error
}

// Factories return nil for components whose backend is not configured.
type workerFactories struct {
	newStorage   func(ctx context.Context, cfg *config.Config) (repo workerStore, closeFn func(), err error)
	newLocker    func(cfg *config.Config) (l cache.Locker, closeFn func())
	newPublisher func(cfg *config.Config, clk clock.Clock) (p sweeper.Publisher, closeFn func())
	newConsumer  func(cfg *config.Config) eventConsumer
	newMailer    func(cfg *config.Config) mailer.Mailer
}

// storageWait is how long the worker waits for the database at startup.
const storageWait = 60 * time.Second

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(ctx context.Context, cfg *config.Config) (workerStore, func(), error) {
			st, err := storage.OpenWithRetry(ctx, cfg.Database, storageWait, time.Second)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newLocker: func(cfg *config.Config) (cache.Locker, func()) {
			if !cfg.Redis.Enabled() {
				return nil, nil
			}
			rc := rediscache.NewClient(cfg.Redis.Addr())
			return rediscache.NewLockerWithClient(rc), func() { _ = rc.Close() }
		},
		newPublisher: func(cfg *config.Config, clk clock.Clock) (sweeper.Publisher, func()) {
			if !cfg.Kafka.Enabled() {
				return nil, nil
			}
			producer := kafka.NewProducer([]string{cfg.Kafka.Addr()})
			return events.New(producer, eventsTopic(cfg), clk), func() { _ = producer.Close() }
		},
		newConsumer: func(cfg *config.Config) eventConsumer {
			if !cfg.Kafka.Enabled() {
				return nil
			}
			group := cfg.Boa.KafkaConsumerGroup
			if group == "" {
				group = "boa-notifier"
			}
			return kafka.NewConsumer([]string{cfg.Kafka.Addr()}, eventsTopic(cfg), group)
		},
		newMailer: func(cfg *config.Config) mailer.Mailer {
			if cfg.SMTP.Enabled() {
				return smtpmailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
			}
			return logmailer.New(slog.Default())
		},
	}
}

func eventsTopic(cfg *config.Config) string {
	if cfg.Kafka.EventsTopicName != "" {
		return cfg.Kafka.EventsTopicName
	}
	return "boa.events"
}

type workerSettings struct {
	interval      time.Duration
	lockTTL       time.Duration
	recreateAfter time.Duration
}

func settingsFromConfig(cfg *config.Config) workerSettings {
	s := workerSettings{
		interval:      time.Duration(cfg.Boa.SweepIntervalSeconds) * time.Second,
		lockTTL:       time.Duration(cfg.Boa.SweepLockTTLSeconds) * time.Second,
		recreateAfter: time.Duration(cfg.Boa.SweepRecreateAfterHours) * time.Hour,
	}
	if s.interval <= 0 {
		s.interval = 30 * time.Minute
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 10 * time.Minute
	}
	if s.recreateAfter < 0 {
		s.recreateAfter = 0
	}
	return s
}

// RunBoaWorker runs the delay sweep, the notification consumer and the ops
// HTTP server until ctx is done.
func RunBoaWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	clk, err := clock.NewLocal(cfg.Boa.Timezone)
	if err != nil {
		return err
	}
	set := settingsFromConfig(cfg)

	repo, closeFn, err := f.newStorage(ctx, cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	sw := sweeper.New(repo, clk).WithSettings(set.interval, set.lockTTL, set.recreateAfter)
	if l, closeLock := f.newLocker(cfg); l != nil {
		sw = sw.WithLocker(l)
		if closeLock != nil {
			defer closeLock()
		}
	}
	if p, closePub := f.newPublisher(cfg, clk); p != nil {
		sw = sw.WithPublisher(p)
		if closePub != nil {
			defer closePub()
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{}, 2)
	if c := f.newConsumer(cfg); c != nil {
		n := notifier.New(f.newMailer(cfg), cfg.Boa.PublicBaseURL)
		go func() {
			defer func() { done <- struct{}{} }()
			defer c.Close()
			if err := c.Consume(ctx, n.Handle); err != nil && ctx.Err() == nil {
				slog.Error("notification consumer stopped", "error", err.Error())
			}
		}()
	} else {
		slog.Warn("kafka disabled: notifications are not delivered")
		done <- struct{}{}
	}

	httpAddr := cfg.Boa.WorkerHTTPAddr
	if httpAddr == "" {
		httpAddr = ":8081"
	}
	go func() {
		defer func() { done <- struct{}{} }()
		err := runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:    httpAddr,
			swaggerPath: cfg.Boa.WorkerSwaggerPath,
			sweeper:     sw,
			db:          repo,
			cfg:         cfg,
			settings:    set,
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("worker http server stopped", "error", err.Error())
		}
	}()

	slog.Info("delay sweeper started", "interval", set.interval.String(), "recreate_after", set.recreateAfter.String())
	err = sw.Run(ctx)
	cancel()
	<-done
	<-done
	return err
}
