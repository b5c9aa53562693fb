package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	"github.com/BearBump/BoaTracking/config"
	"github.com/BearBump/BoaTracking/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("config parse error: %v", err))
	}
	if p := os.Getenv("workerSwaggerPath"); p != "" {
		cfg.Boa.WorkerSwaggerPath = p
	}

	_, logCloser := logging.Setup(cfg.Log)
	defer logCloser.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := RunBoaWorker(ctx, cfg, defaultWorkerFactories()); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker stopped", "error", err.Error())
		os.Exit(1)
	}
}
