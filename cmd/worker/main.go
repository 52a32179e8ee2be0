// Command worker executes queued employee imports from Redis.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/staffdrop/internal/app"
	"github.com/dharsanguruparan/staffdrop/internal/config"
	"github.com/dharsanguruparan/staffdrop/internal/logging"
	"github.com/dharsanguruparan/staffdrop/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	// The worker consumes the queue itself; it never dispatches.
	cfg.DispatchMode = config.DispatchNone
	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("init", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	server := asynq.NewServer(app.RedisOpt(cfg), asynq.Config{
		Concurrency:    cfg.ProcessingPool,
		Queues:         map[string]int{cfg.ImportQueue: 1},
		RetryDelayFunc: worker.RetryDelay(10*time.Second, 10*time.Minute),
		Logger:         slogAdapter{},
	})
	mux := worker.NewProcessor(a.Runner).Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	slog.Info("worker started", "queue", cfg.ImportQueue, "concurrency", cfg.ProcessingPool)
	if err := server.Run(mux); err != nil {
		slog.Error("worker stopped", "error", err)
		_ = a.Close()
		os.Exit(1)
	}
}

// slogAdapter routes asynq's internal logging through slog.
type slogAdapter struct{}

func (slogAdapter) Debug(args ...any) { slog.Debug(fmt.Sprint(args...)) }
func (slogAdapter) Info(args ...any)  { slog.Info(fmt.Sprint(args...)) }
func (slogAdapter) Warn(args ...any)  { slog.Warn(fmt.Sprint(args...)) }
func (slogAdapter) Error(args ...any) { slog.Error(fmt.Sprint(args...)) }
func (slogAdapter) Fatal(args ...any) {
	slog.Error(fmt.Sprint(args...))
	os.Exit(1)
}
