// Command server runs the StaffDrop HTTP API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharsanguruparan/staffdrop/internal/api"
	"github.com/dharsanguruparan/staffdrop/internal/app"
	"github.com/dharsanguruparan/staffdrop/internal/config"
	"github.com/dharsanguruparan/staffdrop/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateServer()
	}
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("init", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	srv := api.New(api.Options{Address: cfg.Address, MaxFileSize: cfg.MaxFileSize}, a.Imports, a.Ledger, a.Keys)
	if err := srv.Run(ctx); err != nil {
		slog.Error("server stopped", "error", err)
		_ = a.Close()
		os.Exit(1)
	}
}
