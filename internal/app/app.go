// Package app wires the StaffDrop components from configuration. The API
// server, the worker and the CLI all build on it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/staffdrop/internal/apikey"
	"github.com/dharsanguruparan/staffdrop/internal/config"
	"github.com/dharsanguruparan/staffdrop/internal/database"
	"github.com/dharsanguruparan/staffdrop/internal/employee"
	"github.com/dharsanguruparan/staffdrop/internal/importer"
	"github.com/dharsanguruparan/staffdrop/internal/ledger"
	"github.com/dharsanguruparan/staffdrop/internal/logging"
	"github.com/dharsanguruparan/staffdrop/internal/notify"
	"github.com/dharsanguruparan/staffdrop/internal/processing"
	"github.com/dharsanguruparan/staffdrop/internal/queue"
	"github.com/dharsanguruparan/staffdrop/internal/repository"
	"github.com/dharsanguruparan/staffdrop/internal/s3storage"
	"github.com/dharsanguruparan/staffdrop/internal/signing"
)

// App holds the wired components.
type App struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	Jobs    *repository.JobRepository
	Users   *repository.UserRepository
	Files   *s3storage.Storage
	Runner  *importer.Runner
	Imports *importer.Service
	Ledger  *ledger.Service
	Keys    *apikey.Manager

	closers []func() error
}

// New connects to PostgreSQL and the object store and builds every service.
// The dispatcher follows cfg.DispatchMode.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	a.DB = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return err
	}
	a.Jobs = repository.NewJobRepository(pool)
	a.Users = repository.NewUserRepository(pool)

	files, err := s3storage.New(cfg)
	if err != nil {
		return err
	}
	if err := files.EnsureBucket(ctx); err != nil {
		return err
	}
	a.Files = files

	mailer, err := notify.NewMailer(cfg)
	if err != nil {
		return err
	}
	a.Runner = importer.NewRunner(a.Jobs, files, employee.NewStore(pool), notify.New(a.Users, mailer),
		importer.RunnerConfig{StaleAfter: cfg.ImportStaleAfter})

	dispatcher, err := a.dispatcher(ctx)
	if err != nil {
		return err
	}
	a.Imports = importer.NewService(a.Jobs, files, dispatcher)

	ledgerStore := ledger.NewPostgresStore(pool)
	lookup, err := ledger.NewPaymentLookup(cfg.PaymentLookup, ledgerStore)
	if err != nil {
		return err
	}
	a.Ledger = ledger.NewService(ledgerStore, lookup)
	a.Keys = apikey.NewManager(apikey.NewPostgresStore(pool), signing.NewSigner(cfg.APIKeySecret))
	return nil
}

func (a *App) dispatcher(ctx context.Context) (importer.Dispatcher, error) {
	cfg := a.Config
	log := logging.FromContext(ctx).With("dispatch_mode", cfg.DispatchMode)
	switch cfg.DispatchMode {
	case config.DispatchAsynq:
		client := queue.NewClient(asynq.NewClient(RedisOpt(cfg)), queue.ClientOptions{
			Queue:    cfg.ImportQueue,
			MaxRetry: cfg.ImportMaxRetry,
		})
		a.closers = append(a.closers, client.Close)
		log.Info("import dispatcher ready", "queue", cfg.ImportQueue)
		return client, nil
	case config.DispatchLocal:
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		pool := processing.New(a.Runner, cfg.ProcessingPool)
		pool.Start(runCtx)
		a.closers = append(a.closers, func() error { cancel(); pool.Wait(); return nil })
		log.Info("import dispatcher ready", "workers", cfg.ProcessingPool)
		return pool, nil
	case config.DispatchInline:
		log.Info("import dispatcher ready")
		return queue.Inline{Runner: a.Runner}, nil
	case config.DispatchNone:
		log.Warn("no import dispatcher, started jobs stay pending")
		return queue.Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", cfg.DispatchMode)
	}
}

// RedisOpt returns the asynq connection options for cfg.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
