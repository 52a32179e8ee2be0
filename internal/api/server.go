// Package api exposes the StaffDrop HTTP endpoints: employee imports and the
// invoice API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dharsanguruparan/staffdrop/internal/api/middleware"
	"github.com/dharsanguruparan/staffdrop/internal/importer"
	"github.com/dharsanguruparan/staffdrop/internal/ledger"
	"github.com/dharsanguruparan/staffdrop/internal/logging"
)

// Options configures a Server.
type Options struct {
	Address     string
	MaxFileSize int64
}

// Server wires the HTTP routes to the import and ledger services.
type Server struct {
	opts    Options
	imports *importer.Service
	ledger  *ledger.Service
	keys    middleware.KeyResolver
	router  *chi.Mux
	server  *http.Server
}

// New constructs a Server.
func New(opts Options, imports *importer.Service, ledgerSvc *ledger.Service, keys middleware.KeyResolver) *Server {
	s := &Server{
		opts:    opts,
		imports: imports,
		ledger:  ledgerSvc,
		keys:    keys,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.keys))

		r.Route("/imports", func(r chi.Router) {
			r.Post("/", s.handleSubmitImport)
			r.Get("/", s.handleListImports)
			r.Get("/template", s.handleImportTemplate)
			r.Post("/start", s.handleStartImports)
			r.Get("/{id}", s.handleGetImport)
			r.Post("/{id}/start", s.handleStartImport)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Post("/create", s.handleCreateInvoices)
			r.Put("/update", s.handleUpdateInvoices)
			r.Post("/update", s.handleUpdateInvoices)
			r.Post("/register_payment", s.handleRegisterPayments)
			r.Get("/list", s.handleListInvoices)
			r.Post("/list", s.handleListInvoices)
		})
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	logging.FromContext(ctx).Info("api listening", "address", s.opts.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
