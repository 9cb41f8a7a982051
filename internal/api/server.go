package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pixelmint/pixelmint/internal/identity"
	"github.com/pixelmint/pixelmint/internal/service"
)

// UserVerifier resolves a bearer token to an authenticated user.
type UserVerifier interface {
	GetUser(ctx context.Context, accessToken string) (*identity.User, error)
}

type Server struct {
	addr       string
	log        *slog.Logger
	db         *sql.DB
	verifier   UserVerifier
	generation *service.GenerationService
	wallet     *service.WalletService
	payments   *service.PaymentService
	router     *chi.Mux
}

func NewServer(addr string, log *slog.Logger, db *sql.DB, verifier UserVerifier, generation *service.GenerationService, wallet *service.WalletService, payments *service.PaymentService) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:       addr,
		log:        log,
		db:         db,
		verifier:   verifier,
		generation: generation,
		wallet:     wallet,
		payments:   payments,
		router:     r,
	}

	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Post("/webhooks/creem", s.handleCreemWebhook)

	r.Group(func(protected chi.Router) {
		protected.Use(s.authMiddleware)
		protected.Post("/api/generate", s.handleGenerate)
		protected.Get("/api/wallet/balance", s.handleBalance)
		protected.Get("/api/usage-records", s.handleUsageRecords)
		protected.Get("/api/recharge-records", s.handleRechargeRecords)
		protected.Post("/api/checkout", s.handleCreateCheckout)
	})

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.router,
		// Generation requests poll the provider for up to the attempt
		// budget, so the write timeout stays generous.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}
