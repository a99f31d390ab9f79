// Package server assembles the HTTP surface: the signed inbound endpoint,
// the authenticated command API, read-only listings, health and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/josh-kwaku/civitas/internal/handler"
	"github.com/josh-kwaku/civitas/internal/middleware"
)

type Handlers struct {
	Health   *handler.HealthHandler
	Inbound  *handler.InboundHandler
	Commands *handler.CommandHandler
	Accounts *handler.AccountHandler
	Listings *handler.ListingHandler
}

// Routes builds the router. The inbound endpoint authenticates by
// signature; every other /api/v1 route requires a bearer token.
func Routes(h Handlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Tracing)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)

	r.Get("/health", h.Health.Liveness)
	r.Get("/ready", h.Health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/inbound", h.Inbound.Receive)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(jwtSecret))

			r.Post("/commands", h.Commands.Execute)
			r.Get("/balance", h.Accounts.Balance)
			r.Get("/history", h.Accounts.History)
			r.Get("/causae", h.Listings.ListCausae)
			r.Get("/causae/{id}", h.Listings.GetCausa)
			r.Get("/commissiones", h.Listings.ListCommissiones)
			r.Get("/commissiones/{id}", h.Listings.GetCommissio)
		})
	})

	return r
}

// Serve runs the server until ctx is cancelled, then drains in-flight
// requests.
func Serve(ctx context.Context, port int, routes http.Handler) error {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           routes,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("Serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("Serve: shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
