package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicalert/civicalert-server/internal/auth"
	"github.com/civicalert/civicalert-server/internal/config"
	"github.com/civicalert/civicalert-server/internal/realtime"
	"github.com/civicalert/civicalert-server/internal/service/analytics"
	"github.com/civicalert/civicalert-server/internal/service/notifications"
	"github.com/civicalert/civicalert-server/internal/service/reports"
	"github.com/civicalert/civicalert-server/internal/store"
	"github.com/civicalert/civicalert-server/internal/store/sqlite"
	transporthttp "github.com/civicalert/civicalert-server/internal/transport/http"
)

// App wires together the hub, domain services and the transport layer.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	// One hub instance, injected everywhere that broadcasts. The domain
	// services call into it one-way; it never calls back.
	hub := realtime.NewHub(authService, logger)

	notificationService := notifications.NewService(st, hub, logger)
	reportService := reports.NewService(st, hub, notificationService, logger)
	analyticsService := analytics.NewService(st)

	server := transporthttp.NewServer(hub, transporthttp.Services{
		Auth:          authService,
		Reports:       reportService,
		Notifications: notificationService,
		Analytics:     analyticsService,
	}, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
