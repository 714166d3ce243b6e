// Package app constructs the service objects from configuration and tears
// them down again.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/erazemk/najdeno/internal/api"
	"github.com/erazemk/najdeno/internal/asset"
	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/config"
	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/logger"
	"github.com/erazemk/najdeno/internal/service"
	"github.com/erazemk/najdeno/internal/store"
)

// App owns every long-lived object of the server.
type App struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *db.DB
	handler http.Handler
}

// New opens and migrates the database, sets up the asset backend and wires
// the services and the HTTP handler.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, err
	}

	secret := cfg.SecretKey
	if secret == "" {
		secret, err = store.NewSettings(database).SessionSecret(ctx)
		if err != nil {
			database.Close()
			return nil, err
		}
		log.Info().Msg("using session secret stored in the database")
	}

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		database.Close()
		return nil, err
	}

	assets := asset.NewStore(backend, asset.Options{
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
		MaxSize:           cfg.Uploads.MaxContentLength,
		MaxImageDimension: cfg.Uploads.MaxImageDimension,
	})

	items := store.NewItems(database)
	accounts := service.NewAccounts(
		store.NewUsers(database),
		store.NewTokens(database),
		auth.NewTokens(secret),
		service.SessionConfig{
			Duration:         cfg.Session.Duration,
			RememberDuration: cfg.Session.RememberDuration,
		},
	)

	handler := api.NewHandler(api.Deps{
		Items:       service.NewItems(items, assets),
		Accounts:    accounts,
		Finder:      items,
		Assets:      assets,
		DB:          database,
		Logger:      log,
		MaxBodySize: cfg.Uploads.MaxContentLength,
	})

	log.Info().
		Str("dialect", string(database.Dialect)).
		Str("asset_backend", cfg.Uploads.Backend).
		Msg("application ready")

	return &App{cfg: cfg, log: log, db: database, handler: handler.Routes()}, nil
}

func newBackend(ctx context.Context, cfg *config.Config) (asset.Backend, error) {
	switch cfg.Uploads.Backend {
	case config.BackendMinIO:
		return asset.NewMinIOBackend(ctx, cfg.MinIO)
	case config.BackendLocal, "":
		return asset.NewLocalBackend(cfg.Uploads.Folder)
	default:
		return nil, fmt.Errorf("unknown asset backend %q", cfg.Uploads.Backend)
	}
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests
// within the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.cfg.Address,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.cfg.Address).Msg("server started")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Close releases the database.
func (a *App) Close() error {
	a.log.Info().Msg("closing database")
	return a.db.Close()
}

// Migrate applies pending migrations to the configured database.
func Migrate(cfg *config.Config, log *logger.Logger) error {
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return err
	}

	log.Info().Str("dialect", string(database.Dialect)).Msg("migrations applied")
	return nil
}

// NewLogger builds the process logger writing to w at the configured level.
func NewLogger(cfg *config.Config, w io.Writer) *logger.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.New(w, "server", level)
}
