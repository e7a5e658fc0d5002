// Package app initializes and runs the main application service.
// It configures logging, storage, authentication, news sourcing,
// and routing, and handles graceful shutdown.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diabesafe/backend/internal/auth"
	"github.com/diabesafe/backend/internal/config"
	"github.com/diabesafe/backend/internal/db/jsondb"
	"github.com/diabesafe/backend/internal/db/memorystorage"
	"github.com/diabesafe/backend/internal/db/postgresdb"
	"github.com/diabesafe/backend/internal/ipchecker"
	"github.com/diabesafe/backend/internal/logger"
	"github.com/diabesafe/backend/internal/models"
	"github.com/diabesafe/backend/internal/newsclient"
	"github.com/diabesafe/backend/internal/router"
	"github.com/diabesafe/backend/internal/service"
	"github.com/diabesafe/backend/internal/storage"
)

// App encapsulates the configuration, HTTP handler and storage backend
// needed to run the health tracking service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up token handling and the news source
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	jwtSigningSecret, err := base64.URLEncoding.DecodeString(app.cfg.JWTSigningSecret)
	if err != nil {
		return nil, err
	}

	theAuth, err := auth.New(jwtSigningSecret)
	if err != nil {
		return nil, err
	}

	ipChecker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	app.httpHandler = router.New(
		service.New(
			app.db,
			theAuth,
			getNewsProvider(app.cfg, app.db),
		),
		ipChecker,
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		if closeErr := a.db.Close(); closeErr != nil {
			logger.Log.Errorw("storage close error", "error", closeErr)
		}

		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getNewsProvider(cfg *config.Config, db storage.Storage) service.NewsProvider {
	if cfg.NewsSource == "api" {
		return newsclient.New(cfg.NewsAPIURL, cfg.NewsAPIKey, cfg.NewsCountry)
	}

	return db
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
