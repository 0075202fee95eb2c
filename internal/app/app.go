// Package app initializes and runs the contact book service.
// It configures logging, storage, authentication, and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/contactbook/internal/auth"
	"github.com/patric-chuzhbe/contactbook/internal/config"
	"github.com/patric-chuzhbe/contactbook/internal/db/memorystorage"
	"github.com/patric-chuzhbe/contactbook/internal/db/postgresdb"
	"github.com/patric-chuzhbe/contactbook/internal/db/sqlitedb"
	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/ipchecker"
	"github.com/patric-chuzhbe/contactbook/internal/logger"
	"github.com/patric-chuzhbe/contactbook/internal/models"
	"github.com/patric-chuzhbe/contactbook/internal/passhash"
	"github.com/patric-chuzhbe/contactbook/internal/router"
	"github.com/patric-chuzhbe/contactbook/internal/service"
)

// App encapsulates the configuration, HTTP handler and storage backend
// needed to run the contact book service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up the router and middleware
func New(optionsProto ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(optionsProto...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	signingKey, err := app.cfg.SigningKey()
	if err != nil {
		return nil, fmt.Errorf("in internal/app/app.go/New(): error while `app.cfg.SigningKey()` calling: %w", err)
	}

	guard, err := ipchecker.New(app.cfg.TrustedSubnet, ipchecker.WithProxyHeaders(app.cfg.TrustProxyHeaders))
	if err != nil {
		return nil, fmt.Errorf("in internal/app/app.go/New(): error while `ipchecker.New()` calling: %w", err)
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	authenticator := auth.New(signingKey, app.cfg.TokenTTL)

	app.httpHandler = router.New(
		service.New(
			app.db,
			passhash.New(app.cfg.BcryptCost),
			authenticator,
		),
		authenticator,
		guard,
	)

	return app, nil
}

// Handler exposes the configured HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

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
		logger.Log.Infoln("Received shutdown signal. Closing storage and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = a.db.Close()
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		_ = a.db.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		logger.Log.Debugln("Logger sync error: ", zap.Error(err))
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.SQLitePath != "" {
		return models.StorageTypeSQLite
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		logger.Log.Infoln("Using PostgreSQL storage", "driver", cfg.DatabaseDriver)
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDriver,
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeSQLite:
		logger.Log.Infoln("Using SQLite storage", "path", cfg.SQLitePath)
		return sqlitedb.New(
			context.Background(),
			cfg.SQLitePath,
			cfg.DBConnectionTimeout,
		)
	}

	logger.Log.Infoln("Using in-memory storage")
	return memorystorage.New()
}
