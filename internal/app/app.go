package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clouddoctor/server/internal/cache"
	httpapi "github.com/clouddoctor/server/internal/http"
	"github.com/clouddoctor/server/internal/service"
	"github.com/clouddoctor/server/internal/store"
	"github.com/clouddoctor/server/internal/store/drivers/sqlite"
	"github.com/clouddoctor/server/pkg/cryptox"
	"github.com/clouddoctor/server/pkg/jwtx"
	"github.com/clouddoctor/server/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the server with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db    store.Store
	cache cache.TokenCache
	codec *jwtx.Codec

	// Services
	ledgerService       *service.LedgerService
	sessionService      *service.SessionService
	registrationService *service.RegistrationService
	userService         *service.UserService
	contentService      *service.ContentService
	adminService        *service.AdminService
	auditService        *service.AuditService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "clouddoctor",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.AuthSecret == "" {
		return nil, errors.New("AUTH_SECRET must be set")
	}
	codec, err := jwtx.NewCodec(cfg.AuthSecret)
	if err != nil {
		return nil, err
	}
	app.codec = codec

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	app.initCache()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("server starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down server...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.cache.Close(); err != nil {
		app.logger.Error("error closing token cache", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("server stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initCache picks the access-token cache backend. Without Redis every deploy
// restart wipes the cache and thereby logs every user out; that is the
// documented trade-off of the in-memory mode.
func (app *Application) initCache() {
	if app.cfg.RedisAddr != "" {
		app.cache = cache.NewRedisCache(app.cfg.RedisAddr)
		app.logger.Info("access-token cache backed by redis", "addr", app.cfg.RedisAddr)
		return
	}
	app.cache = cache.NewMemoryCache()
	app.logger.Warn("access-token cache is in-memory; restarts will end all sessions")
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.ledgerService = service.NewLedgerService(app.db, app.codec, app.cfg.RefreshTokenTTL)
	app.sessionService = service.NewSessionService(
		app.db, app.cache, app.codec, app.ledgerService, app.cfg.AccessTokenTTL)
	app.registrationService = service.NewRegistrationService(app.db)
	app.userService = service.NewUserService(app.db, app.sessionService)
	app.contentService = service.NewContentService(app.db)
	app.adminService = service.NewAdminService(app.db, app.sessionService)
	app.auditService = service.NewAuditService(app.db, app.cfg.AuditAPIURL)

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.db,
		app.cache,
		app.sessionService,
		httpapi.CookiePolicy{Secure: app.cfg.CookieSecure, Domain: app.cfg.CookieDomain},
		app.cfg.AccessTokenTTL,
		app.cfg.RefreshTokenTTL,
		BuildVersion,
		app.logger,
	)

	// Wire services to router
	router.Registration = app.registrationService
	router.Users = app.userService
	router.Content = app.contentService
	router.Admin = app.adminService
	router.Audit = app.auditService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
