package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/folioworks/folio/internal/auth/audit"
	httpapi "github.com/folioworks/folio/internal/auth/http"
	"github.com/folioworks/folio/internal/auth/monitor"
	"github.com/folioworks/folio/internal/auth/service"
	"github.com/folioworks/folio/internal/auth/store"
	"github.com/folioworks/folio/internal/auth/store/drivers/sqlite"
	"github.com/folioworks/folio/pkg/cookiex"
	"github.com/folioworks/folio/pkg/cryptox"
	"github.com/folioworks/folio/pkg/jwtx"
	"github.com/folioworks/folio/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires the auth service together: store, token codec,
// services, monitor, and the HTTP server.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	codec   *jwtx.Codec
	cookies *cookiex.Manager
	monitor *monitor.Monitor

	authService         *service.AuthService
	mfaService          *service.MFAService
	securityService     *service.AccountSecurityService
	settingsService     *service.SettingsService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "folio-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	codec, err := jwtx.NewCodec([]byte(cfg.JWTSecret), cfg.Issuer, cfg.JWTAlgorithm)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("initialize token codec: %w", err)
	}
	app.codec = codec

	app.cookies = cookiex.New(cookiex.Options{
		Path:   cfg.CookiePath,
		Domain: cfg.CookieDomain,
		Secure: cfg.CookieSecure,
	})

	app.monitor = monitor.New(monitor.Options{Logger: app.logger})

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown drains in-flight requests, stops housekeeping, and closes
// the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied")
	return nil
}

func (app *Application) initServices() {
	app.settingsService = &service.SettingsService{Store: app.db}

	app.securityService = &service.AccountSecurityService{
		Store:            app.db,
		LockoutThreshold: app.cfg.LockoutThreshold,
		LockoutDuration:  app.cfg.LockoutDuration,
	}

	app.mfaService = &service.MFAService{
		Store:  app.db,
		Issuer: app.cfg.MFAIssuer,
	}

	app.authService = &service.AuthService{
		Store:    app.db,
		Codec:    app.codec,
		Security: app.securityService,
		MFA:      app.mfaService,
		Settings: app.settingsService,
		Audit: audit.Fanout{
			audit.NewSlogSink(app.logger),
			audit.NewStoreSink(app.db, app.logger),
		},
		Monitor:         app.monitor,
		BreakGlassUsers: app.cfg.BreakGlassUsers,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.monitor,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.codec,
		app.cookies,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.MFAService = app.mfaService
	router.Monitor = app.monitor
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
