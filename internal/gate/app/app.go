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

	httpapi "github.com/aussiebroadwan/gatekeeper/internal/gate/http"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/kv"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/service"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/store"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// ErrMissingSecret aborts startup: running without a signing secret
// would make every issued token unverifiable after a restart.
var ErrMissingSecret = errors.New("app: AUTH_SIGNING_SECRET is required")

// Application encapsulates the gatekeeper service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	tokens kv.Store

	// Services
	authService *service.AuthService
	userService *service.UserService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if cfg.SigningSecret == "" {
		return nil, ErrMissingSecret
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatekeeper",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initTokenStore(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		_ = app.tokens.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("gatekeeper starting", "port", app.cfg.Port, "version", BuildVersion)

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
	app.logger.Info("shutting down gatekeeper...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.tokens.Close(); err != nil {
		app.logger.Error("error closing token store", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gatekeeper stopped")
	return nil
}

// initDatabase initializes the user directory and applies migrations.
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

// initTokenStore connects to redis for refresh sessions and rate-limit
// counters.
func (app *Application) initTokenStore() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tokens, err := kv.Dial(ctx, app.cfg.RedisAddr, app.cfg.RedisPassword, app.cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("failed to connect to token store: %w", err)
	}
	app.tokens = tokens

	app.logger.Info("token store connected", "addr", app.cfg.RedisAddr)
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() error {
	signer, err := jwtx.NewSigner([]byte(app.cfg.SigningSecret))
	if err != nil {
		return fmt.Errorf("failed to initialize token signer: %w", err)
	}

	app.authService = &service.AuthService{
		Store:      app.db,
		KV:         app.tokens,
		Signer:     signer,
		Issuer:     app.cfg.Issuer,
		Audience:   []string{app.cfg.Audience},
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}
	app.userService = &service.UserService{
		Store: app.db,
		KV:    app.tokens,
	}
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	verifier, err := jwtx.NewVerifier(
		[]byte(app.cfg.SigningSecret),
		app.cfg.Issuer,
		[]string{app.cfg.Audience},
	)
	if err != nil {
		// NewVerifier only fails on an empty secret, which New rejects
		// up front.
		panic(err)
	}

	router := httpapi.NewRouter(
		verifier,
		BuildVersion,
		app.db,
		app.tokens,
		httpx.RateLimitConfig{
			Requests:       app.cfg.RateLimitRequests,
			Window:         app.cfg.RateLimitWindow,
			Key:            kv.RateLimitKey,
			ExemptPrefixes: []string{"/livez", "/readyz", "/metrics", "/swagger"},
		},
		app.logger,
	)

	router.AuthService = app.authService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
