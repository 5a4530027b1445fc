package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/deliciousroute/delicious-route/internal/auth"
	"github.com/deliciousroute/delicious-route/internal/config"
	"github.com/deliciousroute/delicious-route/internal/database"
	"github.com/deliciousroute/delicious-route/internal/geocode"
	"github.com/deliciousroute/delicious-route/internal/handlers"
	"github.com/deliciousroute/delicious-route/internal/hours"
	"github.com/deliciousroute/delicious-route/internal/instagram"
	"github.com/deliciousroute/delicious-route/internal/logging"
	"github.com/deliciousroute/delicious-route/internal/mail"
	"github.com/deliciousroute/delicious-route/internal/maintenance"
	"github.com/deliciousroute/delicious-route/internal/token"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Determine if we're in development mode
	isDev := os.Getenv("ENV") != config.EnvProduction

	// Initialize logging
	logging.Initialize(isDev)

	logger := logging.GetLogger("main")

	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_date", date).
		Msg("Starting Delicious Route")

	// Create context that's canceled on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("Received signal, initiating shutdown")
		cancel()
	}()

	if err := run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Application run failed")
	}
}

func run(ctx context.Context) error {
	logger := logging.GetLogger("main")

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = config.DefaultConfigFile
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Str("config_path", configPath).Msg("Failed to load configuration")
		return err
	}

	logging.Initialize(cfg.Service.IsDevelopment())
	logging.SetLogLevel(cfg.Service.LogLevel)
	logger = logging.GetLogger("main")
	logger.Info().Str("log_level", cfg.Service.LogLevel).Str("env", cfg.Service.Env).Msg("Configuration loaded")

	loc, err := hours.LoadLocation(cfg.Hours.Timezone)
	if err != nil {
		logger.Warn().Err(err).Str("timezone", cfg.Hours.Timezone).Msg("Unknown hours timezone, evaluating in UTC")
	}
	evaluator := hours.NewEvaluator(loc, time.Now)
	logger.Info().Str("timezone", evaluator.Location().String()).Msg("Hours evaluator ready")

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		logger.Error().Err(err).Str("path", filepath.Dir(cfg.Database.Path)).Msg("Failed to create data directory")
		return err
	}

	dbOpts := database.NewDefaultOptions(cfg.Database.Path)
	dbOpts.BusyTimeout = cfg.Database.BusyTimeoutMs
	db, err := database.New(dbOpts)
	if err != nil {
		wrappedErr := fmt.Errorf("failed to initialize database: %w", err)
		logger.Error().Err(wrappedErr).Str("db_path", cfg.Database.Path).Msg("Database initialization failed")
		return wrappedErr
	}
	defer db.Close()

	stores, err := handlers.NewStores(db)
	if err != nil {
		wrappedErr := fmt.Errorf("failed to initialize stores: %w", err)
		logger.Error().Err(wrappedErr).Msg("Store initialization failed")
		return wrappedErr
	}
	sessions, err := database.NewSessionStore(db)
	if err != nil {
		wrappedErr := fmt.Errorf("failed to initialize session store: %w", err)
		logger.Error().Err(wrappedErr).Msg("Session store initialization failed")
		return wrappedErr
	}
	passwords, err := database.NewPasswordStore(db)
	if err != nil {
		wrappedErr := fmt.Errorf("failed to initialize password store: %w", err)
		logger.Error().Err(wrappedErr).Msg("Password store initialization failed")
		return wrappedErr
	}

	tokenManager := token.NewManager(sessions, passwords, cfg.Session.TTL, cfg.Password.ResetTokenTTL, time.Now)
	authService := auth.NewService(stores.Users, passwords, tokenManager,
		auth.NewHasher(cfg.Password.BcryptCost), cfg.Password.HistoryLimit, cfg.Server.BaseURL)

	var geocoder geocode.Geocoder = geocode.Disabled{}
	if cfg.Geocoding.Enabled {
		geocoder = geocode.NewClient(cfg.Geocoding)
	}

	// Initialize base handler first, as other handlers depend on it
	baseHandler := handlers.NewBaseHandler(stores, authService, evaluator, cfg.Session)
	healthHandler := handlers.NewHealthHandler(baseHandler)

	mux := http.NewServeMux()
	healthHandler.RegisterRoutes(mux)
	handlers.NewVendorHandler(baseHandler).RegisterRoutes(mux)
	handlers.NewReactionHandler(baseHandler).RegisterRoutes(mux)
	handlers.NewReelHandler(baseHandler).RegisterRoutes(mux)
	handlers.NewEventHandler(baseHandler).RegisterRoutes(mux)
	handlers.NewAuthHandler(baseHandler, cfg.RateLimit).RegisterRoutes(mux)
	handlers.NewVendorProfileHandler(baseHandler).RegisterRoutes(mux)
	handlers.NewGPSHandler(baseHandler, geocoder).RegisterRoutes(mux)
	handlers.NewMenuHandler(baseHandler).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      healthHandler.Gate(baseHandler.WithSession(mux)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// The listener comes up first so /healthz answers while the schema migrates
	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if err := db.MigrateDatabase(); err != nil {
		wrappedErr := fmt.Errorf("failed to initialize database schema: %w", err)
		logger.Error().Err(wrappedErr).Msg("Database schema initialization failed")
		return wrappedErr
	}

	seeder, err := database.NewSeeder(db)
	if err != nil {
		wrappedErr := fmt.Errorf("failed to initialize seeder: %w", err)
		logger.Error().Err(wrappedErr).Msg("Seeder initialization failed")
		return wrappedErr
	}
	if err := seeder.Run(ctx, cfg.Database.SeedDemoData); err != nil {
		logger.Error().Err(err).Msg("Database seeding failed")
		return err
	}

	mailer, err := mail.New(cfg.Email)
	if err != nil {
		wrappedErr := fmt.Errorf("failed to initialize mailer: %w", err)
		logger.Error().Err(wrappedErr).Msg("Mailer initialization failed")
		return wrappedErr
	}
	notifier := mail.NewNotifier(mailer)
	notifier.Register()
	defer notifier.Unregister()

	if cfg.Instagram.Configured() {
		publisher := instagram.NewPublisher(cfg.Instagram)
		publisher.Register()
		defer publisher.Unregister()
		logger.Info().Msg("Instagram reel publishing enabled")
	} else {
		logger.Info().Msg("Instagram credentials missing, reels stay local")
	}

	runner := maintenance.NewRunner(stores.Reels, sessions, passwords, cfg.Maintenance.Interval, cfg.Maintenance.ReelTTL, time.Now)
	go runner.Run(ctx)

	healthHandler.SetReady(true)
	logger.Info().Msg("Service ready")

	select {
	case <-ctx.Done():
		logger.Info().Msg("Context cancelled, initiating shutdown sequence")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("HTTP server error")
		return err
	}

	logger.Info().Msg("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shut down gracefully")
	}
	logger.Info().Msg("Shutdown complete")
	return nil
}
