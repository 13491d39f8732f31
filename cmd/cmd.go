package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-rescue-backend/internal/cache"
	"food-rescue-backend/internal/config"
	"food-rescue-backend/internal/handlers"
	"food-rescue-backend/internal/metrics"
	"food-rescue-backend/internal/repository"
	"food-rescue-backend/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultConfigPath = "config.yaml"

func Run() {
	// Load configuration
	path := os.Getenv(config.EnvPrefix + "_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize repositories
	authRepo := repository.NewAuthRepository(db)
	userRepo := repository.NewUserRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	feed := repository.NewDonationFeed(db, donationRepo)

	// Initialize services
	authParams := services.AuthParams{
		Accounts: authRepo,
		Config:   cfg.Auth,
		Metrics:  m,
	}
	if cfg.Redis.Enabled() {
		rdb, err := cache.New(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer rdb.Close()
		authParams.Limiter = rdb
		authParams.Sessions = rdb
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")
	} else {
		log.Warn().Msg("Redis not configured: sign-in rate limiting and sign-out revocation are disabled")
	}
	authService := services.NewAuthService(authParams)

	profiles := services.NewProfileResolver(userRepo, cfg.Cache.ProfileSize, cfg.Cache.ProfileTTL, m)

	avatars, err := services.NewAvatarService(ctx, cfg.AWS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create avatar service")
	}

	notifier, err := services.NewPushNotifier(cfg.APNS, userRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create push notifier")
	}

	// A nil notifier sends nothing.
	manager := services.NewDonationManager(donationRepo, feed, notifier, m)
	if err := manager.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start donation manager")
	}
	defer manager.Stop()

	wsHub := services.NewWSHub(manager, m)
	wsHub.Start()
	defer wsHub.Stop()

	// Initialize handlers
	router := handlers.NewRouter(handlers.RouterParams{
		Auth:      handlers.NewAuthHandler(authService, profiles, wsHub),
		Profile:   handlers.NewProfileHandler(profiles, avatars, wsHub),
		Donations: handlers.NewDonationHandler(manager),
		Stats:     handlers.NewStatsHandler(manager, userRepo),
		WebSocket: handlers.NewWebSocketHandler(wsHub, authService, profiles),
		Tokens:    authService,
		Profiles:  profiles,
		DB:        db,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),

		TrustProxy: cfg.Server.TrustProxy,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
