package main

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kadirbarquet/usuarios-api/internal/auth"
	"github.com/kadirbarquet/usuarios-api/internal/background"
	"github.com/kadirbarquet/usuarios-api/internal/config"
	"github.com/kadirbarquet/usuarios-api/internal/database"
	"github.com/kadirbarquet/usuarios-api/internal/handlers"
	middlewareCustom "github.com/kadirbarquet/usuarios-api/internal/middleware"
	"github.com/kadirbarquet/usuarios-api/internal/models"
	"github.com/kadirbarquet/usuarios-api/internal/oauth"
	"github.com/kadirbarquet/usuarios-api/internal/repositories"
	"github.com/kadirbarquet/usuarios-api/internal/routes"
	"github.com/kadirbarquet/usuarios-api/internal/services"
	pkgauth "github.com/kadirbarquet/usuarios-api/pkg/auth"
	pkghttp "github.com/kadirbarquet/usuarios-api/pkg/http"
	pkglogger "github.com/kadirbarquet/usuarios-api/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Server.SlogLevel()}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Stop waiting for the database when the process is told to stop
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectWithRetry(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	stateRepo := repositories.NewOAuthStateRepository(db)

	cleanupManager := background.NewCleanupManager(map[string]background.Purger{
		"sessions":     sessionRepo,
		"oauth_states": stateRepo,
	}, logger, cfg.Auth.CleanupInterval)

	// Initialize auth primitives
	auditLogger := pkglogger.NewAuditLogger(logger)
	hasher := pkgauth.NewHasher(cfg.Auth.BcryptCost)
	if hasher.Cost() != cfg.Auth.BcryptCost {
		logger.Warn("BCRYPT_COST out of range, using default", slog.Int("bcrypt_cost", hasher.Cost()))
	}
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret)
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)

	// Initialize services
	userService := services.NewUserService(userRepo, hasher, logger, auditLogger)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:    cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs:  cfg.Auth.TimingDelayRandomMs,
		DelayOnSuccess: cfg.Auth.TimingDelayOnSuccess,
	})
	authService := services.NewAuthService(userService, hasher, tokenManager, timingDelay, logger, auditLogger)

	var provider services.IdentityProvider
	if cfg.Google.Enabled() {
		provider = oauth.NewGoogleProvider(cfg.Google)
	} else {
		logger.Warn("GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set, Google login disabled")
	}
	oauthService := services.NewOAuthService(provider, stateRepo, userService, tokenManager,
		cfg.Server.FrontendURL, cfg.Auth.OAuthStateTTL, logger, auditLogger)

	// Session bridge for the Google redirect round trip
	sessionStore := auth.NewPGStore(sessionRepo, auth.SessionOptions(cfg.Session), []byte(cfg.Session.Secret))
	sessionBridge := auth.NewSessionBridge(sessionStore, cfg.Session.Name, userService, logger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, logger)
	authHandler := handlers.NewAuthHandler(authService, sessionBridge, ipConfig, logger, auditLogger)
	oauthHandler := handlers.NewOAuthHandler(oauthService, sessionBridge, ipConfig, logger)
	userHandler := handlers.NewUserHandler(userService, ipConfig, logger, auditLogger)

	// Create the first account if configured
	seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := ensureSeedUser(seedCtx, userService, cfg.Seed, logger); err != nil {
		logger.Error("failed to ensure seed user", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if cfg.IsProduction() {
		// behind the hosting proxy; X-Forwarded-For carries the client
		router.Use(middleware.RealIP)
	}
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, healthHandler, authHandler, oauthHandler, userHandler, tokenManager,
		middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Server.AuthRateLimitPerMinute})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go cleanupManager.Start(ctx)

	// Start server
	go func() {
		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.String("frontend_url", cfg.Server.FrontendURL),
			slog.Any("allowed_origins", cfg.Server.AllowedOrigins),
			slog.Bool("google_login", cfg.Google.Enabled()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("shutdown signal received")

	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureSeedUser creates a local account from the SEED_* settings so a fresh
// deployment has someone who can log in
func ensureSeedUser(ctx context.Context, users *services.UserService, seed config.SeedConfig, logger *slog.Logger) error {
	if !seed.Enabled() {
		logger.Debug("no SEED_EMAIL or SEED_PASSWORD set, skipping seed user")
		return nil
	}

	_, err := users.FindByEmail(ctx, seed.Email)
	if err == nil {
		logger.Info("seed user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check seed user: %w", err)
	}

	if _, err := users.Create(ctx, services.CreateUserInput{Name: seed.Name, Email: seed.Email, Password: seed.Password}); err != nil {
		return fmt.Errorf("failed to create seed user: %w", err)
	}

	logger.Info("seed user created", slog.String("email", pkglogger.SanitizedEmail(seed.Email)))
	return nil
}
