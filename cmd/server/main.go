// Package main is the entry point for the Keyfold API server.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keyfold/keyfold/internal/config"
	"github.com/keyfold/keyfold/internal/crypto"
	"github.com/keyfold/keyfold/internal/database"
	"github.com/keyfold/keyfold/internal/handler"
	"github.com/keyfold/keyfold/internal/middleware"
	"github.com/keyfold/keyfold/internal/provider"
	"github.com/keyfold/keyfold/internal/repository"
	"github.com/keyfold/keyfold/internal/service"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Starting Keyfold API",
		slog.String("environment", cfg.Server.Environment),
		slog.Int("port", cfg.Server.Port),
	)

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	if err := db.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	// Connect to Redis
	redis, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Credential encryption codec
	codec, err := crypto.New(cfg.Encryption.Secret)
	if err != nil {
		log.Fatalf("Failed to initialize encryption: %v", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db.Pool())
	vaultRepo := repository.NewVaultRepository(db.Pool())
	credentialRepo := repository.NewCredentialRepository(db.Pool(), codec)
	auditRepo := repository.NewAuditRepository(db.Pool())

	// Identity provider
	google := provider.NewGoogle(
		cfg.Auth.OAuthGoogleID,
		cfg.Auth.OAuthGoogleSecret,
		cfg.Auth.OAuthCallbackURL+"/auth/google/callback",
		provider.WithHTTPClient(&http.Client{Timeout: cfg.Auth.ProviderTimeout}),
	)

	// Services
	authService := service.NewAuthService(google, userRepo)
	tokenService := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, redis)
	auditService := service.NewAuditService(auditRepo, cfg.Audit.Retention, logger)

	// OAuth state cookie store
	sessionKey := cfg.Auth.SessionKey
	if sessionKey == "" {
		sessionKey = cfg.Auth.JWTSecret
	}
	sessionStore := sessions.NewCookieStore([]byte(sessionKey))

	// Handlers
	authHandler := handler.NewAuthHandler(authService, tokenService, auditService, sessionStore, cfg.Auth.FrontendURL, logger)
	vaultHandler := handler.NewVaultHandler(vaultRepo, auditService)
	credentialHandler := handler.NewCredentialHandler(credentialRepo, vaultRepo, auditService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Audit retention loop
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go runAuditCleanup(cleanupCtx, auditService, cfg.Audit.CleanupInterval, logger)

	// Setup router
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Auth.FrontendURL))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Timeout(30 * time.Second))

	// Health check endpoints (no auth required)
	r.Get("/health", healthHandler())
	r.Get("/ready", readyHandler(db, redis))
	r.Handle("/metrics", promhttp.Handler())

	// Browser-facing OAuth routes
	r.Mount("/auth", authHandler.OAuthRoutes())

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(redis, middleware.DefaultRateLimitConfig()))
		r.Use(middleware.OptionalAuth(tokenService))

		r.Post("/auth/verify-token", authHandler.VerifyToken)
		r.With(middleware.Auth(tokenService)).Post("/auth/logout", authHandler.Logout)

		// Vault and credential routes mirror the frontend contract and
		// carry no auth yet; see handler docs.
		r.Mount("/vaults", vaultHandler.Routes())
		r.Get("/vaults/{vault_id}/credentials", credentialHandler.ListByVault)
		r.Mount("/credentials", credentialHandler.Routes())

		// Audit trail is read-only and requires a token.
		r.With(middleware.Auth(tokenService)).Mount("/audit-logs", auditHandler.Routes())
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server", slog.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	logger.Info("Server stopped gracefully")
}

// runAuditCleanup purges expired audit entries on a fixed interval until the
// context is cancelled.
func runAuditCleanup(ctx context.Context, audit service.AuditService, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := audit.CleanupOldLogs(ctx); err != nil {
				logger.Error("audit cleanup failed", "error", err)
			}
		}
	}
}

// healthHandler returns a liveness check that succeeds while the process runs.
func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// readyHandler returns a readiness check that verifies database and Redis connections.
func readyHandler(db *database.Postgres, redis *database.Redis) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","component":"database"}`))
			return
		}

		if err := redis.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","component":"redis"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","database":"connected","redis":"connected"}`))
	}
}
