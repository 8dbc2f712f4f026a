package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"questacademy/internal/config"
	"questacademy/internal/database"
	"questacademy/internal/handlers"
	"questacademy/internal/repository"
	"questacademy/internal/security"
	"questacademy/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)

	// Initialize services
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenDuration)
	authService := service.NewAuthService(userRepo, tokens)
	ledgerService := service.NewLedgerService(progressRepo, scoreRepo, walletRepo, achievementRepo)
	walletService := service.NewWalletService(walletRepo)

	emailService, err := service.NewEmailService(cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	rosterService := service.NewRosterService(userRepo, connectionRepo, emailService)

	// Initialize handlers
	limiter := security.NewRateLimiter(30, time.Minute)
	middleware := handlers.NewMiddleware(authService, tokens, limiter)
	authHandler := handlers.NewAuthHandler(authService)
	oauthHandler := handlers.NewOAuthHandler(authService, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectBase)
	progressHandler := handlers.NewProgressHandler(ledgerService, rosterService)
	statsHandler := handlers.NewStatsHandler(ledgerService, rosterService)
	walletHandler := handlers.NewWalletHandler(walletService)
	syncHandler := handlers.NewSyncHandler(walletRepo)
	rosterHandler := handlers.NewRosterHandler(rosterService)
	adminHandler := handlers.NewAdminHandler(userRepo)

	// Setup routes
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/auth/register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /api/auth/login", middleware.RateLimit(authHandler.Login))
	if oauthHandler != nil {
		mux.HandleFunc("GET /api/auth/google", oauthHandler.Begin)
		mux.HandleFunc("GET /api/auth/google/callback", oauthHandler.Callback)
	}

	// Account routes
	mux.HandleFunc("GET /api/auth/me", middleware.RequireAuth(authHandler.Me))
	mux.HandleFunc("POST /api/auth/password", middleware.RequireAuth(authHandler.ChangePassword))

	// Progress ledger routes
	mux.HandleFunc("POST /api/progress/complete", middleware.RequireAuth(progressHandler.Complete))
	mux.HandleFunc("POST /api/progress/scores", middleware.RequireAuth(progressHandler.SubmitScore))
	mux.HandleFunc("POST /api/progress/streak", middleware.RequireAuth(progressHandler.SubmitStreak))
	mux.HandleFunc("GET /api/progress", middleware.RequireAuth(progressHandler.History))

	// Derived stats and achievements
	mux.HandleFunc("GET /api/stats", middleware.RequireAuth(statsHandler.Stats))
	mux.HandleFunc("GET /api/achievements", middleware.RequireAuth(statsHandler.Achievements))

	// Wallet routes
	mux.HandleFunc("GET /api/wallet", middleware.RequireAuth(walletHandler.Get))
	mux.HandleFunc("POST /api/wallet/spend", middleware.RequireAuth(walletHandler.Spend))

	// Offline client reconciliation
	mux.HandleFunc("POST /api/sync/counters", middleware.RequireAuth(syncHandler.Reconcile))

	// Teacher-student connections
	mux.HandleFunc("GET /api/connections", middleware.RequireAuth(rosterHandler.List))
	mux.HandleFunc("POST /api/connections/invite", middleware.RequireTeacher(rosterHandler.Invite))
	mux.HandleFunc("POST /api/connections/{id}/respond", middleware.RequireAuth(rosterHandler.Respond))

	// Teacher views of connected students
	mux.HandleFunc("GET /api/students/{id}/progress", middleware.RequireTeacher(progressHandler.History))
	mux.HandleFunc("GET /api/students/{id}/stats", middleware.RequireTeacher(statsHandler.Stats))
	mux.HandleFunc("GET /api/students/{id}/achievements", middleware.RequireTeacher(statsHandler.Achievements))

	// Admin routes
	mux.HandleFunc("GET /api/admin/users", middleware.RequireAdmin(adminHandler.ListUsers))
	mux.HandleFunc("PUT /api/admin/users/{id}/role", middleware.RequireAdmin(adminHandler.SetRole))
	mux.HandleFunc("POST /api/admin/users/{id}/grant", middleware.RequireAdmin(walletHandler.Grant))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
