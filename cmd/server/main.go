package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studyhub-backend/internal/config"
	"studyhub-backend/internal/database"
	"studyhub-backend/internal/handlers"
	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/repository"
	"studyhub-backend/internal/router"
	"studyhub-backend/internal/services"
	"studyhub-backend/internal/websocket"
	"studyhub-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting StudyHub Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	studySessionRepo := repository.NewStudySessionRepo(pool)
	achievementRepo := repository.NewAchievementRepo(pool)
	noteRepo := repository.NewNoteRepo(pool)

	// ──── Step 5: Connect to the Chain ────
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	nftService, err := services.NewNFTService(bootCtx, cfg.ChainRPCURL, cfg.NFTContractAddress, cfg.MinterPrivateKey)
	bootCancel()
	if err != nil {
		log.Fatalf("✗ Chain client initialization failed: %v", err)
	}
	defer nftService.Close()
	log.Println("✓ Chain client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	streakService := services.NewStreakService(userRepo)
	sessionService := services.NewSessionService(studySessionRepo)
	achievementService := services.NewAchievementService(achievementRepo, nftService, time.Duration(cfg.MintTimeoutSeconds)*time.Second)
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth, emailService, streakService)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	studySessionHandler := handlers.NewStudySessionHandler(sessionService, streakService, userRepo, redisClients.Queue)
	achievementHandler := handlers.NewAchievementHandler(achievementService, userRepo)
	userHandler := handlers.NewUserHandler(userRepo)
	noteHandler := handlers.NewNoteHandler(noteRepo, sessionService)

	// ──── Step 6: Start Mint Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, achievementService, cfg.MintWorkers)
	workerPool.Start()
	log.Printf("✓ Mint worker pool started (%d goroutines)", cfg.MintWorkers)

	sessionSweeper := services.NewSessionSweeper(studySessionRepo, userRepo, emailService)
	sessionSweeper.Start()
	log.Println("✓ Session sweeper started")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		studySessionHandler,
		achievementHandler,
		userHandler,
		noteHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		sessionSweeper.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ StudyHub Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
