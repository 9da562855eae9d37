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

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/velachio/habitsync/internal/cloud/domain"
	cloudHTTP "github.com/velachio/habitsync/internal/cloud/http"
	"github.com/velachio/habitsync/internal/cloud/repository"
	"github.com/velachio/habitsync/internal/cloud/services"
	"github.com/velachio/habitsync/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	startTime := time.Now()

	_ = godotenv.Load()

	serverPort := envOr("PORT", "5500")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("Critical: JWT_SECRET is required")
	}

	var db *sqlx.DB
	var userRepo domain.UserRepository
	var habitRepo domain.HabitRepository
	var logRepo domain.LogRepository

	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			dbUser,
			os.Getenv("DB_PASSWORD"),
			envOr("DB_HOST", "localhost"),
			envOr("DB_PORT", "5432"),
			os.Getenv("DB_NAME"),
		)

		log.Println("Connecting to database...")

		var err error
		db, err = sqlx.Connect("pgx", dsn)
		if err != nil {
			log.Fatalf("Critical: Failed to connect to database: %v", err)
		}
		defer db.Close()

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		log.Println("Database connected successfully.")

		userRepo = repository.NewPostgresUserRepository(db)
		habitRepo = repository.NewPostgresHabitRepository(db)
		logRepo = repository.NewPostgresLogRepository(db)
	} else {
		log.Println("No DB_USER configured, using in-memory repositories.")

		userRepo = repository.NewInMemoryUserRepository()
		habitRepo = repository.NewInMemoryHabitRepository()
		logRepo = repository.NewInMemoryLogRepository()
	}

	var rdb *redis.Client
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		var err error
		rdb, err = store.NewRedisClient(redisHost, envOr("REDIS_PORT", "6379"), os.Getenv("REDIS_PASSWORD"), 0)
		if err != nil {
			log.Printf("Redis unavailable, rate limiting disabled: %v", err)
			rdb = nil
		}
	}

	authService := services.NewAuthService(userRepo)
	tokenService := services.NewTokenService(jwtSecret, "habitsync", 24*time.Hour, userRepo)
	syncService := services.NewSyncService(habitRepo, logRepo)

	router := cloudHTTP.NewRouter(cloudHTTP.RouterDependencies{
		AuthHandler:  cloudHTTP.NewAuthHandler(authService, tokenService),
		SyncHandler:  cloudHTTP.NewSyncHandler(syncService),
		TokenService: tokenService,
		DB:           db,
		Redis:        rdb,
		StartTime:    startTime,
	})

	srv := &http.Server{
		Addr:         ":" + serverPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("habitsync cloud running on http://localhost:%s", serverPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Critical server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Stop signal received. Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced shutdown error:", err)
	}

	log.Println("Server stopped gracefully.")
}
