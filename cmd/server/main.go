package main

import (
	"context"   // context package is needed for Redis operations
	"errors"    // Server shutdown inspection
	"io"        // Log output fan-out
	"net/http"  // HTTP server
	"os"        // Process signals and stdout
	"os/signal" // Graceful shutdown
	"syscall"   // Termination signal
	"time"      // Shutdown timeout

	"bottle_credits/internal/api"    // Custom package for API handlers
	"bottle_credits/internal/config" // Custom package for configuration
	"bottle_credits/internal/db"     // Database connection
	"bottle_credits/internal/worker" // Background workers

	"github.com/gin-gonic/gin"         // Gin web framework
	"github.com/redis/go-redis/v9"     // Redis client
	"github.com/sirupsen/logrus"       // Logrus for structured logging
	"gopkg.in/natefinch/lumberjack.v2" // Rotating log files
)

// setupLogger configures logrus for the environment
func setupLogger(cfg *config.Config) {
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetLevel(logrus.DebugLevel)
	}
	if cfg.LogFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.LogFile, // Log file path
			MaxSize:    50,          // Megabytes before rotation
			MaxBackups: 5,           // Rotated files kept
			MaxAge:     28,          // Days to keep rotated files
			Compress:   true,        // Gzip rotated files
		}
		logrus.SetOutput(io.MultiWriter(os.Stdout, rotating))
	}
}

// connectRedis returns a client, or nil when caching is disabled or Redis is unreachable
func connectRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		logrus.Info("REDIS_ADDR not set, caching disabled")
		return nil
	}
	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("Redis unreachable, caching disabled")
		_ = redisClient.Close()
		return nil
	}
	return redisClient
}

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	setupLogger(cfg)
	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET must be set")
	}

	// Connect to the database
	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if err := db.Migrate(conn); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}

	redisClient := connectRedis(cfg)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(api.Deps{DB: conn, Redis: redisClient, Config: cfg})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanup := worker.NewTokenCleanupWorker(conn, cfg.TokenCleanupInterval)
	go cleanup.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.WithFields(logrus.Fields{
			"port":      cfg.AppPort,                   // Listening port
			"db_driver": cfg.DBDriver,                  // Database backend
			"peg_sizes": cfg.Credits.PegSizes,          // Accepted pour sizes
			"token_ttl": cfg.Credits.TokenTTL.String(), // QR token lifetime
		}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	cleanup.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
