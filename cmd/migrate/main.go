package main

import (
	"context" // Seed context

	"bottle_credits/internal/config" // Custom import path (Config)
	"bottle_credits/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}
	if cfg.SeedDemo {
		if err := seedDemo(context.Background(), conn); err != nil {
			logrus.Fatalf("failed to seed demo data: %v", err)
		}
	}
	logrus.Info("Migration completed successfully")
}
