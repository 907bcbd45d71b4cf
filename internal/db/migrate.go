package db

import (
	"bottle_credits/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Migrate performs automatic migration for the database schema
func Migrate(conn *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	err := conn.AutoMigrate(
		&domain.User{},
		&domain.Bar{},
		&domain.BottlePlan{},
		&domain.Wallet{},
		&domain.RedemptionToken{},
		&domain.LedgerEntry{},
	)
	if err != nil {
		return err
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
