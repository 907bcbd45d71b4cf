package db

import (
	"context"       // Ping timeout
	"fmt"           // Error wrapping
	"os"            // SQLite directory creation
	"path/filepath" // SQLite file location
	"strings"       // DSN cleanup
	"time"          // Pool lifetimes

	"github.com/glebarez/sqlite" // Pure Go SQLite driver for GORM
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/driver/postgres"    // PostgreSQL driver for GORM
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM logger
)

// Supported drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// NewLogger returns a GORM logger that writes warnings and slow queries through logrus,
// so they follow the configured formatter and LOG_FILE
func NewLogger() logger.Interface {
	return logger.New(logrus.StandardLogger(), logger.Config{
		SlowThreshold:             200 * time.Millisecond, // Queries slower than this are logged
		LogLevel:                  logger.Warn,            // Warnings, errors and slow queries
		IgnoreRecordNotFoundError: true,                   // Lookups that miss are not errors
		Colorful:                  false,                  // Plain text for log files
	})
}

// Open connects to the database with the given driver and verifies the connection
func Open(driver, dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}
	gormCfg := &gorm.Config{Logger: NewLogger()}

	var (
		conn *gorm.DB
		err  error
	)
	switch driver {
	case DriverMySQL, "":
		conn, err = gorm.Open(mysql.Open(dsn), gormCfg)
	case DriverPostgres:
		conn, err = gorm.Open(postgres.Open(dsn), gormCfg)
	case DriverSQLite:
		if errDir := ensureSQLiteDir(dsn); errDir != nil {
			return nil, errDir
		}
		conn, err = gorm.Open(sqlite.Open(dsn), gormCfg)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", driver, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("db: sql handle: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer; one connection keeps transactions from failing with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
			if errExec := conn.Exec(pragma).Error; errExec != nil {
				_ = sqlDB.Close()
				return nil, fmt.Errorf("db: sqlite %s: %w", pragma, errExec)
			}
		}
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if errPing := sqlDB.PingContext(pingCtx); errPing != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: ping: %w", errPing)
	}
	return conn, nil
}

// ensureSQLiteDir creates the parent directory of a SQLite database file
func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("db: create sqlite dir: %w", err)
	}
	return nil
}
