package config

import (
	"fmt"     // Error formatting
	"os"      // For environment variables
	"sort"    // Peg sizes are kept ascending
	"strconv" // For string to int conversion
	"strings" // For list parsing
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Defaults applied when the environment leaves a key empty
const (
	DefaultPegSizes             = "30,60,90"
	DefaultTokenTTL             = 2 * time.Minute
	DefaultTokenCleanupInterval = time.Minute
	DefaultJWTExpiry            = 7 * 24 * time.Hour
	DefaultDBDriver             = "mysql"
)

// Credits holds the redemption policy. It is read-only after startup.
type Credits struct {
	PegSizes []int         // Allowed pour sizes in ml, ascending
	TokenTTL time.Duration // Lifetime of a QR token
}

// AllowsPeg reports whether size is one of the configured peg sizes
func (c Credits) AllowsPeg(size int) bool {
	for _, p := range c.PegSizes {
		if p == size {
			return true
		}
	}
	return false
}

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBDriver   string // mysql, postgres or sqlite
	DBDSN      string // Full DSN, overrides the individual DB fields
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	SQLitePath string // Database file when DBDriver is sqlite
	JWTSecret  string // JWT secret key
	JWTExpiry  time.Duration
	RedisAddr  string // Redis server address, empty disables caching
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment
	LogFile    string // Optional rotated log file

	Credits              Credits       // Peg sizes and token lifetime
	TokenCleanupInterval time.Duration // Period of the expired token sweep
	SeedDemo             bool          // Seed demo bar, users and wallet on migrate
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

	pegSizes, err := ParsePegSizes(envOr("PEG_SIZES", DefaultPegSizes))
	if err != nil {
		return nil, err
	}
	tokenTTL, err := durationOr("QR_TOKEN_TTL", DefaultTokenTTL)
	if err != nil {
		return nil, err
	}
	cleanup, err := durationOr("TOKEN_CLEANUP_INTERVAL", DefaultTokenCleanupInterval)
	if err != nil {
		return nil, err
	}
	jwtExpiry, err := durationOr("JWT_EXPIRY", DefaultJWTExpiry)
	if err != nil {
		return nil, err
	}

	return &Config{
		AppPort:    envOr("APP_PORT", "8080"),
		DBDriver:   strings.ToLower(envOr("DB_DRIVER", DefaultDBDriver)),
		DBDSN:      os.Getenv("DB_DSN"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBName:     os.Getenv("DB_NAME"),
		SQLitePath: envOr("SQLITE_PATH", "data/bottle_credits.db"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTExpiry:  jwtExpiry,
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		RedisPass:  os.Getenv("REDIS_PASS"),
		RedisDB:    redisDB,
		IsProd:     os.Getenv("IS_PROD") == "true",
		LogFile:    os.Getenv("LOG_FILE"),
		Credits: Credits{
			PegSizes: pegSizes,
			TokenTTL: tokenTTL,
		},
		TokenCleanupInterval: cleanup,
		SeedDemo:             os.Getenv("SEED_DEMO") == "true",
	}, nil
}

// DSN builds the driver specific data source name
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	switch c.DBDriver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
	case "sqlite":
		return c.SQLitePath
	default:
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
	}
}

// ParsePegSizes parses a comma separated list of positive peg sizes
func ParsePegSizes(raw string) ([]int, error) {
	var sizes []int
	seen := map[int]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("config: invalid peg size %q", part)
		}
		if !seen[v] {
			seen[v] = true
			sizes = append(sizes, v)
		}
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("config: no peg sizes configured")
	}
	sort.Ints(sizes)
	return sizes, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: invalid %s %q", key, raw)
	}
	return d, nil
}
