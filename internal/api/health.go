package api

import (
	"net/http" // HTTP status codes
	"time"     // Response timestamp

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// HealthHandler checks database and cache connectivity
func HealthHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		status := gin.H{"database": "ok", "cache": "disabled"}
		healthy := true

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status["database"] = "unreachable"
			healthy = false
		}
		if rdb != nil {
			status["cache"] = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				status["cache"] = "unreachable" // Reads fall back to the database
			}
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"success":   healthy,
			"message":   "Bottle credits API is running",
			"checks":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
