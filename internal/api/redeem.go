package api

import (
	"net/http" // HTTP status codes

	"bottle_credits/internal/middleware" // Current user lookup
	"bottle_credits/internal/redemption" // Redemption engine

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// RedeemRequest pours one peg against a scanned token
type RedeemRequest struct {
	Token   string `json:"token" binding:"required"` // Value encoded in the QR code
	PegSize int    `json:"peg_size"`                 // Peg size in ml, checked against the configured sizes
}

// RedeemHandler consumes a token and debits the wallet behind it
func RedeemHandler(engine *redemption.Engine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RedeemRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Token and peg size are required")
			return
		}
		staff := middleware.CurrentUser(c)
		if _, ok := barOf(c, staff); !ok {
			return
		}
		result, err := engine.Redeem(c.Request.Context(), redemption.Request{
			Token:   req.Token,
			PegSize: req.PegSize,
			Staff:   staff,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateWallet(c.Request.Context(), rdb, result.WalletID, *staff.BarID)
		c.JSON(http.StatusOK, gin.H{"redemption": result})
	}
}
