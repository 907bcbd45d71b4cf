package api

import (
	"net/http" // HTTP status codes

	"bottle_credits/internal/middleware" // Current user lookup
	"bottle_credits/internal/token"      // QR token issuance and validation

	"github.com/gin-gonic/gin" // Gin web framework
)

// ValidateQRRequest carries the scanned token value
type ValidateQRRequest struct {
	Token string `json:"token" binding:"required"` // Value encoded in the QR code
}

// IssueQRHandler mints a fresh QR token for one of the caller's wallets
func IssueQRHandler(issuer *token.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		walletID, ok := idParam(c, "id")
		if !ok {
			return
		}
		issued, err := issuer.Issue(c.Request.Context(), walletID, middleware.CurrentUser(c).ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"qr_token":          issued.Token,            // Value to render as a QR code
			"expires_at":        issued.ExpiresAt,        // Absolute expiry in milliseconds
			"wallet_id":         issued.WalletID,         // Wallet the token debits
			"brand_name":        issued.BrandName,        // Brand of the bottle
			"remaining_credits": issued.RemainingCredits, // Balance at issuance
		})
	}
}

// ValidateQRHandler previews a scanned token for staff without consuming it
func ValidateQRHandler(validator *token.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ValidateQRRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Token is required")
			return
		}
		user := middleware.CurrentUser(c)
		barID, ok := barOf(c, user)
		if !ok {
			return
		}
		snap, err := validator.Validate(c.Request.Context(), req.Token, barID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"valid": true, "wallet": snap})
	}
}
