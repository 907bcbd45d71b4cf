package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // Path and query parsing

	"bottle_credits/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// errorKind maps a domain error to its HTTP status and stable code
type errorKind struct {
	err    error
	status int
	code   string
}

var errorKinds = []errorKind{
	{domain.ErrInvalidPegSize, http.StatusBadRequest, "INVALID_PEG_SIZE"},
	{domain.ErrInvalidToken, http.StatusNotFound, "INVALID_TOKEN"},
	{domain.ErrTokenAlreadyUsed, http.StatusBadRequest, "TOKEN_ALREADY_USED"},
	{domain.ErrTokenExpired, http.StatusBadRequest, "TOKEN_EXPIRED"},
	{domain.ErrInvalidOrUsedToken, http.StatusBadRequest, "INVALID_OR_USED_TOKEN"},
	{domain.ErrBarMismatch, http.StatusForbidden, "BAR_MISMATCH"},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{domain.ErrWalletNotFound, http.StatusNotFound, "WALLET_NOT_FOUND"},
	{domain.ErrWalletExhausted, http.StatusBadRequest, "WALLET_EXHAUSTED"},
	{domain.ErrInsufficientCredits, http.StatusBadRequest, "INSUFFICIENT_CREDITS"},
	{domain.ErrWalletChanged, http.StatusConflict, "WALLET_CHANGED"},
	{domain.ErrCustomerNotFound, http.StatusNotFound, "CUSTOMER_NOT_FOUND"},
	{domain.ErrPlanNotFound, http.StatusNotFound, "PLAN_NOT_FOUND"},
	{domain.ErrPlanInactive, http.StatusBadRequest, "PLAN_INACTIVE"},
}

// respondError writes the JSON error body for err. Unknown errors are logged and hidden behind a 500.
func respondError(c *gin.Context, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			body := gin.H{"error": err.Error(), "code": k.code}
			var insufficient *domain.InsufficientCreditsError
			if errors.As(err, &insufficient) {
				body["available"] = insufficient.Available // Remaining credits in ml
				body["requested"] = insufficient.Requested // Requested peg in ml
			}
			var peg *domain.InvalidPegSizeError
			if errors.As(err, &peg) {
				body["allowed"] = peg.Allowed // Accepted peg sizes
			}
			c.JSON(k.status, body)
			return
		}
	}
	logrus.WithFields(logrus.Fields{
		"path":  c.FullPath(), // Route that failed
		"error": err.Error(),  // Underlying error
	}).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred", "code": "INTERNAL_ERROR"})
}

// badRequest writes a 400 with a validation message
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "VALIDATION_ERROR"})
}

// idParam parses a positive numeric path parameter
func idParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(v), true
}

// uintQuery parses an optional numeric query parameter, zero when absent or malformed
func uintQuery(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

// intQuery parses an optional integer query parameter
func intQuery(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

// barOf returns the bar of a staff member or admin, answering 400 when there is none
func barOf(c *gin.Context, user *domain.User) (uint, bool) {
	if user.BarID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You are not associated with any bar", "code": "NO_BAR"})
		return 0, false
	}
	return *user.BarID, true
}
