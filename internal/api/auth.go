package api

import (
	"net/http" // HTTP status codes
	"regexp"   // Regular expressions
	"strings"  // String manipulation

	"bottle_credits/internal/config"     // Application configuration
	"bottle_credits/internal/domain"     // Importing domain models
	"bottle_credits/internal/middleware" // Current user lookup
	"bottle_credits/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// SignupRequest registers a customer
type SignupRequest struct {
	Phone    string `json:"phone" binding:"required"`    // Phone must be provided
	Name     string `json:"name" binding:"required"`     // Name must be provided
	Email    string `json:"email"`                       // Optional email
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Request struct for login
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`    // Phone must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// CreateStaffRequest lets an admin add staff or another admin to their bar
type CreateStaffRequest struct {
	Phone    string      `json:"phone" binding:"required"`
	Name     string      `json:"name" binding:"required"`
	Email    string      `json:"email"`
	Password string      `json:"password" binding:"required"`
	Role     domain.Role `json:"role"` // staff (default) or admin
}

// Response struct for authentication
type AuthResponse struct {
	User  *domain.User `json:"user"`  // Authenticated user, password omitted
	Token string       `json:"token"` // JWT token
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// isValidPhone checks that the phone is digits with an optional leading plus
func isValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// isValidPassword checks if the password length is between 8 and 64 characters
func isValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 64
}

// phoneTaken reports whether a user already owns phone
func phoneTaken(db *gorm.DB, phone string) (bool, error) {
	var n int64
	err := db.Model(&domain.User{}).Where("phone = ?", phone).Count(&n).Error
	return n > 0, err
}

// createUser validates and persists a user with a hashed password
func createUser(c *gin.Context, db *gorm.DB, user *domain.User, password string) bool {
	user.Phone = strings.TrimSpace(user.Phone)
	if !isValidPhone(user.Phone) {
		badRequest(c, "Phone must be 7-15 digits")
		return false
	}
	if !isValidPassword(password) {
		badRequest(c, "Password must be 8-64 characters")
		return false
	}
	taken, err := phoneTaken(db.WithContext(c.Request.Context()), user.Phone)
	if err != nil {
		respondError(c, err)
		return false
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "A user with this phone number already exists", "code": "PHONE_TAKEN"})
		return false
	}
	// Hash the password before it is stored
	hash, err := utils.HashPassword(password)
	if err != nil {
		respondError(c, err)
		return false
	}
	user.Password = hash
	if err := db.WithContext(c.Request.Context()).Create(user).Error; err != nil {
		// A concurrent signup can still hit the unique index
		c.JSON(http.StatusConflict, gin.H{"error": "A user with this phone number already exists", "code": "PHONE_TAKEN"})
		return false
	}
	return true
}

// SignupHandler registers a customer and logs them in
func SignupHandler(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Phone, name, and password are required")
			return
		}
		user := domain.User{Phone: req.Phone, Name: req.Name, Email: req.Email, Role: domain.RoleCustomer}
		if !createUser(c, db, &user, req.Password) {
			return
		}
		token, err := utils.GenerateJWT(user.ID, user.Role, cfg.JWTSecret, cfg.JWTExpiry)
		if err != nil {
			respondError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,   // New user
			"role":    user.Role, // Always customer here
		}).Info("User registered")
		c.JSON(http.StatusCreated, AuthResponse{User: &user, Token: token})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Phone and password are required")
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).Where("phone = ?", strings.TrimSpace(req.Phone)).First(&user).Error; err != nil {
			// If user not found, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid phone number or password", "code": "INVALID_CREDENTIALS"})
			return
		}
		// Compare provided password with stored hash
		if !utils.CheckPassword(user.Password, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid phone number or password", "code": "INVALID_CREDENTIALS"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, user.Role, cfg.JWTSecret, cfg.JWTExpiry)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, AuthResponse{User: &user, Token: token})
	}
}

// MeHandler returns the authenticated user
func MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": middleware.CurrentUser(c)})
	}
}

// CreateStaffHandler adds a staff member or admin to the caller's bar
func CreateStaffHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := middleware.CurrentUser(c)
		barID, ok := barOf(c, admin)
		if !ok {
			return
		}
		var req CreateStaffRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Phone, name, and password are required")
			return
		}
		if req.Role == "" {
			req.Role = domain.RoleStaff
		}
		if req.Role != domain.RoleStaff && req.Role != domain.RoleAdmin {
			badRequest(c, `Role must be either "staff" or "admin"`)
			return
		}
		user := domain.User{Phone: req.Phone, Name: req.Name, Email: req.Email, Role: req.Role, BarID: &barID}
		if !createUser(c, db, &user, req.Password) {
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":    user.ID,   // New staff member
			"role":       user.Role, // staff or admin
			"bar_id":     barID,     // Bar they work at
			"created_by": admin.ID,  // Admin who added them
		}).Info("Staff account created")
		c.JSON(http.StatusCreated, gin.H{"user": user})
	}
}
