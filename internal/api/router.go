package api

import (
	"bottle_credits/internal/config"     // Application configuration
	"bottle_credits/internal/domain"     // Importing domain models
	"bottle_credits/internal/middleware" // Auth and role middleware
	"bottle_credits/internal/redemption" // Redemption engine
	"bottle_credits/internal/token"      // QR token issuance and validation
	"bottle_credits/internal/wallet"     // Wallet assignment

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/gorm"                 // GORM ORM library
)

// Deps are the shared resources handlers are built from
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client // Nil disables caching
	Config *config.Config
}

// NewRouter builds the /api/v1 routes
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	issuer := token.NewIssuer(d.DB, cfg.Credits)
	validator := token.NewValidator(d.DB)
	engine := redemption.NewEngine(d.DB, cfg.Credits)
	wallets := wallet.NewService(d.DB)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	v1 := r.Group("/api/v1")
	v1.GET("/health", HealthHandler(d.DB, d.Redis))

	// Public routes
	v1.POST("/auth/signup", SignupHandler(d.DB, cfg)) // Customer registration
	v1.POST("/auth/login", LoginHandler(d.DB, cfg))   // Login for every role
	v1.GET("/bars", ListBarsHandler(d.DB))            // Active bars
	v1.GET("/bars/:id", GetBarHandler(d.DB))          // Bar with its active plans

	// Authenticated routes
	authed := v1.Group("")
	authed.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.LoadUserMiddleware(d.DB))

	admin := middleware.RequireRoles(domain.RoleAdmin)
	staff := middleware.RequireRoles(domain.RoleStaff, domain.RoleAdmin)
	customer := middleware.RequireRoles(domain.RoleCustomer)

	authed.GET("/auth/me", MeHandler())
	authed.POST("/auth/create-staff", admin, CreateStaffHandler(d.DB))

	authed.POST("/bars", admin, CreateBarHandler(d.DB))
	authed.PUT("/bars/:id", admin, UpdateBarHandler(d.DB))

	authed.POST("/bottle-plans", admin, CreatePlanHandler(d.DB))
	authed.GET("/bottle-plans", ListPlansHandler(d.DB))
	authed.GET("/bottle-plans/:id", GetPlanHandler(d.DB))
	authed.PUT("/bottle-plans/:id", admin, UpdatePlanHandler(d.DB))

	authed.POST("/wallets", admin, AssignWalletHandler(wallets, d.Redis))
	authed.GET("/wallets", ListWalletsHandler(d.DB))
	authed.GET("/wallets/:id", GetWalletHandler(d.DB, d.Redis))
	authed.GET("/wallets/:id/transactions", WalletTransactionsHandler(d.DB, d.Redis))

	authed.POST("/wallets/:id/qr", customer, IssueQRHandler(issuer))
	authed.POST("/qr/validate", staff, ValidateQRHandler(validator))
	authed.POST("/redeem", staff, RedeemHandler(engine, d.Redis))

	adminGroup := authed.Group("/admin", admin)
	adminGroup.GET("/dashboard", DashboardHandler(d.DB, d.Redis))
	adminGroup.GET("/transactions", AdminTransactionsHandler(d.DB))
	adminGroup.GET("/staff-activity", StaffActivityHandler(d.DB))
	adminGroup.GET("/customers", CustomersHandler(d.DB))
	adminGroup.GET("/sales", SalesHandler(d.DB, d.Redis))
	adminGroup.GET("/wallets/:id/reconcile", ReconcileHandler(d.DB))

	return r
}
