package api

import (
	"context"  // Context for Redis operations
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"bottle_credits/internal/domain"     // Importing domain models
	"bottle_credits/internal/ledger"     // Ledger pages
	"bottle_credits/internal/middleware" // Current user lookup
	"bottle_credits/internal/utils"      // Utility functions
	"bottle_credits/internal/wallet"     // Wallet reads and assignment

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

const cacheTTL = 60 * time.Second // Lifetime of cached read views

// Cache keys
func walletKey(walletID uint) string {
	return "wallet:" + strconv.FormatUint(uint64(walletID), 10)
}

func historyPrefix(walletID uint) string {
	return "txhistory:wallet:" + strconv.FormatUint(uint64(walletID), 10) + ":"
}

func adminPrefix(barID uint) string {
	return "admin:bar:" + strconv.FormatUint(uint64(barID), 10) + ":"
}

// invalidateWallet drops every cached view a balance change makes stale
func invalidateWallet(ctx context.Context, rdb *redis.Client, walletID, barID uint) {
	errs := []error{
		utils.DeleteCache(ctx, rdb, walletKey(walletID)),
		utils.DeleteCachePrefix(ctx, rdb, historyPrefix(walletID)),
		utils.DeleteCachePrefix(ctx, rdb, adminPrefix(barID)),
	}
	if err := errors.Join(errs...); err != nil {
		logrus.WithFields(logrus.Fields{
			"wallet_id": walletID,    // Wallet whose views are stale
			"error":     err.Error(), // Redis error
		}).Warn("Cache invalidation failed")
	}
}

// AssignWalletRequest sells a bottle plan to a customer
type AssignWalletRequest struct {
	CustomerID   uint `json:"customer_id" binding:"required"`    // Customer receiving the bottle
	BottlePlanID uint `json:"bottle_plan_id" binding:"required"` // Plan being sold
}

// WalletView is a wallet with its owner, bar and plan
type WalletView struct {
	domain.Wallet
	Owner      *domain.User       `json:"owner,omitempty"`
	Bar        *domain.Bar        `json:"bar,omitempty"`
	BottlePlan *domain.BottlePlan `json:"bottle_plan,omitempty"`
}

// AssignWalletHandler creates a wallet and its CREDIT entry for a customer
func AssignWalletHandler(svc *wallet.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AssignWalletRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Customer ID and bottle plan ID are required")
			return
		}
		w, entry, err := svc.Assign(c.Request.Context(), wallet.AssignRequest{
			CustomerID: req.CustomerID,
			PlanID:     req.BottlePlanID,
			Admin:      middleware.CurrentUser(c),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateWallet(c.Request.Context(), rdb, w.ID, w.BarID)
		c.JSON(http.StatusCreated, gin.H{"wallet": w, "transaction": entry})
	}
}

// ListWalletsHandler lists the caller's wallets, or every wallet of their bar for staff and admins
func ListWalletsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		filter := wallet.ListFilter{Status: domain.WalletStatus(c.Query("status"))}
		if user.IsStaff() {
			barID, ok := barOf(c, user)
			if !ok {
				return
			}
			filter.BarID = barID
		} else {
			filter.OwnerID = user.ID
		}
		wallets, err := wallet.NewStore(db).List(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"wallets": wallets})
	}
}

// loadWalletView reads a wallet and its associations
func loadWalletView(ctx context.Context, db *gorm.DB, walletID uint) (*WalletView, error) {
	w, err := wallet.NewStore(db).Get(ctx, walletID)
	if err != nil {
		return nil, err
	}
	view := &WalletView{Wallet: *w}
	var owner domain.User
	if err := db.WithContext(ctx).First(&owner, w.OwnerID).Error; err == nil {
		view.Owner = &owner
	}
	var bar domain.Bar
	if err := db.WithContext(ctx).First(&bar, w.BarID).Error; err == nil {
		view.Bar = &bar
	}
	var plan domain.BottlePlan
	if err := db.WithContext(ctx).First(&plan, w.BottlePlanID).Error; err == nil {
		view.BottlePlan = &plan
	}
	return view, nil
}

// GetWalletHandler returns a wallet the caller may act on
func GetWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		var view WalletView
		found, err := utils.GetCache(ctx, rdb, walletKey(id), &view) // Try to get from cache
		if err != nil || !found {
			loaded, err := loadWalletView(ctx, db, id)
			if err != nil {
				respondError(c, err)
				return
			}
			view = *loaded
			_ = utils.SetCache(ctx, rdb, walletKey(id), view, cacheTTL) // Cache for later reads
		}
		// Authorization is checked on every read, cached or not
		if !domain.CanActOnWallet(middleware.CurrentUser(c), &view.Wallet) {
			respondError(c, domain.ErrForbidden)
			return
		}
		c.JSON(http.StatusOK, gin.H{"wallet": view, "cached": found})
	}
}

// WalletTransactionsHandler returns the paginated ledger of a wallet
func WalletTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		w, err := wallet.NewStore(db).Get(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if !domain.CanActOnWallet(middleware.CurrentUser(c), w) {
			respondError(c, domain.ErrForbidden)
			return
		}

		filter := ledger.Filter{WalletID: w.ID, Page: intQuery(c, "page"), PageSize: intQuery(c, "page_size")}
		filter.Normalize()
		// Redis cache key
		cacheKey := historyPrefix(w.ID) + "page:" + strconv.Itoa(filter.Page) + ":size:" + strconv.Itoa(filter.PageSize)
		var page ledger.Page
		found, err := utils.GetCache(ctx, rdb, cacheKey, &page)
		if err != nil || !found {
			fresh, err := ledger.NewStore(db).List(ctx, filter)
			if err != nil {
				respondError(c, err)
				return
			}
			page = *fresh
			_ = utils.SetCache(ctx, rdb, cacheKey, page, cacheTTL) // Cache for later reads
		}
		c.JSON(http.StatusOK, gin.H{
			"wallet_id":         w.ID,               // Wallet the history belongs to
			"brand_name":        w.BrandName,        // Brand of the bottle
			"remaining_credits": w.RemainingCredits, // Current balance
			"transactions":      page.Entries,       // Entries on this page
			"page":              page.Page,          // Current page
			"page_size":         page.PageSize,      // Page size
			"total":             page.Total,         // Total entries
			"total_pages":       page.TotalPages,    // Total pages
			"cached":            found,              // Whether the page came from cache
		})
	}
}
