package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"sort"     // Stable response ordering
	"strings"  // String manipulation
	"time"     // Start of day

	"bottle_credits/internal/domain"     // Importing domain models
	"bottle_credits/internal/ledger"     // Ledger reports
	"bottle_credits/internal/middleware" // Current user lookup
	"bottle_credits/internal/utils"      // Utility functions
	"bottle_credits/internal/wallet"     // Wallet aggregates

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// DashboardHandler returns the overview of the admin's bar
func DashboardHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		barID, ok := barOf(c, middleware.CurrentUser(c))
		if !ok {
			return
		}
		ctx := c.Request.Context()
		cacheKey := adminPrefix(barID) + "dashboard"
		var cached gin.H
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached["cached"] = true
			c.JSON(http.StatusOK, cached)
			return
		}

		summary, err := wallet.NewStore(db).Summarize(ctx, barID)
		if err != nil {
			respondError(c, err)
			return
		}
		var activePlans, staffCount int64
		if err := db.WithContext(ctx).Model(&domain.BottlePlan{}).
			Where("bar_id = ? AND is_active = ?", barID, true).Count(&activePlans).Error; err != nil {
			respondError(c, err)
			return
		}
		if err := db.WithContext(ctx).Model(&domain.User{}).
			Where("bar_id = ? AND role = ?", barID, domain.RoleStaff).Count(&staffCount).Error; err != nil {
			respondError(c, err)
			return
		}
		ledgerStore := ledger.NewStore(db)
		now := time.Now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		today, err := ledgerStore.Totals(ctx, barID, startOfDay.UnixMilli())
		if err != nil {
			respondError(c, err)
			return
		}
		recent, err := ledgerStore.Recent(ctx, barID, 10)
		if err != nil {
			respondError(c, err)
			return
		}

		resp := gin.H{
			"bar_id": barID, // Bar the figures belong to
			"overview": gin.H{
				"total_wallets":           summary.TotalWallets,
				"active_wallets":          summary.ActiveWallets,
				"exhausted_wallets":       summary.ExhaustedWallets,
				"total_credits_issued":    summary.CreditsIssued,
				"total_credits_redeemed":  summary.CreditsIssued - summary.CreditsRemaining,
				"total_credits_remaining": summary.CreditsRemaining,
				"active_plans":            activePlans,
				"staff_count":             staffCount,
				"unique_customers":        summary.UniqueCustomers,
			},
			"today":               today,  // Totals since local midnight
			"recent_transactions": recent, // Latest ledger entries
			"cached":              false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, cacheTTL) // Cache the response for future requests
		c.JSON(http.StatusOK, resp)
	}
}

// AdminTransactionsHandler returns the bar's ledger with optional filters
func AdminTransactionsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		barID, ok := barOf(c, middleware.CurrentUser(c))
		if !ok {
			return
		}
		filter := ledger.Filter{
			BarID:      barID,
			Type:       domain.EntryType(strings.ToUpper(c.Query("type"))),
			StaffID:    uintQuery(c, "staff_id"),
			CustomerID: uintQuery(c, "user_id"),
			WalletID:   uintQuery(c, "wallet_id"),
			From:       int64(intQuery(c, "from")), // Milliseconds
			To:         int64(intQuery(c, "to")),   // Milliseconds
			Page:       intQuery(c, "page"),
			PageSize:   intQuery(c, "page_size"),
		}
		if filter.Type != "" && filter.Type != domain.EntryCredit && filter.Type != domain.EntryDebit {
			badRequest(c, "Type must be CREDIT or DEBIT")
			return
		}
		page, err := ledger.NewStore(db).List(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// StaffActivityView is the redemption activity of one staff member
type StaffActivityView struct {
	StaffID          uint        `json:"staff_id"`
	StaffName        string      `json:"staff_name"`
	StaffPhone       string      `json:"staff_phone"`
	Role             domain.Role `json:"role"`
	TotalRedemptions int64       `json:"total_redemptions"`
	TotalMlRedeemed  int64       `json:"total_ml_redeemed"`
	LastActive       *int64      `json:"last_active"` // Milliseconds, null when never active
}

// StaffActivityHandler returns redemption totals for every staff member of the bar
func StaffActivityHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		barID, ok := barOf(c, middleware.CurrentUser(c))
		if !ok {
			return
		}
		ctx := c.Request.Context()
		totals, err := ledger.NewStore(db).StaffActivity(ctx, barID)
		if err != nil {
			respondError(c, err)
			return
		}
		byStaff := make(map[uint]ledger.StaffTotals, len(totals))
		for _, t := range totals {
			byStaff[t.StaffID] = t
		}

		var people []domain.User
		if err := db.WithContext(ctx).
			Where("bar_id = ? AND role IN ?", barID, []string{string(domain.RoleStaff), string(domain.RoleAdmin)}).
			Order("id asc").
			Find(&people).Error; err != nil {
			respondError(c, err)
			return
		}
		activity := []StaffActivityView{}
		for _, u := range people {
			t, active := byStaff[u.ID]
			// Admins only show up once they have poured something
			if u.Role == domain.RoleAdmin && !active {
				continue
			}
			view := StaffActivityView{
				StaffID:          u.ID,
				StaffName:        u.Name,
				StaffPhone:       u.Phone,
				Role:             u.Role,
				TotalRedemptions: t.TotalRedemptions,
				TotalMlRedeemed:  t.TotalMlRedeemed,
			}
			if active {
				last := t.LastActive
				view.LastActive = &last
			}
			activity = append(activity, view)
		}
		c.JSON(http.StatusOK, gin.H{"staff_activity": activity})
	}
}

// CustomerWallet is one wallet in the customer listing
type CustomerWallet struct {
	WalletID         uint                `json:"wallet_id"`
	BrandName        string              `json:"brand_name"`
	TotalCredits     int                 `json:"total_credits"`
	RemainingCredits int                 `json:"remaining_credits"`
	Status           domain.WalletStatus `json:"status"`
}

// CustomerView groups the wallets a customer holds at the bar
type CustomerView struct {
	CustomerID       uint             `json:"customer_id"`
	Name             string           `json:"name"`
	Phone            string           `json:"phone"`
	Wallets          []CustomerWallet `json:"wallets"`
	TotalCredits     int              `json:"total_credits"`
	RemainingCredits int              `json:"remaining_credits"`
}

// CustomersHandler lists every customer holding a wallet at the bar
func CustomersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		barID, ok := barOf(c, middleware.CurrentUser(c))
		if !ok {
			return
		}
		ctx := c.Request.Context()
		wallets, err := wallet.NewStore(db).List(ctx, wallet.ListFilter{BarID: barID})
		if err != nil {
			respondError(c, err)
			return
		}
		ownerIDs := make([]uint, 0, len(wallets))
		byOwner := map[uint]*CustomerView{}
		for _, w := range wallets {
			view, seen := byOwner[w.OwnerID]
			if !seen {
				view = &CustomerView{CustomerID: w.OwnerID, Wallets: []CustomerWallet{}}
				byOwner[w.OwnerID] = view
				ownerIDs = append(ownerIDs, w.OwnerID)
			}
			view.Wallets = append(view.Wallets, CustomerWallet{
				WalletID:         w.ID,
				BrandName:        w.BrandName,
				TotalCredits:     w.TotalCredits,
				RemainingCredits: w.RemainingCredits,
				Status:           w.Status,
			})
			view.TotalCredits += w.TotalCredits
			view.RemainingCredits += w.RemainingCredits
		}

		if len(ownerIDs) > 0 {
			var owners []domain.User
			if err := db.WithContext(ctx).Where("id IN ?", ownerIDs).Find(&owners).Error; err != nil {
				respondError(c, err)
				return
			}
			for _, u := range owners {
				byOwner[u.ID].Name = u.Name
				byOwner[u.ID].Phone = u.Phone
			}
		}
		sort.Slice(ownerIDs, func(i, j int) bool { return ownerIDs[i] < ownerIDs[j] })
		customers := make([]CustomerView, 0, len(ownerIDs))
		for _, id := range ownerIDs {
			customers = append(customers, *byOwner[id])
		}
		c.JSON(http.StatusOK, gin.H{"customers": customers})
	}
}

// BrandSalesView merges plan revenue and ledger redemptions for one brand
type BrandSalesView struct {
	wallet.BrandRevenue
	CreditsRedeemed int64 `json:"credits_redeemed"`
}

// SalesHandler returns revenue from plans sold at the bar, per brand
func SalesHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		barID, ok := barOf(c, middleware.CurrentUser(c))
		if !ok {
			return
		}
		ctx := c.Request.Context()
		cacheKey := adminPrefix(barID) + "sales"
		var cached gin.H
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached["cached"] = true
			c.JSON(http.StatusOK, cached)
			return
		}

		revenue, err := wallet.NewStore(db).RevenueByBrand(ctx, barID)
		if err != nil {
			respondError(c, err)
			return
		}
		brands, err := ledger.NewStore(db).SalesByBrand(ctx, barID)
		if err != nil {
			respondError(c, err)
			return
		}
		redeemed := make(map[string]int64, len(brands))
		for _, b := range brands {
			redeemed[b.BrandName] = b.CreditsRedeemed
		}

		var totalRevenue float64
		var bottles int64
		sales := make([]BrandSalesView, 0, len(revenue))
		for _, r := range revenue {
			totalRevenue += r.Revenue
			bottles += r.BottlesSold
			sales = append(sales, BrandSalesView{BrandRevenue: r, CreditsRedeemed: redeemed[r.BrandName]})
		}
		resp := gin.H{
			"total_revenue":      totalRevenue, // Sum of plan prices sold
			"total_bottles_sold": bottles,      // Wallets assigned
			"sales_by_brand":     sales,        // Per brand breakdown
			"cached":             false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, cacheTTL)
		c.JSON(http.StatusOK, resp)
	}
}

// ReconcileHandler replays a wallet's ledger and compares it with the stored balance
func ReconcileHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := middleware.CurrentUser(c)
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
		if !domain.CanActOnWallet(admin, w) {
			respondError(c, domain.ErrForbidden)
			return
		}
		balance, err := ledger.NewStore(db).Replay(ctx, w.ID)
		resp := gin.H{
			"wallet_id":         w.ID,
			"remaining_credits": w.RemainingCredits,
			"ledger_balance":    balance,
		}
		switch {
		case errors.Is(err, ledger.ErrInconsistent):
			resp["consistent"] = false
			resp["detail"] = err.Error()
		case err != nil:
			respondError(c, err)
			return
		default:
			resp["consistent"] = balance == w.RemainingCredits
		}
		c.JSON(http.StatusOK, resp)
	}
}
