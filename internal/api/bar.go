package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"bottle_credits/internal/domain"     // Importing domain models
	"bottle_credits/internal/middleware" // Current user lookup

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// CreateBarRequest registers a bar. The creating admin becomes affiliated with it.
type CreateBarRequest struct {
	Name          string `json:"name" binding:"required"`
	Address       string `json:"address" binding:"required"`
	City          string `json:"city" binding:"required"`
	Phone         string `json:"phone"`
	LicenseNumber string `json:"license_number"`
}

// UpdateBarRequest holds the fields an admin may change; nil means unchanged
type UpdateBarRequest struct {
	Name          *string `json:"name"`
	Address       *string `json:"address"`
	City          *string `json:"city"`
	Phone         *string `json:"phone"`
	LicenseNumber *string `json:"license_number"`
	IsActive      *bool   `json:"is_active"`
}

// CreatePlanRequest adds a bottle plan to the caller's bar
type CreatePlanRequest struct {
	BrandName string  `json:"brand_name" binding:"required"`
	Category  string  `json:"category"`
	TotalMl   int     `json:"total_ml" binding:"required,gt=0"`
	Price     float64 `json:"price" binding:"required,gt=0"`
}

// UpdatePlanRequest holds the plan fields an admin may change; nil means unchanged
type UpdatePlanRequest struct {
	BrandName *string  `json:"brand_name"`
	Category  *string  `json:"category"`
	TotalMl   *int     `json:"total_ml"`
	Price     *float64 `json:"price"`
	IsActive  *bool    `json:"is_active"`
}

// CreateBarHandler registers a bar and links the admin to it
func CreateBarHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := middleware.CurrentUser(c)
		var req CreateBarRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Name, address, and city are required")
			return
		}
		bar := domain.Bar{
			Name:          req.Name,
			Address:       req.Address,
			City:          req.City,
			Phone:         req.Phone,
			LicenseNumber: req.LicenseNumber,
			IsActive:      true,
		}
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&bar).Error; err != nil {
				return err
			}
			return tx.Model(&domain.User{}).Where("id = ?", admin.ID).Update("bar_id", bar.ID).Error
		})
		if err != nil {
			respondError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"bar_id":   bar.ID,   // New bar
			"admin_id": admin.ID, // Admin now affiliated with it
		}).Info("Bar created")
		c.JSON(http.StatusCreated, gin.H{"bar": bar})
	}
}

// ListBarsHandler returns active bars by name
func ListBarsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		bars := []domain.Bar{}
		if err := db.WithContext(c.Request.Context()).Where("is_active = ?", true).Order("name asc").Find(&bars).Error; err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bars": bars})
	}
}

// GetBarHandler returns a bar with its active plans
func GetBarHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var bar domain.Bar
		err := db.WithContext(c.Request.Context()).
			Preload("BottlePlans", "is_active = ?", true).
			First(&bar, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bar not found", "code": "BAR_NOT_FOUND"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bar": bar})
	}
}

// UpdateBarHandler changes the caller's own bar
func UpdateBarHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if !middleware.CurrentUser(c).WorksAt(id) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only update your own bar", "code": "FORBIDDEN"})
			return
		}
		var req UpdateBarRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		updates := map[string]any{}
		setIf(updates, "name", req.Name)
		setIf(updates, "address", req.Address)
		setIf(updates, "city", req.City)
		setIf(updates, "phone", req.Phone)
		setIf(updates, "license_number", req.LicenseNumber)
		setIf(updates, "is_active", req.IsActive)

		ctx := c.Request.Context()
		if len(updates) > 0 {
			if err := db.WithContext(ctx).Model(&domain.Bar{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				respondError(c, err)
				return
			}
		}
		var bar domain.Bar
		if err := db.WithContext(ctx).First(&bar, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bar not found", "code": "BAR_NOT_FOUND"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"bar": bar})
	}
}

// CreatePlanHandler adds a bottle plan to the caller's bar
func CreatePlanHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		barID, ok := barOf(c, middleware.CurrentUser(c))
		if !ok {
			return
		}
		var req CreatePlanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Brand name, total ml, and price are required")
			return
		}
		if req.Category == "" {
			req.Category = "other"
		}
		if !domain.ValidCategory(req.Category) {
			badRequest(c, "Unknown category")
			return
		}
		plan := domain.BottlePlan{
			BarID:     barID,
			BrandName: req.BrandName,
			Category:  req.Category,
			TotalMl:   req.TotalMl,
			Price:     req.Price,
			IsActive:  true,
		}
		if err := db.WithContext(c.Request.Context()).Create(&plan).Error; err != nil {
			respondError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"plan_id":  plan.ID,      // New plan
			"bar_id":   barID,        // Owning bar
			"total_ml": plan.TotalMl, // Credits it grants
		}).Info("Bottle plan created")
		c.JSON(http.StatusCreated, gin.H{"bottle_plan": plan})
	}
}

// ListPlansHandler returns active plans. Staff and admins see their own bar, customers may filter by bar_id.
func ListPlansHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		query := db.WithContext(c.Request.Context()).Where("is_active = ?", true)
		if user.IsStaff() {
			barID, ok := barOf(c, user)
			if !ok {
				return
			}
			query = query.Where("bar_id = ?", barID)
		} else if barID := uintQuery(c, "bar_id"); barID != 0 {
			query = query.Where("bar_id = ?", barID)
		}
		plans := []domain.BottlePlan{}
		if err := query.Order("brand_name asc").Find(&plans).Error; err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bottle_plans": plans})
	}
}

// GetPlanHandler returns one plan
func GetPlanHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var plan domain.BottlePlan
		if err := db.WithContext(c.Request.Context()).First(&plan, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = domain.ErrPlanNotFound
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bottle_plan": plan})
	}
}

// UpdatePlanHandler changes a plan of the caller's bar. Existing wallets keep their credits.
func UpdatePlanHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		var plan domain.BottlePlan
		if err := db.WithContext(ctx).First(&plan, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = domain.ErrPlanNotFound
			}
			respondError(c, err)
			return
		}
		if !middleware.CurrentUser(c).WorksAt(plan.BarID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only update your own bar's plans", "code": "FORBIDDEN"})
			return
		}
		var req UpdatePlanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if req.Category != nil && !domain.ValidCategory(*req.Category) {
			badRequest(c, "Unknown category")
			return
		}
		if (req.TotalMl != nil && *req.TotalMl <= 0) || (req.Price != nil && *req.Price <= 0) {
			badRequest(c, "Total ml and price must be positive")
			return
		}
		updates := map[string]any{}
		setIf(updates, "brand_name", req.BrandName)
		setIf(updates, "category", req.Category)
		setIf(updates, "total_ml", req.TotalMl)
		setIf(updates, "price", req.Price)
		setIf(updates, "is_active", req.IsActive)
		if len(updates) > 0 {
			if err := db.WithContext(ctx).Model(&plan).Updates(updates).Error; err != nil {
				respondError(c, err)
				return
			}
		}
		if err := db.WithContext(ctx).First(&plan, id).Error; err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bottle_plan": plan})
	}
}

// setIf records a column update only when the request carried the field
func setIf[T any](updates map[string]any, column string, v *T) {
	if v != nil {
		updates[column] = *v
	}
}
