package domain

// Bar Model
type Bar struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Name          string `gorm:"size:200;not null" json:"name"`
	Address       string `gorm:"not null" json:"address"`
	City          string `gorm:"size:100;not null" json:"city"`
	Phone         string `gorm:"size:15" json:"phone,omitempty"`
	LicenseNumber string `gorm:"size:100" json:"license_number,omitempty"` // Liquor license
	IsActive      bool   `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     int64  `gorm:"autoCreateTime:milli" json:"created_at"`

	BottlePlans []BottlePlan `gorm:"foreignKey:BarID" json:"bottle_plans,omitempty"`
}

// PlanCategories lists the accepted bottle plan categories
var PlanCategories = []string{"whisky", "vodka", "rum", "gin", "tequila", "wine", "beer", "other"}

// ValidCategory reports whether c is one of PlanCategories
func ValidCategory(c string) bool {
	for _, v := range PlanCategories {
		if v == c {
			return true
		}
	}
	return false
}

// BottlePlan Model, a purchasable bottle at one bar
type BottlePlan struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	BarID     uint    `gorm:"not null;index" json:"bar_id"`
	BrandName string  `gorm:"size:200;not null" json:"brand_name"`
	Category  string  `gorm:"size:32;not null;default:other" json:"category"`
	TotalMl   int     `gorm:"not null" json:"total_ml"` // Credits granted on purchase
	Price     float64 `gorm:"not null" json:"price"`
	IsActive  bool    `gorm:"not null;default:true" json:"is_active"`
	CreatedAt int64   `gorm:"autoCreateTime:milli" json:"created_at"`
}
