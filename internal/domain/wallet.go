package domain

// WalletStatus is the lifecycle state of a wallet
type WalletStatus string

// Wallet statuses
const (
	WalletActive    WalletStatus = "active"    // Has remaining credits
	WalletExhausted WalletStatus = "exhausted" // Remaining credits reached zero
)

// StatusFor returns the status a wallet must have with the given remaining credits
func StatusFor(remaining int) WalletStatus {
	if remaining == 0 {
		return WalletExhausted
	}
	return WalletActive
}

// Wallet Model, one per bottle purchase. One credit is one ml.
type Wallet struct {
	ID               uint         `gorm:"primaryKey" json:"id"`                 // Primary key
	OwnerID          uint         `gorm:"not null;index" json:"owner_id"`       // Customer who owns the credits
	BarID            uint         `gorm:"not null;index" json:"bar_id"`         // Bar the credits are locked to
	BottlePlanID     uint         `gorm:"not null;index" json:"bottle_plan_id"` // Plan the wallet was created from
	BrandName        string       `gorm:"size:200;not null" json:"brand_name"`  // Brand the credits are locked to
	TotalCredits     int          `gorm:"not null" json:"total_credits"`        // Bottle volume, immutable
	RemainingCredits int          `gorm:"not null" json:"remaining_credits"`    // Spendable credits
	Status           WalletStatus `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt        int64        `gorm:"autoCreateTime:milli" json:"created_at"` // Creation time in milliseconds
	UpdatedAt        int64        `gorm:"autoUpdateTime:milli" json:"updated_at"` // Last debit time in milliseconds
}

// CanActOnWallet is the single capability check used before every wallet-scoped operation.
// Customers act on their own wallets, staff and admins on wallets of their bar.
func CanActOnWallet(u *User, w *Wallet) bool {
	if u == nil || w == nil {
		return false
	}
	switch u.Role {
	case RoleCustomer:
		return w.OwnerID == u.ID
	case RoleStaff, RoleAdmin:
		return u.WorksAt(w.BarID)
	}
	return false
}
