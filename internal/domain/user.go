package domain

// Role identifies what a user may do on the platform
type Role string

// Supported roles
const (
	RoleCustomer Role = "customer" // Buys bottles and redeems pegs
	RoleStaff    Role = "staff"    // Scans QR tokens and pours pegs at one bar
	RoleAdmin    Role = "admin"    // Manages one bar, its plans, staff and wallets
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// User Model
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`                      // Primary key
	Phone     string `gorm:"size:15;uniqueIndex;not null" json:"phone"` // Unique login identifier
	Name      string `gorm:"size:100;not null" json:"name"`             // Display name
	Email     string `gorm:"size:200" json:"email,omitempty"`           // Optional email
	Password  string `gorm:"not null" json:"-"`                         // Hashed password, never serialized
	Role      Role   `gorm:"size:16;not null;default:customer;index" json:"role"`
	BarID     *uint  `gorm:"index" json:"bar_id,omitempty"` // Bar affiliation for staff and admins
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"`
}

// IsStaff reports whether the user works at a bar (staff or admin)
func (u *User) IsStaff() bool {
	return u.Role == RoleStaff || u.Role == RoleAdmin
}

// WorksAt reports whether the user is affiliated with barID
func (u *User) WorksAt(barID uint) bool {
	return u.BarID != nil && *u.BarID == barID
}
