package domain

// EntryType is the direction of a ledger entry
type EntryType string

// Ledger entry types
const (
	EntryCredit EntryType = "CREDIT" // Bottle assigned to a wallet
	EntryDebit  EntryType = "DEBIT"  // Peg poured from a wallet
)

// LedgerEntry Model. Entries are append-only and never updated or deleted.
type LedgerEntry struct {
	ID            uint      `gorm:"primaryKey" json:"id"`                                                 // Monotonic primary key
	WalletID      uint      `gorm:"not null;index:idx_ledger_wallet_created,priority:1" json:"wallet_id"` // Wallet the entry applies to
	CustomerID    uint      `gorm:"not null;index" json:"customer_id"`                                    // Wallet owner
	StaffID       *uint     `gorm:"index" json:"staff_id"`                                                // Who performed it, nil only for system credits
	BarID         uint      `gorm:"not null;index" json:"bar_id"`                                         // Bar of the wallet
	Type          EntryType `gorm:"size:8;not null;index" json:"type"`                                    // CREDIT or DEBIT
	Amount        int       `gorm:"not null" json:"amount"`                                               // Positive number of credits
	PegSize       *int      `json:"peg_size"`                                                             // Set for DEBIT only
	BrandName     string    `gorm:"size:200;not null" json:"brand_name"`
	BalanceBefore int       `gorm:"not null" json:"balance_before"`
	BalanceAfter  int       `gorm:"not null" json:"balance_after"`
	Note          string    `gorm:"size:255" json:"note"`
	CreatedAt     int64     `gorm:"not null;index:idx_ledger_wallet_created,priority:2" json:"created_at"` // Milliseconds
}
