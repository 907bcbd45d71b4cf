package domain

// RedemptionToken Model, the single-use capability behind a customer QR code
type RedemptionToken struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	Token     string `gorm:"size:64;uniqueIndex;not null" json:"token"`             // Unguessable value shown in the QR code
	WalletID  uint   `gorm:"not null;index:idx_token_wallet_used" json:"wallet_id"` // Wallet the token can debit
	ExpiresAt int64  `gorm:"not null;index" json:"expires_at"`                      // Absolute expiry in milliseconds
	Used      bool   `gorm:"not null;default:false;index:idx_token_wallet_used" json:"used"`
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"`
}

// Expired reports whether the token is past its expiry at nowMilli
func (t *RedemptionToken) Expired(nowMilli int64) bool {
	return nowMilli >= t.ExpiresAt
}
