package token

import (
	"context" // Request scoped queries
	"errors"  // Error inspection
	"time"    // Expiry checks

	"bottle_credits/internal/domain" // Importing domain models
	"bottle_credits/internal/wallet" // Wallet reads

	"gorm.io/gorm" // GORM ORM library
)

// Snapshot is what staff see after scanning a valid QR code
type Snapshot struct {
	WalletID         uint   `json:"wallet_id"`
	BrandName        string `json:"brand_name"`
	RemainingCredits int    `json:"remaining_credits"`
	TotalCredits     int    `json:"total_credits"`
	Token            string `json:"token"`
}

// Validator previews a token without consuming it
type Validator struct {
	db  *gorm.DB
	now func() time.Time
}

// NewValidator returns a validator using the wall clock
func NewValidator(db *gorm.DB) *Validator {
	return &Validator{db: db, now: time.Now}
}

// WithClock replaces the clock, used by tests
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate checks a token for staff of staffBarID. It never writes, an expired token stays unused.
func (v *Validator) Validate(ctx context.Context, value string, staffBarID uint) (*Snapshot, error) {
	t, err := NewStore(v.db).Find(ctx, value)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrInvalidToken
	}
	if t.Used {
		return nil, domain.ErrTokenAlreadyUsed
	}
	if t.Expired(v.now().UnixMilli()) {
		return nil, domain.ErrTokenExpired
	}
	w, err := wallet.NewStore(v.db).Get(ctx, t.WalletID)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	if w.BarID != staffBarID {
		return nil, domain.ErrBarMismatch
	}
	return &Snapshot{
		WalletID:         w.ID,
		BrandName:        w.BrandName,
		RemainingCredits: w.RemainingCredits,
		TotalCredits:     w.TotalCredits,
		Token:            t.Token,
	}, nil
}
