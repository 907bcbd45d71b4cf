package token

import (
	"context" // Request scoped queries
	"time"    // Expiry computation

	"bottle_credits/internal/config" // Redemption policy
	"bottle_credits/internal/domain" // Importing domain models
	"bottle_credits/internal/wallet" // Wallet reads

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Issued is a freshly minted token with the wallet snapshot shown next to the QR code
type Issued struct {
	Token            string `json:"token"`
	ExpiresAt        int64  `json:"expires_at"` // Milliseconds
	WalletID         uint   `json:"wallet_id"`
	BrandName        string `json:"brand_name"`
	RemainingCredits int    `json:"remaining_credits"`
}

// Issuer mints single-use redemption tokens
type Issuer struct {
	db      *gorm.DB
	credits config.Credits
	now     func() time.Time
}

// NewIssuer returns an issuer using the wall clock
func NewIssuer(db *gorm.DB, credits config.Credits) *Issuer {
	return &Issuer{db: db, credits: credits, now: time.Now}
}

// WithClock replaces the clock, used by tests
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue invalidates every unused token of the wallet and mints a new one.
// The wallet row stays locked for the whole transaction, so concurrent issuances
// for one wallet run one after the other and leave exactly one unused token.
func (i *Issuer) Issue(ctx context.Context, walletID, requesterID uint) (*Issued, error) {
	var issued *Issued
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := wallet.NewStore(tx).LockOwned(ctx, walletID, requesterID)
		if err != nil {
			return err
		}
		if w.Status == domain.WalletExhausted || w.RemainingCredits <= 0 {
			return domain.ErrWalletExhausted
		}

		tokens := NewStore(tx)
		revoked, err := tokens.InvalidateWallet(ctx, w.ID)
		if err != nil {
			return err
		}
		value, err := NewValue()
		if err != nil {
			return err
		}
		t := &domain.RedemptionToken{
			Token:     value,
			WalletID:  w.ID,
			ExpiresAt: i.now().Add(i.credits.TokenTTL).UnixMilli(),
		}
		if err := tokens.Create(ctx, t); err != nil {
			return err
		}
		if revoked > 0 {
			logrus.WithFields(logrus.Fields{
				"wallet_id": w.ID,    // Wallet whose older tokens were revoked
				"revoked":   revoked, // Number of revoked tokens
			}).Debug("Superseded unused tokens")
		}
		issued = &Issued{
			Token:            t.Token,
			ExpiresAt:        t.ExpiresAt,
			WalletID:         w.ID,
			BrandName:        w.BrandName,
			RemainingCredits: w.RemainingCredits,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"wallet_id":  walletID,         // Wallet the token can debit
		"user_id":    requesterID,      // Customer who asked for it
		"expires_at": issued.ExpiresAt, // Absolute expiry in milliseconds
	}).Info("QR token issued")
	return issued, nil
}
