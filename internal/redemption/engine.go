package redemption

import (
	"context" // Request scoped queries
	"errors"  // Error inspection
	"fmt"     // Note formatting
	"time"    // Expiry checks and timestamps

	"bottle_credits/internal/config" // Redemption policy
	"bottle_credits/internal/domain" // Importing domain models
	"bottle_credits/internal/ledger" // Append-only ledger
	"bottle_credits/internal/token"  // Token state
	"bottle_credits/internal/wallet" // Wallet balances

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Request asks to pour one peg against the wallet behind a token
type Request struct {
	Token   string
	PegSize int
	Staff   *domain.User // Staff member scanning the QR code
}

// Redemption is the terminal record of a committed redemption
type Redemption struct {
	ID              uint                `json:"transaction_id"` // Id of the DEBIT ledger entry
	WalletID        uint                `json:"wallet_id"`
	BrandName       string              `json:"brand_name"`
	PegSize         int                 `json:"peg_size"`
	CreditsDeducted int                 `json:"credits_deducted"`
	BalanceBefore   int                 `json:"balance_before"`
	BalanceAfter    int                 `json:"balance_after"`
	WalletStatus    domain.WalletStatus `json:"wallet_status"`
	StaffID         uint                `json:"staff_id"`
	StaffName       string              `json:"staff_name"`
	Timestamp       int64               `json:"timestamp"` // Milliseconds
}

// Engine turns a token and a peg size into a debit. It is the only writer of wallet balances
// outside wallet creation.
type Engine struct {
	db      *gorm.DB
	credits config.Credits
	now     func() time.Time
}

// NewEngine returns an engine using the wall clock
func NewEngine(db *gorm.DB, credits config.Credits) *Engine {
	return &Engine{db: db, credits: credits, now: time.Now}
}

// WithClock replaces the clock, used by tests
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Redeem runs the gates in order and commits on success. Every rejection leaves state untouched
// except an expired token, which is consumed so it can never be retried.
func (e *Engine) Redeem(ctx context.Context, req Request) (*Redemption, error) {
	if !e.credits.AllowsPeg(req.PegSize) {
		return nil, e.reject(req, &domain.InvalidPegSizeError{PegSize: req.PegSize, Allowed: e.credits.PegSizes})
	}
	if req.Staff == nil {
		return nil, e.reject(req, domain.ErrForbidden)
	}

	var (
		out     *Redemption
		expired bool
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tokens := token.NewStore(tx)
		t, err := tokens.FindUnused(ctx, req.Token)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrInvalidOrUsedToken
		}

		now := e.now()
		if t.Expired(now.UnixMilli()) {
			consumed, err := tokens.Consume(ctx, t.ID)
			if err != nil {
				return err
			}
			if !consumed {
				return domain.ErrInvalidOrUsedToken
			}
			// Commit the consumption, the caller still gets ErrTokenExpired.
			expired = true
			return nil
		}

		wallets := wallet.NewStore(tx)
		w, err := wallets.Lock(ctx, t.WalletID)
		if err != nil {
			return err
		}
		if req.Staff.BarID == nil || w.BarID != *req.Staff.BarID {
			return domain.ErrBarMismatch
		}
		if w.Status == domain.WalletExhausted {
			return domain.ErrWalletExhausted
		}
		if w.RemainingCredits < req.PegSize {
			return &domain.InsufficientCreditsError{Available: w.RemainingCredits, Requested: req.PegSize}
		}

		// Commit: token, balance and ledger entry land together or not at all.
		consumed, err := tokens.Consume(ctx, t.ID)
		if err != nil {
			return err
		}
		if !consumed {
			return domain.ErrInvalidOrUsedToken
		}
		before := w.RemainingCredits
		if err := wallets.Debit(ctx, w, req.PegSize); err != nil {
			return err
		}

		staffID := req.Staff.ID
		peg := req.PegSize
		entry := &domain.LedgerEntry{
			WalletID:      w.ID,
			CustomerID:    w.OwnerID,
			StaffID:       &staffID,
			BarID:         w.BarID,
			Type:          domain.EntryDebit,
			Amount:        peg,
			PegSize:       &peg,
			BrandName:     w.BrandName,
			BalanceBefore: before,
			BalanceAfter:  w.RemainingCredits,
			Note:          fmt.Sprintf("Redeemed %dml peg of %s", peg, w.BrandName),
			CreatedAt:     now.UnixMilli(),
		}
		id, err := ledger.NewStore(tx).Append(ctx, entry)
		if err != nil {
			return err
		}

		out = &Redemption{
			ID:              id,
			WalletID:        w.ID,
			BrandName:       w.BrandName,
			PegSize:         peg,
			CreditsDeducted: peg,
			BalanceBefore:   before,
			BalanceAfter:    w.RemainingCredits,
			WalletStatus:    w.Status,
			StaffID:         staffID,
			StaffName:       req.Staff.Name,
			Timestamp:       entry.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, e.reject(req, err)
	}
	if expired {
		return nil, e.reject(req, domain.ErrTokenExpired)
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": out.ID,           // Ledger entry id
		"wallet_id":      out.WalletID,     // Debited wallet
		"staff_id":       out.StaffID,      // Staff who poured
		"peg_size":       out.PegSize,      // Peg size in ml
		"balance_after":  out.BalanceAfter, // Remaining credits
		"wallet_status":  out.WalletStatus, // Wallet status after the debit
	}).Info("Redemption committed")
	return out, nil
}

// reject logs a failed attempt and hands the error back unchanged
func (e *Engine) reject(req Request, err error) error {
	entry := logrus.WithFields(logrus.Fields{
		"peg_size": req.PegSize, // Requested peg size
		"error":    err.Error(), // Rejection reason
	})
	if req.Staff != nil {
		entry = entry.WithField("staff_id", req.Staff.ID)
	}
	if isRejection(err) {
		entry.Warn("Redemption rejected")
	} else {
		entry.Error("Redemption failed")
	}
	return err
}

// isRejection reports whether err is a business rule failure rather than an infrastructure error
func isRejection(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidPegSize,
		domain.ErrInvalidOrUsedToken,
		domain.ErrTokenExpired,
		domain.ErrWalletNotFound,
		domain.ErrBarMismatch,
		domain.ErrForbidden,
		domain.ErrWalletExhausted,
		domain.ErrInsufficientCredits,
		domain.ErrWalletChanged,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
