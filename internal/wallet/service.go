package wallet

import (
	"context" // Request scoped queries
	"errors"  // Error inspection
	"fmt"     // Note formatting
	"time"    // Entry timestamps

	"bottle_credits/internal/domain" // Importing domain models
	"bottle_credits/internal/ledger" // Append-only ledger

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Service runs the plan-to-wallet creation flow
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService returns a wallet service using the wall clock
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// WithClock replaces the clock, used by tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AssignRequest asks to give a customer the credits of one bottle plan
type AssignRequest struct {
	CustomerID uint
	PlanID     uint
	Admin      *domain.User // Assigning admin, nil for system seeding
}

// Assign creates a wallet with the plan's full credits and its CREDIT ledger entry in one transaction
func (s *Service) Assign(ctx context.Context, req AssignRequest) (*domain.Wallet, *domain.LedgerEntry, error) {
	var (
		wallet domain.Wallet
		entry  domain.LedgerEntry
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer domain.User
		if err := tx.Where("id = ? AND role = ?", req.CustomerID, domain.RoleCustomer).First(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrCustomerNotFound
			}
			return err
		}
		var plan domain.BottlePlan
		if err := tx.Where("id = ?", req.PlanID).First(&plan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrPlanNotFound
			}
			return err
		}
		if req.Admin != nil && !req.Admin.WorksAt(plan.BarID) {
			return domain.ErrBarMismatch
		}
		if !plan.IsActive {
			return domain.ErrPlanInactive
		}

		wallet = domain.Wallet{
			OwnerID:      customer.ID,
			BarID:        plan.BarID,
			BottlePlanID: plan.ID,
			BrandName:    plan.BrandName,
			TotalCredits: plan.TotalMl,
		}
		if err := NewStore(tx).Create(ctx, &wallet); err != nil {
			return err
		}

		entry = domain.LedgerEntry{
			WalletID:      wallet.ID,
			CustomerID:    customer.ID,
			BarID:         plan.BarID,
			Type:          domain.EntryCredit,
			Amount:        plan.TotalMl,
			BrandName:     plan.BrandName,
			BalanceBefore: 0,
			BalanceAfter:  plan.TotalMl,
			Note:          fmt.Sprintf("Bottle plan purchased: %s (%dml)", plan.BrandName, plan.TotalMl),
			CreatedAt:     s.now().UnixMilli(),
		}
		if req.Admin != nil {
			adminID := req.Admin.ID
			entry.StaffID = &adminID
		}
		_, err := ledger.NewStore(tx).Append(ctx, &entry)
		return err
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"customer_id": req.CustomerID, // Customer receiving the bottle
			"plan_id":     req.PlanID,     // Plan being assigned
			"error":       err.Error(),    // Error message
		}).Warn("Wallet assignment rejected")
		return nil, nil, err
	}
	logrus.WithFields(logrus.Fields{
		"wallet_id":   wallet.ID,           // New wallet
		"customer_id": wallet.OwnerID,      // Owner
		"bar_id":      wallet.BarID,        // Bar the credits are locked to
		"credits":     wallet.TotalCredits, // Credits granted
	}).Info("Wallet created")
	return &wallet, &entry, nil
}
