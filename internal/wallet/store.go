package wallet

import (
	"context" // Request scoped queries
	"errors"  // Error inspection
	"fmt"     // Error wrapping

	"bottle_credits/internal/domain" // Importing domain models

	"gorm.io/gorm"        // GORM ORM library
	"gorm.io/gorm/clause" // Row locking
)

// Store is the only writer of wallet balances
type Store struct {
	db *gorm.DB
}

// NewStore returns a wallet store bound to db, which may be a transaction
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) first(query *gorm.DB) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := query.First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet: query: %w", err)
	}
	return &w, nil
}

// Get loads a wallet by id
func (s *Store) Get(ctx context.Context, id uint) (*domain.Wallet, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ?", id))
}

// GetOwned loads a wallet only if it belongs to ownerID
func (s *Store) GetOwned(ctx context.Context, id, ownerID uint) (*domain.Wallet, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID))
}

// Lock loads a wallet with a row lock held until the surrounding transaction ends
func (s *Store) Lock(ctx context.Context, id uint) (*domain.Wallet, error) {
	return s.first(s.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// LockOwned is Lock restricted to wallets owned by ownerID
func (s *Store) LockOwned(ctx context.Context, id, ownerID uint) (*domain.Wallet, error) {
	return s.first(s.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND owner_id = ?", id, ownerID))
}

// Create inserts a new wallet with full credits
func (s *Store) Create(ctx context.Context, w *domain.Wallet) error {
	w.RemainingCredits = w.TotalCredits
	w.Status = domain.StatusFor(w.RemainingCredits)
	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		return fmt.Errorf("wallet: create: %w", err)
	}
	return nil
}

// Debit subtracts amount from a wallet previously read as w. The update only applies if the
// stored balance still equals w.RemainingCredits and the wallet is active, so a concurrent
// debit can never be overwritten. On success w holds the new balance and status.
func (s *Store) Debit(ctx context.Context, w *domain.Wallet, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("wallet: debit amount must be positive")
	}
	if w.RemainingCredits < amount {
		return &domain.InsufficientCreditsError{Available: w.RemainingCredits, Requested: amount}
	}
	after := w.RemainingCredits - amount
	status := domain.StatusFor(after)
	res := s.db.WithContext(ctx).Model(&domain.Wallet{}).
		Where("id = ? AND status = ? AND remaining_credits = ?", w.ID, domain.WalletActive, w.RemainingCredits).
		Updates(map[string]any{
			"remaining_credits": after,
			"status":            status,
		})
	if res.Error != nil {
		return fmt.Errorf("wallet: debit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrWalletChanged
	}
	w.RemainingCredits = after
	w.Status = status
	return nil
}

// ListFilter narrows a wallet listing. Zero values mean "any".
type ListFilter struct {
	OwnerID uint
	BarID   uint
	Status  domain.WalletStatus
}

// List returns wallets matching f, newest first
func (s *Store) List(ctx context.Context, f ListFilter) ([]domain.Wallet, error) {
	query := s.db.WithContext(ctx).Model(&domain.Wallet{})
	if f.OwnerID != 0 {
		query = query.Where("owner_id = ?", f.OwnerID)
	}
	if f.BarID != 0 {
		query = query.Where("bar_id = ?", f.BarID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	wallets := []domain.Wallet{}
	if err := query.Order("created_at desc").Order("id desc").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("wallet: list: %w", err)
	}
	return wallets, nil
}

// Summary aggregates the wallets of one bar
type Summary struct {
	TotalWallets     int64 `json:"total_wallets"`
	ActiveWallets    int64 `json:"active_wallets"`
	ExhaustedWallets int64 `json:"exhausted_wallets"`
	UniqueCustomers  int64 `json:"unique_customers"`
	CreditsIssued    int64 `json:"total_credits_issued"`    // Sum of total credits in ml
	CreditsRemaining int64 `json:"total_credits_remaining"` // Sum of remaining credits in ml
}

// Summarize returns wallet counts and credit sums for a bar
func (s *Store) Summarize(ctx context.Context, barID uint) (Summary, error) {
	var sum Summary
	err := s.db.WithContext(ctx).Model(&domain.Wallet{}).
		Select(
			"COUNT(*) AS total_wallets, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active_wallets, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS exhausted_wallets, "+
				"COUNT(DISTINCT owner_id) AS unique_customers, "+
				"COALESCE(SUM(total_credits), 0) AS credits_issued, "+
				"COALESCE(SUM(remaining_credits), 0) AS credits_remaining",
			domain.WalletActive, domain.WalletExhausted).
		Where("bar_id = ?", barID).
		Scan(&sum).Error
	if err != nil {
		return Summary{}, fmt.Errorf("wallet: summarize: %w", err)
	}
	return sum, nil
}

// BrandRevenue is the plan revenue of one brand at a bar
type BrandRevenue struct {
	BrandName   string  `json:"brand_name"`
	BottlesSold int64   `json:"bottles_sold"`
	Revenue     float64 `json:"total_revenue"`
	TotalMl     int64   `json:"total_ml"`
}

// RevenueByBrand sums the price of every plan sold at a bar, highest revenue first
func (s *Store) RevenueByBrand(ctx context.Context, barID uint) ([]BrandRevenue, error) {
	rows := []BrandRevenue{}
	err := s.db.WithContext(ctx).Model(&domain.Wallet{}).
		Select("wallets.brand_name AS brand_name, COUNT(*) AS bottles_sold, "+
			"COALESCE(SUM(bottle_plans.price), 0) AS revenue, COALESCE(SUM(wallets.total_credits), 0) AS total_ml").
		Joins("JOIN bottle_plans ON bottle_plans.id = wallets.bottle_plan_id").
		Where("wallets.bar_id = ?", barID).
		Group("wallets.brand_name").
		Order("revenue desc").
		Order("brand_name asc").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("wallet: revenue: %w", err)
	}
	return rows, nil
}
