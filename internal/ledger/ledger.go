package ledger

import (
	"context" // Request scoped queries
	"errors"  // Sentinel errors
	"fmt"     // Error wrapping

	"bottle_credits/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// Paging defaults
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrInconsistent is returned by Replay when an entry does not continue from the previous balance
var ErrInconsistent = errors.New("ledger: inconsistent balance chain")

// Store is the append-only ledger. It exposes no update or delete operation.
type Store struct {
	db *gorm.DB
}

// NewStore returns a ledger bound to db, which may be a transaction
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Validate checks the arithmetic and shape invariants of an entry before it is written
func Validate(e *domain.LedgerEntry) error {
	if e.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidLedgerEntry)
	}
	if e.WalletID == 0 || e.CustomerID == 0 || e.BarID == 0 {
		return fmt.Errorf("%w: wallet, customer and bar are required", domain.ErrInvalidLedgerEntry)
	}
	if e.BalanceAfter < 0 {
		return fmt.Errorf("%w: balance cannot go negative", domain.ErrInvalidLedgerEntry)
	}
	switch e.Type {
	case domain.EntryCredit:
		if e.BalanceAfter != e.BalanceBefore+e.Amount {
			return fmt.Errorf("%w: credit balance mismatch", domain.ErrInvalidLedgerEntry)
		}
		if e.PegSize != nil {
			return fmt.Errorf("%w: credit entries carry no peg size", domain.ErrInvalidLedgerEntry)
		}
	case domain.EntryDebit:
		if e.BalanceAfter != e.BalanceBefore-e.Amount {
			return fmt.Errorf("%w: debit balance mismatch", domain.ErrInvalidLedgerEntry)
		}
		if e.PegSize == nil || *e.PegSize != e.Amount {
			return fmt.Errorf("%w: debit entries need a matching peg size", domain.ErrInvalidLedgerEntry)
		}
		if e.StaffID == nil {
			return fmt.Errorf("%w: debit entries need a staff member", domain.ErrInvalidLedgerEntry)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidLedgerEntry, e.Type)
	}
	return nil
}

// Append validates and inserts an entry, returning its id
func (s *Store) Append(ctx context.Context, e *domain.LedgerEntry) (uint, error) {
	if err := Validate(e); err != nil {
		return 0, err
	}
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return 0, fmt.Errorf("ledger: append: %w", err)
	}
	return e.ID, nil
}

// Filter narrows a ledger listing. Zero values mean "any".
type Filter struct {
	WalletID   uint
	StaffID    uint
	CustomerID uint
	BarID      uint
	Type       domain.EntryType
	From       int64 // Inclusive lower bound on created_at in milliseconds, zero means open
	To         int64 // Inclusive upper bound on created_at in milliseconds, zero means open
	Page       int
	PageSize   int
}

// Page is one page of entries, newest first
type Page struct {
	Entries    []domain.LedgerEntry `json:"transactions"` // Entries on this page
	Page       int                  `json:"page"`         // Current page
	PageSize   int                  `json:"page_size"`    // Page size
	Total      int64                `json:"total"`        // Total matching entries
	TotalPages int                  `json:"total_pages"`  // Total pages
}

// Normalize clamps page and page size to the accepted ranges
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

func (s *Store) scoped(ctx context.Context, f Filter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&domain.LedgerEntry{})
	if f.WalletID != 0 {
		query = query.Where("wallet_id = ?", f.WalletID)
	}
	if f.StaffID != 0 {
		query = query.Where("staff_id = ?", f.StaffID)
	}
	if f.CustomerID != 0 {
		query = query.Where("customer_id = ?", f.CustomerID)
	}
	if f.BarID != 0 {
		query = query.Where("bar_id = ?", f.BarID)
	}
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.From != 0 {
		query = query.Where("created_at >= ?", f.From)
	}
	if f.To != 0 {
		query = query.Where("created_at <= ?", f.To)
	}
	return query
}

// List returns the entries matching f, most recent first
func (s *Store) List(ctx context.Context, f Filter) (*Page, error) {
	f.Normalize()
	var total int64 // Total count for pagination
	if err := s.scoped(ctx, f).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("ledger: count: %w", err)
	}
	entries := []domain.LedgerEntry{}
	if err := s.scoped(ctx, f).
		Order("created_at desc").
		Order("id desc").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	return &Page{
		Entries:    entries,
		Page:       f.Page,
		PageSize:   f.PageSize,
		Total:      total,
		TotalPages: (int(total) + f.PageSize - 1) / f.PageSize,
	}, nil
}

// Replay walks a wallet's entries in time order and returns the balance they reconstruct.
// It fails if any entry does not continue from the previous balance.
func (s *Store) Replay(ctx context.Context, walletID uint) (int, error) {
	var entries []domain.LedgerEntry
	if err := s.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at asc").
		Order("id asc").
		Find(&entries).Error; err != nil {
		return 0, fmt.Errorf("ledger: replay: %w", err)
	}
	balance := 0
	for _, e := range entries {
		if e.BalanceBefore != balance {
			return balance, fmt.Errorf("%w: entry %d starts at %d, expected %d", ErrInconsistent, e.ID, e.BalanceBefore, balance)
		}
		switch e.Type {
		case domain.EntryCredit:
			balance += e.Amount
		case domain.EntryDebit:
			balance -= e.Amount
		}
	}
	return balance, nil
}

// StaffTotals summarises DEBIT activity of one staff member
type StaffTotals struct {
	StaffID          uint  `json:"staff_id"`
	TotalRedemptions int64 `json:"total_redemptions"`
	TotalMlRedeemed  int64 `json:"total_ml_redeemed"`
	LastActive       int64 `json:"last_active"` // Milliseconds, zero when never active
}

// StaffActivity returns DEBIT totals per staff member for a bar
func (s *Store) StaffActivity(ctx context.Context, barID uint) ([]StaffTotals, error) {
	rows := []StaffTotals{}
	err := s.db.WithContext(ctx).
		Model(&domain.LedgerEntry{}).
		Select("staff_id, COUNT(*) AS total_redemptions, COALESCE(SUM(amount), 0) AS total_ml_redeemed, MAX(created_at) AS last_active").
		Where("bar_id = ? AND type = ? AND staff_id IS NOT NULL", barID, domain.EntryDebit).
		Group("staff_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ledger: staff activity: %w", err)
	}
	return rows, nil
}

// Recent returns the latest n entries of a bar
func (s *Store) Recent(ctx context.Context, barID uint, n int) ([]domain.LedgerEntry, error) {
	entries := []domain.LedgerEntry{}
	err := s.db.WithContext(ctx).
		Where("bar_id = ?", barID).
		Order("created_at desc").
		Order("id desc").
		Limit(n).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("ledger: recent: %w", err)
	}
	return entries, nil
}

// Totals are simple sums over a bar's ledger
type Totals struct {
	Purchases       int64 `json:"purchases"`        // CREDIT entries
	CreditsSold     int64 `json:"credits_sold"`     // Sum of CREDIT amounts in ml
	Redemptions     int64 `json:"redemptions"`      // DEBIT entries
	CreditsRedeemed int64 `json:"credits_redeemed"` // Sum of DEBIT amounts in ml
}

type typeSum struct {
	Type  domain.EntryType
	Count int64
	Sum   int64
}

// Totals sums a bar's entries created at or after since (milliseconds, zero for all time)
func (s *Store) Totals(ctx context.Context, barID uint, since int64) (Totals, error) {
	var rows []typeSum
	err := s.scoped(ctx, Filter{BarID: barID, From: since}).
		Select("type, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS sum").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return Totals{}, fmt.Errorf("ledger: totals: %w", err)
	}
	var t Totals
	for _, r := range rows {
		switch r.Type {
		case domain.EntryCredit:
			t.Purchases, t.CreditsSold = r.Count, r.Sum
		case domain.EntryDebit:
			t.Redemptions, t.CreditsRedeemed = r.Count, r.Sum
		}
	}
	return t, nil
}

// BrandSales is the per brand breakdown of a bar's ledger
type BrandSales struct {
	BrandName       string `json:"brand_name"`
	BottlesSold     int64  `json:"bottles_sold"`
	CreditsSold     int64  `json:"credits_sold"`
	CreditsRedeemed int64  `json:"credits_redeemed"`
}

// SalesByBrand groups a bar's entries by brand, best sellers first
func (s *Store) SalesByBrand(ctx context.Context, barID uint) ([]BrandSales, error) {
	rows := []BrandSales{}
	err := s.scoped(ctx, Filter{BarID: barID}).
		Select(
			"brand_name, "+
				"SUM(CASE WHEN type = ? THEN 1 ELSE 0 END) AS bottles_sold, "+
				"SUM(CASE WHEN type = ? THEN amount ELSE 0 END) AS credits_sold, "+
				"SUM(CASE WHEN type = ? THEN amount ELSE 0 END) AS credits_redeemed",
			domain.EntryCredit, domain.EntryCredit, domain.EntryDebit).
		Group("brand_name").
		Order("bottles_sold desc").
		Order("brand_name asc").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ledger: sales: %w", err)
	}
	return rows, nil
}
