package token

import (
	"context" // Request scoped queries
	"errors"  // Error inspection
	"fmt"     // Error wrapping

	"bottle_credits/internal/domain" // Importing domain models

	"github.com/google/uuid" // Random token values
	"gorm.io/gorm"           // GORM ORM library
)

// Store owns redemption token state. The used flag only ever moves from false to true.
type Store struct {
	db *gorm.DB
}

// NewStore returns a token store bound to db, which may be a transaction
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// NewValue returns a fresh unguessable token value
func NewValue() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("token: generate: %w", err)
	}
	return id.String(), nil
}

func (s *Store) first(query *gorm.DB) (*domain.RedemptionToken, error) {
	var t domain.RedemptionToken
	if err := query.First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("token: query: %w", err)
	}
	return &t, nil
}

// Find looks a token up by value, used or not. It returns nil when there is no such token.
func (s *Store) Find(ctx context.Context, value string) (*domain.RedemptionToken, error) {
	return s.first(s.db.WithContext(ctx).Where("token = ?", value))
}

// FindUnused looks a token up by value among unused tokens only
func (s *Store) FindUnused(ctx context.Context, value string) (*domain.RedemptionToken, error) {
	return s.first(s.db.WithContext(ctx).Where("token = ? AND used = ?", value, false))
}

// Consume flips one token from unused to used. It reports false when another caller got there first.
func (s *Store) Consume(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&domain.RedemptionToken{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if res.Error != nil {
		return false, fmt.Errorf("token: consume: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// InvalidateWallet marks every unused token of a wallet as used and returns how many it flipped
func (s *Store) InvalidateWallet(ctx context.Context, walletID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&domain.RedemptionToken{}).
		Where("wallet_id = ? AND used = ?", walletID, false).
		Update("used", true)
	if res.Error != nil {
		return 0, fmt.Errorf("token: invalidate: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Create persists a new unused token
func (s *Store) Create(ctx context.Context, t *domain.RedemptionToken) error {
	t.Used = false
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("token: create: %w", err)
	}
	return nil
}

// ExpireStale marks every unused token expired at nowMilli as used. It is idempotent.
func (s *Store) ExpireStale(ctx context.Context, nowMilli int64) (int64, error) {
	res := s.db.WithContext(ctx).Model(&domain.RedemptionToken{}).
		Where("used = ? AND expires_at <= ?", false, nowMilli).
		Update("used", true)
	if res.Error != nil {
		return 0, fmt.Errorf("token: expire stale: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CountUnused returns the number of unused tokens of a wallet
func (s *Store) CountUnused(ctx context.Context, walletID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.RedemptionToken{}).
		Where("wallet_id = ? AND used = ?", walletID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("token: count: %w", err)
	}
	return n, nil
}
