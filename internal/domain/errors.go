package domain

import (
	"errors"
	"fmt"
)

// Wallet errors
var (
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrWalletExhausted = errors.New("wallet has no remaining credits")
	ErrWalletChanged   = errors.New("wallet balance changed concurrently")
	ErrForbidden       = errors.New("not allowed to act on this wallet")
)

// Token errors
var (
	ErrInvalidToken       = errors.New("invalid QR token")
	ErrTokenAlreadyUsed   = errors.New("QR token has already been used")
	ErrTokenExpired       = errors.New("QR token has expired, customer must generate a new one")
	ErrInvalidOrUsedToken = errors.New("invalid or already used QR token")
	ErrBarMismatch        = errors.New("wallet does not belong to your bar")
)

// Redemption errors
var (
	ErrInvalidPegSize      = errors.New("invalid peg size")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// Record management errors
var (
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrPlanNotFound       = errors.New("bottle plan not found")
	ErrPlanInactive       = errors.New("bottle plan is not active")
	ErrInvalidLedgerEntry = errors.New("invalid ledger entry")
)

// InsufficientCreditsError carries the quantities behind ErrInsufficientCredits
type InsufficientCreditsError struct {
	Available int // Remaining credits in the wallet
	Requested int // Peg size asked for
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits. Available: %d ml. Requested: %d ml", e.Available, e.Requested)
}

// Is lets errors.Is match ErrInsufficientCredits
func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}

// InvalidPegSizeError carries the rejected peg size and the allowed set
type InvalidPegSizeError struct {
	PegSize int
	Allowed []int
}

func (e *InvalidPegSizeError) Error() string {
	return fmt.Sprintf("invalid peg size %d. Allowed sizes: %v ml", e.PegSize, e.Allowed)
}

// Is lets errors.Is match ErrInvalidPegSize
func (e *InvalidPegSizeError) Is(target error) bool {
	return target == ErrInvalidPegSize
}
