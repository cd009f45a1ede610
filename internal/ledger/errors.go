package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrBookingNotFound     = fmt.Errorf("booking %w", ErrNotFound)
	ErrWalletNotFound      = fmt.Errorf("wallet %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)

	ErrInvalidState        = errors.New("invalid state")
	ErrAlreadyProcessed    = errors.New("already processed")
	ErrWalletFrozen        = errors.New("wallet is frozen")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrGatewayDeclined     = errors.New("payout declined")
	ErrGatewayUnavailable  = errors.New("payout gateway unavailable")
	ErrInternal            = errors.New("internal ledger error")
)

// InsufficientBalanceError reports the balance the request was checked against.
// It matches ErrInsufficientBalance under errors.Is.
type InsufficientBalanceError struct {
	Balance   int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %s, available %s",
		FormatMinor(e.Requested), FormatMinor(e.Balance))
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}
