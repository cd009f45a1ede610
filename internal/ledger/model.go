// Package ledger holds the settlement domain: priest wallets, the append-only
// transaction log, platform revenue rows and the booking fields the engine reads.
//
// All amounts are int64 minor units (paise).
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency is the only currency wallets are kept in.
const Currency = "INR"

type WalletStatus string

const (
	WalletActive WalletStatus = "active"
	WalletFrozen WalletStatus = "frozen"
)

func (s WalletStatus) Valid() bool {
	return s == WalletActive || s == WalletFrozen
}

type TxType string

const (
	TxCreditForBooking TxType = "credit_for_booking"
	TxDebitCommission  TxType = "debit_commission"
	TxPayoutWithdrawal TxType = "payout_withdrawal"
	TxPenalty          TxType = "penalty"
	TxBonus            TxType = "bonus"
)

type Direction string

const (
	Inflow  Direction = "inflow"
	Outflow Direction = "outflow"
)

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s TxStatus) Terminal() bool {
	return s == TxCompleted || s == TxFailed
}

type Wallet struct {
	ID             uuid.UUID    `json:"id"`
	PriestID       uuid.UUID    `json:"priestId"`
	CurrentBalance int64        `json:"currentBalance"`
	TotalCredited  int64        `json:"totalCredited"`
	TotalDebited   int64        `json:"totalDebited"`
	Currency       string       `json:"currency"`
	Status         WalletStatus `json:"status"`
	LastPayoutAt   *time.Time   `json:"lastPayoutDate,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Reconciled reports whether the wallet satisfies
// current_balance == total_credited - total_debited.
func (w Wallet) Reconciled() bool {
	return w.CurrentBalance == w.TotalCredited-w.TotalDebited
}

type Transaction struct {
	ID          uuid.UUID     `json:"id"`
	PriestID    uuid.UUID     `json:"priestId"`
	WalletID    uuid.UUID     `json:"walletId"`
	BookingID   uuid.NullUUID `json:"bookingId"`
	Type        TxType        `json:"type"`
	Direction   Direction     `json:"direction"`
	Amount      int64         `json:"amount"`
	Status      TxStatus      `json:"status"`
	ReferenceID string        `json:"referenceId,omitempty"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type CompanyRevenue struct {
	ID               uuid.UUID       `json:"id"`
	BookingID        uuid.UUID       `json:"bookingId"`
	PriestID         uuid.UUID       `json:"priestId"`
	TotalAmount      int64           `json:"totalAmount"`
	CommissionAmount int64           `json:"commissionAmount"`
	CommissionRate   decimal.Decimal `json:"commissionRate"`
	PriestShare      int64           `json:"priestShare"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// RevenueSummary aggregates revenue rows over a period.
type RevenueSummary struct {
	Bookings         int64 `json:"bookings"`
	TotalAmount      int64 `json:"totalAmount"`
	CommissionAmount int64 `json:"commissionAmount"`
	PriestShare      int64 `json:"priestShare"`
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Booking is owned by the scheduling side of the marketplace; the settlement
// engine only reads the price fields and writes PaymentStatus.
type Booking struct {
	ID            uuid.UUID     `json:"id"`
	PriestID      uuid.UUID     `json:"priestId"`
	DevoteeID     uuid.UUID     `json:"devoteeId"`
	CeremonyType  string        `json:"ceremonyType"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	BasePrice     int64         `json:"basePrice"`
	PlatformFee   *int64        `json:"platformFee,omitempty"`
	TotalAmount   *int64        `json:"totalAmount,omitempty"`
	CompletedAt   *time.Time    `json:"completionDate,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}
