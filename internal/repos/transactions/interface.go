package transactions

import (
	"context"
	"database/sql"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/google/uuid"
)

// Sums aggregates a wallet's ledger by direction and status.
type Sums struct {
	CompletedInflow  int64
	CompletedOutflow int64
	PendingOutflow   int64
	FailedOutflow    int64
}

type Transactions interface {
	Insert(ctx context.Context, tx *sql.Tx, t *ledger.Transaction) error
	FindCompletedBookingCredit(ctx context.Context, tx *sql.Tx, bookingID uuid.UUID) (ledger.Transaction, error)
	Finalize(
		ctx context.Context,
		tx *sql.Tx,
		id uuid.UUID,
		status ledger.TxStatus,
		referenceID string,
	) (ledger.Transaction, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]ledger.Transaction, error)
	CountByWallet(ctx context.Context, walletID uuid.UUID) (int, error)
	Sums(ctx context.Context, walletID uuid.UUID) (Sums, error)
}
