package wallets

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/google/uuid"
)

// ErrNotReserved is returned by Reserve when the wallet is frozen or its
// balance is below the requested amount. Callers re-read the wallet to tell
// the two apart.
var ErrNotReserved = errors.New("reservation rejected")

type Wallets interface {
	Ensure(ctx context.Context, tx *sql.Tx, priestID uuid.UUID) (ledger.Wallet, error)
	GetByPriestID(ctx context.Context, priestID uuid.UUID) (ledger.Wallet, error)
	LockByPriestID(ctx context.Context, tx *sql.Tx, priestID uuid.UUID) (ledger.Wallet, error)
	Credit(ctx context.Context, tx *sql.Tx, walletID uuid.UUID, amount int64) (ledger.Wallet, error)
	Reserve(ctx context.Context, tx *sql.Tx, walletID uuid.UUID, amount int64, at time.Time) (ledger.Wallet, error)
	Release(ctx context.Context, tx *sql.Tx, walletID uuid.UUID, amount int64) (ledger.Wallet, error)
	SetStatus(ctx context.Context, priestID uuid.UUID, status ledger.WalletStatus) (ledger.Wallet, error)
}
