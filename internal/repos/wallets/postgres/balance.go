package wallets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/repos/wallets"
	"github.com/google/uuid"
)

func (r *walletsRepo) Credit(ctx context.Context, tx *sql.Tx, walletID uuid.UUID, amount int64) (ledger.Wallet, error) {
	if amount <= 0 {
		return ledger.Wallet{}, fmt.Errorf("credit %d: %w", amount, ledger.ErrInvalidAmount)
	}

	w, err := scanWallet(tx.QueryRowContext(ctx, `
		UPDATE wallets
		SET current_balance = current_balance + $2,
		    total_credited  = total_credited + $2,
		    updated_at      = now()
		WHERE id = $1
		RETURNING `+walletColumns,
		walletID, amount))
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("credit wallet: %w", err)
	}

	return w, nil
}

// Reserve moves amount out of the available balance in a single
// compare-and-decrement. It fails with wallets.ErrNotReserved when the wallet
// is not active or the balance is too low.
func (r *walletsRepo) Reserve(
	ctx context.Context,
	tx *sql.Tx,
	walletID uuid.UUID,
	amount int64,
	at time.Time,
) (ledger.Wallet, error) {
	if amount <= 0 {
		return ledger.Wallet{}, fmt.Errorf("reserve %d: %w", amount, ledger.ErrInvalidAmount)
	}

	w, err := scanWallet(tx.QueryRowContext(ctx, `
		UPDATE wallets
		SET current_balance = current_balance - $2,
		    total_debited   = total_debited + $2,
		    last_payout_at  = $3,
		    updated_at      = now()
		WHERE id = $1
		  AND status = 'active'
		  AND current_balance >= $2
		RETURNING `+walletColumns,
		walletID, amount, at))
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return ledger.Wallet{}, wallets.ErrNotReserved
		}

		return ledger.Wallet{}, fmt.Errorf("reserve: %w", err)
	}

	return w, nil
}

// Release is the exact inverse of Reserve.
func (r *walletsRepo) Release(ctx context.Context, tx *sql.Tx, walletID uuid.UUID, amount int64) (ledger.Wallet, error) {
	if amount <= 0 {
		return ledger.Wallet{}, fmt.Errorf("release %d: %w", amount, ledger.ErrInvalidAmount)
	}

	w, err := scanWallet(tx.QueryRowContext(ctx, `
		UPDATE wallets
		SET current_balance = current_balance + $2,
		    total_debited   = total_debited - $2,
		    updated_at      = now()
		WHERE id = $1
		  AND total_debited >= $2
		RETURNING `+walletColumns,
		walletID, amount))
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("release: %w", err)
	}

	return w, nil
}
