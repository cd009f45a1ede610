package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/google/uuid"
)

// Finalize moves a pending transaction to completed or failed. A non-empty
// referenceID replaces the stored one. Any other transition is rejected with
// ledger.ErrInvalidState.
func (r *transactionsRepo) Finalize(
	ctx context.Context,
	tx *sql.Tx,
	id uuid.UUID,
	status ledger.TxStatus,
	referenceID string,
) (ledger.Transaction, error) {
	if !status.Terminal() {
		return ledger.Transaction{}, fmt.Errorf("finalize to %q: %w", status, ledger.ErrInvalidState)
	}

	t, err := scanTransaction(tx.QueryRowContext(ctx, `
		UPDATE transactions
		SET status       = $2,
		    reference_id = COALESCE($3, reference_id),
		    updated_at   = now()
		WHERE id = $1
		  AND status = 'pending'
		RETURNING `+txColumns,
		id, status, nullString(referenceID)))
	if err == nil {
		return t, nil
	}

	if !errors.Is(err, ledger.ErrTransactionNotFound) {
		return ledger.Transaction{}, fmt.Errorf("finalize transaction: %w", err)
	}

	var current ledger.TxStatus

	err = tx.QueryRowContext(ctx, `SELECT status FROM transactions WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Transaction{}, ledger.ErrTransactionNotFound
		}

		return ledger.Transaction{}, fmt.Errorf("read transaction status: %w", err)
	}

	return ledger.Transaction{}, fmt.Errorf("transaction %s is %s: %w", id, current, ledger.ErrInvalidState)
}
