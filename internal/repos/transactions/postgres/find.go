package transactions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/google/uuid"
)

func (r *transactionsRepo) FindCompletedBookingCredit(
	ctx context.Context,
	tx *sql.Tx,
	bookingID uuid.UUID,
) (ledger.Transaction, error) {
	t, err := scanTransaction(tx.QueryRowContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE booking_id = $1
		  AND type = 'credit_for_booking'
		  AND status = 'completed'
	`, bookingID))
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("find booking credit: %w", err)
	}

	return t, nil
}

// ListByWallet returns the wallet's transactions, newest first.
func (r *transactionsRepo) ListByWallet(
	ctx context.Context,
	walletID uuid.UUID,
	limit, offset int,
) ([]ledger.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	out := make([]ledger.Transaction, 0, limit)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return out, nil
}

func (r *transactionsRepo) CountByWallet(ctx context.Context, walletID uuid.UUID) (int, error) {
	var n int

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions WHERE wallet_id = $1
	`, walletID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}

	return n, nil
}
