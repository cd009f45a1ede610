package transactions

import (
	"context"
	"fmt"

	"github.com/fastprodman/priestwallet/internal/repos/transactions"
	"github.com/google/uuid"
)

func (r *transactionsRepo) Sums(ctx context.Context, walletID uuid.UUID) (transactions.Sums, error) {
	var s transactions.Sums

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE direction = 'inflow'  AND status = 'completed'), 0)::bigint,
			COALESCE(SUM(amount) FILTER (WHERE direction = 'outflow' AND status = 'completed'), 0)::bigint,
			COALESCE(SUM(amount) FILTER (WHERE direction = 'outflow' AND status = 'pending'), 0)::bigint,
			COALESCE(SUM(amount) FILTER (WHERE direction = 'outflow' AND status = 'failed'), 0)::bigint
		FROM transactions
		WHERE wallet_id = $1
	`, walletID).Scan(&s.CompletedInflow, &s.CompletedOutflow, &s.PendingOutflow, &s.FailedOutflow)
	if err != nil {
		return transactions.Sums{}, fmt.Errorf("sum transactions: %w", err)
	}

	return s, nil
}
