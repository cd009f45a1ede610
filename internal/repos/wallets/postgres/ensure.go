package wallets

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/google/uuid"
)

// Ensure returns the priest's wallet, creating an empty active one if none
// exists. Concurrent callers converge on the same row: the loser of the
// insert race falls through to the lookup.
func (r *walletsRepo) Ensure(ctx context.Context, tx *sql.Tx, priestID uuid.UUID) (ledger.Wallet, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (id, priest_id, currency, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (priest_id) DO NOTHING
	`, uuid.New(), priestID, ledger.Currency, ledger.WalletActive)
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("insert wallet: %w", err)
	}

	w, err := scanWallet(tx.QueryRowContext(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE priest_id = $1
	`, priestID))
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("ensure wallet: %w", err)
	}

	return w, nil
}
