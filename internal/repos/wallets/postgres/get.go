package wallets

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/google/uuid"
)

func (r *walletsRepo) GetByPriestID(ctx context.Context, priestID uuid.UUID) (ledger.Wallet, error) {
	w, err := scanWallet(r.db.QueryRowContext(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE priest_id = $1
	`, priestID))
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("get wallet: %w", err)
	}

	return w, nil
}

// LockByPriestID reads the wallet with a row lock held until tx ends.
func (r *walletsRepo) LockByPriestID(ctx context.Context, tx *sql.Tx, priestID uuid.UUID) (ledger.Wallet, error) {
	w, err := scanWallet(tx.QueryRowContext(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE priest_id = $1
		FOR UPDATE
	`, priestID))
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("lock wallet: %w", err)
	}

	return w, nil
}
