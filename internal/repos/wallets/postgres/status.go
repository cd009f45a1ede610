package wallets

import (
	"context"
	"fmt"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/google/uuid"
)

func (r *walletsRepo) SetStatus(ctx context.Context, priestID uuid.UUID, status ledger.WalletStatus) (ledger.Wallet, error) {
	if !status.Valid() {
		return ledger.Wallet{}, fmt.Errorf("wallet status %q: %w", status, ledger.ErrInvalidState)
	}

	w, err := scanWallet(r.db.QueryRowContext(ctx, `
		UPDATE wallets
		SET status = $2, updated_at = now()
		WHERE priest_id = $1
		RETURNING `+walletColumns,
		priestID, status))
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("set wallet status: %w", err)
	}

	return w, nil
}
