package wallets

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/repos/wallets"
)

var _ wallets.Wallets = (*walletsRepo)(nil)

const walletColumns = `id, priest_id, current_balance, total_credited, total_debited,
	currency, status, last_payout_at, created_at, updated_at`

type walletsRepo struct{ db *sql.DB }

func New(db *sql.DB) *walletsRepo {
	return &walletsRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (ledger.Wallet, error) {
	var (
		w          ledger.Wallet
		lastPayout sql.NullTime
	)

	err := row.Scan(
		&w.ID,
		&w.PriestID,
		&w.CurrentBalance,
		&w.TotalCredited,
		&w.TotalDebited,
		&w.Currency,
		&w.Status,
		&lastPayout,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Wallet{}, ledger.ErrWalletNotFound
		}

		return ledger.Wallet{}, fmt.Errorf("scan wallet: %w", err)
	}

	if lastPayout.Valid {
		t := lastPayout.Time
		w.LastPayoutAt = &t
	}

	return w, nil
}
