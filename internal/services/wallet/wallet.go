package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/priestwallet/internal/infra/pgutils"
	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/repos/revenue"
	pgrevenue "github.com/fastprodman/priestwallet/internal/repos/revenue/postgres"
	"github.com/fastprodman/priestwallet/internal/repos/transactions"
	pgtransactions "github.com/fastprodman/priestwallet/internal/repos/transactions/postgres"
	"github.com/fastprodman/priestwallet/internal/repos/wallets"
	pgwallets "github.com/fastprodman/priestwallet/internal/repos/wallets/postgres"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page selects a window of the transaction history.
type Page struct {
	Limit  int
	Offset int
}

// Normalize applies the default and maximum page size.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	return p
}

type Summary struct {
	Wallet       ledger.Wallet
	Transactions []ledger.Transaction
	Total        int
	Page         Page
}

type Service struct {
	tx      pgutils.TxFunc
	wallets wallets.Wallets
	txns    transactions.Transactions
	revenue revenue.Revenue
}

func New(db *sql.DB) *Service {
	return &Service{
		tx:      pgutils.Runner(db),
		wallets: pgwallets.New(db),
		txns:    pgtransactions.New(db),
		revenue: pgrevenue.New(db),
	}
}

// GetOrCreateWallet returns the priest's wallet, creating an empty one on
// first access. Concurrent first accesses yield the same wallet.
func (s *Service) GetOrCreateWallet(ctx context.Context, priestID uuid.UUID) (ledger.Wallet, error) {
	var w ledger.Wallet

	err := s.tx(ctx, func(tx *sql.Tx) error {
		var err error

		w, err = s.wallets.Ensure(ctx, tx, priestID)

		return err
	})
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("get or create wallet: %w", err)
	}

	return w, nil
}

// GetWalletSummary returns the wallet and one page of its history, newest first.
func (s *Service) GetWalletSummary(ctx context.Context, priestID uuid.UUID, page Page) (*Summary, error) {
	page = page.Normalize()

	w, err := s.GetOrCreateWallet(ctx, priestID)
	if err != nil {
		return nil, err
	}

	items, err := s.txns.ListByWallet(ctx, w.ID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("wallet summary: %w", err)
	}

	total, err := s.txns.CountByWallet(ctx, w.ID)
	if err != nil {
		return nil, fmt.Errorf("wallet summary: %w", err)
	}

	return &Summary{
		Wallet:       w,
		Transactions: items,
		Total:        total,
		Page:         page,
	}, nil
}

// SetStatus freezes or unfreezes a wallet, creating it if needed.
func (s *Service) SetStatus(ctx context.Context, priestID uuid.UUID, status ledger.WalletStatus) (ledger.Wallet, error) {
	if !status.Valid() {
		return ledger.Wallet{}, fmt.Errorf("wallet status %q: %w", status, ledger.ErrInvalidState)
	}

	_, err := s.GetOrCreateWallet(ctx, priestID)
	if err != nil {
		return ledger.Wallet{}, err
	}

	w, err := s.wallets.SetStatus(ctx, priestID, status)
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("set wallet status: %w", err)
	}

	log.Info().Str("priest_id", priestID.String()).Str("status", string(status)).Msg("wallet status changed")

	return w, nil
}

// RevenueSummary totals platform revenue recorded in [from, to).
func (s *Service) RevenueSummary(ctx context.Context, from, to time.Time) (ledger.RevenueSummary, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return ledger.RevenueSummary{}, fmt.Errorf("empty period %s..%s: %w",
			from.Format(time.RFC3339), to.Format(time.RFC3339), ledger.ErrInvalidState)
	}

	sum, err := s.revenue.Summary(ctx, from, to)
	if err != nil {
		return ledger.RevenueSummary{}, fmt.Errorf("revenue summary: %w", err)
	}

	return sum, nil
}
