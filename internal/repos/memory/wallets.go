package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/repos/wallets"
	"github.com/google/uuid"
)

var _ wallets.Wallets = (*Wallets)(nil)

type Wallets struct{ s *Store }

func (r *Wallets) Ensure(_ context.Context, _ *sql.Tx, priestID uuid.UUID) (ledger.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	err := r.s.injected("Wallets.Ensure")
	if err != nil {
		return ledger.Wallet{}, err
	}

	w, ok := r.s.wallets[priestID]
	if ok {
		return w, nil
	}

	now := r.s.tick()
	w = ledger.Wallet{
		ID:        uuid.New(),
		PriestID:  priestID,
		Currency:  ledger.Currency,
		Status:    ledger.WalletActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.wallets[priestID] = w

	return w, nil
}

func (r *Wallets) GetByPriestID(_ context.Context, priestID uuid.UUID) (ledger.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.wallets[priestID]
	if !ok {
		return ledger.Wallet{}, ledger.ErrWalletNotFound
	}

	return w, nil
}

func (r *Wallets) LockByPriestID(ctx context.Context, _ *sql.Tx, priestID uuid.UUID) (ledger.Wallet, error) {
	return r.GetByPriestID(ctx, priestID)
}

func (r *Wallets) Credit(_ context.Context, _ *sql.Tx, walletID uuid.UUID, amount int64) (ledger.Wallet, error) {
	if amount <= 0 {
		return ledger.Wallet{}, fmt.Errorf("credit %d: %w", amount, ledger.ErrInvalidAmount)
	}

	return r.update("Wallets.Credit", walletID, func(w *ledger.Wallet) bool {
		w.CurrentBalance += amount
		w.TotalCredited += amount
		return true
	})
}

func (r *Wallets) Reserve(
	_ context.Context,
	_ *sql.Tx,
	walletID uuid.UUID,
	amount int64,
	at time.Time,
) (ledger.Wallet, error) {
	if amount <= 0 {
		return ledger.Wallet{}, fmt.Errorf("reserve %d: %w", amount, ledger.ErrInvalidAmount)
	}

	w, err := r.update("Wallets.Reserve", walletID, func(w *ledger.Wallet) bool {
		if w.Status != ledger.WalletActive || w.CurrentBalance < amount {
			return false
		}
		w.CurrentBalance -= amount
		w.TotalDebited += amount
		w.LastPayoutAt = &at
		return true
	})
	if err != nil {
		return ledger.Wallet{}, err
	}

	return w, nil
}

func (r *Wallets) Release(_ context.Context, _ *sql.Tx, walletID uuid.UUID, amount int64) (ledger.Wallet, error) {
	if amount <= 0 {
		return ledger.Wallet{}, fmt.Errorf("release %d: %w", amount, ledger.ErrInvalidAmount)
	}

	w, err := r.update("Wallets.Release", walletID, func(w *ledger.Wallet) bool {
		if w.TotalDebited < amount {
			return false
		}
		w.CurrentBalance += amount
		w.TotalDebited -= amount
		return true
	})
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("release: %w", err)
	}

	return w, nil
}

func (r *Wallets) SetStatus(_ context.Context, priestID uuid.UUID, status ledger.WalletStatus) (ledger.Wallet, error) {
	if !status.Valid() {
		return ledger.Wallet{}, fmt.Errorf("wallet status %q: %w", status, ledger.ErrInvalidState)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.wallets[priestID]
	if !ok {
		return ledger.Wallet{}, ledger.ErrWalletNotFound
	}

	w.Status = status
	w.UpdatedAt = r.s.tick()
	r.s.wallets[priestID] = w

	return w, nil
}

// update applies fn to the wallet with walletID. fn returning false leaves
// the row untouched and yields wallets.ErrNotReserved, like an UPDATE whose
// WHERE clause matched nothing.
func (r *Wallets) update(op string, walletID uuid.UUID, fn func(*ledger.Wallet) bool) (ledger.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	err := r.s.injected(op)
	if err != nil {
		return ledger.Wallet{}, err
	}

	for priestID, w := range r.s.wallets {
		if w.ID != walletID {
			continue
		}

		if !fn(&w) {
			return ledger.Wallet{}, wallets.ErrNotReserved
		}
		if !w.Reconciled() || w.CurrentBalance < 0 {
			return ledger.Wallet{}, fmt.Errorf("wallet %s violates balance check: %w", walletID, ledger.ErrInternal)
		}

		w.UpdatedAt = r.s.tick()
		r.s.wallets[priestID] = w

		return w, nil
	}

	return ledger.Wallet{}, ledger.ErrWalletNotFound
}
