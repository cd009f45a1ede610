package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/repos/transactions"
	"github.com/google/uuid"
)

var _ transactions.Transactions = (*Transactions)(nil)

type Transactions struct{ s *Store }

func (r *Transactions) Insert(_ context.Context, _ *sql.Tx, t *ledger.Transaction) error {
	if t.Amount <= 0 {
		return fmt.Errorf("transaction amount %d: %w", t.Amount, ledger.ErrInvalidAmount)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	err := r.s.injected("Transactions.Insert")
	if err != nil {
		return err
	}

	if t.Type == ledger.TxCreditForBooking && t.Status == ledger.TxCompleted {
		if !t.BookingID.Valid {
			return fmt.Errorf("credit without booking: %w", ledger.ErrInvalidState)
		}
		for _, existing := range r.s.txns {
			if existing.Type == ledger.TxCreditForBooking &&
				existing.Status == ledger.TxCompleted &&
				existing.BookingID == t.BookingID {
				return fmt.Errorf("booking %s: %w", t.BookingID.UUID, ledger.ErrAlreadyProcessed)
			}
		}
	}

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = r.s.tick()
	t.UpdatedAt = t.CreatedAt

	r.s.txns[t.ID] = *t
	r.s.txOrder = append(r.s.txOrder, t.ID)

	return nil
}

func (r *Transactions) FindCompletedBookingCredit(
	_ context.Context,
	_ *sql.Tx,
	bookingID uuid.UUID,
) (ledger.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.txns {
		if t.Type == ledger.TxCreditForBooking &&
			t.Status == ledger.TxCompleted &&
			t.BookingID.Valid && t.BookingID.UUID == bookingID {
			return t, nil
		}
	}

	return ledger.Transaction{}, ledger.ErrTransactionNotFound
}

func (r *Transactions) Finalize(
	_ context.Context,
	_ *sql.Tx,
	id uuid.UUID,
	status ledger.TxStatus,
	referenceID string,
) (ledger.Transaction, error) {
	if !status.Terminal() {
		return ledger.Transaction{}, fmt.Errorf("finalize to %q: %w", status, ledger.ErrInvalidState)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	err := r.s.injected("Transactions.Finalize")
	if err != nil {
		return ledger.Transaction{}, err
	}

	t, ok := r.s.txns[id]
	if !ok {
		return ledger.Transaction{}, ledger.ErrTransactionNotFound
	}
	if t.Status != ledger.TxPending {
		return ledger.Transaction{}, fmt.Errorf("transaction %s is %s: %w", id, t.Status, ledger.ErrInvalidState)
	}

	t.Status = status
	if referenceID != "" {
		t.ReferenceID = referenceID
	}
	t.UpdatedAt = r.s.tick()
	r.s.txns[id] = t

	return t, nil
}

func (r *Transactions) ListByWallet(
	_ context.Context,
	walletID uuid.UUID,
	limit, offset int,
) ([]ledger.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var all []ledger.Transaction
	for _, id := range r.s.txOrder {
		if t := r.s.txns[id]; t.WalletID == walletID {
			all = append(all, t)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []ledger.Transaction{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}

	return all, nil
}

func (r *Transactions) CountByWallet(_ context.Context, walletID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, t := range r.s.txns {
		if t.WalletID == walletID {
			n++
		}
	}

	return n, nil
}

func (r *Transactions) Sums(_ context.Context, walletID uuid.UUID) (transactions.Sums, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var s transactions.Sums
	for _, t := range r.s.txns {
		if t.WalletID != walletID {
			continue
		}

		switch {
		case t.Direction == ledger.Inflow && t.Status == ledger.TxCompleted:
			s.CompletedInflow += t.Amount
		case t.Direction == ledger.Outflow && t.Status == ledger.TxCompleted:
			s.CompletedOutflow += t.Amount
		case t.Direction == ledger.Outflow && t.Status == ledger.TxPending:
			s.PendingOutflow += t.Amount
		case t.Direction == ledger.Outflow && t.Status == ledger.TxFailed:
			s.FailedOutflow += t.Amount
		}
	}

	return s, nil
}
