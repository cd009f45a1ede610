// Package memory is an in-process implementation of the repository
// interfaces for service tests. Store.Tx serializes transactions and rolls
// every table back when fn fails, mirroring the Postgres constraints the
// services rely on.
package memory

import (
	"context"
	"database/sql"
	"maps"
	"sync"
	"time"

	"github.com/fastprodman/priestwallet/internal/infra/pgutils"
	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/google/uuid"
)

type Store struct {
	txMu sync.Mutex // held for the duration of Tx
	mu   sync.Mutex // guards the maps

	wallets  map[uuid.UUID]ledger.Wallet // by priest id
	txns     map[uuid.UUID]ledger.Transaction
	txOrder  []uuid.UUID
	revenue  map[uuid.UUID]ledger.CompanyRevenue // by booking id
	bookings map[uuid.UUID]ledger.Booking

	failures map[string]error
	clock    time.Time
}

func New() *Store {
	return &Store{
		wallets:  map[uuid.UUID]ledger.Wallet{},
		txns:     map[uuid.UUID]ledger.Transaction{},
		revenue:  map[uuid.UUID]ledger.CompanyRevenue{},
		bookings: map[uuid.UUID]ledger.Booking{},
		failures: map[string]error{},
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

var _ pgutils.TxFunc = (*Store)(nil).Tx

// Tx runs fn with a nil *sql.Tx. Changes made by fn are discarded when it
// returns an error or panics.
func (s *Store) Tx(_ context.Context, fn func(*sql.Tx) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()

	defer func() {
		r := recover()
		if r != nil {
			s.restore(snap)
			panic(r)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(nil)
}

// FailOnce makes the next call of op return err. op is "Repo.Method",
// e.g. "Revenue.Insert".
func (s *Store) FailOnce(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[op] = err
}

func (s *Store) injected(op string) error {
	err, ok := s.failures[op]
	if ok {
		delete(s.failures, op)
	}

	return err
}

// tick returns a strictly increasing timestamp so ordering by time is stable.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)

	return s.clock
}

type snapshot struct {
	wallets  map[uuid.UUID]ledger.Wallet
	txns     map[uuid.UUID]ledger.Transaction
	txOrder  []uuid.UUID
	revenue  map[uuid.UUID]ledger.CompanyRevenue
	bookings map[uuid.UUID]ledger.Booking
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return snapshot{
		wallets:  maps.Clone(s.wallets),
		txns:     maps.Clone(s.txns),
		txOrder:  append([]uuid.UUID(nil), s.txOrder...),
		revenue:  maps.Clone(s.revenue),
		bookings: maps.Clone(s.bookings),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wallets = snap.wallets
	s.txns = snap.txns
	s.txOrder = snap.txOrder
	s.revenue = snap.revenue
	s.bookings = snap.bookings
}

// Wallets, Transactions, Revenue and Bookings expose the store through the
// matching repository interface.
func (s *Store) Wallets() *Wallets           { return &Wallets{s: s} }
func (s *Store) Transactions() *Transactions { return &Transactions{s: s} }
func (s *Store) Revenue() *Revenue           { return &Revenue{s: s} }
func (s *Store) Bookings() *Bookings         { return &Bookings{s: s} }

// PutBooking seeds or replaces a booking.
func (s *Store) PutBooking(b ledger.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.tick()
		b.UpdatedAt = b.CreatedAt
	}
	s.bookings[b.ID] = b
}

// AllTransactions returns every ledger row in insertion order.
func (s *Store) AllTransactions() []ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ledger.Transaction, 0, len(s.txOrder))
	for _, id := range s.txOrder {
		out = append(out, s.txns[id])
	}

	return out
}

// AllRevenue returns every revenue row.
func (s *Store) AllRevenue() []ledger.CompanyRevenue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ledger.CompanyRevenue, 0, len(s.revenue))
	for _, r := range s.revenue {
		out = append(out, r)
	}

	return out
}
