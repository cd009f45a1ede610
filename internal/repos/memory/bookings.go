package memory

import (
	"context"
	"database/sql"
	"sort"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/repos/bookings"
	"github.com/google/uuid"
)

var _ bookings.Bookings = (*Bookings)(nil)

type Bookings struct{ s *Store }

func (r *Bookings) FindByID(_ context.Context, id uuid.UUID) (ledger.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return ledger.Booking{}, ledger.ErrBookingNotFound
	}

	return b, nil
}

func (r *Bookings) LockByID(ctx context.Context, _ *sql.Tx, id uuid.UUID) (ledger.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r *Bookings) Save(_ context.Context, _ *sql.Tx, b *ledger.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	err := r.s.injected("Bookings.Save")
	if err != nil {
		return err
	}

	stored, ok := r.s.bookings[b.ID]
	if !ok {
		return ledger.ErrBookingNotFound
	}

	stored.Status = b.Status
	stored.PaymentStatus = b.PaymentStatus
	stored.CompletedAt = b.CompletedAt
	stored.UpdatedAt = r.s.tick()
	r.s.bookings[b.ID] = stored
	b.UpdatedAt = stored.UpdatedAt

	return nil
}

func (r *Bookings) ListUnsettled(_ context.Context, limit int) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var due []ledger.Booking
	for _, b := range r.s.bookings {
		if b.Status == ledger.BookingCompleted && b.PaymentStatus == ledger.PaymentPending {
			due = append(due, b)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})

	ids := make([]uuid.UUID, 0, len(due))
	for _, b := range due {
		if len(ids) == limit {
			break
		}
		ids = append(ids, b.ID)
	}

	return ids, nil
}
