package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/repos/revenue"
	"github.com/google/uuid"
)

var _ revenue.Revenue = (*Revenue)(nil)

type Revenue struct{ s *Store }

func (r *Revenue) Insert(_ context.Context, _ *sql.Tx, rev *ledger.CompanyRevenue) error {
	if rev.PriestShare+rev.CommissionAmount != rev.TotalAmount {
		return fmt.Errorf("revenue split: %w", ledger.ErrInvalidState)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	err := r.s.injected("Revenue.Insert")
	if err != nil {
		return err
	}

	if _, ok := r.s.revenue[rev.BookingID]; ok {
		return fmt.Errorf("revenue for booking %s: %w", rev.BookingID, ledger.ErrAlreadyProcessed)
	}

	if rev.ID == uuid.Nil {
		rev.ID = uuid.New()
	}
	rev.CreatedAt = r.s.tick()
	r.s.revenue[rev.BookingID] = *rev

	return nil
}

func (r *Revenue) GetByBookingID(_ context.Context, bookingID uuid.UUID) (ledger.CompanyRevenue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rev, ok := r.s.revenue[bookingID]
	if !ok {
		return ledger.CompanyRevenue{}, fmt.Errorf("revenue %w", ledger.ErrNotFound)
	}

	return rev, nil
}

func (r *Revenue) Summary(_ context.Context, from, to time.Time) (ledger.RevenueSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var s ledger.RevenueSummary
	for _, rev := range r.s.revenue {
		if !from.IsZero() && rev.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !rev.CreatedAt.Before(to) {
			continue
		}

		s.Bookings++
		s.TotalAmount += rev.TotalAmount
		s.CommissionAmount += rev.CommissionAmount
		s.PriestShare += rev.PriestShare
	}

	return s, nil
}
