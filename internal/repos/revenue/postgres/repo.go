package revenue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/priestwallet/internal/infra/pgutils"
	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/repos/revenue"
	"github.com/google/uuid"
)

var _ revenue.Revenue = (*revenueRepo)(nil)

var ErrRevenueNotFound = fmt.Errorf("revenue %w", ledger.ErrNotFound)

const bookingKey = "company_revenue_booking_id_key"

type revenueRepo struct{ db *sql.DB }

func New(db *sql.DB) *revenueRepo {
	return &revenueRepo{db: db}
}

func (r *revenueRepo) Insert(ctx context.Context, tx *sql.Tx, rev *ledger.CompanyRevenue) error {
	if rev.PriestShare+rev.CommissionAmount != rev.TotalAmount {
		return fmt.Errorf("revenue split %d+%d != %d: %w",
			rev.PriestShare, rev.CommissionAmount, rev.TotalAmount, ledger.ErrInvalidState)
	}

	if rev.ID == uuid.Nil {
		rev.ID = uuid.New()
	}

	err := tx.QueryRowContext(ctx, `
		INSERT INTO company_revenue (
			id, booking_id, priest_id, total_amount,
			commission_amount, commission_rate, priest_share
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`,
		rev.ID,
		rev.BookingID,
		rev.PriestID,
		rev.TotalAmount,
		rev.CommissionAmount,
		rev.CommissionRate,
		rev.PriestShare,
	).Scan(&rev.CreatedAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err, bookingKey) {
			return fmt.Errorf("revenue for booking %s: %w", rev.BookingID, ledger.ErrAlreadyProcessed)
		}

		return fmt.Errorf("insert revenue: %w", err)
	}

	return nil
}

func (r *revenueRepo) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (ledger.CompanyRevenue, error) {
	var rev ledger.CompanyRevenue

	err := r.db.QueryRowContext(ctx, `
		SELECT id, booking_id, priest_id, total_amount, commission_amount,
		       commission_rate, priest_share, created_at
		FROM company_revenue
		WHERE booking_id = $1
	`, bookingID).Scan(
		&rev.ID,
		&rev.BookingID,
		&rev.PriestID,
		&rev.TotalAmount,
		&rev.CommissionAmount,
		&rev.CommissionRate,
		&rev.PriestShare,
		&rev.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.CompanyRevenue{}, ErrRevenueNotFound
		}

		return ledger.CompanyRevenue{}, fmt.Errorf("get revenue: %w", err)
	}

	return rev, nil
}

func (r *revenueRepo) Summary(ctx context.Context, from, to time.Time) (ledger.RevenueSummary, error) {
	var s ledger.RevenueSummary

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_amount), 0)::bigint,
			COALESCE(SUM(commission_amount), 0)::bigint,
			COALESCE(SUM(priest_share), 0)::bigint
		FROM company_revenue
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2)
	`, nullTime(from), nullTime(to)).Scan(&s.Bookings, &s.TotalAmount, &s.CommissionAmount, &s.PriestShare)
	if err != nil {
		return ledger.RevenueSummary{}, fmt.Errorf("revenue summary: %w", err)
	}

	return s, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
