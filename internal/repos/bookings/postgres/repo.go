package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/repos/bookings"
	"github.com/google/uuid"
)

var _ bookings.Bookings = (*bookingsRepo)(nil)

const bookingColumns = `id, priest_id, devotee_id, ceremony_type, status, payment_status,
	base_price, platform_fee, total_amount, completed_at, created_at, updated_at`

type bookingsRepo struct{ db *sql.DB }

func New(db *sql.DB) *bookingsRepo {
	return &bookingsRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (ledger.Booking, error) {
	var (
		b           ledger.Booking
		fee, total  sql.NullInt64
		completedAt sql.NullTime
	)

	err := row.Scan(
		&b.ID,
		&b.PriestID,
		&b.DevoteeID,
		&b.CeremonyType,
		&b.Status,
		&b.PaymentStatus,
		&b.BasePrice,
		&fee,
		&total,
		&completedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Booking{}, ledger.ErrBookingNotFound
		}

		return ledger.Booking{}, fmt.Errorf("scan booking: %w", err)
	}

	if fee.Valid {
		b.PlatformFee = &fee.Int64
	}
	if total.Valid {
		b.TotalAmount = &total.Int64
	}
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}

	return b, nil
}

func (r *bookingsRepo) FindByID(ctx context.Context, id uuid.UUID) (ledger.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id))
	if err != nil {
		return ledger.Booking{}, fmt.Errorf("find booking: %w", err)
	}

	return b, nil
}

func (r *bookingsRepo) LockByID(ctx context.Context, tx *sql.Tx, id uuid.UUID) (ledger.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return ledger.Booking{}, fmt.Errorf("lock booking: %w", err)
	}

	return b, nil
}

func (r *bookingsRepo) Save(ctx context.Context, tx *sql.Tx, b *ledger.Booking) error {
	var completedAt sql.NullTime
	if b.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *b.CompletedAt, Valid: true}
	}

	err := tx.QueryRowContext(ctx, `
		UPDATE bookings
		SET status = $2, payment_status = $3, completed_at = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, b.ID, b.Status, b.PaymentStatus, completedAt).Scan(&b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.ErrBookingNotFound
		}

		return fmt.Errorf("save booking: %w", err)
	}

	return nil
}

func (r *bookingsRepo) ListUnsettled(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM bookings
		WHERE status = 'completed'
		  AND payment_status = 'pending'
		ORDER BY completed_at NULLS LAST, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsettled bookings: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID

		err = rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("scan booking id: %w", err)
		}
		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return ids, nil
}
