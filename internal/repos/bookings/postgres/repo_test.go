package bookings

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fastprodman/priestwallet/internal/infra/pgtestutil"
	"github.com/fastprodman/priestwallet/internal/infra/pgutils"
	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var bookingCols = []string{
	"id", "priest_id", "devotee_id", "ceremony_type", "status", "payment_status",
	"base_price", "platform_fee", "total_amount", "completed_at", "created_at", "updated_at",
}

func TestFindByID_NullableFields(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM bookings\s+WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(
			id.String(), uuid.NewString(), uuid.NewString(), "Havan", "completed", "pending",
			210000, nil, nil, now, now, now))

	b, err := New(db).FindByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, ledger.BookingCompleted, b.Status)
	require.Equal(t, ledger.PaymentPending, b.PaymentStatus)
	require.Nil(t, b.PlatformFee)
	require.Nil(t, b.TotalAmount)
	require.NotNil(t, b.CompletedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_Missing(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM bookings`).WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err = New(db).FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, ledger.ErrBookingNotFound)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestBookings_SaveAndListUnsettled(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := t.Context()

	insert := func(status ledger.BookingStatus, payment ledger.PaymentStatus) uuid.UUID {
		id := uuid.New()
		_, err := db.Exec(`
			INSERT INTO bookings (id, priest_id, devotee_id, ceremony_type, status, payment_status,
			                      base_price, platform_fee, total_amount, completed_at)
			VALUES ($1, $2, $3, 'Havan', $4, $5, 100000, 5000, 105000, now())
		`, id, uuid.New(), uuid.New(), status, payment)
		require.NoError(t, err)
		return id
	}

	unsettled := insert(ledger.BookingCompleted, ledger.PaymentPending)
	insert(ledger.BookingCompleted, ledger.PaymentCompleted)
	confirmed := insert(ledger.BookingConfirmed, ledger.PaymentPending)

	ids, err := repo.ListUnsettled(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{unsettled}, ids)

	err = pgutils.WithTx(ctx, db, func(tx *sql.Tx) error {
		b, err := repo.LockByID(ctx, tx, confirmed)
		if err != nil {
			return err
		}

		require.Equal(t, int64(5000), *b.PlatformFee)

		now := time.Now()
		b.Status = ledger.BookingCompleted
		b.CompletedAt = &now

		return repo.Save(ctx, tx, &b)
	})
	require.NoError(t, err)

	ids, err = repo.ListUnsettled(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	err = pgutils.WithTx(ctx, db, func(tx *sql.Tx) error {
		return repo.Save(ctx, tx, &ledger.Booking{
			ID:            uuid.New(),
			Status:        ledger.BookingCompleted,
			PaymentStatus: ledger.PaymentPending,
		})
	})
	require.ErrorIs(t, err, ledger.ErrBookingNotFound)
}
