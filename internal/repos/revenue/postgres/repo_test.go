package revenue

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fastprodman/priestwallet/internal/infra/pgtestutil"
	"github.com/fastprodman/priestwallet/internal/infra/pgutils"
	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestInsert_RejectsBrokenSplit(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	err = New(db).Insert(context.Background(), tx, &ledger.CompanyRevenue{
		TotalAmount:      105000,
		CommissionAmount: 5000,
		PriestShare:      99999,
	})
	require.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestSummary_OpenBounds(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM company_revenue`)).
		WithArgs(nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"count", "total", "commission", "share"}).
			AddRow(2, 220500, 10500, 210000))

	s, err := New(db).Summary(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, ledger.RevenueSummary{
		Bookings:         2,
		TotalAmount:      220500,
		CommissionAmount: 10500,
		PriestShare:      210000,
	}, s)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevenue_InsertOncePerBooking(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := t.Context()
	bookingID := uuid.New()

	row := func() *ledger.CompanyRevenue {
		return &ledger.CompanyRevenue{
			BookingID:        bookingID,
			PriestID:         uuid.New(),
			TotalAmount:      105000,
			CommissionAmount: 5000,
			CommissionRate:   ledger.CommissionRate(),
			PriestShare:      100000,
		}
	}

	err := pgutils.WithTx(ctx, db, func(tx *sql.Tx) error {
		return repo.Insert(ctx, tx, row())
	})
	require.NoError(t, err)

	err = pgutils.WithTx(ctx, db, func(tx *sql.Tx) error {
		return repo.Insert(ctx, tx, row())
	})
	require.ErrorIs(t, err, ledger.ErrAlreadyProcessed)

	got, err := repo.GetByBookingID(ctx, bookingID)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("0.05").Equal(got.CommissionRate))
	require.Equal(t, int64(100000), got.PriestShare)

	s, err := repo.Summary(ctx, time.Now().Add(-time.Hour), time.Time{})
	require.NoError(t, err)
	require.Equal(t, int64(1), s.Bookings)
	require.Equal(t, int64(5000), s.CommissionAmount)

	s, err = repo.Summary(ctx, time.Now().Add(time.Hour), time.Time{})
	require.NoError(t, err)
	require.Zero(t, s.Bookings)

	_, err = repo.GetByBookingID(ctx, uuid.New())
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestRevenue_IndexedByPriest(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	var def string
	err := db.QueryRowContext(t.Context(), `
		SELECT indexdef FROM pg_indexes
		WHERE tablename = 'company_revenue' AND indexname = 'company_revenue_priest_idx'
	`).Scan(&def)
	require.NoError(t, err)
	require.Contains(t, def, "(priest_id)")
}
