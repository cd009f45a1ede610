package commission

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/repos/bookings"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSettlePending(t *testing.T) {
	t.Parallel()

	e, store := newTestEngine(t)

	seedBooking(store, ledger.BookingCompleted, 500000, ptr(25000), ptr(525000))
	seedBooking(store, ledger.BookingCompleted, 210000, nil, nil)
	seedBooking(store, ledger.BookingConfirmed, 300000, nil, nil)

	frozen := seedBooking(store, ledger.BookingCompleted, 150000, ptr(7500), nil)
	require.NoError(t, store.Tx(t.Context(), func(tx *sql.Tx) error {
		_, err := store.Wallets().Ensure(t.Context(), tx, frozen.PriestID)
		return err
	}))
	_, err := store.Wallets().SetStatus(t.Context(), frozen.PriestID, ledger.WalletFrozen)
	require.NoError(t, err)

	broken := seedBooking(store, ledger.BookingCompleted, 100000, ptr(5000), ptr(1))

	report, err := e.SettlePending(t.Context(), 0)
	require.ErrorIs(t, err, ledger.ErrInvalidState)
	require.ErrorContains(t, err, broken.ID.String())

	require.Equal(t, Report{
		Scanned:  4,
		Settled:  2,
		Frozen:   1,
		Failed:   1,
		Credited: 710000,
	}, report)

	// Nothing left that can be settled; the frozen and broken bookings remain.
	report, err = e.SettlePending(t.Context(), 10)
	require.Error(t, err)
	require.Equal(t, 0, report.Settled)
	require.Equal(t, 2, report.Scanned)
}

func TestSettlePending_ListError(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	e.bookings = failingBookings{e.bookings}

	_, err := e.SettlePending(t.Context(), 5)
	require.ErrorIs(t, err, errList)
}

var errList = errors.New("list failed")

type failingBookings struct {
	bookings.Bookings
}

func (failingBookings) ListUnsettled(_ context.Context, _ int) ([]uuid.UUID, error) {
	return nil, errList
}
