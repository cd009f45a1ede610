package commission

import (
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/priestwallet/internal/infra/redislock"
	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/metrics"
	"github.com/fastprodman/priestwallet/internal/repos/memory"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()

	store := memory.New()

	return &Engine{
		tx:       store.Tx,
		bookings: store.Bookings(),
		wallets:  store.Wallets(),
		txns:     store.Transactions(),
		revenue:  store.Revenue(),
		locker:   redislock.Noop{},
		metrics:  metrics.New(prometheus.NewRegistry()),
		now:      func() time.Time { return fixedNow },
	}, store
}

func ptr(v int64) *int64 { return &v }

func seedBooking(store *memory.Store, status ledger.BookingStatus, base int64, fee, total *int64) ledger.Booking {
	b := ledger.Booking{
		ID:            uuid.New(),
		PriestID:      uuid.New(),
		DevoteeID:     uuid.New(),
		CeremonyType:  "Griha Pravesh",
		Status:        status,
		PaymentStatus: ledger.PaymentPending,
		BasePrice:     base,
		PlatformFee:   fee,
		TotalAmount:   total,
	}
	store.PutBooking(b)

	return b
}

func TestProcessBookingCompletion_CreditsPriestShare(t *testing.T) {
	t.Parallel()

	e, store := newTestEngine(t)
	b := seedBooking(store, ledger.BookingCompleted, 100000, ptr(5000), ptr(105000))

	s, err := e.ProcessBookingCompletion(t.Context(), b.ID)
	require.NoError(t, err)

	require.Equal(t, int64(100000), s.Wallet.CurrentBalance)
	require.Equal(t, int64(100000), s.Wallet.TotalCredited)
	require.True(t, s.Wallet.Reconciled())

	require.Equal(t, ledger.TxCreditForBooking, s.Transaction.Type)
	require.Equal(t, ledger.Inflow, s.Transaction.Direction)
	require.Equal(t, ledger.TxCompleted, s.Transaction.Status)
	require.Equal(t, int64(100000), s.Transaction.Amount)
	require.Equal(t, "Griha Pravesh ceremony", s.Transaction.Description)
	require.Equal(t, b.ID, s.Transaction.BookingID.UUID)

	require.Equal(t, int64(105000), s.Revenue.TotalAmount)
	require.Equal(t, int64(5000), s.Revenue.CommissionAmount)
	require.Equal(t, int64(100000), s.Revenue.PriestShare)
	require.True(t, ledger.CommissionRate().Equal(s.Revenue.CommissionRate))

	stored, err := store.Bookings().FindByID(t.Context(), b.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.PaymentCompleted, stored.PaymentStatus)
}

func TestProcessBookingCompletion_ComputesMissingFee(t *testing.T) {
	t.Parallel()

	e, store := newTestEngine(t)
	b := seedBooking(store, ledger.BookingCompleted, 210000, nil, nil)

	s, err := e.ProcessBookingCompletion(t.Context(), b.ID)
	require.NoError(t, err)
	require.Equal(t, int64(210000), s.Wallet.CurrentBalance)
	require.Equal(t, int64(10500), s.Revenue.CommissionAmount)
	require.Equal(t, int64(220500), s.Revenue.TotalAmount)
}

func TestProcessBookingCompletion_Idempotent(t *testing.T) {
	t.Parallel()

	e, store := newTestEngine(t)
	b := seedBooking(store, ledger.BookingCompleted, 100000, ptr(5000), ptr(105000))

	_, err := e.ProcessBookingCompletion(t.Context(), b.ID)
	require.NoError(t, err)

	_, err = e.ProcessBookingCompletion(t.Context(), b.ID)
	require.ErrorIs(t, err, ledger.ErrAlreadyProcessed)

	w, err := store.Wallets().GetByPriestID(t.Context(), b.PriestID)
	require.NoError(t, err)
	require.Equal(t, int64(100000), w.CurrentBalance)
	require.Len(t, store.AllTransactions(), 1)
	require.Len(t, store.AllRevenue(), 1)
}

func TestProcessBookingCompletion_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		seed    func(t *testing.T, e *Engine, store *memory.Store) uuid.UUID
		wantErr error
	}{
		{
			name: "booking_missing",
			seed: func(*testing.T, *Engine, *memory.Store) uuid.UUID {
				return uuid.New()
			},
			wantErr: ledger.ErrNotFound,
		},
		{
			name: "booking_not_completed",
			seed: func(_ *testing.T, _ *Engine, store *memory.Store) uuid.UUID {
				return seedBooking(store, ledger.BookingConfirmed, 100000, ptr(5000), nil).ID
			},
			wantErr: ledger.ErrInvalidState,
		},
		{
			name: "total_below_share",
			seed: func(_ *testing.T, _ *Engine, store *memory.Store) uuid.UUID {
				return seedBooking(store, ledger.BookingCompleted, 100000, ptr(5000), ptr(90000)).ID
			},
			wantErr: ledger.ErrInvalidState,
		},
		{
			name: "wallet_frozen",
			seed: func(t *testing.T, _ *Engine, store *memory.Store) uuid.UUID {
				b := seedBooking(store, ledger.BookingCompleted, 100000, ptr(5000), nil)
				require.NoError(t, store.Tx(t.Context(), func(tx *sql.Tx) error {
					_, err := store.Wallets().Ensure(t.Context(), tx, b.PriestID)
					return err
				}))
				_, err := store.Wallets().SetStatus(t.Context(), b.PriestID, ledger.WalletFrozen)
				require.NoError(t, err)
				return b.ID
			},
			wantErr: ledger.ErrWalletFrozen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, store := newTestEngine(t)
			id := tt.seed(t, e, store)

			s, err := e.ProcessBookingCompletion(t.Context(), id)
			require.ErrorIs(t, err, tt.wantErr)
			require.Nil(t, s)
			require.Empty(t, store.AllTransactions())
			require.Empty(t, store.AllRevenue())
		})
	}
}

func TestProcessBookingCompletion_RollsBackOnFailure(t *testing.T) {
	t.Parallel()

	e, store := newTestEngine(t)
	b := seedBooking(store, ledger.BookingCompleted, 100000, ptr(5000), ptr(105000))

	store.FailOnce("Revenue.Insert", errors.New("disk full"))

	_, err := e.ProcessBookingCompletion(t.Context(), b.ID)
	require.ErrorContains(t, err, "disk full")

	_, err = store.Wallets().GetByPriestID(t.Context(), b.PriestID)
	require.ErrorIs(t, err, ledger.ErrWalletNotFound)
	require.Empty(t, store.AllTransactions())

	stored, err := store.Bookings().FindByID(t.Context(), b.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.PaymentPending, stored.PaymentStatus)

	// A retry after the fault succeeds exactly once.
	s, err := e.ProcessBookingCompletion(t.Context(), b.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100000), s.Wallet.CurrentBalance)
}

func TestProcessBookingCompletion_ConcurrentCallsCreditOnce(t *testing.T) {
	t.Parallel()

	e, store := newTestEngine(t)
	b := seedBooking(store, ledger.BookingCompleted, 100000, ptr(5000), ptr(105000))

	const callers = 10

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, dups int
	)

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := e.ProcessBookingCompletion(t.Context(), b.ID)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				ok++
			case errors.Is(err, ledger.ErrAlreadyProcessed):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, ok)
	require.Equal(t, callers-1, dups)

	w, err := store.Wallets().GetByPriestID(t.Context(), b.PriestID)
	require.NoError(t, err)
	require.Equal(t, int64(100000), w.CurrentBalance)
}

func TestProcessBookingCompletion_BookingsAsCreated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		base           int64
		fee, total     *int64
		wantCommission int64
		wantTotal      int64
	}{
		{name: "fee_and_total", base: 210000, fee: ptr(10000), total: ptr(220000), wantCommission: 10000, wantTotal: 220000},
		{name: "zero_fee_total_equals_base", base: 50100, fee: ptr(0), total: ptr(50100), wantCommission: 0, wantTotal: 50100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, store := newTestEngine(t)
			b := seedBooking(store, ledger.BookingCompleted, tt.base, tt.fee, tt.total)

			s, err := e.ProcessBookingCompletion(t.Context(), b.ID)
			require.NoError(t, err)
			require.Equal(t, tt.base, s.Wallet.CurrentBalance)
			require.Equal(t, tt.base, s.Revenue.PriestShare)
			require.Equal(t, tt.wantCommission, s.Revenue.CommissionAmount)
			require.Equal(t, tt.wantTotal, s.Revenue.TotalAmount)
		})
	}
}

func TestProcessBookingCompletion_DistinctBookingsSamePriest(t *testing.T) {
	t.Parallel()

	e, store := newTestEngine(t)
	priestID := uuid.New()

	const (
		n      = 8
		amount = int64(100000)
	)

	ids := make([]uuid.UUID, 0, n)
	for range n {
		b := ledger.Booking{
			ID:            uuid.New(),
			PriestID:      priestID,
			DevoteeID:     uuid.New(),
			CeremonyType:  "Havan",
			Status:        ledger.BookingCompleted,
			PaymentStatus: ledger.PaymentPending,
			BasePrice:     amount,
		}
		store.PutBooking(b)
		ids = append(ids, b.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := e.ProcessBookingCompletion(t.Context(), id)
			if err != nil {
				t.Errorf("booking %s: %v", id, err)
			}
		}()
	}
	wg.Wait()

	w, err := store.Wallets().GetByPriestID(t.Context(), priestID)
	require.NoError(t, err)
	require.Equal(t, n*amount, w.TotalCredited)
	require.Equal(t, n*amount, w.CurrentBalance)
	require.True(t, w.Reconciled())
}
