package commission

import (
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/fastprodman/priestwallet/internal/infra/pgtestutil"
	"github.com/fastprodman/priestwallet/internal/ledger"
	pgwallets "github.com/fastprodman/priestwallet/internal/repos/wallets/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func insertCompletedBooking(t *testing.T, db *sql.DB, priestID uuid.UUID, base int64, fee, total *int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.ExecContext(t.Context(), `
		INSERT INTO bookings (id, priest_id, devotee_id, ceremony_type, status, payment_status,
		                      base_price, platform_fee, total_amount, completed_at)
		VALUES ($1, $2, $3, 'Havan', 'completed', 'pending', $4, $5, $6, now())
	`, id, priestID, uuid.New(), base, fee, total)
	require.NoError(t, err)

	return id
}

func TestPostgres_DistinctBookingsSamePriestCreditEach(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	e := New(db)
	priestID := uuid.New()

	const (
		n      = 10
		amount = int64(100000)
	)

	ids := make([]uuid.UUID, 0, n)
	for range n {
		ids = append(ids, insertCompletedBooking(t, db, priestID, amount, ptr(5000), ptr(105000)))
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

	w, err := pgwallets.New(db).GetByPriestID(t.Context(), priestID)
	require.NoError(t, err)
	require.Equal(t, n*amount, w.TotalCredited)
	require.Equal(t, n*amount, w.CurrentBalance)
	require.True(t, w.Reconciled())

	var revenueRows, credits int
	require.NoError(t, db.QueryRowContext(t.Context(),
		`SELECT count(*) FROM company_revenue WHERE priest_id = $1`, priestID).Scan(&revenueRows))
	require.NoError(t, db.QueryRowContext(t.Context(),
		`SELECT count(*) FROM transactions WHERE priest_id = $1 AND type = 'credit_for_booking'`, priestID).Scan(&credits))
	require.Equal(t, n, revenueRows)
	require.Equal(t, n, credits)
}

func TestPostgres_SameBookingCreditsOnce(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	e := New(db)
	priestID := uuid.New()
	id := insertCompletedBooking(t, db, priestID, 50100, ptr(0), ptr(50100))

	const callers = 8

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, dups int
	)

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := e.ProcessBookingCompletion(t.Context(), id)

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

	w, err := pgwallets.New(db).GetByPriestID(t.Context(), priestID)
	require.NoError(t, err)
	require.Equal(t, int64(50100), w.CurrentBalance)
	require.True(t, w.Reconciled())
}
