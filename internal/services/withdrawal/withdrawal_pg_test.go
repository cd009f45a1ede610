package withdrawal

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/priestwallet/internal/infra/pgtestutil"
	"github.com/fastprodman/priestwallet/internal/infra/pgutils"
	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/payout"
	pgwallets "github.com/fastprodman/priestwallet/internal/repos/wallets/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func fundPostgres(t *testing.T, db *sql.DB, priestID uuid.UUID, balance int64) {
	t.Helper()

	repo := pgwallets.New(db)

	err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		w, err := repo.Ensure(t.Context(), tx, priestID)
		if err != nil {
			return err
		}

		_, err = repo.Credit(t.Context(), tx, w.ID, balance)

		return err
	})
	require.NoError(t, err)
}

func TestPostgres_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	s := New(db, &payout.Sandbox{Delay: 5 * time.Millisecond})
	priestID := uuid.New()
	fundPostgres(t, db, priestID, 100000)

	const callers = 10

	var (
		wg                      sync.WaitGroup
		mu                      sync.Mutex
		completed, insufficient int
	)

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.RequestWithdrawal(context.Background(), Request{PriestID: priestID, Amount: 40000, Bank: bank})

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				completed++
			case errors.Is(err, ledger.ErrInsufficientBalance):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 2, completed)
	require.Equal(t, callers-2, insufficient)

	w, err := pgwallets.New(db).GetByPriestID(t.Context(), priestID)
	require.NoError(t, err)
	require.Equal(t, int64(20000), w.CurrentBalance)
	require.Equal(t, int64(80000), w.TotalDebited)
	require.True(t, w.Reconciled())

	var payouts int
	require.NoError(t, db.QueryRowContext(t.Context(), `
		SELECT count(*) FROM transactions
		WHERE priest_id = $1 AND type = 'payout_withdrawal' AND status = 'completed'
	`, priestID).Scan(&payouts))
	require.Equal(t, 2, payouts)
}

func TestPostgres_DeclinedWithdrawalRestoresBalance(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	declined := gatewayFunc(func(context.Context, payout.BankDetails, int64) (payout.Result, error) {
		return payout.Result{Success: false, Status: "rejected", Message: "beneficiary bank offline"}, nil
	})

	s := New(db, declined)
	priestID := uuid.New()
	fundPostgres(t, db, priestID, 100000)

	_, err := s.RequestWithdrawal(t.Context(), Request{PriestID: priestID, Amount: 40000, Bank: bank})
	require.ErrorIs(t, err, ledger.ErrGatewayDeclined)

	w, err := pgwallets.New(db).GetByPriestID(t.Context(), priestID)
	require.NoError(t, err)
	require.Equal(t, int64(100000), w.CurrentBalance)
	require.True(t, w.Reconciled())

	var status string
	require.NoError(t, db.QueryRowContext(t.Context(),
		`SELECT status FROM transactions WHERE priest_id = $1 AND type = 'payout_withdrawal'`, priestID).Scan(&status))
	require.Equal(t, string(ledger.TxFailed), status)
}
