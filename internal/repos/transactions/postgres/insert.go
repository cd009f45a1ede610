package transactions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/priestwallet/internal/infra/pgutils"
	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/google/uuid"
)

// Insert appends t to the ledger, assigning an id when t.ID is zero and
// filling the timestamps. A second completed credit for the same booking
// fails with ledger.ErrAlreadyProcessed.
func (r *transactionsRepo) Insert(ctx context.Context, tx *sql.Tx, t *ledger.Transaction) error {
	if t.Amount <= 0 {
		return fmt.Errorf("transaction amount %d: %w", t.Amount, ledger.ErrInvalidAmount)
	}

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	err := tx.QueryRowContext(ctx, `
		INSERT INTO transactions (
			id, priest_id, wallet_id, booking_id, type, direction,
			amount, status, reference_id, description
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`,
		t.ID,
		t.PriestID,
		t.WalletID,
		t.BookingID,
		t.Type,
		t.Direction,
		t.Amount,
		t.Status,
		nullString(t.ReferenceID),
		t.Description,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err, bookingCreditKey) {
			return fmt.Errorf("booking %s: %w", t.BookingID.UUID, ledger.ErrAlreadyProcessed)
		}

		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}
