package transactions

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/repos/transactions"
)

var _ transactions.Transactions = (*transactionsRepo)(nil)

// bookingCreditKey is the partial unique index that makes booking credits idempotent.
const bookingCreditKey = "transactions_booking_credit_key"

const txColumns = `id, priest_id, wallet_id, booking_id, type, direction, amount,
	status, reference_id, description, created_at, updated_at`

type transactionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *transactionsRepo {
	return &transactionsRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (ledger.Transaction, error) {
	var (
		t   ledger.Transaction
		ref sql.NullString
	)

	err := row.Scan(
		&t.ID,
		&t.PriestID,
		&t.WalletID,
		&t.BookingID,
		&t.Type,
		&t.Direction,
		&t.Amount,
		&t.Status,
		&ref,
		&t.Description,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Transaction{}, ledger.ErrTransactionNotFound
		}

		return ledger.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	t.ReferenceID = ref.String

	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
