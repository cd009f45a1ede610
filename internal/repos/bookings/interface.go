package bookings

import (
	"context"
	"database/sql"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/google/uuid"
)

type Bookings interface {
	FindByID(ctx context.Context, id uuid.UUID) (ledger.Booking, error)
	LockByID(ctx context.Context, tx *sql.Tx, id uuid.UUID) (ledger.Booking, error)
	// Save persists the mutable fields: status, payment status and completion time.
	Save(ctx context.Context, tx *sql.Tx, b *ledger.Booking) error
	// ListUnsettled returns completed bookings whose payment is still pending,
	// oldest completion first.
	ListUnsettled(ctx context.Context, limit int) ([]uuid.UUID, error)
}
