package revenue

import (
	"context"
	"database/sql"
	"time"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/google/uuid"
)

type Revenue interface {
	Insert(ctx context.Context, tx *sql.Tx, r *ledger.CompanyRevenue) error
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (ledger.CompanyRevenue, error)
	// Summary aggregates rows created in [from, to). A zero bound is open.
	Summary(ctx context.Context, from, to time.Time) (ledger.RevenueSummary, error)
}
