package commission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/priestwallet/internal/infra/pgutils"
	"github.com/fastprodman/priestwallet/internal/infra/redislock"
	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/metrics"
	"github.com/fastprodman/priestwallet/internal/repos/bookings"
	pgbookings "github.com/fastprodman/priestwallet/internal/repos/bookings/postgres"
	"github.com/fastprodman/priestwallet/internal/repos/revenue"
	pgrevenue "github.com/fastprodman/priestwallet/internal/repos/revenue/postgres"
	"github.com/fastprodman/priestwallet/internal/repos/transactions"
	pgtransactions "github.com/fastprodman/priestwallet/internal/repos/transactions/postgres"
	"github.com/fastprodman/priestwallet/internal/repos/wallets"
	pgwallets "github.com/fastprodman/priestwallet/internal/repos/wallets/postgres"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Settlement is what one booking completion wrote to the ledger.
type Settlement struct {
	Wallet      ledger.Wallet
	Transaction ledger.Transaction
	Revenue     ledger.CompanyRevenue
}

type Engine struct {
	tx       pgutils.TxFunc
	bookings bookings.Bookings
	wallets  wallets.Wallets
	txns     transactions.Transactions
	revenue  revenue.Revenue
	locker   redislock.Locker
	metrics  *metrics.Ledger
	now      func() time.Time
}

type Option func(*Engine)

// WithLocker serializes settlements per priest across processes.
func WithLocker(l redislock.Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

func WithMetrics(m *metrics.Ledger) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(db *sql.DB, opts ...Option) *Engine {
	e := &Engine{
		tx:       pgutils.Runner(db),
		bookings: pgbookings.New(db),
		wallets:  pgwallets.New(db),
		txns:     pgtransactions.New(db),
		revenue:  pgrevenue.New(db),
		locker:   redislock.Noop{},
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ProcessBookingCompletion credits the priest's share of a completed booking
// and books the platform commission. Everything happens in one database
// transaction:
//
// 1) Lock the booking; it must be completed.
// 2) Refuse if the booking was already credited.
// 3) Split the amount into priest share and commission.
// 4) Lock the wallet (created on first use); frozen wallets are not credited.
// 5) Credit the wallet, append the ledger row, record revenue, mark the
// booking paid.
func (e *Engine) ProcessBookingCompletion(ctx context.Context, bookingID uuid.UUID) (*Settlement, error) {
	booking, err := e.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("process booking completion: %w", err)
	}

	unlock, err := e.locker.Lock(ctx, priestLockKey(booking.PriestID))
	if err != nil {
		return nil, fmt.Errorf("lock priest %s: %w", booking.PriestID, err)
	}
	defer func() {
		uerr := unlock(context.WithoutCancel(ctx))
		if uerr != nil {
			log.Warn().Err(uerr).Str("priest_id", booking.PriestID.String()).Msg("release priest lock")
		}
	}()

	var out Settlement

	err = e.tx(ctx, func(tx *sql.Tx) error {
		s, err := e.settle(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		out = s

		return nil
	})
	if err != nil {
		e.recordFailure(bookingID, err)

		return nil, fmt.Errorf("process booking completion: %w", err)
	}

	e.metrics.Settlement(metrics.OutcomeSettled, out.Revenue.PriestShare, out.Revenue.CommissionAmount)

	log.Info().
		Str("booking_id", bookingID.String()).
		Str("priest_id", out.Wallet.PriestID.String()).
		Int64("priest_share", out.Revenue.PriestShare).
		Int64("commission", out.Revenue.CommissionAmount).
		Int64("balance", out.Wallet.CurrentBalance).
		Msg("booking settled")

	return &out, nil
}

func (e *Engine) settle(ctx context.Context, tx *sql.Tx, bookingID uuid.UUID) (Settlement, error) {
	booking, err := e.bookings.LockByID(ctx, tx, bookingID)
	if err != nil {
		return Settlement{}, fmt.Errorf("lock booking: %w", err)
	}

	if booking.Status != ledger.BookingCompleted {
		return Settlement{}, fmt.Errorf("booking %s is %s: %w", bookingID, booking.Status, ledger.ErrInvalidState)
	}

	_, err = e.txns.FindCompletedBookingCredit(ctx, tx, bookingID)
	switch {
	case err == nil:
		return Settlement{}, fmt.Errorf("booking %s: %w", bookingID, ledger.ErrAlreadyProcessed)
	case !errors.Is(err, ledger.ErrTransactionNotFound):
		return Settlement{}, fmt.Errorf("check existing credit: %w", err)
	}

	split, err := ledger.ComputeSplit(booking)
	if err != nil {
		return Settlement{}, fmt.Errorf("booking %s: %w", bookingID, err)
	}

	_, err = e.wallets.Ensure(ctx, tx, booking.PriestID)
	if err != nil {
		return Settlement{}, fmt.Errorf("ensure wallet: %w", err)
	}

	wallet, err := e.wallets.LockByPriestID(ctx, tx, booking.PriestID)
	if err != nil {
		return Settlement{}, fmt.Errorf("lock wallet: %w", err)
	}

	if wallet.Status == ledger.WalletFrozen {
		return Settlement{}, fmt.Errorf("priest %s: %w", booking.PriestID, ledger.ErrWalletFrozen)
	}

	wallet, err = e.wallets.Credit(ctx, tx, wallet.ID, split.PriestShare)
	if err != nil {
		return Settlement{}, fmt.Errorf("credit wallet: %w", err)
	}

	credit := ledger.Transaction{
		PriestID:    booking.PriestID,
		WalletID:    wallet.ID,
		BookingID:   uuid.NullUUID{UUID: booking.ID, Valid: true},
		Type:        ledger.TxCreditForBooking,
		Direction:   ledger.Inflow,
		Amount:      split.PriestShare,
		Status:      ledger.TxCompleted,
		Description: booking.CeremonyType + " ceremony",
	}

	err = e.txns.Insert(ctx, tx, &credit)
	if err != nil {
		return Settlement{}, fmt.Errorf("insert credit: %w", err)
	}

	rev := ledger.CompanyRevenue{
		BookingID:        booking.ID,
		PriestID:         booking.PriestID,
		TotalAmount:      split.Total,
		CommissionAmount: split.Commission,
		CommissionRate:   split.Rate,
		PriestShare:      split.PriestShare,
	}

	err = e.revenue.Insert(ctx, tx, &rev)
	if err != nil {
		return Settlement{}, fmt.Errorf("insert revenue: %w", err)
	}

	booking.PaymentStatus = ledger.PaymentCompleted

	err = e.bookings.Save(ctx, tx, &booking)
	if err != nil {
		return Settlement{}, fmt.Errorf("mark booking paid: %w", err)
	}

	return Settlement{Wallet: wallet, Transaction: credit, Revenue: rev}, nil
}

func (e *Engine) recordFailure(bookingID uuid.UUID, err error) {
	switch {
	case errors.Is(err, ledger.ErrAlreadyProcessed):
		e.metrics.Settlement(metrics.OutcomeAlreadyProcessed, 0, 0)
	case errors.Is(err, ledger.ErrWalletFrozen),
		errors.Is(err, ledger.ErrInvalidState),
		errors.Is(err, ledger.ErrNotFound):
		e.metrics.Settlement(metrics.OutcomeRejected, 0, 0)
		log.Info().Err(err).Str("booking_id", bookingID.String()).Msg("booking not settled")
	default:
		e.metrics.Settlement(metrics.OutcomeError, 0, 0)
		log.Error().Err(err).Str("booking_id", bookingID.String()).Msg("booking settlement failed")
	}
}

func priestLockKey(priestID uuid.UUID) string {
	return "priest:" + priestID.String()
}
