package commission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Completion is the outcome of CompleteBooking. Settlement is nil when the
// booking had already been credited.
type Completion struct {
	Booking    ledger.Booking
	Settlement *Settlement
}

// CompleteBooking marks a pending or confirmed booking completed and settles
// it. Completing an already completed booking only retries the settlement;
// a booking that was already credited is not an error.
func (e *Engine) CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*Completion, error) {
	var booking ledger.Booking

	err := e.tx(ctx, func(tx *sql.Tx) error {
		b, err := e.bookings.LockByID(ctx, tx, bookingID)
		if err != nil {
			return fmt.Errorf("lock booking: %w", err)
		}

		switch b.Status {
		case ledger.BookingCompleted:
		case ledger.BookingPending, ledger.BookingConfirmed:
			now := e.now().UTC()
			b.Status = ledger.BookingCompleted
			b.CompletedAt = &now

			err = e.bookings.Save(ctx, tx, &b)
			if err != nil {
				return fmt.Errorf("save booking: %w", err)
			}
		default:
			return fmt.Errorf("booking %s is %s: %w", bookingID, b.Status, ledger.ErrInvalidState)
		}

		booking = b

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete booking: %w", err)
	}

	settlement, err := e.ProcessBookingCompletion(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyProcessed) {
			log.Debug().Str("booking_id", bookingID.String()).Msg("booking already settled")

			return &Completion{Booking: booking}, nil
		}

		return nil, err
	}

	booking.PaymentStatus = ledger.PaymentCompleted

	return &Completion{Booking: booking, Settlement: settlement}, nil
}
