package commission

import (
	"context"
	"errors"
	"fmt"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

const defaultBatch = 100

// Report counts what SettlePending did with each booking it looked at.
type Report struct {
	Scanned          int   `json:"scanned"`
	Settled          int   `json:"settled"`
	AlreadyProcessed int   `json:"alreadyProcessed"`
	Frozen           int   `json:"frozen"`
	Failed           int   `json:"failed"`
	Credited         int64 `json:"credited"`
}

// SettlePending settles up to limit completed bookings whose payment is
// still pending. Bookings are processed independently; the returned error
// joins every failure that was not an expected skip.
func (e *Engine) SettlePending(ctx context.Context, limit int) (Report, error) {
	if limit <= 0 {
		limit = defaultBatch
	}

	ids, err := e.bookings.ListUnsettled(ctx, limit)
	if err != nil {
		return Report{}, fmt.Errorf("settle pending: %w", err)
	}

	var (
		report Report
		errs   error
	)

	for _, id := range ids {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}

		report.Scanned++

		s, err := e.ProcessBookingCompletion(ctx, id)
		switch {
		case err == nil:
			report.Settled++
			report.Credited += s.Revenue.PriestShare
		case errors.Is(err, ledger.ErrAlreadyProcessed):
			report.AlreadyProcessed++
		case errors.Is(err, ledger.ErrWalletFrozen):
			report.Frozen++
		default:
			report.Failed++
			errs = multierr.Append(errs, fmt.Errorf("booking %s: %w", id, err))
		}
	}

	log.Info().
		Int("scanned", report.Scanned).
		Int("settled", report.Settled).
		Int("already_processed", report.AlreadyProcessed).
		Int("frozen", report.Frozen).
		Int("failed", report.Failed).
		Msg("pending settlements processed")

	return report, errs
}
