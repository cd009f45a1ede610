package payout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Sandbox accepts every transfer after an optional simulated delay.
type Sandbox struct {
	Delay time.Duration
}

func (s *Sandbox) InitiateTransfer(ctx context.Context, _ BankDetails, amount int64) (Result, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("sandbox transfer: %w", ctx.Err())
		case <-timer.C:
		}
	}

	ref := "mock_payout_" + uuid.NewString()

	log.Info().Int64("amount", amount).Str("reference_id", ref).Msg("sandbox payout")

	return Result{
		Success:     true,
		ReferenceID: ref,
		Status:      "completed",
	}, nil
}
