package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// commissionRateText is the platform cut used when a booking carries no
// stored platform fee. Revenue rows snapshot the rate they were computed with.
const commissionRateText = "0.05"

var commissionRate = decimal.RequireFromString(commissionRateText)

// CommissionRate returns the build-time platform commission rate.
func CommissionRate() decimal.Decimal {
	return commissionRate
}

// Split is the division of a booking's price between priest and platform.
type Split struct {
	PriestShare int64
	Commission  int64
	Total       int64
	Rate        decimal.Decimal
}

// ComputeSplit derives the settlement amounts for a completed booking.
//
// The priest always receives BasePrice. When the booking carries a stored
// TotalAmount, the commission is whatever remains of it after the priest
// share, so a booking created without a fee (total == base) settles with a
// zero commission. Without a stored total, a non-zero PlatformFee is the
// commission; otherwise it is BasePrice*rate rounded to the minor unit.
func ComputeSplit(b Booking) (Split, error) {
	if b.BasePrice <= 0 {
		return Split{}, fmt.Errorf("%w: booking %s has non-positive base price", ErrInvalidState, b.ID)
	}

	split := Split{
		PriestShare: b.BasePrice,
		Rate:        commissionRate,
	}

	if b.TotalAmount != nil {
		if *b.TotalAmount < split.PriestShare {
			return Split{}, fmt.Errorf("%w: booking %s total %s is below the priest share %s",
				ErrInvalidState, b.ID, FormatMinor(*b.TotalAmount), FormatMinor(split.PriestShare))
		}

		split.Total = *b.TotalAmount
		split.Commission = split.Total - split.PriestShare

		return split, nil
	}

	if b.PlatformFee != nil && *b.PlatformFee != 0 {
		if *b.PlatformFee < 0 {
			return Split{}, fmt.Errorf("%w: booking %s has negative platform fee", ErrInvalidState, b.ID)
		}

		split.Commission = *b.PlatformFee
	} else {
		split.Commission = decimal.NewFromInt(b.BasePrice).Mul(commissionRate).Round(0).IntPart()
	}

	split.Total = split.PriestShare + split.Commission

	return split, nil
}
