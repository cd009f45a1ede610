package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const minorDigits = 2

// ToDecimal converts minor units to a rupee amount.
func ToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -minorDigits)
}

// FormatMinor renders minor units with exactly two fractional digits.
func FormatMinor(minor int64) string {
	return ToDecimal(minor).StringFixed(minorDigits)
}

// FromDecimal converts a rupee amount with at most two fractional digits into
// minor units.
func FromDecimal(d decimal.Decimal) (int64, error) {
	scaled := d.Shift(minorDigits)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: at most %d decimals supported", ErrInvalidAmount, minorDigits)
	}

	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}

	return scaled.IntPart(), nil
}

// ParseAmount parses a decimal rupee string such as "1000.50" into minor units.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: amount required", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}

	return FromDecimal(d)
}
