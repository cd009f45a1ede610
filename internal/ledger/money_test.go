package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1000", want: 100_000},
		{in: "10.15", want: 1_015},
		{in: "0.5", want: 50},
		{in: " 400.00 ", want: 40_000},
		{in: "-3.10", want: -310},
		{in: "1.234", wantErr: true},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "100000000000000000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, errors.Is(err, ErrInvalidAmount))
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFormatMinor(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0.00", FormatMinor(0))
	require.Equal(t, "10.15", FormatMinor(1_015))
	require.Equal(t, "1000.00", FormatMinor(100_000))
}

func TestInsufficientBalanceError_Is(t *testing.T) {
	t.Parallel()

	var err error = &InsufficientBalanceError{Balance: 50_000, Requested: 80_000}
	require.True(t, errors.Is(err, ErrInsufficientBalance))
	require.Contains(t, err.Error(), "available 500.00")
}
