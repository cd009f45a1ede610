package pgutils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "transactions_booking_credit_key"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain_error", err: errors.New("boom"), want: false},
		{name: "any_constraint", err: dup, want: true},
		{name: "wrapped", err: fmt.Errorf("insert: %w", dup), want: true},
		{name: "matching_constraint", err: dup, constraint: "transactions_booking_credit_key", want: true},
		{name: "other_constraint", err: dup, constraint: "wallets_priest_id_key", want: false},
		{name: "check_violation", err: &pgconn.PgError{Code: "23514"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := IsUniqueViolation(tt.err, tt.constraint)
			if got != tt.want {
				t.Fatalf("IsUniqueViolation: want %v, got %v", tt.want, got)
			}
		})
	}
}

func TestIsCheckViolation(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("credit: %w", &pgconn.PgError{Code: "23514", ConstraintName: "wallets_balance_check"})
	if !IsCheckViolation(err, "") {
		t.Fatalf("expected check violation")
	}
	if IsCheckViolation(err, "other") {
		t.Fatalf("constraint filter ignored")
	}
}
