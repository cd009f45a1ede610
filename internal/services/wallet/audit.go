package wallet

import (
	"context"
	"fmt"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/repos/transactions"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AuditReport compares a wallet's running totals with its ledger.
type AuditReport struct {
	Wallet        ledger.Wallet     `json:"wallet"`
	Ledger        transactions.Sums `json:"ledger"`
	Consistent    bool              `json:"consistent"`
	Discrepancies []string          `json:"discrepancies"`
}

// Audit checks the balance identity and that the running totals match the
// ledger: credits are completed inflows, debits are completed or pending
// outflows. Mismatches are reported, not returned as errors.
func (s *Service) Audit(ctx context.Context, priestID uuid.UUID) (*AuditReport, error) {
	w, err := s.wallets.GetByPriestID(ctx, priestID)
	if err != nil {
		return nil, fmt.Errorf("audit wallet: %w", err)
	}

	sums, err := s.txns.Sums(ctx, w.ID)
	if err != nil {
		return nil, fmt.Errorf("audit wallet: %w", err)
	}

	report := &AuditReport{
		Wallet:        w,
		Ledger:        sums,
		Discrepancies: []string{},
	}

	if !w.Reconciled() {
		report.Discrepancies = append(report.Discrepancies, fmt.Sprintf(
			"current balance %s != credited %s - debited %s",
			ledger.FormatMinor(w.CurrentBalance), ledger.FormatMinor(w.TotalCredited), ledger.FormatMinor(w.TotalDebited)))
	}

	if w.TotalCredited != sums.CompletedInflow {
		report.Discrepancies = append(report.Discrepancies, fmt.Sprintf(
			"total credited %s != completed inflows %s",
			ledger.FormatMinor(w.TotalCredited), ledger.FormatMinor(sums.CompletedInflow)))
	}

	debits := sums.CompletedOutflow + sums.PendingOutflow
	if w.TotalDebited != debits {
		report.Discrepancies = append(report.Discrepancies, fmt.Sprintf(
			"total debited %s != completed and pending outflows %s",
			ledger.FormatMinor(w.TotalDebited), ledger.FormatMinor(debits)))
	}

	report.Consistent = len(report.Discrepancies) == 0

	if !report.Consistent {
		log.Warn().
			Str("priest_id", priestID.String()).
			Strs("discrepancies", report.Discrepancies).
			Msg("wallet audit found discrepancies")
	}

	return report, nil
}
