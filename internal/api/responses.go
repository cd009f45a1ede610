package api

import (
	"time"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/repos/transactions"
	"github.com/fastprodman/priestwallet/internal/services/commission"
	"github.com/fastprodman/priestwallet/internal/services/wallet"
	"github.com/fastprodman/priestwallet/internal/services/withdrawal"
)

// Amounts leave the API as decimal rupee strings, e.g. "1050.00".

type walletResponse struct {
	ID             string     `json:"id"`
	PriestID       string     `json:"priestId"`
	CurrentBalance string     `json:"currentBalance"`
	TotalCredited  string     `json:"totalCredited"`
	TotalDebited   string     `json:"totalDebited"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	LastPayoutDate *time.Time `json:"lastPayoutDate"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func newWalletResponse(w ledger.Wallet) walletResponse {
	return walletResponse{
		ID:             w.ID.String(),
		PriestID:       w.PriestID.String(),
		CurrentBalance: ledger.FormatMinor(w.CurrentBalance),
		TotalCredited:  ledger.FormatMinor(w.TotalCredited),
		TotalDebited:   ledger.FormatMinor(w.TotalDebited),
		Currency:       w.Currency,
		Status:         string(w.Status),
		LastPayoutDate: w.LastPayoutAt,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

type transactionResponse struct {
	ID          string    `json:"id"`
	BookingID   *string   `json:"bookingId"`
	Type        string    `json:"type"`
	Direction   string    `json:"direction"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	ReferenceID string    `json:"referenceId,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newTransactionResponse(t ledger.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          t.ID.String(),
		Type:        string(t.Type),
		Direction:   string(t.Direction),
		Amount:      ledger.FormatMinor(t.Amount),
		Status:      string(t.Status),
		ReferenceID: t.ReferenceID,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}

	if t.BookingID.Valid {
		id := t.BookingID.UUID.String()
		resp.BookingID = &id
	}

	return resp
}

type pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

type walletSummaryResponse struct {
	Wallet       walletResponse        `json:"wallet"`
	Transactions []transactionResponse `json:"transactions"`
	Pagination   pagination            `json:"pagination"`
}

func newWalletSummaryResponse(s *wallet.Summary) walletSummaryResponse {
	items := make([]transactionResponse, 0, len(s.Transactions))
	for _, t := range s.Transactions {
		items = append(items, newTransactionResponse(t))
	}

	return walletSummaryResponse{
		Wallet:       newWalletResponse(s.Wallet),
		Transactions: items,
		Pagination: pagination{
			Limit:  s.Page.Limit,
			Offset: s.Page.Offset,
			Total:  s.Total,
		},
	}
}

type withdrawalResponse struct {
	TransactionID string `json:"transactionId"`
	ReferenceID   string `json:"referenceId,omitempty"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	NewBalance    string `json:"newBalance"`
}

func newWithdrawalResponse(res *withdrawal.Result) withdrawalResponse {
	return withdrawalResponse{
		TransactionID: res.TransactionID.String(),
		ReferenceID:   res.ReferenceID,
		Amount:        ledger.FormatMinor(res.Amount),
		Status:        string(res.Status),
		NewBalance:    ledger.FormatMinor(res.NewBalance),
	}
}

type settlementResponse struct {
	BookingID      string `json:"bookingId"`
	PriestID       string `json:"priestId"`
	TransactionID  string `json:"transactionId"`
	TotalAmount    string `json:"totalAmount"`
	PriestShare    string `json:"priestShare"`
	Commission     string `json:"commission"`
	CommissionRate string `json:"commissionRate"`
	NewBalance     string `json:"newBalance"`
}

func newSettlementResponse(s *commission.Settlement) *settlementResponse {
	if s == nil {
		return nil
	}

	return &settlementResponse{
		BookingID:      s.Revenue.BookingID.String(),
		PriestID:       s.Revenue.PriestID.String(),
		TransactionID:  s.Transaction.ID.String(),
		TotalAmount:    ledger.FormatMinor(s.Revenue.TotalAmount),
		PriestShare:    ledger.FormatMinor(s.Revenue.PriestShare),
		Commission:     ledger.FormatMinor(s.Revenue.CommissionAmount),
		CommissionRate: s.Revenue.CommissionRate.String(),
		NewBalance:     ledger.FormatMinor(s.Wallet.CurrentBalance),
	}
}

type completionResponse struct {
	BookingID        string              `json:"bookingId"`
	Status           string              `json:"status"`
	PaymentStatus    string              `json:"paymentStatus"`
	AlreadyProcessed bool                `json:"alreadyProcessed"`
	Settlement       *settlementResponse `json:"settlement"`
}

func newCompletionResponse(c *commission.Completion) completionResponse {
	return completionResponse{
		BookingID:        c.Booking.ID.String(),
		Status:           string(c.Booking.Status),
		PaymentStatus:    string(c.Booking.PaymentStatus),
		AlreadyProcessed: c.Settlement == nil,
		Settlement:       newSettlementResponse(c.Settlement),
	}
}

type ledgerSumsResponse struct {
	CompletedInflow  string `json:"completedInflow"`
	CompletedOutflow string `json:"completedOutflow"`
	PendingOutflow   string `json:"pendingOutflow"`
	FailedOutflow    string `json:"failedOutflow"`
}

type auditResponse struct {
	Wallet        walletResponse     `json:"wallet"`
	Ledger        ledgerSumsResponse `json:"ledger"`
	Consistent    bool               `json:"consistent"`
	Discrepancies []string           `json:"discrepancies"`
}

func newAuditResponse(a *wallet.AuditReport) auditResponse {
	discrepancies := a.Discrepancies
	if discrepancies == nil {
		discrepancies = []string{}
	}

	return auditResponse{
		Wallet:        newWalletResponse(a.Wallet),
		Ledger:        newLedgerSumsResponse(a.Ledger),
		Consistent:    a.Consistent,
		Discrepancies: discrepancies,
	}
}

func newLedgerSumsResponse(s transactions.Sums) ledgerSumsResponse {
	return ledgerSumsResponse{
		CompletedInflow:  ledger.FormatMinor(s.CompletedInflow),
		CompletedOutflow: ledger.FormatMinor(s.CompletedOutflow),
		PendingOutflow:   ledger.FormatMinor(s.PendingOutflow),
		FailedOutflow:    ledger.FormatMinor(s.FailedOutflow),
	}
}

type revenueResponse struct {
	From             *time.Time `json:"from"`
	To               *time.Time `json:"to"`
	Bookings         int64      `json:"bookings"`
	TotalAmount      string     `json:"totalAmount"`
	CommissionAmount string     `json:"commissionAmount"`
	PriestShare      string     `json:"priestShare"`
	Currency         string     `json:"currency"`
}

func newRevenueResponse(from, to time.Time, s ledger.RevenueSummary) revenueResponse {
	resp := revenueResponse{
		Bookings:         s.Bookings,
		TotalAmount:      ledger.FormatMinor(s.TotalAmount),
		CommissionAmount: ledger.FormatMinor(s.CommissionAmount),
		PriestShare:      ledger.FormatMinor(s.PriestShare),
		Currency:         ledger.Currency,
	}

	if !from.IsZero() {
		resp.From = &from
	}
	if !to.IsZero() {
		resp.To = &to
	}

	return resp
}
