package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/payout"
	"github.com/fastprodman/priestwallet/internal/services/commission"
	"github.com/fastprodman/priestwallet/internal/services/wallet"
	"github.com/fastprodman/priestwallet/internal/services/withdrawal"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletService interface {
	GetWalletSummary(ctx context.Context, priestID uuid.UUID, page wallet.Page) (*wallet.Summary, error)
	SetStatus(ctx context.Context, priestID uuid.UUID, status ledger.WalletStatus) (ledger.Wallet, error)
	Audit(ctx context.Context, priestID uuid.UUID) (*wallet.AuditReport, error)
	RevenueSummary(ctx context.Context, from, to time.Time) (ledger.RevenueSummary, error)
}

type WithdrawalService interface {
	RequestWithdrawal(ctx context.Context, req withdrawal.Request) (*withdrawal.Result, error)
}

type SettlementService interface {
	ProcessBookingCompletion(ctx context.Context, bookingID uuid.UUID) (*commission.Settlement, error)
	CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*commission.Completion, error)
}

// HandlerProvider exposes the wallet, withdrawal and settlement services over HTTP.
type HandlerProvider struct {
	wallets     WalletService
	withdrawals WithdrawalService
	settlements SettlementService
}

func NewHandler(wallets WalletService, withdrawals WithdrawalService, settlements SettlementService) *HandlerProvider {
	return &HandlerProvider{
		wallets:     wallets,
		withdrawals: withdrawals,
		settlements: settlements,
	}
}

// GetWalletHandler handles GET /priests/{priestId}/wallet?limit=&offset=
func (h *HandlerProvider) GetWalletHandler(w http.ResponseWriter, r *http.Request) {
	priestID, err := uuidParam(r, "priestId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit, err := queryInt(r, "limit", wallet.DefaultLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := h.wallets.GetWalletSummary(r.Context(), priestID, wallet.Page{Limit: limit, Offset: offset})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newWalletSummaryResponse(summary))
}

type withdrawalRequest struct {
	// Rupees; accepts a JSON number or string, e.g. 400 or "400.50".
	Amount      decimal.Decimal    `json:"amount"`
	BankDetails payout.BankDetails `json:"bankDetails"`
}

// RequestWithdrawalHandler handles POST /priests/{priestId}/wallet/withdrawals
func (h *HandlerProvider) RequestWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	priestID, err := uuidParam(r, "priestId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req withdrawalRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	amount, err := ledger.FromDecimal(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.withdrawals.RequestWithdrawal(r.Context(), withdrawal.Request{
		PriestID: priestID,
		Amount:   amount,
		Bank: payout.BankDetails{
			AccountNumber: strings.TrimSpace(req.BankDetails.AccountNumber),
			IFSC:          strings.ToUpper(strings.TrimSpace(req.BankDetails.IFSC)),
			Name:          strings.TrimSpace(req.BankDetails.Name),
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Status == ledger.TxPending {
		status = http.StatusAccepted
	}

	writeJSON(w, r, status, newWithdrawalResponse(res))
}

// CompleteBookingHandler handles POST /bookings/{bookingId}/complete.
// A booking that was already settled answers 200 with alreadyProcessed=true.
func (h *HandlerProvider) CompleteBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuidParam(r, "bookingId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	completion, err := h.settlements.CompleteBooking(r.Context(), bookingID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newCompletionResponse(completion))
}

// SettleBookingHandler handles POST /bookings/{bookingId}/settle
func (h *HandlerProvider) SettleBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuidParam(r, "bookingId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	settlement, err := h.settlements.ProcessBookingCompletion(r.Context(), bookingID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newSettlementResponse(settlement))
}

type walletStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active frozen"`
}

// SetWalletStatusHandler handles PUT /admin/priests/{priestId}/wallet/status
func (h *HandlerProvider) SetWalletStatusHandler(w http.ResponseWriter, r *http.Request) {
	priestID, err := uuidParam(r, "priestId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req walletStatusRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.wallets.SetStatus(r.Context(), priestID, ledger.WalletStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newWalletResponse(updated))
}

// AuditWalletHandler handles GET /admin/priests/{priestId}/wallet/audit
func (h *HandlerProvider) AuditWalletHandler(w http.ResponseWriter, r *http.Request) {
	priestID, err := uuidParam(r, "priestId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := h.wallets.Audit(r.Context(), priestID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newAuditResponse(report))
}

// RevenueHandler handles GET /admin/revenue?from=&to=. Bounds are RFC 3339
// timestamps or YYYY-MM-DD dates; either may be omitted.
func (h *HandlerProvider) RevenueHandler(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}

	to, err := queryTime(r, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}

	sum, err := h.wallets.RevenueSummary(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newRevenueResponse(from, to, sum))
}

func queryTime(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return t.UTC(), nil
	}

	t, err = time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, badRequest("invalid %s: use RFC 3339 or YYYY-MM-DD", key)
	}

	return t, nil
}
