package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fastprodman/priestwallet/internal/config"
	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/rs/zerolog/log"
)

// HTTPGateway talks to the RazorpayX payouts API: contact, fund account,
// then payout.
type HTTPGateway struct {
	client        *http.Client
	baseURL       string
	keyID         string
	keySecret     string
	accountNumber string
}

// NewHTTPGateway builds a live client. A nil client uses one with cfg.Timeout.
func NewHTTPGateway(cfg config.GatewayConfig, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTPGateway{
		client:        client,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		accountNumber: cfg.AccountNumber,
	}
}

// declineError is a 4xx answer from the provider.
type declineError struct {
	status  int
	code    string
	message string
}

func (e *declineError) Error() string {
	return fmt.Sprintf("razorpay %d %s: %s", e.status, e.code, e.message)
}

// isDecline reports whether a 4xx status is the provider refusing this
// payout. Credential, permission, timeout and rate-limit answers say nothing
// about the payout itself and are treated as the gateway being unavailable.
func isDecline(status int) bool {
	switch status {
	case http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusProxyAuthRequired,
		http.StatusRequestTimeout,
		http.StatusTooManyRequests:
		return false
	}

	return status >= 400 && status < 500
}

type apiErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type contactRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type fundAccountRequest struct {
	ContactID   string          `json:"contact_id"`
	AccountType string          `json:"account_type"`
	BankAccount bankAccountBody `json:"bank_account"`
}

type bankAccountBody struct {
	Name          string `json:"name"`
	IFSC          string `json:"ifsc"`
	AccountNumber string `json:"account_number"`
}

type payoutRequest struct {
	AccountNumber     string `json:"account_number"`
	FundAccountID     string `json:"fund_account_id"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	Mode              string `json:"mode"`
	Purpose           string `json:"purpose"`
	QueueIfLowBalance bool   `json:"queue_if_low_balance"`
}

type idResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// failedPayoutStatuses are terminal provider states that mean no money moved.
var failedPayoutStatuses = map[string]bool{
	"rejected":  true,
	"cancelled": true,
	"failed":    true,
	"reversed":  true,
}

func (g *HTTPGateway) InitiateTransfer(ctx context.Context, bank BankDetails, amount int64) (Result, error) {
	if amount <= 0 {
		return Result{}, fmt.Errorf("payout amount %d: %w", amount, ledger.ErrInvalidAmount)
	}

	var contact idResponse

	err := g.post(ctx, "/contacts", contactRequest{Name: bank.Name, Type: "vendor"}, &contact)
	if err != nil {
		return declined(err, "create contact")
	}

	var fund idResponse

	err = g.post(ctx, "/fund_accounts", fundAccountRequest{
		ContactID:   contact.ID,
		AccountType: "bank_account",
		BankAccount: bankAccountBody{
			Name:          bank.Name,
			IFSC:          bank.IFSC,
			AccountNumber: bank.AccountNumber,
		},
	}, &fund)
	if err != nil {
		return declined(err, "create fund account")
	}

	var out idResponse

	err = g.post(ctx, "/payouts", payoutRequest{
		AccountNumber:     g.accountNumber,
		FundAccountID:     fund.ID,
		Amount:            amount,
		Currency:          ledger.Currency,
		Mode:              "IMPS",
		Purpose:           "payout",
		QueueIfLowBalance: true,
	}, &out)
	if err != nil {
		return declined(err, "create payout")
	}

	log.Info().Int64("amount", amount).Str("reference_id", out.ID).Str("status", out.Status).Msg("live payout created")

	if failedPayoutStatuses[out.Status] {
		return Result{
			Success:     false,
			ReferenceID: out.ID,
			Status:      out.Status,
			Message:     "payout " + out.Status,
		}, nil
	}

	return Result{
		Success:     true,
		ReferenceID: out.ID,
		Status:      out.Status,
	}, nil
}

// declined turns a provider decline into a failed Result and passes any
// other error through.
func declined(err error, step string) (Result, error) {
	var de *declineError
	if errors.As(err, &de) {
		return Result{
			Success: false,
			Status:  "rejected",
			Message: de.message,
		}, nil
	}

	return Result{}, fmt.Errorf("%s: %w", step, err)
}

func (g *HTTPGateway) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	//nolint:errcheck
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	switch {
	case resp.StatusCode >= 500, resp.StatusCode >= 400 && !isDecline(resp.StatusCode):
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	case resp.StatusCode >= 400:
		var apiErr apiErrorBody
		_ = json.Unmarshal(raw, &apiErr)

		msg := apiErr.Error.Description
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}

		return &declineError{status: resp.StatusCode, code: apiErr.Error.Code, message: msg}
	}

	err = json.Unmarshal(raw, out)
	if err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}
