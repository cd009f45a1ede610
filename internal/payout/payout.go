// Package payout moves withdrawn money to a priest's bank account.
package payout

import (
	"context"
	"errors"

	"github.com/fastprodman/priestwallet/internal/config"
	"github.com/rs/zerolog/log"
)

// BankDetails identifies the destination account.
type BankDetails struct {
	AccountNumber string `json:"accountNumber" validate:"required,min=6,max=34,alphanum"`
	IFSC          string `json:"ifsc" validate:"required,len=11,alphanum"`
	Name          string `json:"name" validate:"required,max=120"`
}

// Result is the provider's answer. Success=false is a business decline;
// transport failures are returned as errors instead.
type Result struct {
	Success     bool
	ReferenceID string
	Status      string
	Message     string
}

type Gateway interface {
	// InitiateTransfer pays amount paise to bank.
	InitiateTransfer(ctx context.Context, bank BankDetails, amount int64) (Result, error)
}

var ErrMisconfigured = errors.New("payout gateway misconfigured")

// New returns the live RazorpayX client when cfg enables it, otherwise the sandbox.
func New(cfg config.GatewayConfig) (Gateway, error) {
	if !cfg.IsLive() {
		log.Info().Msg("payout gateway: sandbox mode, transfers auto-succeed")

		return &Sandbox{Delay: cfg.SandboxDelay}, nil
	}

	if cfg.AccountNumber == "" {
		return nil, errors.Join(ErrMisconfigured, errors.New("RAZORPAY_ACCOUNT_NUMBER is required in live mode"))
	}

	log.Info().Str("base_url", cfg.BaseURL).Msg("payout gateway: live mode")

	return NewHTTPGateway(cfg, nil), nil
}
