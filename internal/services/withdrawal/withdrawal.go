package withdrawal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/priestwallet/internal/infra/pgutils"
	"github.com/fastprodman/priestwallet/internal/infra/redislock"
	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/metrics"
	"github.com/fastprodman/priestwallet/internal/payout"
	"github.com/fastprodman/priestwallet/internal/repos/transactions"
	pgtransactions "github.com/fastprodman/priestwallet/internal/repos/transactions/postgres"
	"github.com/fastprodman/priestwallet/internal/repos/wallets"
	pgwallets "github.com/fastprodman/priestwallet/internal/repos/wallets/postgres"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultGatewayTimeout = 15 * time.Second
	compensationAttempts  = 3
	compensationBackoff   = 100 * time.Millisecond
)

type Request struct {
	PriestID uuid.UUID
	Amount   int64
	Bank     payout.BankDetails
}

type Result struct {
	TransactionID uuid.UUID
	ReferenceID   string
	Amount        int64
	Status        ledger.TxStatus
	NewBalance    int64
}

// PayoutError is returned when the gateway did not pay out. The reserved
// amount has been released back to the wallet; Balance is the balance after
// the release. Err is ledger.ErrGatewayDeclined or ledger.ErrGatewayUnavailable.
type PayoutError struct {
	TransactionID uuid.UUID
	Amount        int64
	Balance       int64
	Reason        string
	Err           error
}

func (e *PayoutError) Error() string {
	return fmt.Sprintf("payout of %s failed, amount refunded to wallet: %s",
		ledger.FormatMinor(e.Amount), e.Reason)
}

func (e *PayoutError) Unwrap() error {
	return e.Err
}

type Service struct {
	tx       pgutils.TxFunc
	wallets  wallets.Wallets
	txns     transactions.Transactions
	gateway  payout.Gateway
	locker   redislock.Locker
	metrics  *metrics.Ledger
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	now      func() time.Time
}

type Option func(*Service)

func WithLocker(l redislock.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

func WithMetrics(m *metrics.Ledger) Option {
	return func(s *Service) { s.metrics = m }
}

// WithGatewayTimeout bounds each payout call.
func WithGatewayTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(db *sql.DB, gateway payout.Gateway, opts ...Option) *Service {
	s := &Service{
		tx:       pgutils.Runner(db),
		wallets:  pgwallets.New(db),
		txns:     pgtransactions.New(db),
		gateway:  gateway,
		locker:   redislock.Noop{},
		timeout:  defaultGatewayTimeout,
		attempts: compensationAttempts,
		backoff:  compensationBackoff,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RequestWithdrawal pays amount out of the priest's wallet:
//
// 1) Reserve the amount and record a pending payout, atomically.
// 2) Call the gateway outside any database transaction.
// 3) Complete the payout, or release the reservation and fail it.
//
// The wallet never shows an uncommitted reservation and a failed payout
// always gives the money back.
func (s *Service) RequestWithdrawal(ctx context.Context, req Request) (*Result, error) {
	if req.Amount <= 0 {
		s.metrics.Withdrawal(metrics.OutcomeRejected, req.Amount)

		return nil, fmt.Errorf("withdraw %s: %w", ledger.FormatMinor(req.Amount), ledger.ErrInvalidAmount)
	}

	unlock, err := s.locker.Lock(ctx, "priest:"+req.PriestID.String())
	if err != nil {
		return nil, fmt.Errorf("lock priest %s: %w", req.PriestID, err)
	}
	defer func() {
		uerr := unlock(context.WithoutCancel(ctx))
		if uerr != nil {
			log.Warn().Err(uerr).Str("priest_id", req.PriestID.String()).Msg("release priest lock")
		}
	}()

	pending, reserved, err := s.reserve(ctx, req)
	if err != nil {
		s.metrics.Withdrawal(metrics.OutcomeRejected, req.Amount)

		return nil, fmt.Errorf("request withdrawal: %w", err)
	}

	logger := log.With().
		Str("priest_id", req.PriestID.String()).
		Str("transaction_id", pending.ID.String()).
		Int64("amount", req.Amount).
		Logger()

	gwCtx, cancel := context.WithTimeout(ctx, s.timeout)
	started := time.Now()
	res, gwErr := s.gateway.InitiateTransfer(gwCtx, req.Bank, req.Amount)
	cancel()

	// The caller may be gone by now; settling the ledger must still happen.
	bg := context.WithoutCancel(ctx)

	switch {
	case gwErr == nil && res.Success:
		s.metrics.GatewayCall(metrics.OutcomeCompleted, time.Since(started))

		return s.complete(bg, logger, pending, reserved, res)

	case gwErr == nil:
		s.metrics.GatewayCall(metrics.OutcomeDeclined, time.Since(started))
		logger.Warn().Str("reference_id", res.ReferenceID).Str("reason", res.Message).Msg("payout declined")

		reason := res.Message
		if reason == "" {
			reason = "declined by payout provider"
		}

		return nil, s.refund(bg, logger, pending, res.ReferenceID, reason, ledger.ErrGatewayDeclined)

	default:
		s.metrics.GatewayCall(metrics.OutcomeUnavailable, time.Since(started))
		logger.Error().Err(gwErr).Msg("payout gateway error")

		return nil, s.refund(bg, logger, pending, "", "payout gateway unavailable", ledger.ErrGatewayUnavailable)
	}
}

func (s *Service) reserve(ctx context.Context, req Request) (ledger.Transaction, ledger.Wallet, error) {
	var (
		pending ledger.Transaction
		wallet  ledger.Wallet
	)

	err := s.tx(ctx, func(tx *sql.Tx) error {
		w, err := s.wallets.Ensure(ctx, tx, req.PriestID)
		if err != nil {
			return fmt.Errorf("ensure wallet: %w", err)
		}

		reserved, err := s.wallets.Reserve(ctx, tx, w.ID, req.Amount, s.now().UTC())
		if errors.Is(err, wallets.ErrNotReserved) {
			return rejection(ctx, s.wallets, tx, req)
		}
		if err != nil {
			return fmt.Errorf("reserve: %w", err)
		}

		pending = ledger.Transaction{
			PriestID:    req.PriestID,
			WalletID:    reserved.ID,
			Type:        ledger.TxPayoutWithdrawal,
			Direction:   ledger.Outflow,
			Amount:      req.Amount,
			Status:      ledger.TxPending,
			Description: withdrawalDescription(req.Bank),
		}

		err = s.txns.Insert(ctx, tx, &pending)
		if err != nil {
			return fmt.Errorf("insert payout transaction: %w", err)
		}

		wallet = reserved

		return nil
	})
	if err != nil {
		return ledger.Transaction{}, ledger.Wallet{}, err
	}

	return pending, wallet, nil
}

// rejection explains why Reserve matched no row.
func rejection(ctx context.Context, repo wallets.Wallets, tx *sql.Tx, req Request) error {
	w, err := repo.LockByPriestID(ctx, tx, req.PriestID)
	if err != nil {
		return fmt.Errorf("reload wallet: %w", err)
	}

	if w.Status == ledger.WalletFrozen {
		return fmt.Errorf("priest %s: %w", req.PriestID, ledger.ErrWalletFrozen)
	}

	return &ledger.InsufficientBalanceError{Balance: w.CurrentBalance, Requested: req.Amount}
}

func (s *Service) complete(
	ctx context.Context,
	logger zerolog.Logger,
	pending ledger.Transaction,
	reserved ledger.Wallet,
	res payout.Result,
) (*Result, error) {
	var done ledger.Transaction

	err := s.retry(ctx, func() error {
		return s.tx(ctx, func(tx *sql.Tx) error {
			var err error

			done, err = s.txns.Finalize(ctx, tx, pending.ID, ledger.TxCompleted, res.ReferenceID)

			return err
		})
	})
	if err != nil {
		// Money has left; the row stays pending for reconciliation.
		logger.Error().Err(err).Str("reference_id", res.ReferenceID).Msg("payout sent but transaction not finalized")
		s.metrics.Withdrawal(metrics.OutcomeError, pending.Amount)

		return &Result{
			TransactionID: pending.ID,
			ReferenceID:   res.ReferenceID,
			Amount:        pending.Amount,
			Status:        ledger.TxPending,
			NewBalance:    reserved.CurrentBalance,
		}, nil
	}

	s.metrics.Withdrawal(metrics.OutcomeCompleted, pending.Amount)
	logger.Info().Str("reference_id", res.ReferenceID).Msg("payout completed")

	return &Result{
		TransactionID: done.ID,
		ReferenceID:   done.ReferenceID,
		Amount:        done.Amount,
		Status:        done.Status,
		NewBalance:    reserved.CurrentBalance,
	}, nil
}

// refund releases the reservation and fails the pending transaction in one
// database transaction.
func (s *Service) refund(
	ctx context.Context,
	logger zerolog.Logger,
	pending ledger.Transaction,
	referenceID, reason string,
	cause error,
) error {
	var released ledger.Wallet

	err := s.retry(ctx, func() error {
		return s.tx(ctx, func(tx *sql.Tx) error {
			_, err := s.txns.Finalize(ctx, tx, pending.ID, ledger.TxFailed, referenceID)
			if err != nil {
				return fmt.Errorf("fail transaction: %w", err)
			}

			released, err = s.wallets.Release(ctx, tx, pending.WalletID, pending.Amount)
			if err != nil {
				return fmt.Errorf("release reservation: %w", err)
			}

			return nil
		})
	})
	if err != nil {
		s.metrics.Compensation(false)
		s.metrics.Withdrawal(metrics.OutcomeError, pending.Amount)
		logger.Error().Err(err).Msg("compensation failed, reservation still held")

		return fmt.Errorf("payout failed and refund of transaction %s did not complete: %w",
			pending.ID, errors.Join(ledger.ErrInternal, err))
	}

	s.metrics.Compensation(true)

	outcome := metrics.OutcomeUnavailable
	if errors.Is(cause, ledger.ErrGatewayDeclined) {
		outcome = metrics.OutcomeDeclined
	}
	s.metrics.Withdrawal(outcome, pending.Amount)

	logger.Info().Int64("balance", released.CurrentBalance).Msg("reservation released")

	return &PayoutError{
		TransactionID: pending.ID,
		Amount:        pending.Amount,
		Balance:       released.CurrentBalance,
		Reason:        reason,
		Err:           cause,
	}
}

// retry runs fn until it succeeds, the error is a state conflict that
// retrying cannot fix, or the attempts are used up.
func (s *Service) retry(ctx context.Context, fn func() error) error {
	var err error

	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = fn()
		if err == nil || errors.Is(err, ledger.ErrInvalidState) || errors.Is(err, ledger.ErrNotFound) {
			return err
		}

		if attempt == s.attempts {
			break
		}

		timer := time.NewTimer(s.backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}

	return err
}

func withdrawalDescription(bank payout.BankDetails) string {
	acct := bank.AccountNumber
	if len(acct) > 4 {
		acct = acct[len(acct)-4:]
	}

	return "Withdrawal to bank account ending " + acct
}
