package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/fastprodman/priestwallet/internal/infra/redislock"
	"github.com/fastprodman/priestwallet/internal/ledger"
	"github.com/fastprodman/priestwallet/internal/services/withdrawal"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})

	return v
}

type errorResponse struct {
	Error          string            `json:"error"`
	Code           string            `json:"code"`
	Details        map[string]string `json:"details,omitempty"`
	TransactionID  string            `json:"transactionId,omitempty"`
	CurrentBalance string            `json:"currentBalance,omitempty"`
}

// requestError is a client mistake detected before any service call.
type requestError struct {
	msg     string
	details map[string]string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode JSON response")
	}
}

// writeError maps an error to its HTTP status and JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		reqErr       *requestError
		payoutErr    *withdrawal.PayoutError
		insufficient *ledger.InsufficientBalanceError
	)

	switch {
	case errors.As(err, &reqErr):
		writeJSON(w, r, http.StatusBadRequest, errorResponse{
			Error: reqErr.msg, Code: "invalid_request", Details: reqErr.details,
		})

	case errors.Is(err, ledger.ErrInternal):
		internalError(w, r, err)

	case errors.As(err, &payoutErr):
		status, code := http.StatusBadGateway, "payout_unavailable"
		if errors.Is(payoutErr, ledger.ErrGatewayDeclined) {
			status, code = http.StatusPaymentRequired, "payout_declined"
		}

		writeJSON(w, r, status, errorResponse{
			Error:          payoutErr.Error(),
			Code:           code,
			TransactionID:  payoutErr.TransactionID.String(),
			CurrentBalance: ledger.FormatMinor(payoutErr.Balance),
		})

	case errors.As(err, &insufficient):
		writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{
			Error:          insufficient.Error(),
			Code:           "insufficient_balance",
			CurrentBalance: ledger.FormatMinor(insufficient.Balance),
		})

	case errors.Is(err, ledger.ErrInvalidAmount):
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "invalid_amount"})

	case errors.Is(err, ledger.ErrWalletFrozen):
		writeJSON(w, r, http.StatusForbidden, errorResponse{
			Error: "wallet is frozen, contact support", Code: "wallet_frozen",
		})

	case errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: err.Error(), Code: "not_found"})

	case errors.Is(err, ledger.ErrAlreadyProcessed):
		writeJSON(w, r, http.StatusConflict, errorResponse{
			Error: "booking already processed", Code: "already_processed",
		})

	case errors.Is(err, ledger.ErrInvalidState):
		writeJSON(w, r, http.StatusConflict, errorResponse{Error: err.Error(), Code: "invalid_state"})

	case errors.Is(err, redislock.ErrTimeout):
		w.Header().Set("Retry-After", "1")
		writeJSON(w, r, http.StatusServiceUnavailable, errorResponse{
			Error: "wallet is busy, retry shortly", Code: "busy",
		})

	default:
		internalError(w, r, err)
	}
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")

	writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "internal"})
}

// decodeJSON reads a single JSON object into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("empty body")
		}

		return badRequest("invalid JSON: %v", err)
	}

	err = validate.Struct(dst)
	if err != nil {
		return validationError(err)
	}

	return nil
}

func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return badRequest("validation failed: %v", err)
	}

	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Namespace()] = validationMessage(fe)
	}

	return &requestError{msg: "validation failed", details: details}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "alphanum":
		return "must contain only letters and digits"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}

	return "is invalid"
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, badRequest("missing %s", name)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequest("invalid %s", name)
	}

	return id, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, badRequest("invalid %s: must be a non-negative integer", key)
	}

	return v, nil
}
