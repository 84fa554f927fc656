package http

import (
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"reflect"

	"walletledger/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w nethttp.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return nethttp.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDuplicateRequest):
		return nethttp.StatusConflict
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrWithdrawalNotFound):
		return nethttp.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidRequest):
		return nethttp.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return nethttp.StatusUnauthorized
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return nethttp.StatusBadGateway
	default:
		return nethttp.StatusInternalServerError
	}
}

func (h *Handler) fail(w nethttp.ResponseWriter, r *nethttp.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == nethttp.StatusInternalServerError {
		h.logError(r, "request failed", err)
		msg = "internal error"
	}
	writeError(w, status, msg)
}

// newValidator returns a validator that sees decimal.Decimal fields as
// float64, so numeric tags like gte work on money amounts.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

func (h *Handler) decode(w nethttp.ResponseWriter, r *nethttp.Request, dst any) error {
	dec := json.NewDecoder(nethttp.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}
