package http

import (
	nethttp "net/http"
	"strconv"

	"walletledger/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Minimums and maximums of the customer-facing surface; the ledger itself
// only requires positive amounts.
type topUpRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"gte=10000,lte=10000000"`
	Description string          `json:"description" validate:"max=255"`
}

type paymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"gte=1000"`
	MerchantID  int64           `json:"merchant_id" validate:"required,gt=0"`
	Description string          `json:"description" validate:"max=255"`
}

type withdrawalRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=50000"`
	domain.BankDetails
}

type topUpResponse struct {
	Transaction *domain.Transaction `json:"transaction"`
	PaymentURL  string              `json:"payment_url,omitempty"`
}

func (h *Handler) getWallet(w nethttp.ResponseWriter, r *nethttp.Request) {
	wallet, err := h.wallet.GetWallet(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, wallet)
}

func (h *Handler) listTransactions(w nethttp.ResponseWriter, r *nethttp.Request) {
	q := r.URL.Query()
	filter := domain.TransactionFilter{
		Type:   domain.TransactionType(q.Get("type")),
		Status: domain.TransactionStatus(q.Get("status")),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	txns, err := h.wallet.ListTransactions(r.Context(), userID(r), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"transactions": txns})
}

func (h *Handler) getTransaction(w nethttp.ResponseWriter, r *nethttp.Request) {
	t, err := h.wallet.GetTransaction(r.Context(), userID(r), chi.URLParam(r, "publicID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, t)
}

func (h *Handler) startTopUp(w nethttp.ResponseWriter, r *nethttp.Request) {
	var req topUpRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	t, err := h.checkout.StartTopUp(r.Context(), userID(r), req.Amount, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := topUpResponse{Transaction: t}
	if u, ok := t.Metadata[domain.MetaPaymentURL].(string); ok {
		resp.PaymentURL = u
	}
	writeJSON(w, nethttp.StatusCreated, resp)
}

func (h *Handler) executePayment(w nethttp.ResponseWriter, r *nethttp.Request) {
	var req paymentRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	t, err := h.wallet.ExecutePayment(r.Context(), userID(r), req.Amount, req.MerchantID, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, nethttp.StatusCreated, t)
}

func (h *Handler) requestWithdrawal(w nethttp.ResponseWriter, r *nethttp.Request) {
	var req withdrawalRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	t, err := h.wallet.RequestWithdrawal(r.Context(), userID(r), req.Amount, req.BankDetails)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, nethttp.StatusCreated, t)
}
