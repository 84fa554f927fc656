package http

import (
	"context"
	nethttp "net/http"
	"strconv"

	"walletledger/internal/domain"

	"github.com/go-chi/chi/v5"
)

type decisionRequest struct {
	AdminNotes string `json:"admin_notes" validate:"max=500"`
}

func (h *Handler) listWithdrawals(w nethttp.ResponseWriter, r *nethttp.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	views, err := h.admin.ListWithdrawals(r.Context(), domain.WithdrawalStatus(q.Get("status")), limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"withdrawals": views})
}

func (h *Handler) getWithdrawal(w nethttp.ResponseWriter, r *nethttp.Request) {
	view, err := h.admin.GetWithdrawal(r.Context(), chi.URLParam(r, "publicID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, view)
}

func (h *Handler) approveWithdrawal(w nethttp.ResponseWriter, r *nethttp.Request) {
	h.decideWithdrawal(w, r, h.admin.ApproveWithdrawal)
}

func (h *Handler) rejectWithdrawal(w nethttp.ResponseWriter, r *nethttp.Request) {
	h.decideWithdrawal(w, r, h.admin.RejectWithdrawal)
}

type decision func(ctx context.Context, publicID, notes string) (*domain.WithdrawalView, error)

func (h *Handler) decideWithdrawal(w nethttp.ResponseWriter, r *nethttp.Request, decide decision) {
	var req decisionRequest
	if r.ContentLength != 0 {
		if err := h.decode(w, r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	view, err := decide(r.Context(), chi.URLParam(r, "publicID"), req.AdminNotes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, view)
}
