package http

import (
	"encoding/json"
	"errors"
	nethttp "net/http"

	"walletledger/internal/domain"

	"go.uber.org/zap"
)

type callbackAck struct {
	Status  string                  `json:"status"`
	Outcome domain.ReconcileOutcome `json:"outcome,omitempty"`
}

// paymentCallback acknowledges every callback it could interpret, including
// duplicates, unknown ids and malformed payloads, so the gateway stops
// retrying. Only storage failures are answered with an error.
func (h *Handler) paymentCallback(w nethttp.ResponseWriter, r *nethttp.Request) {
	payload := map[string]any{}
	if err := json.NewDecoder(nethttp.MaxBytesReader(w, r.Body, 1<<20)).Decode(&payload); err != nil {
		h.logger.Warn("unreadable gateway callback", zap.Error(err))
		writeJSON(w, nethttp.StatusOK, callbackAck{Status: "ok", Outcome: domain.OutcomeMalformed})
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), payload)
	if errors.Is(err, domain.ErrMalformedCallback) {
		writeJSON(w, nethttp.StatusOK, callbackAck{Status: "ok", Outcome: domain.OutcomeMalformed})
		return
	}
	if err != nil {
		h.logError(r, "gateway callback failed", err)
		writeError(w, nethttp.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, nethttp.StatusOK, callbackAck{Status: "ok", Outcome: result.Outcome})
}
