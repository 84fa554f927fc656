package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"walletledger/internal/domain"
	"walletledger/internal/gateway"
	"walletledger/internal/repository/memory"
	"walletledger/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	authToken    = "auth-token"
	adminToken   = "admin-token"
	webhookToken = "webhook-token"
)

type testServer struct {
	handler nethttp.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	wallet := service.NewWalletService(store, store.Wallets(), store.Transactions(), store.Withdrawals(), "dana")
	reconciler := service.NewReconciler(store, store.Transactions(), wallet)
	admin := service.NewWithdrawalService(store, store.Wallets(), store.Transactions(), store.Withdrawals())
	checkout := service.NewCheckoutService(wallet, gateway.NewSandboxGateway(gateway.Config{Name: "dana"}), zap.NewNop())

	h := NewHandler(wallet, checkout, reconciler, admin, Tokens{
		Auth:    authToken,
		Admin:   adminToken,
		Webhook: webhookToken,
	}, zap.NewNop(), prometheus.NewRegistry())
	return &testServer{handler: h.Routes()}
}

func (s *testServer) do(t *testing.T, method, path, token, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		require.NoError(t, json.NewEncoder(buf).Encode(body))
		reader = buf
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if user != "" {
		req.Header.Set(userIDHeader, user)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// topUp starts a topup and confirms it through the webhook.
func (s *testServer) topUp(t *testing.T, user string, value float64) string {
	t.Helper()
	rec := s.do(t, nethttp.MethodPost, "/api/v1/topups", authToken, user, map[string]any{"amount": value})
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody[topUpResponse](t, rec)
	require.NotEmpty(t, resp.PaymentURL)

	rec = s.do(t, nethttp.MethodPost, "/api/v1/webhooks/payment", webhookToken, "", map[string]any{
		"transactionId":        resp.Transaction.PublicID,
		"status":               "success",
		"gatewayTransactionId": resp.Transaction.GatewayRef,
	})
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, domain.OutcomeCompleted, decodeBody[callbackAck](t, rec).Outcome)
	return resp.Transaction.PublicID
}

func (s *testServer) balance(t *testing.T, user string) string {
	t.Helper()
	rec := s.do(t, nethttp.MethodGet, "/api/v1/wallet", authToken, user, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	return decodeBody[domain.Wallet](t, rec).Balance.StringFixed(2)
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, nethttp.StatusUnauthorized, s.do(t, nethttp.MethodGet, "/api/v1/wallet", "", "user-1", nil).Code)
	assert.Equal(t, nethttp.StatusUnauthorized, s.do(t, nethttp.MethodGet, "/api/v1/wallet", "wrong", "user-1", nil).Code)
	assert.Equal(t, nethttp.StatusUnauthorized, s.do(t, nethttp.MethodGet, "/api/v1/wallet", authToken, "", nil).Code)
	assert.Equal(t, nethttp.StatusUnauthorized, s.do(t, nethttp.MethodGet, "/api/v1/admin/withdrawals", authToken, "", nil).Code)
	assert.Equal(t, nethttp.StatusUnauthorized, s.do(t, nethttp.MethodPost, "/api/v1/webhooks/payment", "", "", map[string]any{}).Code)
	assert.Equal(t, nethttp.StatusOK, s.do(t, nethttp.MethodGet, "/healthz", "", "", nil).Code)
}

func TestTopUpPaymentFlow(t *testing.T) {
	s := newTestServer(t)

	s.topUp(t, "user-1", 100000)
	assert.Equal(t, "100000.00", s.balance(t, "user-1"))

	rec := s.do(t, nethttp.MethodPost, "/api/v1/payments", authToken, "user-1", map[string]any{
		"amount":      30000,
		"merchant_id": 12,
	})
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())
	payment := decodeBody[domain.Transaction](t, rec)
	assert.Equal(t, domain.StatusCompleted, payment.Status)
	assert.Equal(t, "70000.00", s.balance(t, "user-1"))

	rec = s.do(t, nethttp.MethodPost, "/api/v1/payments", authToken, "user-1", map[string]any{
		"amount":      90000,
		"merchant_id": 12,
	})
	assert.Equal(t, nethttp.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "70000.00", s.balance(t, "user-1"))

	rec = s.do(t, nethttp.MethodGet, "/api/v1/transactions?type=payment", authToken, "user-1", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	list := decodeBody[map[string][]domain.Transaction](t, rec)
	require.Len(t, list["transactions"], 1)
	assert.Equal(t, payment.PublicID, list["transactions"][0].PublicID)

	rec = s.do(t, nethttp.MethodGet, "/api/v1/transactions/"+payment.PublicID, authToken, "user-2", nil)
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		path string
		body any
	}{
		{"topup below minimum", "/api/v1/topups", map[string]any{"amount": 9999}},
		{"topup above maximum", "/api/v1/topups", map[string]any{"amount": 10000001}},
		{"payment without merchant", "/api/v1/payments", map[string]any{"amount": 5000}},
		{"withdrawal below minimum", "/api/v1/withdrawals", map[string]any{
			"amount": 1000, "bank_name": "BCA", "account_number": "1", "account_holder_name": "A",
		}},
		{"withdrawal without bank", "/api/v1/withdrawals", map[string]any{"amount": 60000}},
		{"not json", "/api/v1/topups", "amount=5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, nethttp.MethodPost, tt.path, authToken, "user-1", tt.body)
			assert.Equal(t, nethttp.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestWebhookAcknowledgesEverythingInterpretable(t *testing.T) {
	s := newTestServer(t)
	id := s.topUp(t, "user-1", 20000)

	rec := s.do(t, nethttp.MethodPost, "/api/v1/webhooks/payment", webhookToken, "", map[string]any{
		"transactionId": id, "status": "success",
	})
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, domain.OutcomeDuplicate, decodeBody[callbackAck](t, rec).Outcome)
	assert.Equal(t, "20000.00", s.balance(t, "user-1"))

	rec = s.do(t, nethttp.MethodPost, "/api/v1/webhooks/payment", webhookToken, "", map[string]any{
		"transactionId": "TXN-UNKNOWN", "status": "success",
	})
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, domain.OutcomeUnmatched, decodeBody[callbackAck](t, rec).Outcome)

	rec = s.do(t, nethttp.MethodPost, "/api/v1/webhooks/payment", webhookToken, "", map[string]any{"status": "success"})
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, domain.OutcomeMalformed, decodeBody[callbackAck](t, rec).Outcome)

	rec = s.do(t, nethttp.MethodPost, "/api/v1/webhooks/payment", webhookToken, "", "not an object")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, domain.OutcomeMalformed, decodeBody[callbackAck](t, rec).Outcome)
}

func TestWithdrawalAdminFlow(t *testing.T) {
	s := newTestServer(t)
	s.topUp(t, "user-1", 200000)

	withdraw := func() domain.Transaction {
		rec := s.do(t, nethttp.MethodPost, "/api/v1/withdrawals", authToken, "user-1", map[string]any{
			"amount":              50000,
			"bank_name":           "BCA",
			"account_number":      "1234567890",
			"account_holder_name": "John Doe",
		})
		require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())
		return decodeBody[domain.Transaction](t, rec)
	}

	first := withdraw()
	second := withdraw()
	assert.Equal(t, "100000.00", s.balance(t, "user-1"))

	rec := s.do(t, nethttp.MethodGet, "/api/v1/admin/withdrawals?status=pending", adminToken, "", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Len(t, decodeBody[map[string][]domain.WithdrawalView](t, rec)["withdrawals"], 2)

	rec = s.do(t, nethttp.MethodPost, "/api/v1/admin/withdrawals/"+first.PublicID+"/approve", adminToken, "", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	view := decodeBody[domain.WithdrawalView](t, rec)
	assert.Equal(t, domain.StatusCompleted, view.Transaction.Status)
	assert.Equal(t, domain.WithdrawalApproved, view.Request.Status)

	rec = s.do(t, nethttp.MethodPost, "/api/v1/admin/withdrawals/"+second.PublicID+"/reject", adminToken, "", map[string]any{
		"admin_notes": "account mismatch",
	})
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	view = decodeBody[domain.WithdrawalView](t, rec)
	assert.Equal(t, domain.StatusFailed, view.Transaction.Status)
	assert.Equal(t, "account mismatch", view.Request.AdminNotes)
	assert.Equal(t, "150000.00", s.balance(t, "user-1"))

	rec = s.do(t, nethttp.MethodPost, "/api/v1/admin/withdrawals/"+first.PublicID+"/reject", adminToken, "", nil)
	assert.Equal(t, nethttp.StatusConflict, rec.Code)

	rec = s.do(t, nethttp.MethodGet, "/api/v1/admin/withdrawals/TXN-NOPE", adminToken, "", nil)
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, nethttp.StatusBadGateway, statusFor(domain.ErrGatewayUnavailable))
	assert.Equal(t, nethttp.StatusConflict, statusFor(domain.ErrInvalidTransition))
	assert.Equal(t, nethttp.StatusInternalServerError, statusFor(context.DeadlineExceeded))
}
