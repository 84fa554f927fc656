package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"walletledger/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func paymentRequest() domain.GatewayPaymentRequest {
	return domain.GatewayPaymentRequest{
		TransactionID: "TXN-01HX",
		Amount:        decimal.NewFromInt(100000),
		Description:   "Wallet Top-up",
	}
}

func TestHTTPGateway_CreatePayment(t *testing.T) {
	var got createPaymentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"gatewayTransactionId":"DANA-9","paymentUrl":"https://pay.example/9"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(Config{
		Name:        "dana",
		BaseURL:     srv.URL,
		MerchantID:  "m-1",
		APIKey:      "secret",
		CallbackURL: "https://ledger.example/api/v1/webhooks/payment",
	}, zap.NewNop())

	payment, err := gw.CreatePayment(context.Background(), paymentRequest())

	require.NoError(t, err)
	assert.Equal(t, "DANA-9", payment.GatewayRef)
	assert.Equal(t, "https://pay.example/9", payment.PaymentURL)
	assert.Equal(t, "DANA-9", payment.Response["gatewayTransactionId"])

	assert.Equal(t, "m-1", got.MerchantID)
	assert.Equal(t, "TXN-01HX", got.TransactionID)
	assert.Equal(t, "100000.00", got.Amount)
	assert.Equal(t, DefaultCurrency, got.Currency)
	assert.Equal(t, "https://ledger.example/api/v1/webhooks/payment", got.CallbackURL)
}

func TestHTTPGateway_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(Config{Name: "dana", BaseURL: srv.URL}, zap.NewNop())

	_, err := gw.CreatePayment(context.Background(), paymentRequest())
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPGateway_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	gw := NewHTTPGateway(Config{Name: "dana", BaseURL: url}, zap.NewNop())

	_, err := gw.CreatePayment(context.Background(), paymentRequest())
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestSandboxGateway(t *testing.T) {
	gw := NewSandboxGateway(Config{Name: "dana", BaseURL: "https://sandbox.example"})

	payment, err := gw.CreatePayment(context.Background(), paymentRequest())

	require.NoError(t, err)
	assert.Equal(t, "dana", gw.Name())
	assert.Equal(t, "SBX-TXN-01HX", payment.GatewayRef)
	assert.True(t, strings.HasPrefix(payment.PaymentURL, "https://sandbox.example/checkout?ref="))
}
