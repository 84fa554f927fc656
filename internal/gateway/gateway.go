package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"walletledger/internal/domain"

	"go.uber.org/zap"
)

const DefaultCurrency = "IDR"

type Config struct {
	Name        string
	BaseURL     string
	MerchantID  string
	APIKey      string
	CallbackURL string
	RedirectURL string
	Timeout     time.Duration
}

// HTTPGateway creates payments through the gateway's REST API.
type HTTPGateway struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

func NewHTTPGateway(cfg Config, logger *zap.Logger) *HTTPGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (g *HTTPGateway) Name() string { return g.cfg.Name }

type createPaymentRequest struct {
	MerchantID    string `json:"merchantId"`
	TransactionID string `json:"transactionId"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Description   string `json:"description"`
	CallbackURL   string `json:"callbackUrl"`
	RedirectURL   string `json:"redirectUrl"`
}

func (g *HTTPGateway) CreatePayment(ctx context.Context, req domain.GatewayPaymentRequest) (*domain.GatewayPayment, error) {
	body, err := json.Marshal(createPaymentRequest{
		MerchantID:    g.cfg.MerchantID,
		TransactionID: req.TransactionID,
		Amount:        req.Amount.StringFixed(2),
		Currency:      DefaultCurrency,
		Description:   req.Description,
		CallbackURL:   g.cfg.CallbackURL,
		RedirectURL:   g.cfg.RedirectURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrGatewayUnavailable, err)
	}

	data := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("%w: decode response: %v", domain.ErrGatewayUnavailable, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Error("gateway payment creation failed",
			zap.String("transaction_id", req.TransactionID),
			zap.Int("status_code", resp.StatusCode),
			zap.Any("response", data))
		return nil, fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	ref, _ := data["gatewayTransactionId"].(string)
	paymentURL, _ := data["paymentUrl"].(string)
	return &domain.GatewayPayment{GatewayRef: ref, PaymentURL: paymentURL, Response: data}, nil
}

// SandboxGateway accepts every payment without any network call. Completion
// arrives later through the webhook like with the real gateway.
type SandboxGateway struct {
	cfg Config
}

func NewSandboxGateway(cfg Config) *SandboxGateway {
	return &SandboxGateway{cfg: cfg}
}

func (g *SandboxGateway) Name() string { return g.cfg.Name }

func (g *SandboxGateway) CreatePayment(_ context.Context, req domain.GatewayPaymentRequest) (*domain.GatewayPayment, error) {
	ref := "SBX-" + req.TransactionID
	base := g.cfg.BaseURL
	if base == "" {
		base = "https://sandbox.invalid"
	}
	paymentURL := fmt.Sprintf("%s/checkout?ref=%s", base, url.QueryEscape(ref))
	return &domain.GatewayPayment{
		GatewayRef: ref,
		PaymentURL: paymentURL,
		Response: map[string]any{
			"gatewayTransactionId": ref,
			"paymentUrl":           paymentURL,
			"sandbox":              true,
		},
	}, nil
}
