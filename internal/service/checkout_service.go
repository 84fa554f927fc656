package service

import (
	"context"
	"errors"
	"fmt"

	"walletledger/internal/domain"
	"walletledger/internal/port"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type checkoutService struct {
	wallet  port.WalletService
	gateway port.PaymentGateway
	logger  *zap.Logger
}

// NewCheckoutService starts topups: it records the pending transaction,
// creates the payment at the gateway and stores what the gateway returned.
func NewCheckoutService(wallet port.WalletService, gateway port.PaymentGateway, logger *zap.Logger) port.CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &checkoutService{wallet: wallet, gateway: gateway, logger: logger}
}

func (s *checkoutService) StartTopUp(ctx context.Context, userID string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	t, err := s.wallet.InitiateTopUp(ctx, userID, amount, description)
	if err != nil {
		return nil, err
	}

	payment, err := s.gateway.CreatePayment(ctx, domain.GatewayPaymentRequest{
		TransactionID: t.PublicID,
		Amount:        t.Amount,
		Description:   t.Description,
	})
	if err != nil {
		// The topup stays pending; it is never credited without a callback.
		s.logger.Error("gateway payment creation failed",
			zap.String("transaction_id", t.PublicID),
			zap.String("gateway", s.gateway.Name()),
			zap.Error(err))
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
		}
		return t, err
	}

	updated, err := s.wallet.AttachGatewayPayment(ctx, t.PublicID, payment)
	if err != nil {
		return t, err
	}

	s.logger.Info("gateway payment created",
		zap.String("transaction_id", t.PublicID),
		zap.String("gateway", s.gateway.Name()),
		zap.String("gateway_transaction_id", payment.GatewayRef))
	return updated, nil
}
