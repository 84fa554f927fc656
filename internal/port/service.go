package port

import (
	"context"

	"walletledger/internal/domain"

	"github.com/shopspring/decimal"
)

type WalletService interface {
	GetWallet(ctx context.Context, userID string) (*domain.Wallet, error)
	InitiateTopUp(ctx context.Context, userID string, amount decimal.Decimal, description string) (*domain.Transaction, error)
	CompleteTopUp(ctx context.Context, publicID string) error
	ExecutePayment(ctx context.Context, userID string, amount decimal.Decimal, merchantID int64, description string) (*domain.Transaction, error)
	RequestWithdrawal(ctx context.Context, userID string, amount decimal.Decimal, bank domain.BankDetails) (*domain.Transaction, error)
	AttachGatewayPayment(ctx context.Context, publicID string, payment *domain.GatewayPayment) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, publicID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

type WithdrawalService interface {
	ApproveWithdrawal(ctx context.Context, publicID, notes string) (*domain.WithdrawalView, error)
	RejectWithdrawal(ctx context.Context, publicID, notes string) (*domain.WithdrawalView, error)
	GetWithdrawal(ctx context.Context, publicID string) (*domain.WithdrawalView, error)
	ListWithdrawals(ctx context.Context, status domain.WithdrawalStatus, limit, offset int) ([]*domain.WithdrawalView, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, payload map[string]any) (*domain.ReconcileResult, error)
}

type CheckoutService interface {
	StartTopUp(ctx context.Context, userID string, amount decimal.Decimal, description string) (*domain.Transaction, error)
}

// PaymentGateway is the outbound payment-creation API. Its wire format is
// owned by the implementation.
type PaymentGateway interface {
	Name() string
	CreatePayment(ctx context.Context, req domain.GatewayPaymentRequest) (*domain.GatewayPayment, error)
}

// EventPublisher fans committed ledger changes out to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}
