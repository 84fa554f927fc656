package port

import (
	"context"
	"time"

	"walletledger/internal/domain"

	"github.com/shopspring/decimal"
)

// UnitOfWork runs fn inside one atomic storage transaction. A nested call
// joins the transaction already carried by ctx. Any error returned by fn
// rolls back every write made through ctx.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context) error) error
}

type WalletRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*domain.Wallet, error)
	// Lock creates the wallet if needed and holds its row lock until the
	// surrounding unit of work ends.
	Lock(ctx context.Context, userID string) (*domain.Wallet, error)
	// AdjustBalance applies delta and fails with domain.ErrInsufficientFunds
	// when the result would be negative.
	AdjustBalance(ctx context.Context, userID string, delta decimal.Decimal) (*domain.Wallet, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, t *domain.Transaction) error
	GetByPublicID(ctx context.Context, publicID string) (*domain.Transaction, error)
	// GetByPublicIDForUpdate locks the row until the unit of work ends.
	GetByPublicIDForUpdate(ctx context.Context, publicID string) (*domain.Transaction, error)
	// Transition moves the transaction from -> to only if its current status
	// is from. completedAt is stored when non-nil.
	Transition(ctx context.Context, publicID string, from, to domain.TransactionStatus, completedAt *time.Time) (*domain.Transaction, error)
	// UpdateGateway records gateway fields and merges metadata on a pending
	// transaction.
	UpdateGateway(ctx context.Context, publicID, gatewayRef string, metadata map[string]any) (*domain.Transaction, error)
	ListByUser(ctx context.Context, userID string, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

type WithdrawalRepository interface {
	Create(ctx context.Context, w *domain.WithdrawalRequest) error
	// Lookups are keyed by the public identifier of the linked transaction.
	GetByTransaction(ctx context.Context, publicID string) (*domain.WithdrawalRequest, error)
	GetByTransactionForUpdate(ctx context.Context, publicID string) (*domain.WithdrawalRequest, error)
	// Resolve moves a pending request to status, recording notes and approvedAt.
	Resolve(ctx context.Context, publicID string, status domain.WithdrawalStatus, notes string, approvedAt *time.Time) (*domain.WithdrawalRequest, error)
	List(ctx context.Context, status domain.WithdrawalStatus, limit, offset int) ([]*domain.WithdrawalRequest, error)
}

// Store bundles the ledger repositories behind one unit of work.
type Store interface {
	UnitOfWork
	Wallets() WalletRepository
	Transactions() TransactionRepository
	Withdrawals() WithdrawalRepository
}
