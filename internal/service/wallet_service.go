package service

import (
	"context"
	"fmt"
	"strings"

	"walletledger/internal/domain"
	"walletledger/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultTopUpDescription      = "Wallet Top-up"
	defaultPaymentDescription    = "Payment to merchant"
	defaultWithdrawalDescription = "Withdrawal request"
)

type walletService struct {
	ledgerUnit
	wallets         port.WalletRepository
	transactionRepo port.TransactionRepository
	withdrawalRepo  port.WithdrawalRepository
	gatewayName     string
}

func NewWalletService(
	uow port.UnitOfWork,
	wallets port.WalletRepository,
	transactionRepo port.TransactionRepository,
	withdrawalRepo port.WithdrawalRepository,
	gatewayName string,
	opts ...Option,
) port.WalletService {
	return &walletService{
		ledgerUnit:      newLedgerUnit(uow, opts),
		wallets:         wallets,
		transactionRepo: transactionRepo,
		withdrawalRepo:  withdrawalRepo,
		gatewayName:     gatewayName,
	}
}

func (s *walletService) GetWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	return s.wallets.GetOrCreate(ctx, userID)
}

func (s *walletService) InitiateTopUp(ctx context.Context, userID string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	t, err := s.initiateTopUp(ctx, userID, amount, description)
	s.metrics.ObserveOperation("topup_initiate", err)
	return t, err
}

func (s *walletService) initiateTopUp(ctx context.Context, userID string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	t := domain.NewTransaction(domain.TypeTopUp, userID, amount, s.now())
	t.Gateway = s.gatewayName
	t.Description = orDefault(description, defaultTopUpDescription)

	err := s.run(ctx, func(txCtx context.Context) error {
		if err := s.transactionRepo.Create(txCtx, t); err != nil {
			return err
		}
		s.emit(txCtx, domain.EventTransactionCreated, t, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("topup initiated",
		zap.String("transaction_id", t.PublicID),
		zap.String("user_id", userID),
		zap.String("amount", amount.StringFixed(2)))
	return t, nil
}

func (s *walletService) CompleteTopUp(ctx context.Context, publicID string) error {
	err := s.run(ctx, func(txCtx context.Context) error {
		t, err := s.transactionRepo.GetByPublicIDForUpdate(txCtx, publicID)
		if err != nil {
			return err
		}
		if t.Type != domain.TypeTopUp || t.Status != domain.StatusPending {
			return fmt.Errorf("%w: %s transaction %s is %s", domain.ErrInvalidState, t.Type, publicID, t.Status)
		}

		now := s.now()
		completed, err := s.transactionRepo.Transition(txCtx, publicID, domain.StatusPending, domain.StatusCompleted, &now)
		if err != nil {
			return err
		}

		wallet, err := s.wallets.AdjustBalance(txCtx, t.UserID, t.Amount)
		if err != nil {
			return err
		}

		s.emit(txCtx, domain.EventTransactionCompleted, completed, wallet)
		s.logger.Info("topup completed",
			zap.String("transaction_id", publicID),
			zap.String("user_id", t.UserID),
			zap.String("amount", t.Amount.StringFixed(2)),
			zap.String("balance", wallet.Balance.StringFixed(2)))
		return nil
	})
	s.metrics.ObserveOperation("topup_complete", err)
	return err
}

func (s *walletService) ExecutePayment(ctx context.Context, userID string, amount decimal.Decimal, merchantID int64, description string) (*domain.Transaction, error) {
	t, err := s.executePayment(ctx, userID, amount, merchantID, description)
	s.metrics.ObserveOperation("payment", err)
	return t, err
}

func (s *walletService) executePayment(ctx context.Context, userID string, amount decimal.Decimal, merchantID int64, description string) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	var t *domain.Transaction
	err := s.run(ctx, func(txCtx context.Context) error {
		wallet, err := s.wallets.Lock(txCtx, userID)
		if err != nil {
			return err
		}
		if wallet.Balance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}

		wallet, err = s.wallets.AdjustBalance(txCtx, userID, amount.Neg())
		if err != nil {
			return err
		}

		t = domain.NewTransaction(domain.TypePayment, userID, amount, s.now())
		t.MerchantID = &merchantID
		t.Description = orDefault(description, defaultPaymentDescription)
		if err := s.transactionRepo.Create(txCtx, t); err != nil {
			return err
		}

		s.emit(txCtx, domain.EventTransactionCompleted, t, wallet)
		return nil
	})
	if err != nil {
		s.logger.Info("payment rejected",
			zap.String("user_id", userID),
			zap.Int64("merchant_id", merchantID),
			zap.String("amount", amount.StringFixed(2)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("payment completed",
		zap.String("transaction_id", t.PublicID),
		zap.String("user_id", userID),
		zap.Int64("merchant_id", merchantID),
		zap.String("amount", amount.StringFixed(2)))
	return t, nil
}

func (s *walletService) RequestWithdrawal(ctx context.Context, userID string, amount decimal.Decimal, bank domain.BankDetails) (*domain.Transaction, error) {
	t, err := s.requestWithdrawal(ctx, userID, amount, bank)
	s.metrics.ObserveOperation("withdrawal_request", err)
	return t, err
}

func (s *walletService) requestWithdrawal(ctx context.Context, userID string, amount decimal.Decimal, bank domain.BankDetails) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if strings.TrimSpace(bank.BankName) == "" || strings.TrimSpace(bank.AccountNumber) == "" || strings.TrimSpace(bank.AccountHolderName) == "" {
		return nil, fmt.Errorf("%w: bank details are incomplete", domain.ErrInvalidRequest)
	}

	var t *domain.Transaction
	err := s.run(ctx, func(txCtx context.Context) error {
		wallet, err := s.wallets.Lock(txCtx, userID)
		if err != nil {
			return err
		}
		if wallet.Balance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}

		wallet, err = s.wallets.AdjustBalance(txCtx, userID, amount.Neg())
		if err != nil {
			return err
		}

		now := s.now()
		t = domain.NewTransaction(domain.TypeWithdrawal, userID, amount, now)
		t.Description = defaultWithdrawalDescription
		if err := s.transactionRepo.Create(txCtx, t); err != nil {
			return err
		}

		request := &domain.WithdrawalRequest{
			ID:            uuid.New(),
			TransactionID: t.ID,
			TxPublicID:    t.PublicID,
			UserID:        userID,
			Amount:        amount,
			Bank:          bank,
			Status:        domain.WithdrawalPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.withdrawalRepo.Create(txCtx, request); err != nil {
			return err
		}

		s.emit(txCtx, domain.EventTransactionCreated, t, wallet)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal requested",
		zap.String("transaction_id", t.PublicID),
		zap.String("user_id", userID),
		zap.String("amount", amount.StringFixed(2)))
	return t, nil
}

func (s *walletService) AttachGatewayPayment(ctx context.Context, publicID string, payment *domain.GatewayPayment) (*domain.Transaction, error) {
	if payment == nil {
		return nil, fmt.Errorf("%w: gateway payment is required", domain.ErrInvalidRequest)
	}

	var updated *domain.Transaction
	err := s.run(ctx, func(txCtx context.Context) error {
		t, err := s.transactionRepo.GetByPublicIDForUpdate(txCtx, publicID)
		if err != nil {
			return err
		}
		if t.Type != domain.TypeTopUp {
			return fmt.Errorf("%w: %s transaction %s has no gateway payment", domain.ErrInvalidState, t.Type, publicID)
		}

		metadata := map[string]any{}
		if payment.PaymentURL != "" {
			metadata[domain.MetaPaymentURL] = payment.PaymentURL
		}
		if payment.Response != nil {
			metadata[domain.MetaGatewayResponse] = payment.Response
		}

		updated, err = s.transactionRepo.UpdateGateway(txCtx, publicID, payment.GatewayRef, metadata)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *walletService) GetTransaction(ctx context.Context, userID, publicID string) (*domain.Transaction, error) {
	t, err := s.transactionRepo.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (s *walletService) ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidRequest, filter.Type)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction status %q", domain.ErrInvalidRequest, filter.Status)
	}
	return s.transactionRepo.ListByUser(ctx, userID, filter.Normalize())
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
