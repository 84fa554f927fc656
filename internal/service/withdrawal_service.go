package service

import (
	"context"
	"fmt"

	"walletledger/internal/domain"
	"walletledger/internal/port"

	"go.uber.org/zap"
)

type withdrawalService struct {
	ledgerUnit
	wallets         port.WalletRepository
	transactionRepo port.TransactionRepository
	withdrawalRepo  port.WithdrawalRepository
}

func NewWithdrawalService(
	uow port.UnitOfWork,
	wallets port.WalletRepository,
	transactionRepo port.TransactionRepository,
	withdrawalRepo port.WithdrawalRepository,
	opts ...Option,
) port.WithdrawalService {
	return &withdrawalService{
		ledgerUnit:      newLedgerUnit(uow, opts),
		wallets:         wallets,
		transactionRepo: transactionRepo,
		withdrawalRepo:  withdrawalRepo,
	}
}

// lockPending locks the withdrawal transaction and its request, and checks
// that both can still be decided.
func (s *withdrawalService) lockPending(ctx context.Context, publicID string) (*domain.Transaction, *domain.WithdrawalRequest, error) {
	t, err := s.transactionRepo.GetByPublicIDForUpdate(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}
	if t.Type != domain.TypeWithdrawal {
		return nil, nil, fmt.Errorf("%w: transaction %s is a %s", domain.ErrInvalidState, publicID, t.Type)
	}

	request, err := s.withdrawalRepo.GetByTransactionForUpdate(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}
	if request.Status != domain.WithdrawalPending {
		return nil, nil, fmt.Errorf("%w: withdrawal already %s", domain.ErrInvalidState, request.Status)
	}
	return t, request, nil
}

func (s *withdrawalService) ApproveWithdrawal(ctx context.Context, publicID, notes string) (*domain.WithdrawalView, error) {
	var view domain.WithdrawalView
	err := s.run(ctx, func(txCtx context.Context) error {
		if _, _, err := s.lockPending(txCtx, publicID); err != nil {
			return err
		}

		now := s.now()
		request, err := s.withdrawalRepo.Resolve(txCtx, publicID, domain.WithdrawalApproved, notes, &now)
		if err != nil {
			return err
		}
		t, err := s.transactionRepo.Transition(txCtx, publicID, domain.StatusPending, domain.StatusCompleted, &now)
		if err != nil {
			return err
		}

		s.emit(txCtx, domain.EventWithdrawalApproved, t, nil)
		view = domain.WithdrawalView{Transaction: t, Request: request}
		return nil
	})
	s.metrics.ObserveOperation("withdrawal_approve", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal approved",
		zap.String("transaction_id", publicID),
		zap.String("user_id", view.Transaction.UserID),
		zap.String("amount", view.Transaction.Amount.StringFixed(2)))
	return &view, nil
}

func (s *withdrawalService) RejectWithdrawal(ctx context.Context, publicID, notes string) (*domain.WithdrawalView, error) {
	var view domain.WithdrawalView
	err := s.run(ctx, func(txCtx context.Context) error {
		pending, request, err := s.lockPending(txCtx, publicID)
		if err != nil {
			return err
		}

		// The funds were held at request time; rejecting releases them.
		if _, err := s.wallets.Lock(txCtx, pending.UserID); err != nil {
			return err
		}
		wallet, err := s.wallets.AdjustBalance(txCtx, pending.UserID, request.Amount)
		if err != nil {
			return err
		}

		request, err = s.withdrawalRepo.Resolve(txCtx, publicID, domain.WithdrawalRejected, notes, nil)
		if err != nil {
			return err
		}
		t, err := s.transactionRepo.Transition(txCtx, publicID, domain.StatusPending, domain.StatusFailed, nil)
		if err != nil {
			return err
		}

		s.emit(txCtx, domain.EventWithdrawalRejected, t, wallet)
		view = domain.WithdrawalView{Transaction: t, Request: request}
		return nil
	})
	s.metrics.ObserveOperation("withdrawal_reject", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal rejected and refunded",
		zap.String("transaction_id", publicID),
		zap.String("user_id", view.Transaction.UserID),
		zap.String("amount", view.Transaction.Amount.StringFixed(2)))
	return &view, nil
}

func (s *withdrawalService) GetWithdrawal(ctx context.Context, publicID string) (*domain.WithdrawalView, error) {
	request, err := s.withdrawalRepo.GetByTransaction(ctx, publicID)
	if err != nil {
		return nil, err
	}
	t, err := s.transactionRepo.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	return &domain.WithdrawalView{Transaction: t, Request: request}, nil
}

func (s *withdrawalService) ListWithdrawals(ctx context.Context, status domain.WithdrawalStatus, limit, offset int) ([]*domain.WithdrawalView, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown withdrawal status %q", domain.ErrInvalidRequest, status)
	}
	page := domain.TransactionFilter{Limit: limit, Offset: offset}.Normalize()

	requests, err := s.withdrawalRepo.List(ctx, status, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.WithdrawalView, 0, len(requests))
	for _, request := range requests {
		t, err := s.transactionRepo.GetByPublicID(ctx, request.TxPublicID)
		if err != nil {
			return nil, err
		}
		out = append(out, &domain.WithdrawalView{Transaction: t, Request: request})
	}
	return out, nil
}
