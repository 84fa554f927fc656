package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"walletledger/internal/domain"
	"walletledger/internal/port"

	"go.uber.org/zap"
)

type reconciler struct {
	ledgerUnit
	transactionRepo port.TransactionRepository
	wallet          port.WalletService
}

// NewReconciler applies gateway callbacks to pending topups. Duplicate and
// unknown callbacks are acknowledged without side effects so the gateway
// stops retrying.
func NewReconciler(
	uow port.UnitOfWork,
	transactionRepo port.TransactionRepository,
	wallet port.WalletService,
	opts ...Option,
) port.Reconciler {
	return &reconciler{
		ledgerUnit:      newLedgerUnit(uow, opts),
		transactionRepo: transactionRepo,
		wallet:          wallet,
	}
}

func (r *reconciler) Reconcile(ctx context.Context, payload map[string]any) (*domain.ReconcileResult, error) {
	publicID := stringField(payload, domain.CallbackTransactionID)
	if publicID == "" {
		r.metrics.ObserveReconcile(domain.OutcomeMalformed)
		r.logger.Warn("gateway callback without transaction id", zap.Any("payload", payload))
		return &domain.ReconcileResult{Outcome: domain.OutcomeMalformed}, domain.ErrMalformedCallback
	}

	success := strings.EqualFold(stringField(payload, domain.CallbackStatus), domain.CallbackStatusSuccess)
	gatewayRef := stringField(payload, domain.CallbackGatewayTransactionID)
	result := &domain.ReconcileResult{TransactionID: publicID}

	// The status gate runs on the locked row inside the same unit as the
	// transition, so concurrent duplicates serialize and the loser sees a
	// terminal status.
	err := r.run(ctx, func(txCtx context.Context) error {
		t, err := r.transactionRepo.GetByPublicIDForUpdate(txCtx, publicID)
		if errors.Is(err, domain.ErrNotFound) {
			result.Outcome = domain.OutcomeUnmatched
			return nil
		}
		if err != nil {
			return err
		}
		if t.IsTerminal() {
			result.Outcome = domain.OutcomeDuplicate
			return nil
		}
		if t.Type != domain.TypeTopUp {
			result.Outcome = domain.OutcomeIgnored
			return nil
		}

		metadata := map[string]any{domain.MetaGatewayCallback: domain.CopyMetadata(payload)}
		if _, err := r.transactionRepo.UpdateGateway(txCtx, publicID, gatewayRef, metadata); err != nil {
			return err
		}

		if success {
			if err := r.wallet.CompleteTopUp(txCtx, publicID); err != nil {
				return err
			}
			result.Outcome = domain.OutcomeCompleted
			return nil
		}

		failed, err := r.transactionRepo.Transition(txCtx, publicID, domain.StatusPending, domain.StatusFailed, nil)
		if err != nil {
			return err
		}
		r.emit(txCtx, domain.EventTransactionFailed, failed, nil)
		result.Outcome = domain.OutcomeFailed
		return nil
	})
	if err != nil {
		r.logger.Error("failed to reconcile gateway callback",
			zap.String("transaction_id", publicID),
			zap.Error(err))
		return nil, fmt.Errorf("reconcile %s: %w", publicID, err)
	}

	r.metrics.ObserveReconcile(result.Outcome)
	fields := []zap.Field{
		zap.String("transaction_id", publicID),
		zap.String("outcome", string(result.Outcome)),
		zap.String("gateway_transaction_id", gatewayRef),
	}
	switch result.Outcome {
	case domain.OutcomeUnmatched, domain.OutcomeIgnored:
		r.logger.Warn("gateway callback did not match a pending topup", fields...)
	case domain.OutcomeDuplicate:
		r.logger.Info("duplicate gateway callback acknowledged", fields...)
	default:
		r.logger.Info("gateway callback applied", fields...)
	}
	return result, nil
}

func stringField(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}
