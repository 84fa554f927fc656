package memory

import (
	"context"
	"fmt"
	"time"

	"walletledger/internal/domain"

	"github.com/shopspring/decimal"
)

type walletRepository struct {
	s *Store
}

func (r *walletRepository) ensure(userID string) *domain.Wallet {
	w, ok := r.s.st.wallets[userID]
	if !ok {
		now := r.s.now()
		w = &domain.Wallet{UserID: userID, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}
		r.s.st.wallets[userID] = w
	}
	return w
}

func (r *walletRepository) GetOrCreate(ctx context.Context, userID string) (*domain.Wallet, error) {
	var out domain.Wallet
	err := r.s.write(ctx, func() error {
		out = *r.ensure(userID)
		return nil
	})
	return &out, err
}

// Lock is GetOrCreate: holding the store mutex already excludes every other
// unit of work.
func (r *walletRepository) Lock(ctx context.Context, userID string) (*domain.Wallet, error) {
	return r.GetOrCreate(ctx, userID)
}

func (r *walletRepository) AdjustBalance(ctx context.Context, userID string, delta decimal.Decimal) (*domain.Wallet, error) {
	var out domain.Wallet
	err := r.s.write(ctx, func() error {
		w := r.ensure(userID)
		next := w.Balance.Add(delta)
		if next.IsNegative() {
			return domain.ErrInsufficientFunds
		}
		w.Balance = next
		w.UpdatedAt = r.s.now()
		out = *w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type transactionRepository struct {
	s *Store
}

func (r *transactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.st.txns[t.PublicID]; ok {
			return domain.ErrDuplicateRequest
		}
		r.s.st.next++
		r.s.st.seq[t.PublicID] = r.s.st.next
		r.s.st.txns[t.PublicID] = t.Clone()
		return nil
	})
}

func (r *transactionRepository) GetByPublicID(ctx context.Context, publicID string) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.s.read(ctx, func() error {
		t, ok := r.s.st.txns[publicID]
		if !ok {
			return domain.ErrNotFound
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r *transactionRepository) GetByPublicIDForUpdate(ctx context.Context, publicID string) (*domain.Transaction, error) {
	return r.GetByPublicID(ctx, publicID)
}

func (r *transactionRepository) Transition(ctx context.Context, publicID string, from, to domain.TransactionStatus, completedAt *time.Time) (*domain.Transaction, error) {
	if !domain.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	var out *domain.Transaction
	err := r.s.write(ctx, func() error {
		t, ok := r.s.st.txns[publicID]
		if !ok {
			return domain.ErrNotFound
		}
		if t.Status != from {
			return fmt.Errorf("%w: status is %s, expected %s", domain.ErrInvalidTransition, t.Status, from)
		}
		t.Status = to
		if completedAt != nil {
			at := *completedAt
			t.CompletedAt = &at
		}
		t.UpdatedAt = r.s.now()
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r *transactionRepository) UpdateGateway(ctx context.Context, publicID, gatewayRef string, metadata map[string]any) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.s.write(ctx, func() error {
		t, ok := r.s.st.txns[publicID]
		if !ok {
			return domain.ErrNotFound
		}
		if t.Status != domain.StatusPending {
			return fmt.Errorf("%w: transaction %s is not pending", domain.ErrInvalidState, publicID)
		}
		if gatewayRef != "" {
			t.GatewayRef = gatewayRef
		}
		t.Metadata = domain.MergeMetadata(t.Metadata, metadata)
		t.UpdatedAt = r.s.now()
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	filter = filter.Normalize()
	var out []*domain.Transaction
	err := r.s.read(ctx, func() error {
		matched := r.s.sortedTxns(func(t *domain.Transaction) bool {
			return t.UserID == userID &&
				(filter.Type == "" || t.Type == filter.Type) &&
				(filter.Status == "" || t.Status == filter.Status)
		})
		for _, t := range page(matched, filter.Limit, filter.Offset) {
			out = append(out, t.Clone())
		}
		return nil
	})
	if out == nil {
		out = []*domain.Transaction{}
	}
	return out, err
}

type withdrawalRepository struct {
	s *Store
}

func (r *withdrawalRepository) Create(ctx context.Context, w *domain.WithdrawalRequest) error {
	return r.s.write(ctx, func() error {
		var linked *domain.Transaction
		for _, t := range r.s.st.txns {
			if t.ID == w.TransactionID {
				linked = t
				break
			}
		}
		if linked == nil {
			return domain.ErrNotFound
		}
		if _, ok := r.s.st.withdrawals[linked.PublicID]; ok {
			return domain.ErrDuplicateRequest
		}
		c := w.Clone()
		c.TxPublicID = linked.PublicID
		r.s.st.withdrawals[linked.PublicID] = c
		return nil
	})
}

func (r *withdrawalRepository) GetByTransaction(ctx context.Context, publicID string) (*domain.WithdrawalRequest, error) {
	var out *domain.WithdrawalRequest
	err := r.s.read(ctx, func() error {
		w, ok := r.s.st.withdrawals[publicID]
		if !ok {
			return domain.ErrWithdrawalNotFound
		}
		out = w.Clone()
		return nil
	})
	return out, err
}

func (r *withdrawalRepository) GetByTransactionForUpdate(ctx context.Context, publicID string) (*domain.WithdrawalRequest, error) {
	return r.GetByTransaction(ctx, publicID)
}

func (r *withdrawalRepository) Resolve(ctx context.Context, publicID string, status domain.WithdrawalStatus, notes string, approvedAt *time.Time) (*domain.WithdrawalRequest, error) {
	var out *domain.WithdrawalRequest
	err := r.s.write(ctx, func() error {
		w, ok := r.s.st.withdrawals[publicID]
		if !ok {
			return domain.ErrWithdrawalNotFound
		}
		if w.Status != domain.WithdrawalPending {
			return fmt.Errorf("%w: withdrawal already %s", domain.ErrInvalidState, w.Status)
		}
		w.Status = status
		w.AdminNotes = notes
		if approvedAt != nil {
			at := *approvedAt
			w.ApprovedAt = &at
		}
		w.UpdatedAt = r.s.now()
		out = w.Clone()
		return nil
	})
	return out, err
}

func (r *withdrawalRepository) List(ctx context.Context, status domain.WithdrawalStatus, limit, offset int) ([]*domain.WithdrawalRequest, error) {
	out := []*domain.WithdrawalRequest{}
	err := r.s.read(ctx, func() error {
		txns := r.s.sortedTxns(func(t *domain.Transaction) bool {
			w, ok := r.s.st.withdrawals[t.PublicID]
			return ok && (status == "" || w.Status == status)
		})
		for _, t := range page(txns, limit, offset) {
			out = append(out, r.s.st.withdrawals[t.PublicID].Clone())
		}
		return nil
	})
	return out, err
}
