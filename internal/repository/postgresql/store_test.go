package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"walletledger/internal/domain"
	"walletledger/internal/repository/migration"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// openTestStore connects to TEST_DATABASE_URL; the tests are skipped without it.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, migration.RunMigrations(ctx, db, zap.NewNop()))
	return NewStore(db)
}

func newUser() string {
	return "user-" + uuid.NewString()
}

func TestPostgres_WithinRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user := newUser()
	boom := errors.New("boom")
	txn := domain.NewTransaction(domain.TypeTopUp, user, decimal.NewFromInt(500), time.Now())

	err := s.Within(ctx, func(ctx context.Context) error {
		if _, err := s.Wallets().AdjustBalance(ctx, user, decimal.NewFromInt(500)); err != nil {
			return err
		}
		if err := s.Transactions().Create(ctx, txn); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	w, err := s.Wallets().GetOrCreate(ctx, user)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())

	_, err = s.Transactions().GetByPublicID(ctx, txn.PublicID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_AdjustBalanceNeverNegative(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user := newUser()

	_, err := s.Wallets().AdjustBalance(ctx, user, decimal.RequireFromString("100.50"))
	require.NoError(t, err)

	_, err = s.Wallets().AdjustBalance(ctx, user, decimal.RequireFromString("-100.51"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	w, err := s.Wallets().AdjustBalance(ctx, user, decimal.RequireFromString("-100.50"))
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
}

func TestPostgres_TransitionAndGateway(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	txn := domain.NewTransaction(domain.TypeTopUp, newUser(), decimal.NewFromInt(10000), time.Now())
	txn.Metadata = map[string]any{"source": "test"}
	require.NoError(t, s.Transactions().Create(ctx, txn))
	assert.ErrorIs(t, s.Transactions().Create(ctx, txn), domain.ErrDuplicateRequest)

	updated, err := s.Transactions().UpdateGateway(ctx, txn.PublicID, "DANA-1", map[string]any{domain.MetaPaymentURL: "https://pay.example"})
	require.NoError(t, err)
	assert.Equal(t, "DANA-1", updated.GatewayRef)
	assert.Equal(t, "test", updated.Metadata["source"])
	assert.Equal(t, "https://pay.example", updated.Metadata[domain.MetaPaymentURL])

	now := time.Now()
	done, err := s.Transactions().Transition(ctx, txn.PublicID, domain.StatusPending, domain.StatusCompleted, &now)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	_, err = s.Transactions().Transition(ctx, txn.PublicID, domain.StatusPending, domain.StatusFailed, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = s.Transactions().UpdateGateway(ctx, txn.PublicID, "DANA-2", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = s.Transactions().Transition(ctx, "TXN-NOPE", domain.StatusPending, domain.StatusFailed, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_WithdrawalLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user := newUser()
	txn := domain.NewTransaction(domain.TypeWithdrawal, user, decimal.NewFromInt(50000), time.Now())
	require.NoError(t, s.Transactions().Create(ctx, txn))

	request := &domain.WithdrawalRequest{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		UserID:        user,
		Amount:        txn.Amount,
		Bank:          domain.BankDetails{BankName: "BCA", AccountNumber: "1234567890", AccountHolderName: "John Doe"},
		Status:        domain.WithdrawalPending,
		CreatedAt:     txn.CreatedAt,
		UpdatedAt:     txn.CreatedAt,
	}
	require.NoError(t, s.Withdrawals().Create(ctx, request))

	got, err := s.Withdrawals().GetByTransaction(ctx, txn.PublicID)
	require.NoError(t, err)
	assert.Equal(t, txn.PublicID, got.TxPublicID)
	assert.Equal(t, request.Bank, got.Bank)

	now := time.Now()
	approved, err := s.Withdrawals().Resolve(ctx, txn.PublicID, domain.WithdrawalApproved, "sent", &now)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)

	_, err = s.Withdrawals().Resolve(ctx, txn.PublicID, domain.WithdrawalRejected, "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = s.Withdrawals().GetByTransaction(ctx, "TXN-NOPE")
	assert.ErrorIs(t, err, domain.ErrWithdrawalNotFound)

	orphan := *request
	orphan.ID = uuid.New()
	orphan.TransactionID = uuid.New()
	assert.ErrorIs(t, s.Withdrawals().Create(ctx, &orphan), domain.ErrNotFound)
}

func TestPostgres_ConcurrentDebitsSerialize(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user := newUser()
	_, err := s.Wallets().AdjustBalance(ctx, user, decimal.NewFromInt(100))
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Within(ctx, func(ctx context.Context) error {
				w, err := s.Wallets().Lock(ctx, user)
				if err != nil {
					return err
				}
				if w.Balance.LessThan(decimal.NewFromInt(30)) {
					return domain.ErrInsufficientFunds
				}
				_, err = s.Wallets().AdjustBalance(ctx, user, decimal.NewFromInt(-30))
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	w, err := s.Wallets().GetOrCreate(ctx, user)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(w.Balance))
}
