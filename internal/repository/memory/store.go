// Package memory is an in-process ledger store. Units of work are serialized
// by a single mutex and rolled back by restoring a snapshot, which gives the
// same all-or-nothing guarantees as the postgres store without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"walletledger/internal/domain"
	"walletledger/internal/port"
)

type ctxtype string

const txKey ctxtype = "memory-tx"

type state struct {
	wallets     map[string]*domain.Wallet
	txns        map[string]*domain.Transaction
	withdrawals map[string]*domain.WithdrawalRequest
	seq         map[string]int
	next        int
}

func newState() state {
	return state{
		wallets:     make(map[string]*domain.Wallet),
		txns:        make(map[string]*domain.Transaction),
		withdrawals: make(map[string]*domain.WithdrawalRequest),
		seq:         make(map[string]int),
	}
}

func (s state) clone() state {
	c := newState()
	for k, w := range s.wallets {
		cw := *w
		c.wallets[k] = &cw
	}
	for k, t := range s.txns {
		c.txns[k] = t.Clone()
	}
	for k, w := range s.withdrawals {
		c.withdrawals[k] = w.Clone()
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	c.next = s.next
	return c
}

type Store struct {
	mu  sync.Mutex
	st  state
	now func() time.Time

	wallets      *walletRepository
	transactions *transactionRepository
	withdrawals  *withdrawalRepository
}

func NewStore() *Store {
	s := &Store{st: newState(), now: time.Now}
	s.wallets = &walletRepository{s: s}
	s.transactions = &transactionRepository{s: s}
	s.withdrawals = &withdrawalRepository{s: s}
	return s
}

func (s *Store) Wallets() port.WalletRepository { return s.wallets }

func (s *Store) Transactions() port.TransactionRepository { return s.transactions }

func (s *Store) Withdrawals() port.WithdrawalRepository { return s.withdrawals }

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st = snapshot
			panic(p)
		}
		if err != nil {
			s.st = snapshot
		}
	}()

	return fn(context.WithValue(ctx, txKey, true))
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey).(bool)
	return v
}

// read runs fn under the store lock unless ctx already holds it.
func (s *Store) read(ctx context.Context, fn func() error) error {
	if inTx(ctx) {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// write runs fn as its own unit of work unless ctx already carries one.
func (s *Store) write(ctx context.Context, fn func() error) error {
	return s.Within(ctx, func(context.Context) error { return fn() })
}

// TransactionCount returns how many transactions are stored.
func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.txns)
}

// WithdrawalCount returns how many withdrawal requests are stored.
func (s *Store) WithdrawalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.withdrawals)
}

func (s *Store) sortedTxns(keep func(*domain.Transaction) bool) []*domain.Transaction {
	out := make([]*domain.Transaction, 0)
	for _, t := range s.st.txns {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.st.seq[out[i].PublicID] > s.st.seq[out[j].PublicID]
	})
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

var _ port.Store = (*Store)(nil)
