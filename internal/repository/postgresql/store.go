package postgresql

import (
	"database/sql"

	"walletledger/internal/port"
)

type Store struct {
	unitOfWork
	wallets      *walletRepository
	transactions *transactionRepository
	withdrawals  *withdrawalRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		unitOfWork:   unitOfWork{db: db},
		wallets:      &walletRepository{db: db},
		transactions: &transactionRepository{db: db},
		withdrawals:  &withdrawalRepository{db: db},
	}
}

func (s *Store) Wallets() port.WalletRepository { return s.wallets }

func (s *Store) Transactions() port.TransactionRepository { return s.transactions }

func (s *Store) Withdrawals() port.WithdrawalRepository { return s.withdrawals }

var _ port.Store = (*Store)(nil)
