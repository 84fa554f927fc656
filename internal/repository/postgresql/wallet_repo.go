package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"walletledger/internal/domain"

	"github.com/shopspring/decimal"
)

type walletRepository struct {
	db *sql.DB
}

const walletColumns = `user_id, balance, created_at, updated_at`

func scanWallet(row interface{ Scan(...any) error }) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := row.Scan(&w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *walletRepository) ensure(ctx context.Context, userID string) error {
	const query = `INSERT INTO wallets (user_id, balance) VALUES ($1, 0) ON CONFLICT (user_id) DO NOTHING`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, userID)
	return err
}

func (r *walletRepository) GetOrCreate(ctx context.Context, userID string) (*domain.Wallet, error) {
	if err := r.ensure(ctx, userID); err != nil {
		return nil, err
	}
	const query = `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return scanWallet(conn(ctx, r.db).QueryRowContext(ctx, query, userID))
}

func (r *walletRepository) Lock(ctx context.Context, userID string) (*domain.Wallet, error) {
	if err := r.ensure(ctx, userID); err != nil {
		return nil, err
	}
	const query = `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	return scanWallet(conn(ctx, r.db).QueryRowContext(ctx, query, userID))
}

func (r *walletRepository) AdjustBalance(ctx context.Context, userID string, delta decimal.Decimal) (*domain.Wallet, error) {
	if err := r.ensure(ctx, userID); err != nil {
		return nil, err
	}
	const query = `UPDATE wallets
	SET balance = balance + $2, updated_at = NOW()
	WHERE user_id = $1 AND balance + $2 >= 0
	RETURNING ` + walletColumns

	w, err := scanWallet(conn(ctx, r.db).QueryRowContext(ctx, query, userID, delta))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInsufficientFunds
	}
	return w, err
}
