package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"walletledger/internal/domain"
)

type withdrawalRepository struct {
	db *sql.DB
}

const withdrawalColumns = `w.id, w.transaction_id, t.public_id, w.user_id, w.amount, w.bank_name, w.account_number,
	w.account_holder_name, w.status, w.admin_notes, w.approved_at, w.created_at, w.updated_at`

func scanWithdrawal(row interface{ Scan(...any) error }) (*domain.WithdrawalRequest, error) {
	var (
		w          domain.WithdrawalRequest
		notes      sql.NullString
		approvedAt sql.NullTime
	)
	err := row.Scan(
		&w.ID, &w.TransactionID, &w.TxPublicID, &w.UserID, &w.Amount, &w.Bank.BankName, &w.Bank.AccountNumber,
		&w.Bank.AccountHolderName, &w.Status, &notes, &approvedAt, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.AdminNotes = notes.String
	if approvedAt.Valid {
		at := approvedAt.Time
		w.ApprovedAt = &at
	}
	return &w, nil
}

func (r *withdrawalRepository) Create(ctx context.Context, w *domain.WithdrawalRequest) error {
	const query = `INSERT INTO withdrawal_requests (id, transaction_id, user_id, amount, bank_name, account_number,
	account_holder_name, status, admin_notes, approved_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		w.ID, w.TransactionID, w.UserID, w.Amount, w.Bank.BankName, w.Bank.AccountNumber,
		w.Bank.AccountHolderName, w.Status, nullString(w.AdminNotes), w.ApprovedAt, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "withdrawal_requests_transaction_id_key") {
			return domain.ErrDuplicateRequest
		}
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *withdrawalRepository) GetByTransaction(ctx context.Context, publicID string) (*domain.WithdrawalRequest, error) {
	const query = `SELECT ` + withdrawalColumns + `
	FROM withdrawal_requests w JOIN transactions t ON t.id = w.transaction_id
	WHERE t.public_id = $1`
	return r.getOne(ctx, query, publicID)
}

func (r *withdrawalRepository) GetByTransactionForUpdate(ctx context.Context, publicID string) (*domain.WithdrawalRequest, error) {
	const query = `SELECT ` + withdrawalColumns + `
	FROM withdrawal_requests w JOIN transactions t ON t.id = w.transaction_id
	WHERE t.public_id = $1
	FOR UPDATE OF w`
	return r.getOne(ctx, query, publicID)
}

func (r *withdrawalRepository) getOne(ctx context.Context, query, publicID string) (*domain.WithdrawalRequest, error) {
	w, err := scanWithdrawal(conn(ctx, r.db).QueryRowContext(ctx, query, publicID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWithdrawalNotFound
	}
	return w, err
}

func (r *withdrawalRepository) Resolve(ctx context.Context, publicID string, status domain.WithdrawalStatus, notes string, approvedAt *time.Time) (*domain.WithdrawalRequest, error) {
	const query = `UPDATE withdrawal_requests w
	SET status = $2, admin_notes = $3, approved_at = $4, updated_at = NOW()
	FROM transactions t
	WHERE t.id = w.transaction_id AND t.public_id = $1 AND w.status = 'pending'
	RETURNING ` + withdrawalColumns

	w, err := scanWithdrawal(conn(ctx, r.db).QueryRowContext(ctx, query, publicID, status, nullString(notes), approvedAt))
	if errors.Is(err, sql.ErrNoRows) {
		current, gerr := r.GetByTransaction(ctx, publicID)
		if gerr != nil {
			return nil, gerr
		}
		return nil, fmt.Errorf("%w: withdrawal already %s", domain.ErrInvalidState, current.Status)
	}
	return w, err
}

func (r *withdrawalRepository) List(ctx context.Context, status domain.WithdrawalStatus, limit, offset int) ([]*domain.WithdrawalRequest, error) {
	const query = `SELECT ` + withdrawalColumns + `
	FROM withdrawal_requests w JOIN transactions t ON t.id = w.transaction_id
	WHERE ($1 = '' OR w.status = $1)
	ORDER BY w.created_at DESC, w.id DESC
	LIMIT $2 OFFSET $3`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.WithdrawalRequest, 0)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
