package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"walletledger/internal/domain"
)

type transactionRepository struct {
	db *sql.DB
}

const transactionColumns = `id, public_id, user_id, type, amount, status, gateway, gateway_ref,
	merchant_id, description, metadata, completed_at, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (*domain.Transaction, error) {
	var (
		t           domain.Transaction
		gateway     sql.NullString
		gatewayRef  sql.NullString
		merchantID  sql.NullInt64
		description sql.NullString
		metadata    []byte
		completedAt sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.PublicID, &t.UserID, &t.Type, &t.Amount, &t.Status, &gateway, &gatewayRef,
		&merchantID, &description, &metadata, &completedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Gateway = gateway.String
	t.GatewayRef = gatewayRef.String
	t.Description = description.String
	if merchantID.Valid {
		id := merchantID.Int64
		t.MerchantID = &id
	}
	if completedAt.Valid {
		at := completedAt.Time
		t.CompletedAt = &at
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &t, nil
}

func encodeMetadata(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *transactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	const query = `INSERT INTO transactions (id, public_id, user_id, type, amount, status, gateway, gateway_ref,
	merchant_id, description, metadata, completed_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	metadata, err := encodeMetadata(t.Metadata)
	if err != nil {
		return err
	}

	_, err = conn(ctx, r.db).ExecContext(ctx, query,
		t.ID, t.PublicID, t.UserID, t.Type, t.Amount, t.Status, nullString(t.Gateway), nullString(t.GatewayRef),
		t.MerchantID, nullString(t.Description), metadata, t.CompletedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "transactions_public_id_key") {
			return domain.ErrDuplicateRequest
		}
		return err
	}
	return nil
}

func (r *transactionRepository) GetByPublicID(ctx context.Context, publicID string) (*domain.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE public_id = $1`
	return r.getOne(ctx, query, publicID)
}

func (r *transactionRepository) GetByPublicIDForUpdate(ctx context.Context, publicID string) (*domain.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE public_id = $1 FOR UPDATE`
	return r.getOne(ctx, query, publicID)
}

func (r *transactionRepository) getOne(ctx context.Context, query, publicID string) (*domain.Transaction, error) {
	t, err := scanTransaction(conn(ctx, r.db).QueryRowContext(ctx, query, publicID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

func (r *transactionRepository) Transition(ctx context.Context, publicID string, from, to domain.TransactionStatus, completedAt *time.Time) (*domain.Transaction, error) {
	if !domain.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}

	const query = `UPDATE transactions
	SET status = $3, completed_at = COALESCE($4, completed_at), updated_at = NOW()
	WHERE public_id = $1 AND status = $2
	RETURNING ` + transactionColumns

	t, err := scanTransaction(conn(ctx, r.db).QueryRowContext(ctx, query, publicID, from, to, completedAt))
	if errors.Is(err, sql.ErrNoRows) {
		current, gerr := r.GetByPublicID(ctx, publicID)
		if gerr != nil {
			return nil, gerr
		}
		return nil, fmt.Errorf("%w: status is %s, expected %s", domain.ErrInvalidTransition, current.Status, from)
	}
	return t, err
}

func (r *transactionRepository) UpdateGateway(ctx context.Context, publicID, gatewayRef string, metadata map[string]any) (*domain.Transaction, error) {
	patch, err := encodeMetadata(metadata)
	if err != nil {
		return nil, err
	}
	if patch == nil {
		patch = "{}"
	}

	const query = `UPDATE transactions
	SET gateway_ref = COALESCE(NULLIF($2, ''), gateway_ref),
		metadata = COALESCE(metadata, '{}'::jsonb) || $3::jsonb,
		updated_at = NOW()
	WHERE public_id = $1 AND status = 'pending'
	RETURNING ` + transactionColumns

	t, err := scanTransaction(conn(ctx, r.db).QueryRowContext(ctx, query, publicID, gatewayRef, patch))
	if errors.Is(err, sql.ErrNoRows) {
		if _, gerr := r.GetByPublicID(ctx, publicID); gerr != nil {
			return nil, gerr
		}
		return nil, fmt.Errorf("%w: transaction %s is not pending", domain.ErrInvalidState, publicID)
	}
	return t, err
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	filter = filter.Normalize()

	var (
		where = []string{"user_id = $1"}
		args  = []any{userID}
	)
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
