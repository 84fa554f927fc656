package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Wallet struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Transaction struct {
	ID          uuid.UUID         `json:"-"`
	PublicID    string            `json:"transaction_id"`
	UserID      string            `json:"user_id"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      TransactionStatus `json:"status"`
	Gateway     string            `json:"gateway,omitempty"`
	GatewayRef  string            `json:"gateway_transaction_id,omitempty"`
	MerchantID  *int64            `json:"merchant_id,omitempty"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// IsTerminal reports whether the transaction can no longer change.
func (t *Transaction) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// Clone returns a deep copy, so stores can hand out values without sharing
// the metadata map or the completion timestamp.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.MerchantID != nil {
		id := *t.MerchantID
		c.MerchantID = &id
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	c.Metadata = CopyMetadata(t.Metadata)
	return &c
}

type BankDetails struct {
	BankName          string `json:"bank_name" validate:"required,max=100"`
	AccountNumber     string `json:"account_number" validate:"required,max=50"`
	AccountHolderName string `json:"account_holder_name" validate:"required,max=100"`
}

type WithdrawalRequest struct {
	ID            uuid.UUID        `json:"id"`
	TransactionID uuid.UUID        `json:"-"`
	TxPublicID    string           `json:"transaction_id"`
	UserID        string           `json:"user_id"`
	Amount        decimal.Decimal  `json:"amount"`
	Bank          BankDetails      `json:"bank"`
	Status        WithdrawalStatus `json:"status"`
	AdminNotes    string           `json:"admin_notes,omitempty"`
	ApprovedAt    *time.Time       `json:"approved_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (w *WithdrawalRequest) Clone() *WithdrawalRequest {
	c := *w
	if w.ApprovedAt != nil {
		at := *w.ApprovedAt
		c.ApprovedAt = &at
	}
	return &c
}

// WithdrawalView joins a withdrawal request with its transaction for the
// admin surface.
type WithdrawalView struct {
	Transaction *Transaction       `json:"transaction"`
	Request     *WithdrawalRequest `json:"request"`
}

type TransactionFilter struct {
	Type   TransactionType
	Status TransactionStatus
	Limit  int
	Offset int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps paging to sane bounds.
func (f TransactionFilter) Normalize() TransactionFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func CopyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MergeMetadata returns base with patch applied on top; neither input is modified.
func MergeMetadata(base, patch map[string]any) map[string]any {
	out := CopyMetadata(base)
	if out == nil {
		out = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
