package domain

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeTopUp      TransactionType = "topup"
	TypePayment    TransactionType = "payment"
	TypeWithdrawal TransactionType = "withdrawal"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeTopUp, TypePayment, TypeWithdrawal:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalPending, WithdrawalApproved, WithdrawalRejected:
		return true
	}
	return false
}

// transitions lists every allowed move. Only pending has successors.
var transitions = map[TransactionStatus][]TransactionStatus{
	StatusPending: {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to TransactionStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateAmount enforces a strictly positive amount with at most two
// decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	if !amount.Equal(amount.Truncate(2)) {
		return fmt.Errorf("%w: at most two decimal places", ErrInvalidAmount)
	}
	return nil
}

const publicIDPrefix = "TXN-"

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewPublicID returns an opaque transaction identifier: a fixed prefix and a
// ULID, i.e. a millisecond timestamp followed by monotonic random bits.
func NewPublicID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return publicIDPrefix + id.String()
}

// NewTransaction builds a transaction in its initial state for the given type.
// Payments start completed; everything else starts pending.
func NewTransaction(typ TransactionType, userID string, amount decimal.Decimal, now time.Time) *Transaction {
	t := &Transaction{
		ID:        uuid.New(),
		PublicID:  NewPublicID(),
		UserID:    userID,
		Type:      typ,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if typ == TypePayment {
		t.Status = StatusCompleted
		at := now
		t.CompletedAt = &at
	}
	return t
}
