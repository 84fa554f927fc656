package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventTransactionCreated   EventType = "transaction.created"
	EventTransactionCompleted EventType = "transaction.completed"
	EventTransactionFailed    EventType = "transaction.failed"
	EventWithdrawalApproved   EventType = "withdrawal.approved"
	EventWithdrawalRejected   EventType = "withdrawal.rejected"
)

// LedgerEvent is emitted after a unit of work commits.
type LedgerEvent struct {
	Type          EventType         `json:"type"`
	TransactionID string            `json:"transaction_id"`
	UserID        string            `json:"user_id"`
	TxType        TransactionType   `json:"transaction_type"`
	Amount        decimal.Decimal   `json:"amount"`
	Status        TransactionStatus `json:"status"`
	Balance       *decimal.Decimal  `json:"balance,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

func NewLedgerEvent(typ EventType, t *Transaction, balance *decimal.Decimal, now time.Time) LedgerEvent {
	return LedgerEvent{
		Type:          typ,
		TransactionID: t.PublicID,
		UserID:        t.UserID,
		TxType:        t.Type,
		Amount:        t.Amount,
		Status:        t.Status,
		Balance:       balance,
		OccurredAt:    now,
	}
}
