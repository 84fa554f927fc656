package domain

import "github.com/shopspring/decimal"

type GatewayPaymentRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	Description   string
}

// GatewayPayment is what the gateway hands back when a payment is created.
type GatewayPayment struct {
	GatewayRef string
	PaymentURL string
	Response   map[string]any
}

// Callback payload keys sent by the gateway webhook.
const (
	CallbackTransactionID        = "transactionId"
	CallbackStatus               = "status"
	CallbackGatewayTransactionID = "gatewayTransactionId"

	CallbackStatusSuccess = "success"
)

// Metadata keys written onto transactions.
const (
	MetaPaymentURL      = "payment_url"
	MetaGatewayResponse = "gateway_response"
	MetaGatewayCallback = "gateway_callback"
)

type ReconcileOutcome string

const (
	OutcomeCompleted ReconcileOutcome = "completed"
	OutcomeFailed    ReconcileOutcome = "failed"
	OutcomeDuplicate ReconcileOutcome = "duplicate"
	OutcomeUnmatched ReconcileOutcome = "unmatched"
	OutcomeIgnored   ReconcileOutcome = "ignored"
	OutcomeMalformed ReconcileOutcome = "malformed"
)

// ReconcileResult always means the callback was acknowledged; Outcome says
// what, if anything, was applied.
type ReconcileResult struct {
	TransactionID string           `json:"transaction_id,omitempty"`
	Outcome       ReconcileOutcome `json:"outcome"`
}

// Matched reports whether the callback referred to a known transaction.
func (r *ReconcileResult) Matched() bool {
	return r.Outcome != OutcomeUnmatched && r.Outcome != OutcomeMalformed
}
