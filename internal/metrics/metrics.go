package metrics

import (
	"errors"

	"walletledger/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	reconcileOutcomes *prometheus.CounterVec
	operationsTotal   *prometheus.CounterVec
	eventPublishTotal *prometheus.CounterVec
}

// New registers the ledger collectors on reg. Tests pass a fresh
// prometheus.NewRegistry so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		reconcileOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wallet_ledger",
				Subsystem: "reconciler",
				Name:      "outcomes_total",
				Help:      "Gateway callbacks processed, partitioned by outcome.",
			},
			[]string{"outcome"},
		),
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wallet_ledger",
				Subsystem: "wallet",
				Name:      "operations_total",
				Help:      "Wallet operations partitioned by operation and result.",
			},
			[]string{"operation", "result"},
		),
		eventPublishTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wallet_ledger",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Ledger events handed to the publisher, partitioned by result.",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) ObserveReconcile(outcome domain.ReconcileOutcome) {
	if m == nil {
		return
	}
	m.reconcileOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, Result(err)).Inc()
}

func (m *Metrics) ObservePublish(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.eventPublishTotal.WithLabelValues(result).Inc()
}

// Result maps an operation error onto a bounded label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_state"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrWithdrawalNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return "gateway_unavailable"
	default:
		return "error"
	}
}
