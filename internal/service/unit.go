package service

import (
	"context"
	"time"

	"walletledger/internal/domain"
	"walletledger/internal/events"
	"walletledger/internal/metrics"
	"walletledger/internal/port"

	"go.uber.org/zap"
)

type Option func(*ledgerUnit)

func WithLogger(logger *zap.Logger) Option {
	return func(u *ledgerUnit) { u.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(u *ledgerUnit) { u.metrics = m }
}

func WithPublisher(p port.EventPublisher) Option {
	return func(u *ledgerUnit) { u.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(u *ledgerUnit) { u.now = now }
}

// ledgerUnit is shared by every service that mutates the ledger: it wraps
// the unit of work and defers event publishing until the outermost unit
// has committed.
type ledgerUnit struct {
	uow       port.UnitOfWork
	logger    *zap.Logger
	metrics   *metrics.Metrics
	publisher port.EventPublisher
	now       func() time.Time
}

func newLedgerUnit(uow port.UnitOfWork, opts []Option) ledgerUnit {
	u := ledgerUnit{
		uow:       uow,
		logger:    zap.NewNop(),
		publisher: events.NopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

type eventBufferKey struct{}

type eventBuffer struct {
	events []domain.LedgerEvent
}

// run executes fn atomically. A nested run joins the outer unit and its
// events are flushed by the outer one.
func (u *ledgerUnit) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(eventBufferKey{}).(*eventBuffer); ok {
		return u.uow.Within(ctx, fn)
	}

	buf := &eventBuffer{}
	if err := u.uow.Within(context.WithValue(ctx, eventBufferKey{}, buf), fn); err != nil {
		return err
	}
	u.flush(ctx, buf.events)
	return nil
}

// emit queues an event for publishing after commit.
func (u *ledgerUnit) emit(ctx context.Context, typ domain.EventType, t *domain.Transaction, wallet *domain.Wallet) {
	buf, ok := ctx.Value(eventBufferKey{}).(*eventBuffer)
	if !ok {
		return
	}
	ev := domain.NewLedgerEvent(typ, t, nil, u.now())
	if wallet != nil {
		b := wallet.Balance
		ev.Balance = &b
	}
	buf.events = append(buf.events, ev)
}

func (u *ledgerUnit) flush(ctx context.Context, evs []domain.LedgerEvent) {
	ctx = context.WithoutCancel(ctx)
	for _, ev := range evs {
		err := u.publisher.Publish(ctx, ev)
		u.metrics.ObservePublish(err)
		if err != nil {
			u.logger.Warn("failed to publish ledger event",
				zap.String("event", string(ev.Type)),
				zap.String("transaction_id", ev.TransactionID),
				zap.Error(err))
		}
	}
}
