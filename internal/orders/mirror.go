package orders

import (
	"context"

	"github.com/buildtall-systems/orderlife/internal/db"
	"github.com/buildtall-systems/orderlife/internal/metrics"
	"github.com/buildtall-systems/orderlife/internal/status"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// MirrorResult reports how a counterparty write settled.
type MirrorResult struct {
	Ref     db.Ref
	Skipped bool
	Reason  string
	Err     error
}

// Mirrorer copies status changes into the counterparty's collection in the
// background. A failed mirror write is logged and counted but never fails
// the primary write that triggered it.
type Mirrorer struct {
	store   Store
	layout  Layout
	logger  *zap.Logger
	metrics *metrics.Metrics
	wg      conc.WaitGroup
}

func NewMirrorer(store Store, layout Layout, logger *zap.Logger, m *metrics.Metrics) *Mirrorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirrorer{store: store, layout: layout, logger: logger, metrics: m}
}

// Dispatch starts a merge write of data into the counterparty's copy of the
// order. current is the primary document as last read, used to resolve the
// counterparty and detect passive orders; when nil it is read first. The
// write outlives ctx cancellation. The returned channel yields one result
// and closes.
func (m *Mirrorer) Dispatch(ctx context.Context, ref OrderRef, data db.Document, current db.Document) <-chan MirrorResult {
	out := make(chan MirrorResult, 1)
	ctx = context.WithoutCancel(ctx)
	m.wg.Go(func() {
		defer close(out)
		out <- m.write(ctx, ref, data, current)
	})
	return out
}

// Wait blocks until every dispatched write has settled.
func (m *Mirrorer) Wait() {
	if r := m.wg.WaitAndRecover(); r != nil {
		m.logger.Error("mirror task panicked", zap.String("panic", r.String()))
	}
}

func (m *Mirrorer) write(ctx context.Context, ref OrderRef, data db.Document, current db.Document) MirrorResult {
	log := m.logger.With(zap.String("order_id", ref.OrderID), zap.String("owner", ref.OwnerID))

	if current == nil {
		doc, err := m.store.Get(ctx, m.layout.OrderDoc(ref))
		if err != nil {
			log.Warn("mirror skipped: reading order failed", zap.Error(err))
			m.metrics.Mirror(metrics.OutcomeFailed)
			return MirrorResult{Err: err}
		}
		current = doc
	}

	if status.IsPassive(recordOf(current)) {
		return m.skip(log, "passive order")
	}
	counterparty := ref.CounterpartyID
	if counterparty == "" {
		counterparty = counterpartyOf(current)
	}
	if counterparty == "" {
		return m.skip(log, "no counterparty")
	}

	target := m.layout.MirrorDoc(counterparty, ref.OrderID)
	if err := m.store.Set(ctx, target, data, db.SetOptions{Merge: true}); err != nil {
		log.Warn("mirror write failed",
			zap.String("target", target.Path()),
			zap.Error(err))
		m.metrics.Mirror(metrics.OutcomeFailed)
		return MirrorResult{Ref: target, Err: err}
	}

	log.Debug("mirror written", zap.String("target", target.Path()))
	m.metrics.Mirror(metrics.OutcomeOK)
	return MirrorResult{Ref: target}
}

func (m *Mirrorer) skip(log *zap.Logger, reason string) MirrorResult {
	log.Debug("mirror skipped", zap.String("reason", reason))
	m.metrics.Mirror(metrics.OutcomeSkipped)
	return MirrorResult{Skipped: true, Reason: reason}
}

// settled returns a channel already holding res.
func settled(res MirrorResult) <-chan MirrorResult {
	out := make(chan MirrorResult, 1)
	out <- res
	close(out)
	return out
}
