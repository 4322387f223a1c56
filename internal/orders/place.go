package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/buildtall-systems/orderlife/internal/db"
	"github.com/buildtall-systems/orderlife/internal/metrics"
	"github.com/buildtall-systems/orderlife/internal/status"
	"go.uber.org/zap"
)

// PlaceOrder creates an order in REQUESTED and mirrors it to the placing
// business. A missing OrderID is generated.
func (e *Executor) PlaceOrder(ctx context.Context, req PlaceRequest) (*TransitionResult, error) {
	ref := req.Ref
	if strings.TrimSpace(ref.OrderID) == "" {
		ref.OrderID = e.newID()
	}
	missing := ref.missing()
	if len(req.Items) == 0 {
		missing = append(missing, "items")
	}
	if len(missing) > 0 {
		e.metrics.Transition(string(status.Requested), metrics.OutcomeRejected)
		return nil, &MissingFieldError{Fields: missing}
	}

	log := e.logger.With(
		zap.String("order_id", ref.OrderID),
		zap.String("owner", ref.OwnerID))

	data := db.Document(e.basePatch(req.Extra, log))
	data["orderId"] = ref.OrderID
	data["ownerId"] = ref.OwnerID
	data["items"] = req.Items
	data["linesTotal"] = linesTotal(req.Items)
	if ref.CounterpartyID != "" {
		data["retailerId"] = ref.CounterpartyID
	}
	if v := strings.TrimSpace(req.RetailerMode); v != "" {
		data["retailerMode"] = v
	}
	if req.PaymentMode != nil {
		e.setPayment(db.Patch(data), req.PaymentMode)
	}
	data["statusCode"] = string(status.Requested)
	data["status"] = status.Label(status.Requested)
	data["statusTimestamps"] = map[string]any{
		status.TimestampField(status.Requested): db.ServerTimestamp(),
	}
	data["createdAt"] = db.ServerTimestamp()
	data["updatedAt"] = db.ServerTimestamp()
	data["auditTrail"] = db.ArrayUnion(AuditEntry{
		ID:     e.newID(),
		Action: "placeOrder",
		Status: string(status.Requested),
		By:     req.Actor,
		At:     e.now().UTC(),
		Items:  len(req.Items),
	})

	if err := e.store.Create(ctx, e.layout.OrderDoc(ref), data); err != nil {
		if errors.Is(err, db.ErrDocumentExists) {
			err = ErrOrderExists
		}
		e.metrics.Transition(string(status.Requested), metrics.OutcomeFailed)
		log.Error("creating order failed", zap.Error(err))
		return nil, &PersistenceError{Op: "create", Err: err}
	}

	mirrorDoc := make(db.Document, len(data))
	for k, v := range data {
		if k == "auditTrail" {
			continue
		}
		mirrorDoc[k] = v
	}
	mirrored := e.mirror.Dispatch(ctx, ref, mirrorDoc, data)

	e.metrics.Transition(string(status.Requested), metrics.OutcomeOK)
	log.Info("order placed",
		zap.Int("items", len(req.Items)),
		zap.String("actor", req.Actor.ID))

	return &TransitionResult{
		OrderID: ref.OrderID,
		To:      status.Requested,
		Label:   status.Label(status.Requested),
		Next:    e.graph.NextStatuses(string(status.Requested)),
		Mirror:  mirrored,
	}, nil
}
