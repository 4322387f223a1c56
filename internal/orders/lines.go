package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/buildtall-systems/orderlife/internal/db"
	"github.com/buildtall-systems/orderlife/internal/payment"
	"github.com/buildtall-systems/orderlife/internal/status"
	"go.uber.org/zap"
)

// Statuses whose lines may still change. Once an order is packed its lines
// are fixed.
var editable = map[status.Code]bool{
	status.Requested: true,
	status.Quoted:    true,
	status.OnHold:    true,
	status.Accepted:  true,
	status.Modified:  true,
	status.Direct:    true,
}

// UpdateLines replaces an order's line items and optional delivery and
// payment details in one write. The status is left untouched. Orders past
// the editable phases, with an unrecognized status or with a locked
// proforma are refused.
func (e *Executor) UpdateLines(ctx context.Context, req LinesRequest) (*LinesResult, error) {
	missing := req.Ref.missing()
	if len(req.Items) == 0 {
		missing = append(missing, "items")
	}
	if len(missing) > 0 {
		return nil, &MissingFieldError{Fields: missing}
	}

	log := e.logger.With(
		zap.String("order_id", req.Ref.OrderID),
		zap.String("owner", req.Ref.OwnerID))

	doc, err := e.read(ctx, req.Ref)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Err: err}
	}
	rec := recordOf(doc)
	code, ok := rec.Code()
	switch {
	case !ok:
		return nil, &LockedOrderError{Status: status.Code(firstNonEmpty(rec.StatusCode, rec.Status)), Reason: "status is not recognized"}
	case status.IsTerminal(rec):
		return nil, &LockedOrderError{Status: code, Reason: "order is closed"}
	case !editable[code]:
		return nil, &LockedOrderError{Status: code, Reason: "order is past the editable phases"}
	case rec.ProformaLocked:
		return nil, &LockedOrderError{Status: code, Reason: "proforma is locked"}
	}

	total := linesTotal(req.Items)
	patch := db.Patch{
		"items":      req.Items,
		"linesTotal": total,
		"updatedAt":  db.ServerTimestamp(),
		"auditTrail": db.ArrayUnion(AuditEntry{
			ID:     e.newID(),
			Action: "updateLines",
			Status: string(code),
			By:     req.Actor,
			At:     e.now().UTC(),
			Items:  len(req.Items),
		}),
	}
	if v := strings.TrimSpace(req.DeliveryMode); v != "" {
		patch["deliveryMode"] = v
	}
	if v := strings.TrimSpace(req.ExpectedDeliveryDate); v != "" {
		patch["expectedDeliveryDate"] = v
	}

	desc := payment.Normalize(doc["payment"])
	if req.PaymentMode != nil {
		desc = e.setPayment(patch, req.PaymentMode)
	}

	if err := e.store.Update(ctx, e.layout.OrderDoc(req.Ref), patch); err != nil {
		if errors.Is(err, db.ErrDocumentNotFound) {
			err = ErrOrderNotFound
		}
		log.Error("persisting line edit failed", zap.Error(err))
		return nil, &PersistenceError{Op: "update", Err: err}
	}

	e.metrics.LineEdit()
	log.Info("order lines updated",
		zap.Int("items", len(req.Items)),
		zap.Float64("total", total),
		zap.String("actor", req.Actor.ID))

	return &LinesResult{
		OrderID: req.Ref.OrderID,
		Status:  code,
		Items:   len(req.Items),
		Total:   total,
		Payment: desc,
	}, nil
}
