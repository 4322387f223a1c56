package orders

import (
	"context"
	"strings"

	"github.com/buildtall-systems/orderlife/internal/fsm"
	"github.com/buildtall-systems/orderlife/internal/status"
)

// ShipOrder moves an order to SHIPPED and records the shipment. Expected
// delivery date and delivery mode are required and checked before the order
// is read.
func (e *Executor) ShipOrder(ctx context.Context, req ShipRequest) (*TransitionResult, error) {
	run := e.track(req.Ref)
	e.step(ctx, run, fsm.StepBegin)
	to := string(status.Shipped)

	missing := req.Ref.missing()
	date := strings.TrimSpace(req.ExpectedDeliveryDate)
	mode := strings.TrimSpace(req.DeliveryMode)
	if date == "" {
		missing = append(missing, "expectedDeliveryDate")
	}
	if mode == "" {
		missing = append(missing, "deliveryMode")
	}
	if len(missing) > 0 {
		return nil, e.reject(ctx, run, to, &MissingFieldError{Fields: missing})
	}

	doc, err := e.read(ctx, req.Ref)
	if err != nil {
		return nil, e.reject(ctx, run, to, &PersistenceError{Op: "read", Err: err})
	}
	rec := recordOf(doc)
	from, ok := rec.Code()
	if !ok {
		return nil, e.reject(ctx, run, to, &InvalidStatusError{Input: firstNonEmpty(rec.StatusCode, rec.Status)})
	}

	shipment := map[string]any{
		"expectedDeliveryDate": date,
		"deliveryMode":         mode,
	}
	if v := strings.TrimSpace(req.Courier); v != "" {
		shipment["courier"] = v
	}
	if v := strings.TrimSpace(req.AWB); v != "" {
		shipment["awb"] = v
	}

	c := &change{
		ref:     req.Ref,
		from:    from,
		to:      status.Shipped,
		action:  "shipOrder",
		actor:   req.Actor,
		current: doc,
		extra: map[string]any{
			"shipment":             shipment,
			"expectedDeliveryDate": date,
			"deliveryMode":         mode,
		},
		mirror: map[string]any{
			"shipment":             shipment,
			"expectedDeliveryDate": date,
			"deliveryMode":         mode,
		},
	}
	if err := e.checkEdge(ctx, c, false); err != nil {
		return nil, e.reject(ctx, run, to, err)
	}
	return e.commit(ctx, run, c)
}
