package api

import (
	"context"
	"net/http"

	"github.com/buildtall-systems/orderlife/internal/db"
	"github.com/buildtall-systems/orderlife/internal/orders"
	"github.com/buildtall-systems/orderlife/internal/payment"
	"github.com/buildtall-systems/orderlife/internal/status"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// OrderService is the part of the executor the HTTP layer drives.
type OrderService interface {
	PlaceOrder(ctx context.Context, req orders.PlaceRequest) (*orders.TransitionResult, error)
	Get(ctx context.Context, ref orders.OrderRef) (*orders.Order, error)
	List(ctx context.Context, owner, code string, limit int) ([]*orders.Order, error)
	SetOrderStatus(ctx context.Context, req orders.TransitionRequest) (*orders.TransitionResult, error)
	ShipOrder(ctx context.Context, req orders.ShipRequest) (*orders.TransitionResult, error)
	UpdateLines(ctx context.Context, req orders.LinesRequest) (*orders.LinesResult, error)
	NextStatuses(code string) []status.Code
}

// Handler serves the order endpoints.
type Handler struct {
	svc    OrderService
	logger *zap.Logger
}

func NewHandler(svc OrderService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type orderView struct {
	ID              string        `json:"id"`
	OwnerID         string        `json:"ownerId"`
	CounterpartyID  string        `json:"counterpartyId,omitempty"`
	StatusCode      status.Code   `json:"statusCode"`
	Status          string        `json:"status"`
	Next            []status.Code `json:"next"`
	Terminal        bool          `json:"terminal"`
	Passive         bool          `json:"passive"`
	ProformaPending bool          `json:"proformaPending"`
	Data            db.Document   `json:"data"`
}

func newOrderView(o *orders.Order) orderView {
	return orderView{
		ID:              o.Ref.OrderID,
		OwnerID:         o.Ref.OwnerID,
		CounterpartyID:  o.Ref.CounterpartyID,
		StatusCode:      o.Code,
		Status:          o.Label,
		Next:            o.Next,
		Terminal:        o.Terminal,
		Passive:         o.Passive,
		ProformaPending: o.ProformaPending,
		Data:            o.Data,
	}
}

type transitionView struct {
	OrderID   string        `json:"orderId"`
	From      status.Code   `json:"from,omitempty"`
	To        status.Code   `json:"to"`
	Status    string        `json:"status"`
	Forced    bool          `json:"forced,omitempty"`
	NoOp      bool          `json:"noop,omitempty"`
	Preserved []string      `json:"preserved,omitempty"`
	Next      []status.Code `json:"next"`
}

func newTransitionView(res *orders.TransitionResult) transitionView {
	return transitionView{
		OrderID:   res.OrderID,
		From:      res.From,
		To:        res.To,
		Status:    res.Label,
		Forced:    res.Forced,
		NoOp:      res.NoOp,
		Preserved: res.Preserved,
		Next:      res.Next,
	}
}

func (h *Handler) ref(r *http.Request, counterparty string) orders.OrderRef {
	return orders.OrderRef{
		OwnerID:        ownerFrom(r.Context()),
		OrderID:        chi.URLParam(r, "id"),
		CounterpartyID: counterparty,
	}
}

// PlaceOrder handles POST /orders.
func (h *Handler) PlaceOrder() http.HandlerFunc {
	type request struct {
		ID             string            `json:"id"`
		CounterpartyID string            `json:"counterpartyId"`
		Items          []orders.LineItem `json:"items"`
		PaymentMode    any               `json:"paymentMode"`
		RetailerMode   string            `json:"retailerMode"`
		Extra          map[string]any    `json:"extra"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decode(r, &req); err != nil {
			h.fail(w, err)
			return
		}
		res, err := h.svc.PlaceOrder(r.Context(), orders.PlaceRequest{
			Ref: orders.OrderRef{
				OwnerID:        ownerFrom(r.Context()),
				OrderID:        req.ID,
				CounterpartyID: req.CounterpartyID,
			},
			Items:        req.Items,
			PaymentMode:  req.PaymentMode,
			RetailerMode: req.RetailerMode,
			Extra:        req.Extra,
			Actor:        actorFrom(r.Context()),
		})
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newTransitionView(res))
	}
}

// GetOrder handles GET /orders/{id}.
func (h *Handler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := h.svc.Get(r.Context(), h.ref(r, ""))
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderView(order))
	}
}

// ListOrders handles GET /orders?status=&limit=.
func (h *Handler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := h.svc.List(r.Context(), ownerFrom(r.Context()), q.Get("status"), cast.ToInt(q.Get("limit")))
		if err != nil {
			h.fail(w, err)
			return
		}
		views := make([]orderView, 0, len(list))
		for _, o := range list {
			views = append(views, newOrderView(o))
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// Transition handles POST /orders/{id}/transition.
func (h *Handler) Transition() http.HandlerFunc {
	type request struct {
		From           string         `json:"from"`
		To             string         `json:"to"`
		Payload        map[string]any `json:"payload"`
		Force          bool           `json:"force"`
		CounterpartyID string         `json:"counterpartyId"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decode(r, &req); err != nil {
			h.fail(w, err)
			return
		}
		if req.To == "" {
			h.fail(w, &orders.MissingFieldError{Fields: []string{"to"}})
			return
		}
		res, err := h.svc.SetOrderStatus(r.Context(), orders.TransitionRequest{
			Ref:   h.ref(r, req.CounterpartyID),
			From:  req.From,
			To:    req.To,
			Extra: req.Payload,
			Actor: actorFrom(r.Context()),
			Force: req.Force,
		})
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newTransitionView(res))
	}
}

// Ship handles POST /orders/{id}/ship.
func (h *Handler) Ship() http.HandlerFunc {
	type request struct {
		ExpectedDeliveryDate string `json:"expectedDeliveryDate"`
		DeliveryMode         string `json:"deliveryMode"`
		Courier              string `json:"courier"`
		AWB                  string `json:"awb"`
		CounterpartyID       string `json:"counterpartyId"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decode(r, &req); err != nil {
			h.fail(w, err)
			return
		}
		res, err := h.svc.ShipOrder(r.Context(), orders.ShipRequest{
			Ref:                  h.ref(r, req.CounterpartyID),
			ExpectedDeliveryDate: req.ExpectedDeliveryDate,
			DeliveryMode:         req.DeliveryMode,
			Courier:              req.Courier,
			AWB:                  req.AWB,
			Actor:                actorFrom(r.Context()),
		})
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newTransitionView(res))
	}
}

// UpdateLines handles PUT /orders/{id}/lines.
func (h *Handler) UpdateLines() http.HandlerFunc {
	type request struct {
		Items                []orders.LineItem `json:"items"`
		DeliveryMode         string            `json:"deliveryMode"`
		ExpectedDeliveryDate string            `json:"expectedDeliveryDate"`
		PaymentMode          any               `json:"paymentMode"`
	}
	type response struct {
		OrderID string             `json:"orderId"`
		Status  status.Code        `json:"statusCode"`
		Items   int                `json:"items"`
		Total   float64            `json:"linesTotal"`
		Payment payment.Descriptor `json:"payment"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decode(r, &req); err != nil {
			h.fail(w, err)
			return
		}
		res, err := h.svc.UpdateLines(r.Context(), orders.LinesRequest{
			Ref:                  h.ref(r, ""),
			Items:                req.Items,
			DeliveryMode:         req.DeliveryMode,
			ExpectedDeliveryDate: req.ExpectedDeliveryDate,
			PaymentMode:          req.PaymentMode,
			Actor:                actorFrom(r.Context()),
		})
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, response{
			OrderID: res.OrderID,
			Status:  res.Status,
			Items:   res.Items,
			Total:   res.Total,
			Payment: res.Payment,
		})
	}
}

// NextStatuses handles GET /statuses/{code}/next.
func (h *Handler) NextStatuses() http.HandlerFunc {
	type response struct {
		Code  status.Code   `json:"code"`
		Label string        `json:"label"`
		Next  []status.Code `json:"next"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "code")
		code, ok := status.CodeOf(raw)
		if !ok {
			h.fail(w, &orders.InvalidStatusError{Input: raw})
			return
		}
		writeJSON(w, http.StatusOK, response{
			Code:  code,
			Label: status.Label(code),
			Next:  h.svc.NextStatuses(string(code)),
		})
	}
}

// NormalizePayment handles POST /payments/normalize. The body is a payment
// code string or an object with code, label, creditDays, advanceAmount and
// splitRatio.
func (h *Handler) NormalizePayment() http.HandlerFunc {
	type response struct {
		payment.Descriptor
		Display string `json:"display"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var raw any
		if err := decode(r, &raw); err != nil {
			h.fail(w, err)
			return
		}
		d := payment.Normalize(raw)
		writeJSON(w, http.StatusOK, response{Descriptor: d, Display: payment.FormatLabel(d)})
	}
}

// fail writes err and logs it when the failure is on our side.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	code, body := classify(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("kind", body.Kind), zap.Error(err))
	}
	writeJSON(w, code, body)
}
