package orders

import (
	"strings"
	"time"

	"github.com/buildtall-systems/orderlife/internal/db"
	"github.com/buildtall-systems/orderlife/internal/payment"
	"github.com/buildtall-systems/orderlife/internal/status"
	"github.com/shopspring/decimal"
)

// OrderRef identifies an order. OwnerID is the business fulfilling the
// order; CounterpartyID, when known, is the business that placed it and
// receives the mirror copy.
type OrderRef struct {
	OwnerID        string
	OrderID        string
	CounterpartyID string
}

func (r OrderRef) missing() []string {
	var fields []string
	if strings.TrimSpace(r.OwnerID) == "" {
		fields = append(fields, "ownerId")
	}
	if strings.TrimSpace(r.OrderID) == "" {
		fields = append(fields, "orderId")
	}
	return fields
}

// Layout maps order references to document paths.
type Layout struct {
	Orders string // must contain {owner}
	Mirror string // must contain {counterparty}
}

var DefaultLayout = Layout{
	Orders: "businesses/{owner}/orderRequests",
	Mirror: "businesses/{counterparty}/sentOrders",
}

func (l Layout) OrderDoc(ref OrderRef) db.Ref {
	return db.Ref{
		Collection: strings.ReplaceAll(l.Orders, "{owner}", ref.OwnerID),
		ID:         ref.OrderID,
	}
}

func (l Layout) MirrorDoc(counterparty, orderID string) db.Ref {
	return db.Ref{
		Collection: strings.ReplaceAll(l.Mirror, "{counterparty}", counterparty),
		ID:         orderID,
	}
}

// Actor is whoever requested a change.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// AuditEntry is one append-only record in an order's auditTrail.
type AuditEntry struct {
	ID     string    `json:"id"`
	Action string    `json:"action"`
	Status string    `json:"status"`
	From   string    `json:"from,omitempty"`
	By     Actor     `json:"by"`
	At     time.Time `json:"at"`
	Forced bool      `json:"forced,omitempty"`
	Items  int       `json:"items,omitempty"`
}

// LineItem is one order line.
type LineItem struct {
	ID       string  `json:"id,omitempty"`
	SKU      string  `json:"sku,omitempty"`
	Name     string  `json:"name"`
	Qty      float64 `json:"qty"`
	Unit     string  `json:"unit,omitempty"`
	Price    float64 `json:"price"`
	Discount float64 `json:"discount,omitempty"`
}

// linesTotal sums qty*price-discount over items in decimal arithmetic.
func linesTotal(items []LineItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Qty).Mul(decimal.NewFromFloat(it.Price)).Sub(decimal.NewFromFloat(it.Discount))
		total = total.Add(line)
	}
	return total.Round(2).InexactFloat64()
}

// TransitionRequest asks for a status change. Force is honored only for the
// override edges of passive orders (REQUESTED -> ACCEPTED/REJECTED) and is
// never written into the document.
type TransitionRequest struct {
	Ref   OrderRef
	From  string // caller's view of the current status; empty reads it from the store
	To    string
	Extra map[string]any
	Actor Actor
	Force bool
}

// TransitionResult describes a committed (or no-op) status change.
type TransitionResult struct {
	OrderID   string
	From      status.Code
	To        status.Code
	Label     string
	Forced    bool
	NoOp      bool
	Preserved []string
	Next      []status.Code

	// Mirror yields exactly one value once the counterparty write settles.
	Mirror <-chan MirrorResult
}

// LinesRequest replaces an order's lines before acceptance.
type LinesRequest struct {
	Ref                  OrderRef
	Items                []LineItem
	DeliveryMode         string
	ExpectedDeliveryDate string
	PaymentMode          any
	Actor                Actor
}

// LinesResult describes a committed line edit.
type LinesResult struct {
	OrderID string
	Status  status.Code
	Items   int
	Total   float64
	Payment payment.Descriptor
}

// ShipRequest moves an order to SHIPPED with shipment details.
type ShipRequest struct {
	Ref                  OrderRef
	ExpectedDeliveryDate string
	DeliveryMode         string
	Courier              string
	AWB                  string
	Actor                Actor
}

// PlaceRequest creates a new order in REQUESTED.
type PlaceRequest struct {
	Ref          OrderRef // empty OrderID gets a generated id
	Items        []LineItem
	PaymentMode  any
	RetailerMode string
	Extra        map[string]any
	Actor        Actor
}

// Order is a stored order with its derived classification.
type Order struct {
	Ref             OrderRef
	Data            db.Document
	Code            status.Code
	Label           string
	Next            []status.Code
	Terminal        bool
	Passive         bool
	ProformaPending bool
}
