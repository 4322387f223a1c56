package status

import (
	"strings"
)

// Code is a canonical order status.
type Code string

const (
	Requested      Code = "REQUESTED"
	Quoted         Code = "QUOTED"
	OnHold         Code = "ON_HOLD"
	Accepted       Code = "ACCEPTED"
	Modified       Code = "MODIFIED"
	Rejected       Code = "REJECTED"
	Direct         Code = "DIRECT"
	Assigned       Code = "ASSIGNED"
	Packed         Code = "PACKED"
	Shipped        Code = "SHIPPED"
	OutForDelivery Code = "OUT_FOR_DELIVERY"
	Delivered      Code = "DELIVERED"
	Invoiced       Code = "INVOICED"
)

var all = []Code{
	Requested, Quoted, OnHold, Accepted, Modified, Rejected, Direct,
	Assigned, Packed, Shipped, OutForDelivery, Delivered, Invoiced,
}

var labels = map[Code]string{
	Requested:      "Requested",
	Quoted:         "Quoted",
	OnHold:         "On Hold",
	Accepted:       "Accepted",
	Modified:       "Modified",
	Rejected:       "Rejected",
	Direct:         "Direct",
	Assigned:       "Assigned",
	Packed:         "Packed",
	Shipped:        "Shipped",
	OutForDelivery: "Out for Delivery",
	Delivered:      "Delivered",
	Invoiced:       "Invoiced",
}

var timestampFields = map[Code]string{
	Requested:      "requestedAt",
	Quoted:         "quotedAt",
	OnHold:         "onHoldAt",
	Accepted:       "acceptedAt",
	Modified:       "modifiedAt",
	Rejected:       "rejectedAt",
	Direct:         "directAt",
	Assigned:       "assignedAt",
	Packed:         "packedAt",
	Shipped:        "shippedAt",
	OutForDelivery: "outForDeliveryAt",
	Delivered:      "deliveredAt",
	Invoiced:       "invoicedAt",
}

// aliases maps folded legacy labels to codes. Keys are upper-case with
// whitespace and hyphens folded to underscores.
var aliases = map[string]Code{
	"PLACED":        Requested,
	"NEW":           Requested,
	"ORDER_PLACED":  Requested,
	"REQUEST_SENT":  Requested,
	"PROFORMA_SENT": Quoted,
	"PROFORMA":      Quoted,
	"QUOTE_SENT":    Quoted,
	"HOLD":          OnHold,
	"ON_HOLD":       OnHold,
	"CONFIRMED":     Accepted,
	"APPROVED":      Accepted,
	"EDITED":        Modified,
	"CANCELLED":     Rejected,
	"CANCELED":      Rejected,
	"DECLINED":      Rejected,
	"DIRECT_ORDER":  Direct,
	"DIRECT_SALE":   Direct,
	"PENDING":       Packed,
	"READY_TO_SHIP": Packed,
	"DISPATCHED":    Shipped,
	"IN_TRANSIT":    Shipped,
	"COMPLETED":     Delivered,
	"COMPLETE":      Delivered,
	"BILLED":        Invoiced,
}

// All returns every canonical code in lifecycle order.
func All() []Code {
	out := make([]Code, len(all))
	copy(out, all)
	return out
}

// Valid reports whether c is one of the canonical codes.
func (c Code) Valid() bool {
	_, ok := labels[c]
	return ok
}

func (c Code) String() string {
	return string(c)
}

// Label returns the human-readable mirror of a code, or "" for unknown codes.
func Label(c Code) string {
	return labels[c]
}

// TimestampField returns the statusTimestamps key stamped when an order
// enters c.
func TimestampField(c Code) string {
	return timestampFields[c]
}

// Ref is the status portion of an order as it is found in storage: an
// optional canonical code and an optional free-text legacy label.
type Ref struct {
	Code  string
	Label string
}

// Normalize resolves a Ref to a canonical code. A recognized Code wins;
// otherwise the label is matched against the canonical names and the alias
// table. The second return is false when nothing matches; callers must not
// substitute a default.
func Normalize(ref Ref) (Code, bool) {
	if c := Code(fold(ref.Code)); c.Valid() {
		return c, true
	}
	return lookup(ref.Label)
}

// CodeOf resolves a single status string, canonical or legacy.
func CodeOf(s string) (Code, bool) {
	return Normalize(Ref{Label: s})
}

func lookup(s string) (Code, bool) {
	key := fold(s)
	if key == "" {
		return "", false
	}
	if c := Code(key); c.Valid() {
		return c, true
	}
	c, ok := aliases[key]
	return c, ok
}

func fold(s string) string {
	fields := strings.FieldsFunc(strings.ToUpper(strings.TrimSpace(s)), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == '_'
	})
	return strings.Join(fields, "_")
}
