package orders

import (
	"errors"
	"fmt"
	"strings"

	"github.com/buildtall-systems/orderlife/internal/status"
)

// ErrOrderNotFound indicates the order document does not exist.
var ErrOrderNotFound = errors.New("order not found")

// ErrOrderExists indicates PlaceOrder found an order with the same id.
var ErrOrderExists = errors.New("order already exists")

// InvalidStatusError is returned when a status string cannot be normalized.
type InvalidStatusError struct {
	Input string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("unrecognized order status %q", e.Input)
}

// IllegalTransitionError is returned when an edge is not in the graph (or,
// when forced, not an override edge). Allowed lists the statuses reachable
// from From so the caller can offer valid actions.
type IllegalTransitionError struct {
	From    status.Code
	To      status.Code
	Forced  bool
	Allowed []status.Code
}

func (e *IllegalTransitionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "illegal transition from %s to %s", e.From, e.To)
	if e.Forced {
		b.WriteString(" (forced)")
	}
	if len(e.Allowed) == 0 {
		b.WriteString("; no further transitions allowed")
		return b.String()
	}
	names := make([]string, len(e.Allowed))
	for i, c := range e.Allowed {
		names[i] = string(c)
	}
	b.WriteString("; allowed: ")
	b.WriteString(strings.Join(names, ", "))
	return b.String()
}

// MissingFieldError names the required fields a request lacked.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return "missing required field(s): " + strings.Join(e.Fields, ", ")
}

// LockedOrderError is returned when an edit targets an order that no longer
// accepts it.
type LockedOrderError struct {
	Status status.Code
	Reason string
}

func (e *LockedOrderError) Error() string {
	return fmt.Sprintf("order in %s cannot be edited: %s", e.Status, e.Reason)
}

// PersistenceError wraps a store failure. The order is either fully updated
// or untouched; the engine does not retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s order: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the call may succeed.
func (e *PersistenceError) Retryable() bool {
	return !errors.Is(e.Err, ErrOrderNotFound) && !errors.Is(e.Err, ErrOrderExists)
}
