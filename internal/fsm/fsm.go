package fsm

import "github.com/buildtall-systems/orderlife/internal/status"

// transitions is the authoritative order graph. Codes absent as keys, or
// mapped to an empty list, are terminal.
var transitions = map[status.Code][]status.Code{
	status.Requested:      {status.Quoted, status.OnHold, status.Rejected, status.Direct},
	status.Quoted:         {status.Accepted, status.OnHold, status.Rejected},
	status.OnHold:         {status.Accepted, status.Rejected, status.Requested},
	status.Accepted:       {status.Modified, status.Packed},
	status.Modified:       {status.Packed},
	status.Assigned:       {status.Packed, status.Shipped},
	status.Packed:         {status.Shipped},
	status.Shipped:        {status.OutForDelivery, status.Delivered},
	status.OutForDelivery: {status.Delivered},
	status.Delivered:      {status.Invoiced},
	status.Rejected:       {},
	status.Direct:         {status.Packed},
	status.Invoiced:       {},
}

// forced lists the edges outside the graph that a caller may take with an
// explicit override: passive orders have no quoting step, so they are
// accepted or rejected straight from REQUESTED.
var forced = map[status.Code][]status.Code{
	status.Requested: {status.Accepted, status.Rejected},
}

// Forced reports whether from -> to is an override edge.
func Forced(from, to status.Code) bool {
	return contains(forced[from], to)
}

func contains(list []status.Code, c status.Code) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}
