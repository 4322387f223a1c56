package status

import "strings"

// Record is the read-only view of an order used by the classification
// helpers.
type Record struct {
	StatusCode            string
	Status                string
	RetailerMode          string
	IsProvisional         bool
	ProvisionalRetailerID string
	HasProforma           bool
	ProformaLocked        bool
}

// Code resolves the record's status. See Normalize.
func (r Record) Code() (Code, bool) {
	return Normalize(Ref{Code: r.StatusCode, Label: r.Status})
}

// IsTerminal reports whether the order is in REJECTED, DELIVERED or INVOICED.
// DELIVERED is business-terminal: only invoicing may follow.
func IsTerminal(r Record) bool {
	c, ok := r.Code()
	if !ok {
		return false
	}
	switch c {
	case Rejected, Delivered, Invoiced:
		return true
	default:
		return false
	}
}

// IsProformaPending reports whether a quote has been issued and still awaits
// the requester's decision.
func IsProformaPending(r Record) bool {
	if r.ProformaLocked {
		return false
	}
	c, ok := r.Code()
	if !ok {
		return false
	}
	switch c {
	case Quoted:
		return true
	case Requested:
		return r.HasProforma
	default:
		return false
	}
}

// IsPassive reports whether the order was captured on behalf of a
// counterparty without an account (walk-in or provisional retailer).
func IsPassive(r Record) bool {
	if strings.EqualFold(strings.TrimSpace(r.RetailerMode), "passive") {
		return true
	}
	return r.IsProvisional || strings.TrimSpace(r.ProvisionalRetailerID) != ""
}
