package payment

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Canonical payment codes.
const (
	COD        = "COD"
	Split      = "SPLIT"
	Advance    = "ADVANCE"
	Credit     = "CREDIT_CYCLE"
	EndOfMonth = "END_OF_MONTH"
	UPI        = "UPI"
	NetBanking = "NET_BANKING"
	Cheque     = "CHEQUE"
)

// NotAvailable is the label of an empty descriptor.
const NotAvailable = "N/A"

var labels = map[string]string{
	COD:        "Cash on Delivery",
	Split:      "Split Payment",
	Advance:    "Advance Payment",
	Credit:     "Credit Cycle",
	EndOfMonth: "End of Month",
	UPI:        "UPI",
	NetBanking: "Net Banking",
	Cheque:     "Cheque",
}

// aliases is keyed by upper-case input with spaces and hyphens folded to
// underscores.
var aliases = map[string]string{
	"CASH_ON_DELIVERY": COD,
	"CASH":             COD,
	"SPLIT_PAYMENT":    Split,
	"PARTIAL":          Split,
	"ADVANCE_PAYMENT":  Advance,
	"PREPAID":          Advance,
	"CREDIT":           Credit,
	"CREDIT_DAYS":      Credit,
	"EOM":              EndOfMonth,
	"MONTH_END":        EndOfMonth,
	"NEFT":             NetBanking,
	"RTGS":             NetBanking,
	"IMPS":             NetBanking,
	"NETBANKING":       NetBanking,
	"BANK_TRANSFER":    NetBanking,
	"CHECK":            Cheque,
}

// Input is the loosely-typed payment mode as supplied by callers.
type Input struct {
	Code          string   `json:"code,omitempty"`
	Label         string   `json:"label,omitempty"`
	CreditDays    *int     `json:"creditDays,omitempty"`
	AdvanceAmount *float64 `json:"advanceAmount,omitempty"`
	SplitRatio    string   `json:"splitRatio,omitempty"`
}

// Descriptor is the normalized payment mode. It is derived data; the raw
// input stays the source of truth.
type Descriptor struct {
	Code          string   `json:"code"`
	Label         string   `json:"label"`
	IsCOD         bool     `json:"isCOD"`
	IsSplit       bool     `json:"isSplit"`
	IsAdvance     bool     `json:"isAdvance"`
	IsCredit      bool     `json:"isCredit"`
	IsUPI         bool     `json:"isUPI"`
	IsNetBanking  bool     `json:"isNetBanking"`
	IsCheque      bool     `json:"isCheque"`
	CreditDays    *int     `json:"creditDays,omitempty"`
	AdvanceAmount *float64 `json:"advanceAmount,omitempty"`
	SplitRatio    string   `json:"splitRatio,omitempty"`
}

// FromAny converts a string, Input, Descriptor or decoded JSON object into
// an Input. Anything else yields the zero Input.
func FromAny(v any) Input {
	switch x := v.(type) {
	case nil:
		return Input{}
	case string:
		return Input{Code: x}
	case Input:
		return x
	case *Input:
		if x == nil {
			return Input{}
		}
		return *x
	case Descriptor:
		if x.Code == "" {
			return Input{}
		}
		return Input{Code: x.Code, Label: x.Label, CreditDays: x.CreditDays, AdvanceAmount: x.AdvanceAmount, SplitRatio: x.SplitRatio}
	case *Descriptor:
		if x == nil {
			return Input{}
		}
		return FromAny(*x)
	case map[string]any:
		in := Input{
			Code:       stringField(x, "code"),
			Label:      stringField(x, "label"),
			SplitRatio: stringField(x, "splitRatio"),
		}
		if n, err := cast.ToIntE(x["creditDays"]); err == nil && x["creditDays"] != nil {
			in.CreditDays = &n
		}
		if f, err := cast.ToFloat64E(x["advanceAmount"]); err == nil && x["advanceAmount"] != nil {
			in.AdvanceAmount = &f
		}
		return in
	default:
		return Input{}
	}
}

func stringField(m map[string]any, key string) string {
	s, err := cast.ToStringE(m[key])
	if err != nil {
		return ""
	}
	return s
}

// ExtractCode resolves any supported input to a payment code. The code is
// taken from Code, falling back to Label. Unrecognized non-empty input is
// returned upper-cased as an opaque custom code.
func ExtractCode(v any) string {
	in := FromAny(v)
	raw := strings.ToUpper(strings.TrimSpace(in.Code))
	if raw == "" {
		raw = strings.ToUpper(strings.TrimSpace(in.Label))
	}
	if raw == "" || raw == NotAvailable {
		return ""
	}
	key := fold(raw)
	if _, ok := labels[key]; ok {
		return key
	}
	if code, ok := aliases[key]; ok {
		return code
	}
	return raw
}

func fold(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}

// Normalize derives a Descriptor from any supported input. It never fails:
// empty or malformed input produces Code "" and Label "N/A".
func Normalize(v any) Descriptor {
	in := FromAny(v)
	code := ExtractCode(in)
	if code == "" {
		return Descriptor{Label: NotAvailable}
	}

	d := Descriptor{
		Code:         code,
		Label:        labels[code],
		IsCOD:        code == COD,
		IsSplit:      code == Split,
		IsCredit:     code == Credit,
		IsUPI:        code == UPI,
		IsNetBanking: code == NetBanking,
		IsCheque:     code == Cheque,
		CreditDays:   in.CreditDays,
		SplitRatio:   strings.TrimSpace(in.SplitRatio),
	}
	if in.AdvanceAmount != nil && *in.AdvanceAmount >= 0 {
		d.AdvanceAmount = in.AdvanceAmount
	}
	d.IsAdvance = code == Advance || (d.AdvanceAmount != nil && *d.AdvanceAmount > 0)

	if d.Label == "" {
		d.Label = strings.TrimSpace(in.Label)
		if d.Label == "" {
			d.Label = code
		}
	}
	return d
}

// FormatLabel renders the display string for a payment mode.
func FormatLabel(v any) string {
	d := Normalize(v)
	switch {
	case d.Code == "":
		return NotAvailable
	case d.Code == Credit && d.CreditDays != nil:
		return "Credit Cycle (" + cast.ToString(*d.CreditDays) + " days)"
	case d.Code == Advance && d.AdvanceAmount != nil:
		return "Advance ₹" + decimal.NewFromFloat(*d.AdvanceAmount).String()
	case d.Code == Split && d.SplitRatio != "":
		return "Split (" + d.SplitRatio + ")"
	default:
		return d.Label
	}
}

// Fields returns the descriptor in the map shape stored on order documents.
func (d Descriptor) Fields() map[string]any {
	m := map[string]any{
		"code":         d.Code,
		"label":        d.Label,
		"display":      FormatLabel(d),
		"isCOD":        d.IsCOD,
		"isSplit":      d.IsSplit,
		"isAdvance":    d.IsAdvance,
		"isCredit":     d.IsCredit,
		"isUPI":        d.IsUPI,
		"isNetBanking": d.IsNetBanking,
		"isCheque":     d.IsCheque,
	}
	if d.CreditDays != nil {
		m["creditDays"] = *d.CreditDays
	}
	if d.AdvanceAmount != nil {
		m["advanceAmount"] = *d.AdvanceAmount
	}
	if d.SplitRatio != "" {
		m["splitRatio"] = d.SplitRatio
	}
	return m
}
