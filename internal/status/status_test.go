package status

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		ref    Ref
		want   Code
		wantOK bool
	}{
		{"canonical code", Ref{Code: "ACCEPTED"}, Accepted, true},
		{"code wins over label", Ref{Code: "SHIPPED", Label: "Placed"}, Shipped, true},
		{"lower-case code", Ref{Code: "out_for_delivery"}, OutForDelivery, true},
		{"unknown code falls back to label", Ref{Code: "BOGUS", Label: "Placed"}, Requested, true},
		{"legacy pending", Ref{Label: "Pending"}, Packed, true},
		{"legacy placed", Ref{Label: "placed"}, Requested, true},
		{"proforma sent", Ref{Label: "Proforma Sent"}, Quoted, true},
		{"spaced canonical", Ref{Label: "out for delivery"}, OutForDelivery, true},
		{"hyphenated", Ref{Label: "on-hold"}, OnHold, true},
		{"padded", Ref{Label: "  delivered  "}, Delivered, true},
		{"cancelled alias", Ref{Label: "Cancelled"}, Rejected, true},
		{"unknown label", Ref{Label: "teleported"}, "", false},
		{"empty", Ref{}, "", false},
		{"whitespace only", Ref{Code: "  ", Label: " "}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.ref)
			if ok != tt.wantOK {
				t.Fatalf("Normalize(%+v) ok = %v, want %v", tt.ref, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Normalize(%+v) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestCodeOf_Idempotent(t *testing.T) {
	for _, c := range All() {
		t.Run(string(c), func(t *testing.T) {
			first, ok := CodeOf(string(c))
			if !ok || first != c {
				t.Fatalf("CodeOf(%q) = %q, %v", c, first, ok)
			}
			second, ok := CodeOf(string(first))
			if !ok || second != first {
				t.Errorf("CodeOf(CodeOf(%q)) = %q, want %q", c, second, first)
			}
		})
	}
}

func TestAliasesResolveToCanonicalCodes(t *testing.T) {
	for alias, c := range aliases {
		if !c.Valid() {
			t.Errorf("alias %q maps to unknown code %q", alias, c)
		}
		if fold(alias) != alias {
			t.Errorf("alias key %q is not folded", alias)
		}
	}
}

func TestLabelsAndTimestampFields(t *testing.T) {
	seen := make(map[string]Code)
	for _, c := range All() {
		if Label(c) == "" {
			t.Errorf("missing label for %s", c)
		}
		field := TimestampField(c)
		if field == "" {
			t.Errorf("missing timestamp field for %s", c)
		}
		if prev, dup := seen[field]; dup {
			t.Errorf("timestamp field %q shared by %s and %s", field, prev, c)
		}
		seen[field] = c
	}

	named := map[Code]string{
		Requested: "requestedAt",
		Quoted:    "quotedAt",
		Accepted:  "acceptedAt",
		Packed:    "packedAt",
		Shipped:   "shippedAt",
		Delivered: "deliveredAt",
		Rejected:  "rejectedAt",
	}
	for c, want := range named {
		if got := TimestampField(c); got != want {
			t.Errorf("TimestampField(%s) = %q, want %q", c, got, want)
		}
	}

	if Label("NOPE") != "" || TimestampField("NOPE") != "" {
		t.Error("unknown code should have no label or timestamp field")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0] = "MUTATED"
	if All()[0] != Requested {
		t.Error("All() exposed internal slice")
	}
	if len(a) != 13 {
		t.Errorf("got %d codes, want 13", len(a))
	}
}
