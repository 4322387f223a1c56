package status

import "testing"

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		rec  Record
		want bool
	}{
		{Record{StatusCode: "REJECTED"}, true},
		{Record{StatusCode: "DELIVERED"}, true},
		{Record{StatusCode: "INVOICED"}, true},
		{Record{Status: "Completed"}, true},
		{Record{StatusCode: "SHIPPED"}, false},
		{Record{StatusCode: "REQUESTED"}, false},
		{Record{Status: "mystery"}, false},
	}

	for _, tt := range tests {
		name := tt.rec.StatusCode + tt.rec.Status
		t.Run(name, func(t *testing.T) {
			if got := IsTerminal(tt.rec); got != tt.want {
				t.Errorf("IsTerminal(%+v) = %v, want %v", tt.rec, got, tt.want)
			}
		})
	}
}

func TestIsProformaPending(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want bool
	}{
		{"quoted", Record{StatusCode: "QUOTED"}, true},
		{"quoted but locked", Record{StatusCode: "QUOTED", ProformaLocked: true}, false},
		{"requested with proforma", Record{StatusCode: "REQUESTED", HasProforma: true}, true},
		{"requested without proforma", Record{StatusCode: "REQUESTED"}, false},
		{"accepted", Record{StatusCode: "ACCEPTED", HasProforma: true}, false},
		{"legacy proforma sent", Record{Status: "Proforma Sent"}, true},
		{"unknown", Record{Status: "??"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsProformaPending(tt.rec); got != tt.want {
				t.Errorf("IsProformaPending() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsPassive(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want bool
	}{
		{"passive mode", Record{RetailerMode: "passive"}, true},
		{"passive mode mixed case", Record{RetailerMode: " Passive "}, true},
		{"provisional flag", Record{IsProvisional: true}, true},
		{"provisional retailer id", Record{ProvisionalRetailerID: "prov-1"}, true},
		{"active retailer", Record{RetailerMode: "active"}, false},
		{"empty", Record{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPassive(tt.rec); got != tt.want {
				t.Errorf("IsPassive() = %v, want %v", got, tt.want)
			}
		})
	}
}
