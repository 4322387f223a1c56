package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/buildtall-systems/orderlife/internal/db"
	"github.com/buildtall-systems/orderlife/internal/status"
)

func TestShipOrder(t *testing.T) {
	database := setupTestDB(t)
	e := newTestExecutor(t, database)
	ref := OrderRef{OwnerID: "dist-1", OrderID: "ord-5"}

	seed(t, database, ref, db.Document{
		"statusCode": "PACKED",
		"retailer":   map[string]any{"id": "shop-4"},
	})

	res, err := e.ShipOrder(context.Background(), ShipRequest{
		Ref:                  ref,
		ExpectedDeliveryDate: "2026-03-20",
		DeliveryMode:         "courier",
		Courier:              "BlueDart",
		AWB:                  "AWB123",
	})
	if err != nil {
		t.Fatalf("ShipOrder() error = %v", err)
	}
	if res.To != status.Shipped {
		t.Errorf("To = %s, want SHIPPED", res.To)
	}

	root := load(t, database, DefaultLayout.OrderDoc(ref)).Parse()
	if got := root.Get("statusCode").String(); got != "SHIPPED" {
		t.Errorf("statusCode = %q", got)
	}
	if got := root.Get("shipment.awb").String(); got != "AWB123" {
		t.Errorf("shipment.awb = %q", got)
	}
	if got := root.Get("expectedDeliveryDate").String(); got != "2026-03-20" {
		t.Errorf("expectedDeliveryDate = %q", got)
	}
	if got := root.Get("auditTrail.0.action").String(); got != "shipOrder" {
		t.Errorf("audit action = %q", got)
	}

	m := <-res.Mirror
	if m.Err != nil || m.Skipped {
		t.Fatalf("mirror = %+v", m)
	}
	mirror := load(t, database, DefaultLayout.MirrorDoc("shop-4", "ord-5")).Parse()
	if got := mirror.Get("shipment.courier").String(); got != "BlueDart" {
		t.Errorf("mirror shipment.courier = %q", got)
	}
}

func TestShipOrder_MissingFieldsNeverTouchStore(t *testing.T) {
	tests := []struct {
		name string
		req  ShipRequest
		want []string
	}{
		{"no delivery mode", ShipRequest{Ref: testRef, ExpectedDeliveryDate: "2026-03-20"}, []string{"deliveryMode"}},
		{"no date", ShipRequest{Ref: testRef, DeliveryMode: "courier"}, []string{"expectedDeliveryDate"}},
		{"blank both", ShipRequest{Ref: testRef, DeliveryMode: " ", ExpectedDeliveryDate: ""}, []string{"expectedDeliveryDate", "deliveryMode"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database := setupTestDB(t)
			spy := &spyStore{Store: database}
			e := newTestExecutor(t, spy)

			_, err := e.ShipOrder(context.Background(), tt.req)
			var missing *MissingFieldError
			if !errors.As(err, &missing) {
				t.Fatalf("error = %v, want MissingFieldError", err)
			}
			if len(missing.Fields) != len(tt.want) {
				t.Fatalf("Fields = %v, want %v", missing.Fields, tt.want)
			}
			for i := range tt.want {
				if missing.Fields[i] != tt.want[i] {
					t.Errorf("Fields = %v, want %v", missing.Fields, tt.want)
				}
			}
			if gets, updates, sets := spy.counts(); gets+updates+sets != 0 {
				t.Errorf("store calls = %d/%d/%d, want none", gets, updates, sets)
			}
		})
	}
}

func TestShipOrder_IllegalFromRequested(t *testing.T) {
	database := setupTestDB(t)
	e := newTestExecutor(t, database)
	seed(t, database, testRef, db.Document{"statusCode": "REQUESTED"})

	_, err := e.ShipOrder(context.Background(), ShipRequest{
		Ref:                  testRef,
		ExpectedDeliveryDate: "2026-03-20",
		DeliveryMode:         "courier",
	})
	var illegal *IllegalTransitionError
	if !errors.As(err, &illegal) {
		t.Fatalf("error = %v, want IllegalTransitionError", err)
	}
}
