package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

// run executes one command tree against dbPath and returns its stdout.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", dbPath, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func decodeOutput(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("decoding output %q: %v", out, err)
	}
	return m
}

func TestOrderLifecycle(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "orderlife.db")

	out, err := run(t, dbPath, "place", "--owner", "dist-1", "--counterparty", "shop-1",
		"--id", "ord-1", "--item", "Widget:5:10", "--payment", "credit_cycle", "--credit-days", "30")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	placed := decodeOutput(t, out)
	if placed["to"] != "REQUESTED" {
		t.Errorf("place to = %v, want REQUESTED", placed["to"])
	}
	if placed["mirror"] != "businesses/shop-1/sentOrders/ord-1" {
		t.Errorf("place mirror = %v", placed["mirror"])
	}

	out, err = run(t, dbPath, "transition", "ord-1", "quoted", "--owner", "dist-1",
		"--set", "proforma.grandTotal=500")
	if err != nil {
		t.Fatalf("transition quoted: %v", err)
	}
	if got := decodeOutput(t, out)["to"]; got != "QUOTED" {
		t.Errorf("transition to = %v, want QUOTED", got)
	}

	out, err = run(t, dbPath, "transition", "ord-1", "accepted", "--owner", "dist-1")
	if err != nil {
		t.Fatalf("transition accepted: %v", err)
	}
	accepted := decodeOutput(t, out)
	if accepted["from"] != "QUOTED" {
		t.Errorf("from = %v, want QUOTED", accepted["from"])
	}

	out, err = run(t, dbPath, "show", "ord-1", "--owner", "dist-1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	shown := decodeOutput(t, out)
	if shown["statusCode"] != "ACCEPTED" {
		t.Errorf("statusCode = %v, want ACCEPTED", shown["statusCode"])
	}
	data := shown["data"].(map[string]any)
	proforma := data["proforma"].(map[string]any)
	if proforma["grandTotal"] != float64(500) {
		t.Errorf("proforma.grandTotal = %v, want 500", proforma["grandTotal"])
	}
	if data["paymentMode"] != "CREDIT_CYCLE" {
		t.Errorf("paymentMode = %v", data["paymentMode"])
	}

	out, err = run(t, dbPath, "list", "--owner", "dist-1", "--status", "confirmed")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "ord-1") || !strings.Contains(out, "ACCEPTED") {
		t.Errorf("list output = %q", out)
	}
}

func TestTransitionRejected(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "orderlife.db")

	if _, err := run(t, dbPath, "place", "--owner", "dist-1", "--id", "ord-1", "--item", "Widget:1:1"); err != nil {
		t.Fatalf("place: %v", err)
	}
	_, err := run(t, dbPath, "transition", "ord-1", "shipped", "--owner", "dist-1")
	if err == nil || !strings.Contains(err.Error(), "illegal transition") {
		t.Fatalf("error = %v, want illegal transition", err)
	}
	_, err = run(t, dbPath, "ship", "ord-1", "--owner", "dist-1", "--eta", "2026-03-20")
	if err == nil || !strings.Contains(err.Error(), "deliveryMode") {
		t.Fatalf("error = %v, want missing deliveryMode", err)
	}
}

func TestNextCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "orderlife.db")

	out, err := run(t, dbPath, "next", "Dispatched")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if strings.TrimSpace(out) != "SHIPPED -> OUT_FOR_DELIVERY, DELIVERED" {
		t.Errorf("next output = %q", out)
	}

	out, err = run(t, dbPath, "next", "invoiced")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if strings.TrimSpace(out) != "INVOICED is terminal" {
		t.Errorf("next output = %q", out)
	}

	if _, err := run(t, dbPath, "next", "bogus"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestPaymentCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "orderlife.db")

	out, err := run(t, dbPath, "payment", "credit_cycle", "--credit-days", "30")
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	m := decodeOutput(t, out)
	if m["code"] != "CREDIT_CYCLE" || m["display"] != "Credit Cycle (30 days)" {
		t.Errorf("payment output = %v", m)
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"proforma.grandTotal=500", "note=rush order", "locked=true"}, `{"a":{"b":1}}`)
	if err != nil {
		t.Fatalf("parseAssignments: %v", err)
	}
	if got["proforma.grandTotal"] != float64(500) {
		t.Errorf("grandTotal = %#v", got["proforma.grandTotal"])
	}
	if got["note"] != "rush order" {
		t.Errorf("note = %#v", got["note"])
	}
	if got["locked"] != true {
		t.Errorf("locked = %#v", got["locked"])
	}
	if _, ok := got["a"].(map[string]any); !ok {
		t.Errorf("a = %#v", got["a"])
	}

	if _, err := parseAssignments([]string{"novalue"}, ""); err == nil {
		t.Error("expected error for missing '='")
	}
	if _, err := parseAssignments(nil, "[1,2]"); err == nil {
		t.Error("expected error for non-object payload")
	}
}

func TestParseItems(t *testing.T) {
	items, err := parseItems([]string{"Widget:5:10", "Gadget:1:2.5:0.5"})
	if err != nil {
		t.Fatalf("parseItems: %v", err)
	}
	if len(items) != 2 || items[1].Discount != 0.5 || items[0].Qty != 5 {
		t.Errorf("items = %+v", items)
	}
	if _, err := parseItems([]string{"Widget:five:10"}); err == nil {
		t.Error("expected error for bad qty")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "orderlife.db"), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "orderlife dev") {
		t.Errorf("version output = %q", out)
	}
}
