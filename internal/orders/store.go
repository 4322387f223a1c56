package orders

import (
	"context"

	"github.com/buildtall-systems/orderlife/internal/db"
	"github.com/buildtall-systems/orderlife/internal/status"
	"github.com/tidwall/gjson"
)

// Store is the document store the executor writes through. *db.DB
// satisfies it.
type Store interface {
	Get(ctx context.Context, ref db.Ref) (db.Document, error)
	Update(ctx context.Context, ref db.Ref, patch db.Patch) error
	Set(ctx context.Context, ref db.Ref, data db.Document, opts db.SetOptions) error
	Create(ctx context.Context, ref db.Ref, data db.Document) error
	List(ctx context.Context, collection, statusCode string, limit int) ([]db.Snapshot, error)
}

var _ Store = (*db.DB)(nil)

// recordOf extracts the fields the status classifiers need.
func recordOf(doc db.Document) status.Record {
	root := doc.Parse()
	return status.Record{
		StatusCode:            root.Get("statusCode").String(),
		Status:                root.Get("status").String(),
		RetailerMode:          root.Get("retailerMode").String(),
		IsProvisional:         root.Get("isProvisional").Bool(),
		ProvisionalRetailerID: root.Get("provisionalRetailerId").String(),
		HasProforma:           present(root.Get("proforma")),
		ProformaLocked:        root.Get("proformaLocked").Bool(),
	}
}

// counterpartyOf finds the placing business recorded on an order.
func counterpartyOf(doc db.Document) string {
	root := doc.Parse()
	for _, path := range []string{"retailerId", "retailer.id"} {
		if v := root.Get(path).String(); v != "" {
			return v
		}
	}
	return ""
}

func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}
