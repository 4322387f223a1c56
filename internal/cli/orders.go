package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/buildtall-systems/orderlife/internal/orders"
	"github.com/buildtall-systems/orderlife/internal/payment"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

// orderFlags are shared by every command that addresses an order.
type orderFlags struct {
	owner        string
	counterparty string
	actorID      string
	actorName    string
	actorRole    string
}

func (f *orderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.owner, "owner", "", "business that owns the order (required)")
	cmd.Flags().StringVar(&f.counterparty, "counterparty", "", "business that placed the order")
	cmd.Flags().StringVar(&f.actorID, "actor", "cli", "acting user id")
	cmd.Flags().StringVar(&f.actorName, "actor-name", "", "acting user name")
	cmd.Flags().StringVar(&f.actorRole, "actor-role", "", "acting user role")
	_ = cmd.MarkFlagRequired("owner")
}

func (f *orderFlags) ref(orderID string) orders.OrderRef {
	return orders.OrderRef{OwnerID: f.owner, OrderID: orderID, CounterpartyID: f.counterparty}
}

func (f *orderFlags) actor() orders.Actor {
	return orders.Actor{ID: f.actorID, Name: f.actorName, Role: f.actorRole}
}

// paymentFlags collect a payment mode from the command line.
type paymentFlags struct {
	code       string
	creditDays int
	advance    float64
	split      string
}

func (f *paymentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.code, "payment", "", "payment mode (cod, credit_cycle, advance, upi, ...)")
	cmd.Flags().IntVar(&f.creditDays, "credit-days", 0, "credit period in days")
	cmd.Flags().Float64Var(&f.advance, "advance", 0, "advance amount")
	cmd.Flags().StringVar(&f.split, "split", "", "split ratio, e.g. 50:50")
}

// input returns nil when no payment flag was given.
func (f *paymentFlags) input(cmd *cobra.Command) any {
	if !cmd.Flags().Changed("payment") {
		return nil
	}
	in := payment.Input{Code: f.code, SplitRatio: f.split}
	if cmd.Flags().Changed("credit-days") {
		days := f.creditDays
		in.CreditDays = &days
	}
	if cmd.Flags().Changed("advance") {
		amount := f.advance
		in.AdvanceAmount = &amount
	}
	return in
}

// parseItems reads "name:qty:price[:discount]" lines.
func parseItems(raws []string) ([]orders.LineItem, error) {
	items := make([]orders.LineItem, 0, len(raws))
	for _, raw := range raws {
		parts := strings.Split(raw, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("item %q: want name:qty:price[:discount]", raw)
		}
		qty, err := cast.ToFloat64E(parts[1])
		if err != nil {
			return nil, fmt.Errorf("item %q: qty: %w", raw, err)
		}
		price, err := cast.ToFloat64E(parts[2])
		if err != nil {
			return nil, fmt.Errorf("item %q: price: %w", raw, err)
		}
		item := orders.LineItem{Name: strings.TrimSpace(parts[0]), Qty: qty, Price: price}
		if len(parts) == 4 {
			if item.Discount, err = cast.ToFloat64E(parts[3]); err != nil {
				return nil, fmt.Errorf("item %q: discount: %w", raw, err)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// parseAssignments turns key=value pairs into a payload. Values that parse
// as JSON keep their JSON type; anything else is a string. Keys may be
// dotted paths.
func parseAssignments(pairs []string, raw string) (map[string]any, error) {
	payload := make(map[string]any)
	if raw != "" {
		if !gjson.Valid(raw) {
			return nil, fmt.Errorf("payload is not valid JSON")
		}
		obj, ok := gjson.Parse(raw).Value().(map[string]any)
		if !ok {
			return nil, fmt.Errorf("payload must be a JSON object")
		}
		payload = obj
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("assignment %q: want key=value", pair)
		}
		if gjson.Valid(value) {
			payload[key] = gjson.Parse(value).Value()
		} else {
			payload[key] = value
		}
	}
	return payload, nil
}

// report prints a transition result and waits for its mirror write.
func report(ctx context.Context, w io.Writer, res *orders.TransitionResult) error {
	out := map[string]any{
		"orderId": res.OrderID,
		"to":      res.To,
		"status":  res.Label,
		"next":    res.Next,
	}
	if res.From != "" {
		out["from"] = res.From
	}
	if res.Forced {
		out["forced"] = true
	}
	if res.NoOp {
		out["noop"] = true
	}
	if len(res.Preserved) > 0 {
		out["preserved"] = res.Preserved
	}
	select {
	case m := <-res.Mirror:
		switch {
		case m.Err != nil:
			out["mirror"] = "failed: " + m.Err.Error()
		case m.Skipped:
			out["mirror"] = "skipped: " + m.Reason
		default:
			out["mirror"] = m.Ref.Path()
		}
	case <-ctx.Done():
	}
	return printJSON(w, out)
}

func (a *app) placeCmd() *cobra.Command {
	var (
		of           orderFlags
		pf           paymentFlags
		id           string
		items        []string
		retailerMode string
		sets         []string
	)
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place a new order in REQUESTED",
		Example: `  orderlife place --owner dist-1 --counterparty shop-7 \
    --item "Widget:5:10" --payment credit_cycle --credit-days 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := parseItems(items)
			if err != nil {
				return err
			}
			extra, err := parseAssignments(sets, "")
			if err != nil {
				return err
			}
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.exec.PlaceOrder(cmd.Context(), orders.PlaceRequest{
				Ref:          of.ref(id),
				Items:        lines,
				PaymentMode:  pf.input(cmd),
				RetailerMode: retailerMode,
				Extra:        extra,
				Actor:        of.actor(),
			})
			if err != nil {
				return err
			}
			return report(cmd.Context(), cmd.OutOrStdout(), res)
		},
	}
	of.register(cmd)
	pf.register(cmd)
	cmd.Flags().StringVar(&id, "id", "", "order id (generated when empty)")
	cmd.Flags().StringArrayVar(&items, "item", nil, "line item name:qty:price[:discount] (repeatable)")
	cmd.Flags().StringVar(&retailerMode, "retailer-mode", "", "set to passive for walk-in orders")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "extra field key=value (repeatable)")
	return cmd
}

func (a *app) transitionCmd() *cobra.Command {
	var (
		of      orderFlags
		from    string
		force   bool
		sets    []string
		payload string
	)
	cmd := &cobra.Command{
		Use:   "transition <order-id> <status>",
		Short: "Move an order to a new status",
		Example: `  orderlife transition ord-1 accepted --owner dist-1
  orderlife transition ord-1 quoted --owner dist-1 --set proforma.grandTotal=500`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			extra, err := parseAssignments(sets, payload)
			if err != nil {
				return err
			}
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.exec.SetOrderStatus(cmd.Context(), orders.TransitionRequest{
				Ref:   of.ref(args[0]),
				From:  from,
				To:    args[1],
				Extra: extra,
				Actor: of.actor(),
				Force: force,
			})
			if err != nil {
				return err
			}
			return report(cmd.Context(), cmd.OutOrStdout(), res)
		},
	}
	of.register(cmd)
	cmd.Flags().StringVar(&from, "from", "", "expected current status (read from the order when empty)")
	cmd.Flags().BoolVar(&force, "force", false, "allow the passive-order override edges")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field key=value to write with the transition (repeatable)")
	cmd.Flags().StringVar(&payload, "payload", "", "JSON object of fields to write with the transition")
	return cmd
}

func (a *app) shipCmd() *cobra.Command {
	var (
		of      orderFlags
		eta     string
		mode    string
		courier string
		awb     string
	)
	cmd := &cobra.Command{
		Use:   "ship <order-id>",
		Short: "Mark an order as shipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.exec.ShipOrder(cmd.Context(), orders.ShipRequest{
				Ref:                  of.ref(args[0]),
				ExpectedDeliveryDate: eta,
				DeliveryMode:         mode,
				Courier:              courier,
				AWB:                  awb,
				Actor:                of.actor(),
			})
			if err != nil {
				return err
			}
			return report(cmd.Context(), cmd.OutOrStdout(), res)
		},
	}
	of.register(cmd)
	cmd.Flags().StringVar(&eta, "eta", "", "expected delivery date")
	cmd.Flags().StringVar(&mode, "mode", "", "delivery mode")
	cmd.Flags().StringVar(&courier, "courier", "", "courier name")
	cmd.Flags().StringVar(&awb, "awb", "", "air waybill / tracking number")
	return cmd
}

func (a *app) linesCmd() *cobra.Command {
	var (
		of    orderFlags
		pf    paymentFlags
		items []string
		eta   string
		mode  string
	)
	cmd := &cobra.Command{
		Use:   "lines <order-id>",
		Short: "Replace an order's line items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := parseItems(items)
			if err != nil {
				return err
			}
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.exec.UpdateLines(cmd.Context(), orders.LinesRequest{
				Ref:                  of.ref(args[0]),
				Items:                lines,
				DeliveryMode:         mode,
				ExpectedDeliveryDate: eta,
				PaymentMode:          pf.input(cmd),
				Actor:                of.actor(),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"orderId":    res.OrderID,
				"statusCode": res.Status,
				"items":      res.Items,
				"linesTotal": res.Total,
				"payment":    payment.FormatLabel(res.Payment),
			})
		},
	}
	of.register(cmd)
	pf.register(cmd)
	cmd.Flags().StringArrayVar(&items, "item", nil, "line item name:qty:price[:discount] (repeatable)")
	cmd.Flags().StringVar(&eta, "eta", "", "expected delivery date")
	cmd.Flags().StringVar(&mode, "mode", "", "delivery mode")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	var of orderFlags
	cmd := &cobra.Command{
		Use:   "show <order-id>",
		Short: "Print an order and its allowed next statuses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			order, err := rt.exec.Get(cmd.Context(), of.ref(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"id":              order.Ref.OrderID,
				"statusCode":      order.Code,
				"status":          order.Label,
				"next":            order.Next,
				"terminal":        order.Terminal,
				"passive":         order.Passive,
				"proformaPending": order.ProformaPending,
				"data":            order.Data,
			})
		},
	}
	of.register(cmd)
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var (
		of     orderFlags
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a business's orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			list, err := rt.exec.List(cmd.Context(), of.owner, status, limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, o := range list {
				fmt.Fprintf(w, "%-24s %-18s %s\n", o.Ref.OrderID, o.Code, o.Label)
			}
			return nil
		},
	}
	of.register(cmd)
	cmd.Flags().StringVar(&status, "status", "", "only orders in this status")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of orders")
	return cmd
}
