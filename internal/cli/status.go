package cli

import (
	"fmt"
	"strings"

	"github.com/buildtall-systems/orderlife/internal/fsm"
	"github.com/buildtall-systems/orderlife/internal/payment"
	"github.com/buildtall-systems/orderlife/internal/status"
	"github.com/spf13/cobra"
)

func nextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next <status>",
		Short: "List the statuses reachable from a status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, ok := status.CodeOf(args[0])
			if !ok {
				return fmt.Errorf("unrecognized order status %q", args[0])
			}
			next := fsm.NewOrderStateMachine().NextStatuses(string(code))
			w := cmd.OutOrStdout()
			if len(next) == 0 {
				fmt.Fprintf(w, "%s is terminal\n", code)
				return nil
			}
			names := make([]string, len(next))
			for i, c := range next {
				names[i] = string(c)
			}
			fmt.Fprintf(w, "%s -> %s\n", code, strings.Join(names, ", "))
			return nil
		},
	}
}

func paymentCmd() *cobra.Command {
	var pf paymentFlags
	cmd := &cobra.Command{
		Use:   "payment <mode>",
		Short: "Normalize a payment mode and print its descriptor",
		Example: `  orderlife payment "Cash on Delivery"
  orderlife payment credit_cycle --credit-days 30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pf.code = args[0]
			in := payment.Input{Code: pf.code, SplitRatio: pf.split}
			if cmd.Flags().Changed("credit-days") {
				in.CreditDays = &pf.creditDays
			}
			if cmd.Flags().Changed("advance") {
				in.AdvanceAmount = &pf.advance
			}
			d := payment.Normalize(in)
			out := d.Fields()
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVar(&pf.creditDays, "credit-days", 0, "credit period in days")
	cmd.Flags().Float64Var(&pf.advance, "advance", 0, "advance amount")
	cmd.Flags().StringVar(&pf.split, "split", "", "split ratio, e.g. 50:50")
	return cmd
}
