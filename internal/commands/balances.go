package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/settleup/internal/service"
)

func newBalancesCommand() *cobra.Command {
	var (
		file   string
		policy string
		debts  bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Compute balances and a settlement plan from a ledger file",
		Long: `Reads a YAML or JSON ledger file with a group's expenses (and optionally
its recorded settlements), then prints each member's net balance and the
shortest list of payments that settles everyone up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rejectPolicy, err := service.ParseRejectPolicy(policy)
			if err != nil {
				return err
			}
			if output != "text" && output != "json" {
				return fmt.Errorf("unknown output format %q (want text or json)", output)
			}
			return runBalances(cmd.Context(), cmd.OutOrStdout(), file, rejectPolicy, debts, output)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "ledger file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().StringVar(&policy, "reject-policy", "abort", "what to do with invalid expenses: abort or skip")
	cmd.Flags().BoolVar(&debts, "debts", false, "also print the raw per-pair debts before netting")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")

	return cmd
}

func runBalances(ctx context.Context, w io.Writer, path string, policy service.RejectPolicy, debts bool, output string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lf, err := loadLedgerFile(path)
	if err != nil {
		return err
	}

	report, err := service.NewBalanceReporter(lf, policy, nil).Report(ctx, lf.GroupID, debts)
	if err != nil {
		return fmt.Errorf("computing balances: %w", err)
	}

	resp := service.GetGroupBalancesResponse{
		GroupID:     report.GroupID,
		Balances:    report.Balances,
		Suggestions: report.Suggestions,
		Debts:       report.Debts,
	}
	for _, rej := range report.Rejected {
		resp.Rejected = append(resp.Rejected, service.RejectedExpense{
			ExpenseID: rej.ExpenseID,
			Reason:    service.RejectionReason(rej.Err),
			Error:     rej.Err.Error(),
		})
	}

	if output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return printBalances(w, &resp)
}

func printBalances(w io.Writer, resp *service.GetGroupBalancesResponse) error {
	fmt.Fprintf(w, "Group %s\n\n", resp.GroupID)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "MEMBER\tPAID\tSHARE\tNET\t")
	for _, b := range resp.Balances {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", b.MemberID, b.TotalPaid, b.TotalShare, b.NetBalance)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	if len(resp.Suggestions) == 0 {
		fmt.Fprintln(w, "Everyone is settled up.")
	} else {
		fmt.Fprintln(w, "Settlement plan:")
		for _, s := range resp.Suggestions {
			fmt.Fprintf(w, "  %s pays %s %s\n", s.From, s.To, s.Amount)
		}
	}

	if len(resp.Debts) > 0 {
		fmt.Fprintln(w, "\nDebts before netting:")
		for _, d := range resp.Debts {
			fmt.Fprintf(w, "  %s owes %s %s\n", d.From, d.To, d.Amount)
		}
	}

	if len(resp.Rejected) > 0 {
		fmt.Fprintln(w, "\nSkipped expenses:")
		for _, r := range resp.Rejected {
			fmt.Fprintf(w, "  %s (%s): %s\n", r.ExpenseID, r.Reason, r.Error)
		}
	}
	return nil
}
