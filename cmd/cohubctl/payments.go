package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ashureev/cohub/internal/payments"
	"github.com/spf13/cobra"
)

func newPaymentsCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "payments",
		Short: "List payments newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.openStore()
			if err != nil {
				return err
			}
			defer repo.Close()

			records, err := repo.ListPayments(cmd.Context())
			if err != nil {
				return fmt.Errorf("list payments: %w", err)
			}

			format := newFormatter(opts)
			views := payments.Views(records, format)
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}

			fmt.Fprintln(out, headerStyle.Render("Payments"))
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tTIME\tNAME\tTYPE\tAMOUNT\tSTATUS")
			for _, v := range views {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", v.Date, v.Time, v.Name, v.Direction, v.Amount, v.Status)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			stats := payments.ComputeStats(records)
			fmt.Fprintln(out)
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%d payments, received %s, sent %s, net %s",
				stats.Count, format.Amount(stats.Received), format.Amount(stats.Sent), format.Signed(stats.Net))))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print payments as JSON")
	return cmd
}

func newFormatter(opts *options) *payments.Formatter {
	loc := time.Local
	if opts.cfg.Money.Timezone != "" {
		// Validated by config.Load.
		loc, _ = time.LoadLocation(opts.cfg.Money.Timezone)
	}
	return payments.NewFormatter(opts.cfg.Money.Symbol, opts.cfg.Money.Locale, loc)
}
