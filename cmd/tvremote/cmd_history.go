package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		device string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently executed commands from the command backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.backend("")
			if err != nil {
				return err
			}

			records, total, err := client.History(cmd.Context(), device, limit)
			if err != nil {
				return fmt.Errorf("fetching history: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No commands recorded")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tDEVICE\tCOMMAND\tRESULT\tMS")
			for _, r := range records {
				result := "ok"
				if !r.Executed {
					result = "failed"
					if r.Error != "" {
						result += ": " + r.Error
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
					r.ExecutedAt.Local().Format(time.TimeOnly), r.DeviceID, r.Command, result, r.ResponseTime)
			}
			if err := tw.Flush(); err != nil {
				return fmt.Errorf("writing history: %w", err)
			}
			fmt.Fprintf(out, "%d of %d commands\n", len(records), total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "only show commands for this device id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of commands to show")
	return cmd
}
