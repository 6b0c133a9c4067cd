package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDevicesCmd(a *app) *cobra.Command {
	var ping bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List configured and discovered TVs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			reg := a.devices()
			if err := reg.Sync(ctx); err != nil {
				return fmt.Errorf("loading devices: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, reg.Summary())

			if !ping {
				return nil
			}
			client, err := a.backend("")
			if err != nil {
				return err
			}
			for _, d := range reg.Devices() {
				res, err := client.Ping(ctx, d.ID)
				switch {
				case err != nil:
					fmt.Fprintf(out, "%s: ping failed: %v\n", d.ID, err)
				case res.Reachable:
					fmt.Fprintf(out, "%s: reachable (%dms)\n", d.ID, res.ResponseTime)
				default:
					fmt.Fprintf(out, "%s: unreachable\n", d.ID)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ping, "ping", false, "ping each device through the command backend")
	return cmd
}
