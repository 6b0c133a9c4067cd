package main

import (
	"context"

	"github.com/spf13/cobra"

	"tvremote/internal/application"
	"tvremote/internal/domain"
	"tvremote/internal/ui"
)

func newRemoteCmd(a *app) *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Open the interactive terminal remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// logs would draw over the remote unless they go to a file
			if a.cfg.Log.File == "" && isTerminal(a.logOut) {
				a.logger = discardLogger()
			}

			var target *domain.Device
			d, err := a.resolveDevice(ctx, a.watchDevices(ctx), device)
			if err != nil {
				a.logger.Warn("no device to connect to", "error", err)
			} else {
				target = &d
			}

			session := a.newSession()
			defer session.Disconnect()

			watch := application.WatchFailures(session, a.newNotifier(), a.logger)
			defer watch.Unsubscribe()

			store := a.newStore(session)
			defer store.Close()

			return ui.Run(ctx, store, session, target)
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "device id or name (defaults to the configured device)")
	return cmd
}
