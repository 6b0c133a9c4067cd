package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tvremote/internal/application"
	"tvremote/internal/domain"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		device string
		via    string
	)

	cmd := &cobra.Command{
		Use:   "send <type> <action> [value]",
		Short: "Send one command to a TV",
		Long: "Send a single remote command and wait for the device to accept or reject it.\n" +
			"Types: " + commandTypeList() + ".\n" +
			"With --via ws the command goes over the device control channel, with --via http through the command backend.",
		Example: "  tvremote send volume up\n  tvremote send channel set 7 --device kitchen\n  tvremote send app launch com.netflix.mediaclient --via http",
		Args:    cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			typ, ok := domain.ParseCommandType(args[0])
			if !ok {
				return fmt.Errorf("unknown command type %q (want one of %s)", args[0], commandTypeList())
			}
			command := domain.NewCommand(typ, args[1])
			if len(args) == 3 {
				command = command.WithValue(domain.ParseValue(args[2]))
			}

			target, err := a.resolveDevice(ctx, a.devices(), device)
			if err != nil {
				return err
			}

			var sender application.CommandSender
			switch via {
			case "ws":
				session := a.newSession()
				watch := application.WatchFailures(session, a.newNotifier(), a.logger)
				defer watch.Unsubscribe()

				if err := session.Connect(ctx, target); err != nil {
					return fmt.Errorf("connecting to %s: %w", target.Name, err)
				}
				defer session.Disconnect()
				sender = session
			case "http":
				client, err := a.backend(target.ID)
				if err != nil {
					return err
				}
				sender = client
			default:
				return fmt.Errorf("unknown transport %q (want ws or http)", via)
			}

			accepted, err := sender.SendCommand(ctx, command)
			if err != nil {
				return fmt.Errorf("sending %s: %w", command, err)
			}

			result := "accepted"
			if !accepted {
				result = "rejected"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %s\n", command, target.Name, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "device id or name (defaults to the configured device)")
	cmd.Flags().StringVar(&via, "via", "ws", "transport: ws or http")
	return cmd
}

func commandTypeList() string {
	names := make([]string, len(domain.CommandTypes))
	for i, t := range domain.CommandTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
