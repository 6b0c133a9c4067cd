package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tvremote/config"
	"tvremote/internal/infra/simulator"
	"tvremote/internal/infra/sqlite"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the TV simulator and command execution API",
		Long:  "Serve the command execution HTTP API and a simulated TV control channel at /remote.\nRuns until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sc := a.cfg.Simulator
			if addr != "" {
				sc.Addr = addr
			}

			history, closeHistory, err := openHistory(sc)
			if err != nil {
				return err
			}
			defer closeHistory()

			var opts []simulator.ExecutorOption
			if sc.NoLatency {
				opts = append(opts, simulator.WithoutLatency())
			}

			devices := a.cfg.DeviceList()
			if len(devices) == 0 {
				devices = simulator.DefaultDevices
			}

			srv := simulator.NewServer(simulator.Config{
				Addr:        sc.Addr,
				DeviceID:    sc.DeviceID,
				Devices:     devices,
				OfflineRate: sc.OfflineRate,
				RateLimit:   sc.RateLimit,
				RateWindow:  a.duration("simulator.rate_window", sc.RateWindow, time.Minute),
			}, simulator.NewExecutor(opts...), history, a.logger)

			if err := srv.Start(ctx); err != nil {
				return fmt.Errorf("starting simulator: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Simulator listening on %s\n", srv.Addr())

			<-ctx.Done()
			a.logger.Info("shutting down")
			return srv.Stop()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides simulator.addr)")
	return cmd
}

func openHistory(sc config.SimulatorConfig) (simulator.History, func(), error) {
	switch sc.History {
	case "sqlite":
		h, err := sqlite.Open(sc.HistoryPath, sc.HistorySize)
		if err != nil {
			return nil, nil, fmt.Errorf("opening history: %w", err)
		}
		return h, func() { _ = h.Close() }, nil
	case "memory":
		return simulator.NewMemoryHistory(sc.HistorySize), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown history store %q", sc.History)
	}
}
