package simulator_test

import (
	"context"
	"errors"
	"testing"

	"tvremote/internal/domain"
	"tvremote/internal/infra/simulator"
)

func fixedRandom(v float64) func() float64 {
	return func() float64 { return v }
}

func TestExecutor_Validation(t *testing.T) {
	exec := simulator.NewExecutor(simulator.WithoutLatency())

	tests := []struct {
		name     string
		deviceID string
		cmd      domain.Command
		want     string
	}{
		{"missing device", "", domain.NewCommand(domain.CommandVolume, domain.ActionUp), "Command and device ID are required"},
		{"missing action", "tv", domain.Command{Type: domain.CommandVolume}, "Invalid command structure. Type and action are required."},
		{"missing type", "tv", domain.Command{Action: domain.ActionUp}, "Invalid command structure. Type and action are required."},
		{"unsupported type", "tv", domain.Command{Type: "laser", Action: "fire"}, "Unsupported command type: laser"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := exec.Execute(context.Background(), tt.deviceID, tt.cmd)

			var invalid *simulator.ValidationError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if invalid.Message != tt.want {
				t.Errorf("message: got %q, want %q", invalid.Message, tt.want)
			}
		})
	}
}

func TestExecutor_UnknownActionIsAFailedResult(t *testing.T) {
	exec := simulator.NewExecutor(simulator.WithoutLatency(), simulator.WithRandom(fixedRandom(0.99)))

	res, err := exec.Execute(context.Background(), "tv", domain.NewCommand(domain.CommandNavigation, "jump"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("unknown action must not succeed")
	}
	if res.Error != "Invalid navigation action: jump" {
		t.Errorf("error: got %q", res.Error)
	}
}

func TestExecutor_FailureRates(t *testing.T) {
	// 0.015 sits between the volume (1%) and navigation (2%) failure rates
	exec := simulator.NewExecutor(simulator.WithoutLatency(), simulator.WithRandom(fixedRandom(0.015)))

	tests := []struct {
		cmd  domain.Command
		want bool
	}{
		{domain.NewCommand(domain.CommandVolume, domain.ActionUp), true},
		{domain.NewCommand(domain.CommandNumber, domain.ActionEnter), true},
		{domain.NewCommand(domain.CommandNavigation, domain.ActionUp), false},
		{domain.NewCommand(domain.CommandChannel, domain.ActionUp), false},
		{domain.NewCommand(domain.CommandApp, domain.ActionLaunch), false},
	}

	for _, tt := range tests {
		res, err := exec.Execute(context.Background(), "tv", tt.cmd)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.cmd, err)
		}
		if res.Success != tt.want {
			t.Errorf("%s: success got %v, want %v", tt.cmd, res.Success, tt.want)
		}
	}
}

func TestExecutor_Payloads(t *testing.T) {
	exec := simulator.NewExecutor(simulator.WithoutLatency(), simulator.WithRandom(fixedRandom(0.5)))
	ctx := context.Background()

	res, _ := exec.Execute(ctx, "tv", domain.NewCommand(domain.CommandVolume, "set-75"))
	if res.Result["volume"] != 75 {
		t.Errorf("volume: got %v, want 75", res.Result["volume"])
	}

	res, _ = exec.Execute(ctx, "tv", domain.NewCommand(domain.CommandVolume, domain.ActionMute))
	if res.Result["muted"] != true {
		t.Errorf("muted: got %v, want true", res.Result["muted"])
	}

	res, _ = exec.Execute(ctx, "tv", domain.NewCommand(domain.CommandChannel, domain.ActionSet).WithValue(domain.NumberValue(42)))
	if res.Result["channel"] != 42 {
		t.Errorf("channel: got %v, want 42", res.Result["channel"])
	}

	res, _ = exec.Execute(ctx, "tv", domain.NewCommand(domain.CommandChannel, domain.ActionUp))
	if res.Result["channel"] != 252 {
		t.Errorf("channel up: got %v, want 252", res.Result["channel"])
	}

	res, _ = exec.Execute(ctx, "tv", domain.LaunchApp(domain.StreamingApps[0]))
	if res.Result["packageName"] != "com.netflix.mediaclient" {
		t.Errorf("package: got %v", res.Result["packageName"])
	}

	res, _ = exec.Execute(ctx, "tv", domain.NewCommand(domain.CommandMedia, domain.ActionPause))
	if res.Result["mediaState"] != "paused" {
		t.Errorf("media state: got %v", res.Result["mediaState"])
	}
}

func TestExecutor_LatencyHonoursContext(t *testing.T) {
	exec := simulator.NewExecutor()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Execute(ctx, "tv", domain.LaunchApp(domain.StreamingApps[1]))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
