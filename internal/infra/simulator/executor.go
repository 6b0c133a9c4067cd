package simulator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"tvremote/internal/domain"
)

// ValidationError is returned for requests that can never be executed.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Result is the outcome of executing one command on the simulated TV.
type Result struct {
	Success bool           `json:"success"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type profile struct {
	latency     time.Duration
	failureRate float64
}

var profiles = map[domain.CommandType]profile{
	domain.CommandNavigation: {latency: 100 * time.Millisecond, failureRate: 0.02},
	domain.CommandMedia:      {latency: 150 * time.Millisecond, failureRate: 0.03},
	domain.CommandVolume:     {latency: 100 * time.Millisecond, failureRate: 0.01},
	domain.CommandChannel:    {latency: 200 * time.Millisecond, failureRate: 0.05},
	domain.CommandNumber:     {latency: 50 * time.Millisecond, failureRate: 0.01},
	domain.CommandApp:        {latency: time.Second, failureRate: 0.10},
	domain.CommandSystem:     {latency: 300 * time.Millisecond, failureRate: 0.02},
}

type ExecutorOption func(*Executor)

// WithRandom replaces the random source. fn must return values in [0, 1).
func WithRandom(fn func() float64) ExecutorOption {
	return func(e *Executor) {
		e.random = fn
	}
}

// WithoutLatency disables the simulated per-type execution delay.
func WithoutLatency() ExecutorOption {
	return func(e *Executor) {
		e.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	}
}

// Executor simulates command execution on a TV: it validates the action,
// waits the type's latency and fails at the type's rate.
type Executor struct {
	random func() float64
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		random: rand.Float64,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Execute(ctx context.Context, deviceID string, cmd domain.Command) (Result, error) {
	if deviceID == "" {
		return Result{}, &ValidationError{Message: "Command and device ID are required"}
	}
	if cmd.Type == "" || cmd.Action == "" {
		return Result{}, &ValidationError{Message: "Invalid command structure. Type and action are required."}
	}

	p, ok := profiles[cmd.Type]
	if !ok {
		return Result{}, &ValidationError{Message: fmt.Sprintf("Unsupported command type: %s", cmd.Type)}
	}

	if err := e.sleep(ctx, p.latency); err != nil {
		return Result{}, fmt.Errorf("executing %s: %w", cmd, err)
	}

	if !domain.IsKnownAction(cmd.Type, cmd.Action) {
		return Result{
			Success: false,
			Error:   fmt.Sprintf("Invalid %s action: %s", cmd.Type, cmd.Action),
		}, nil
	}

	return Result{
		Success: e.random() > p.failureRate,
		Result:  e.payload(cmd),
	}, nil
}

func (e *Executor) payload(cmd domain.Command) map[string]any {
	out := map[string]any{
		"action":   cmd.Action,
		"executed": true,
	}

	switch cmd.Type {
	case domain.CommandMedia:
		switch cmd.Action {
		case domain.ActionPlay:
			out["mediaState"] = "playing"
		case domain.ActionPause:
			out["mediaState"] = "paused"
		case domain.ActionStop:
			out["mediaState"] = "stopped"
		default:
			out["mediaState"] = "unknown"
		}
	case domain.CommandVolume:
		out["volume"] = volumeLevel(cmd.Action)
		out["muted"] = cmd.Action == domain.ActionMute
	case domain.CommandChannel:
		out["channel"] = e.channel(cmd)
	case domain.CommandNumber:
		out["value"] = cmd.Value.String()
	case domain.CommandApp:
		out["packageName"] = cmd.Value.String()
		out["launched"] = true
	}
	return out
}

func volumeLevel(action string) int {
	switch action {
	case domain.ActionUp:
		return 55
	case domain.ActionDown:
		return 45
	case "set-25":
		return 25
	case "set-75":
		return 75
	case domain.ActionMute:
		return 0
	default:
		return 50
	}
}

func (e *Executor) channel(cmd domain.Command) int {
	switch cmd.Action {
	case domain.ActionUp:
		return int(e.random()*500) + 2
	case domain.ActionDown:
		return int(e.random()*500) + 1
	case domain.ActionSet:
		if n, ok := cmd.Value.Number(); ok {
			return int(n)
		}
		return 1
	case "last":
		return int(e.random()*100) + 1
	case "favorite":
		return int(e.random()*50) + 1
	default:
		return 1
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
