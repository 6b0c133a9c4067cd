package simulator

import (
	"strings"
	"sync"

	"tvremote/internal/domain"
)

// TV is the simulated device state behind the /remote endpoint. It follows
// the client's optimistic rules and additionally understands the preset
// volume levels and input switching, so its pushes can correct a client.
type TV struct {
	mu    sync.Mutex
	state domain.RemoteState
}

func NewTV() *TV {
	return &TV{state: domain.InitialRemoteState()}
}

// Apply executes an accepted command and returns the resulting full state.
func (tv *TV) Apply(cmd domain.Command) domain.DeviceState {
	tv.mu.Lock()
	defer tv.mu.Unlock()

	delta := domain.Expected(tv.state, cmd)
	switch {
	case cmd.Type == domain.CommandVolume && strings.HasPrefix(cmd.Action, "set-"):
		level := volumeLevel(cmd.Action)
		delta.Volume = &level
	case cmd.Type == domain.CommandMedia && cmd.Action == domain.ActionStop:
		playing := false
		delta.IsPlaying = &playing
	case cmd.Type == domain.CommandSystem && cmd.Action == domain.ActionInput && cmd.Value != nil:
		input := cmd.Value.String()
		delta.CurrentInput = &input
	}

	tv.state = domain.Reduce(tv.state, delta)
	return domain.Snapshot(tv.state)
}

func (tv *TV) State() domain.DeviceState {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return domain.Snapshot(tv.state)
}
