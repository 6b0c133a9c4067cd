package domain

import "math"

const (
	MinVolume  = 0
	MaxVolume  = 100
	MinChannel = 1
	MaxChannel = math.MaxInt32
)

// RemoteState is the UI-facing mirror of the device. It is best effort and
// may drift until a device state push corrects it.
type RemoteState struct {
	IsConnected    bool     `json:"isConnected"`
	CurrentDevice  *Device  `json:"currentDevice"`
	Volume         int      `json:"volume"`
	IsMuted        bool     `json:"isMuted"`
	CurrentChannel int      `json:"currentChannel"`
	CurrentInput   string   `json:"currentInput"`
	IsPlaying      bool     `json:"isPlaying"`
	LastCommand    *Command `json:"lastCommand"`
}

func InitialRemoteState() RemoteState {
	return RemoteState{
		Volume:         50,
		CurrentChannel: 1,
		CurrentInput:   "HDMI1",
	}
}

// DeviceState is a partial state update. Nil fields are left untouched.
type DeviceState struct {
	Volume         *int    `json:"volume,omitempty"`
	IsMuted        *bool   `json:"isMuted,omitempty"`
	CurrentChannel *int    `json:"currentChannel,omitempty"`
	CurrentInput   *string `json:"currentInput,omitempty"`
	IsPlaying      *bool   `json:"isPlaying,omitempty"`
}

func (d DeviceState) Empty() bool {
	return d.Volume == nil && d.IsMuted == nil && d.CurrentChannel == nil &&
		d.CurrentInput == nil && d.IsPlaying == nil
}

// Outcome is anything that moves a RemoteState forward: an accepted
// command or a state push from the device.
type Outcome interface {
	apply(s RemoteState) RemoteState
}

type CommandAccepted struct {
	Command Command
}

func (c CommandAccepted) apply(s RemoteState) RemoteState {
	cmd := c.Command
	next := applyDelta(s, Expected(s, cmd))
	next.LastCommand = &cmd
	return next
}

func (d DeviceState) apply(s RemoteState) RemoteState {
	return applyDelta(s, d)
}

func Reduce(s RemoteState, o Outcome) RemoteState {
	return o.apply(s)
}

// Expected returns the state change a command is expected to cause on the
// device. Navigation, number, app and system commands have no local effect.
func Expected(s RemoteState, cmd Command) DeviceState {
	var d DeviceState

	switch cmd.Type {
	case CommandVolume:
		switch cmd.Action {
		case ActionUp:
			d.Volume = ptr(s.Volume + 1)
			d.IsMuted = ptr(false)
		case ActionDown:
			d.Volume = ptr(s.Volume - 1)
			d.IsMuted = ptr(false)
		case ActionMute:
			d.IsMuted = ptr(!s.IsMuted)
		}
	case CommandChannel:
		switch cmd.Action {
		case ActionUp:
			d.CurrentChannel = ptr(s.CurrentChannel + 1)
		case ActionDown:
			d.CurrentChannel = ptr(s.CurrentChannel - 1)
		case ActionSet:
			if n, ok := cmd.Value.Number(); ok && !math.IsNaN(n) {
				d.CurrentChannel = ptr(int(math.Min(math.Max(n, MinChannel), MaxChannel)))
			}
		}
	case CommandMedia:
		switch cmd.Action {
		case ActionPlay:
			d.IsPlaying = ptr(true)
		case ActionPause:
			d.IsPlaying = ptr(false)
		}
	}

	return d
}

func applyDelta(s RemoteState, d DeviceState) RemoteState {
	if d.Volume != nil {
		s.Volume = min(max(*d.Volume, MinVolume), MaxVolume)
	}
	if d.IsMuted != nil {
		s.IsMuted = *d.IsMuted
	}
	if d.CurrentChannel != nil {
		s.CurrentChannel = max(*d.CurrentChannel, MinChannel)
	}
	if d.CurrentInput != nil {
		s.CurrentInput = *d.CurrentInput
	}
	if d.IsPlaying != nil {
		s.IsPlaying = *d.IsPlaying
	}
	return s
}

// Snapshot reports every field of s as a DeviceState.
func Snapshot(s RemoteState) DeviceState {
	return DeviceState{
		Volume:         ptr(s.Volume),
		IsMuted:        ptr(s.IsMuted),
		CurrentChannel: ptr(s.CurrentChannel),
		CurrentInput:   ptr(s.CurrentInput),
		IsPlaying:      ptr(s.IsPlaying),
	}
}

func ptr[T any](v T) *T {
	return &v
}
