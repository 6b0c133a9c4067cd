package ui

import (
	"strconv"

	"tvremote/internal/domain"
)

// Binding ties a key to the command it sends.
type Binding struct {
	Key   string
	Label string
	Type  domain.CommandType
	Act   string
	Value *domain.Value
}

func (b Binding) Command() domain.Command {
	cmd := domain.NewCommand(b.Type, b.Act)
	if b.Value != nil {
		cmd = cmd.WithValue(b.Value)
	}
	return cmd
}

// Keymap resolves key presses (as reported by tea.KeyMsg.String) to
// remote commands.
type Keymap struct {
	bindings []Binding
	byKey    map[string]Binding
}

func NewKeymap(bindings []Binding) *Keymap {
	km := &Keymap{bindings: bindings, byKey: make(map[string]Binding, len(bindings))}
	for _, b := range bindings {
		km.byKey[b.Key] = b
	}
	return km
}

// DefaultKeymap binds navigation to the arrow keys, digits to the number
// pad and a handful of letters to media, volume, channel, apps and system.
func DefaultKeymap() *Keymap {
	bindings := []Binding{
		{Key: "up", Label: "up", Type: domain.CommandNavigation, Act: domain.ActionUp},
		{Key: "down", Label: "down", Type: domain.CommandNavigation, Act: domain.ActionDown},
		{Key: "left", Label: "left", Type: domain.CommandNavigation, Act: domain.ActionLeft},
		{Key: "right", Label: "right", Type: domain.CommandNavigation, Act: domain.ActionRight},
		{Key: "enter", Label: "ok", Type: domain.CommandNavigation, Act: domain.ActionOK},
		{Key: "backspace", Label: "back", Type: domain.CommandNavigation, Act: domain.ActionBack},
		{Key: "h", Label: "home", Type: domain.CommandNavigation, Act: domain.ActionHome},
		{Key: "g", Label: "menu", Type: domain.CommandNavigation, Act: domain.ActionMenu},

		{Key: "s", Label: "stop", Type: domain.CommandMedia, Act: domain.ActionStop},
		{Key: ",", Label: "rewind", Type: domain.CommandMedia, Act: domain.ActionRewind},
		{Key: ".", Label: "fast forward", Type: domain.CommandMedia, Act: domain.ActionFastForward},
		{Key: "<", Label: "previous", Type: domain.CommandMedia, Act: domain.ActionPrevious},
		{Key: ">", Label: "next", Type: domain.CommandMedia, Act: domain.ActionNext},

		{Key: "+", Label: "vol +", Type: domain.CommandVolume, Act: domain.ActionUp},
		{Key: "=", Label: "vol +", Type: domain.CommandVolume, Act: domain.ActionUp},
		{Key: "-", Label: "vol -", Type: domain.CommandVolume, Act: domain.ActionDown},
		{Key: "m", Label: "mute", Type: domain.CommandVolume, Act: domain.ActionMute},

		{Key: "]", Label: "ch +", Type: domain.CommandChannel, Act: domain.ActionUp},
		{Key: "[", Label: "ch -", Type: domain.CommandChannel, Act: domain.ActionDown},

		{Key: "p", Label: "power", Type: domain.CommandSystem, Act: domain.ActionPower},
		{Key: "i", Label: "input", Type: domain.CommandSystem, Act: domain.ActionInput},
		{Key: "o", Label: "settings", Type: domain.CommandSystem, Act: domain.ActionSettings},
	}

	for d := 0; d <= 9; d++ {
		bindings = append(bindings, Binding{
			Key:   strconv.Itoa(d),
			Label: strconv.Itoa(d),
			Type:  domain.CommandNumber,
			Act:   domain.ActionDigit,
			Value: domain.NumberValue(float64(d)),
		})
	}

	appKeys := map[string]string{
		"netflix":     "n",
		"youtube":     "y",
		"prime-video": "v",
		"disney-plus": "d",
		"hulu":        "u",
		"hbo-max":     "b",
	}
	for _, app := range domain.StreamingApps {
		key, ok := appKeys[app.ID]
		if !ok {
			continue
		}
		bindings = append(bindings, Binding{
			Key:   key,
			Label: app.Name,
			Type:  domain.CommandApp,
			Act:   domain.ActionLaunch,
			Value: domain.StringValue(app.PackageName),
		})
	}

	return NewKeymap(bindings)
}

func (k *Keymap) Lookup(key string) (Binding, bool) {
	b, ok := k.byKey[key]
	return b, ok
}

func (k *Keymap) Bindings() []Binding {
	return k.bindings
}

// PlaybackCommand toggles between play and pause from the mirrored state.
func PlaybackCommand(state domain.RemoteState) domain.Command {
	if state.IsPlaying {
		return domain.NewCommand(domain.CommandMedia, domain.ActionPause)
	}
	return domain.NewCommand(domain.CommandMedia, domain.ActionPlay)
}
