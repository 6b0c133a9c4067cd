package domain

import "slices"

const (
	ActionUp    = "up"
	ActionDown  = "down"
	ActionLeft  = "left"
	ActionRight = "right"
	ActionOK    = "ok"
	ActionBack  = "back"
	ActionHome  = "home"
	ActionMenu  = "menu"

	ActionPlay        = "play"
	ActionPause       = "pause"
	ActionStop        = "stop"
	ActionRewind      = "rewind"
	ActionFastForward = "fastforward"
	ActionPrevious    = "previous"
	ActionNext        = "next"

	ActionMute = "mute"
	ActionSet  = "set"

	ActionDigit  = "digit"
	ActionEnter  = "enter"
	ActionLaunch = "launch"

	ActionPower    = "power"
	ActionSettings = "settings"
	ActionInput    = "input"
)

// KnownActions is the action whitelist per command type accepted by the
// command execution endpoint. The session does not consult it.
var KnownActions = map[CommandType][]string{
	CommandNavigation: {ActionUp, ActionDown, ActionLeft, ActionRight, ActionOK, ActionBack, ActionHome, ActionMenu},
	CommandMedia: {
		ActionPlay, ActionPause, ActionStop, ActionRewind, ActionFastForward,
		ActionPrevious, ActionNext, "record", "30-second-skip", "10-second-rewind", "replay", "live",
	},
	CommandVolume:  {ActionUp, ActionDown, ActionMute, "set-25", "set-50", "set-75"},
	CommandChannel: {ActionUp, ActionDown, ActionSet, "last", "favorite", "list"},
	CommandNumber:  {ActionDigit, ActionEnter},
	CommandApp:     {ActionLaunch},
	CommandSystem: {
		ActionPower, ActionSettings, "assistant", ActionInput, "search",
		"voice_search", "sleep", "guide", "info",
	},
}

func IsKnownAction(t CommandType, action string) bool {
	return slices.Contains(KnownActions[t], action)
}

type AppShortcut struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PackageName string `json:"packageName"`
	Color       string `json:"color"`
}

var StreamingApps = []AppShortcut{
	{ID: "netflix", Name: "Netflix", PackageName: "com.netflix.mediaclient", Color: "#E50914"},
	{ID: "youtube", Name: "YouTube", PackageName: "com.google.android.youtube.tv", Color: "#FF0000"},
	{ID: "prime-video", Name: "Prime Video", PackageName: "com.amazon.avod.thirdpartyclient", Color: "#00A8E1"},
	{ID: "disney-plus", Name: "Disney+", PackageName: "com.disney.disneyplus", Color: "#113CCF"},
	{ID: "hulu", Name: "Hulu", PackageName: "com.hulu.plus", Color: "#1CE783"},
	{ID: "hbo-max", Name: "HBO Max", PackageName: "com.hbo.hbonow", Color: "#652DC1"},
}

func LaunchApp(app AppShortcut) Command {
	return NewCommand(CommandApp, ActionLaunch).WithValue(StringValue(app.PackageName))
}
