package ui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"tvremote/internal/application"
	"tvremote/internal/domain"
)

type fakeRemote struct {
	mu        sync.Mutex
	state     domain.RemoteState
	err       string
	sent      []domain.Command
	connected []domain.Device
	accept    bool
	cleared   bool
	changes   application.Topic[domain.RemoteState]
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{state: domain.InitialRemoteState(), accept: true}
}

func (f *fakeRemote) SendCommand(_ context.Context, cmd domain.Command) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	if f.accept {
		f.state = domain.Reduce(f.state, domain.CommandAccepted{Command: cmd})
	}
	return f.accept
}

func (f *fakeRemote) Connect(_ context.Context, device domain.Device) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = append(f.connected, device)
	f.state.IsConnected = true
	f.state.CurrentDevice = &device
	return true
}

func (f *fakeRemote) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = domain.InitialRemoteState()
}

func (f *fakeRemote) ClearError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = ""
	f.cleared = true
}

func (f *fakeRemote) State() domain.RemoteState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeRemote) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeRemote) Loading() bool { return false }

func (f *fakeRemote) OnChange(fn func(domain.RemoteState)) *application.Subscription {
	return f.changes.Subscribe(fn)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds a key through Update and runs the returned command, if any.
func press(t *testing.T, m Model, s string) Model {
	t.Helper()
	next, cmd := m.Update(key(s))
	m = next.(Model)
	if cmd != nil {
		next, _ = m.Update(cmd())
		m = next.(Model)
	}
	return m
}

func TestDefaultKeymap(t *testing.T) {
	km := DefaultKeymap()

	tests := []struct {
		key    string
		typ    domain.CommandType
		action string
		value  string
	}{
		{"up", domain.CommandNavigation, domain.ActionUp, ""},
		{"enter", domain.CommandNavigation, domain.ActionOK, ""},
		{"+", domain.CommandVolume, domain.ActionUp, ""},
		{"m", domain.CommandVolume, domain.ActionMute, ""},
		{"]", domain.CommandChannel, domain.ActionUp, ""},
		{"7", domain.CommandNumber, domain.ActionDigit, "7"},
		{"n", domain.CommandApp, domain.ActionLaunch, "com.netflix.mediaclient"},
		{"p", domain.CommandSystem, domain.ActionPower, ""},
	}

	for _, tt := range tests {
		b, ok := km.Lookup(tt.key)
		if !ok {
			t.Errorf("key %q not bound", tt.key)
			continue
		}
		cmd := b.Command()
		if cmd.Type != tt.typ || cmd.Action != tt.action || cmd.Value.String() != tt.value {
			t.Errorf("key %q: got %s", tt.key, cmd)
		}
	}

	if _, ok := km.Lookup("z"); ok {
		t.Error("z must be unbound")
	}
}

func TestDefaultKeymap_OnlyKnownActions(t *testing.T) {
	for _, b := range DefaultKeymap().Bindings() {
		if !domain.IsKnownAction(b.Type, b.Act) {
			t.Errorf("key %q sends unknown action %s/%s", b.Key, b.Type, b.Act)
		}
	}
}

func TestModel_VolumeKeySendsCommand(t *testing.T) {
	remote := newFakeRemote()
	remote.state.IsConnected = true
	m := NewModel(context.Background(), remote, nil)

	m = press(t, m, "+")

	if len(remote.sent) != 1 || remote.sent[0].Type != domain.CommandVolume {
		t.Fatalf("unexpected commands: %v", remote.sent)
	}
	if m.state.Volume != 51 {
		t.Errorf("volume: got %d, want 51", m.state.Volume)
	}
	if !strings.Contains(m.View(), "51") {
		t.Errorf("view does not show volume:\n%s", m.View())
	}
}

func TestModel_SpaceTogglesPlayback(t *testing.T) {
	remote := newFakeRemote()
	remote.state.IsConnected = true
	m := NewModel(context.Background(), remote, nil)

	m = press(t, m, " ")
	m = press(t, m, " ")

	if len(remote.sent) != 2 {
		t.Fatalf("sent %d commands, want 2", len(remote.sent))
	}
	if remote.sent[0].Action != domain.ActionPlay || remote.sent[1].Action != domain.ActionPause {
		t.Errorf("unexpected actions: %s, %s", remote.sent[0], remote.sent[1])
	}
}

func TestModel_InitConnectsToDevice(t *testing.T) {
	remote := newFakeRemote()
	device := domain.Device{ID: "tv-1", Name: "Living Room TV", IPAddress: "127.0.0.1", Port: 8080}
	m := NewModel(context.Background(), remote, &device)

	cmd := m.Init()
	if cmd == nil {
		t.Fatal("expected connect command")
	}
	next, _ := m.Update(cmd())
	m = next.(Model)

	if len(remote.connected) != 1 {
		t.Fatalf("connect calls: got %d", len(remote.connected))
	}
	if !strings.Contains(m.View(), "Connected to Living Room TV") {
		t.Errorf("view:\n%s", m.View())
	}
}

func TestModel_StateAndStatusMessages(t *testing.T) {
	remote := newFakeRemote()
	m := NewModel(context.Background(), remote, nil)

	remote.err = "Command timeout"
	state := domain.InitialRemoteState()
	state.CurrentChannel = 12
	next, _ := m.Update(stateMsg(state))
	m = next.(Model)
	next, _ = m.Update(statusMsg{State: domain.StateConnecting, Message: "Reconnecting... (2/5)"})
	m = next.(Model)

	view := m.View()
	for _, want := range []string{"12", "Command timeout", "Reconnecting... (2/5)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m = press(t, m, "esc")
	if !remote.cleared || m.errMsg != "" {
		t.Error("esc must clear the error")
	}
}

func TestModel_UnboundKeyAndQuit(t *testing.T) {
	remote := newFakeRemote()
	m := NewModel(context.Background(), remote, nil)

	if _, cmd := m.Update(key("z")); cmd != nil {
		t.Error("unbound key must not produce a command")
	}

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q must quit")
	}
}
