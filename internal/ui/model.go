// Package ui is the terminal remote: key presses become commands sent
// through the remote state store, and store changes re-render the view.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tvremote/internal/application"
	"tvremote/internal/domain"
)

// Remote is the part of application.RemoteStore the terminal remote uses.
type Remote interface {
	SendCommand(ctx context.Context, cmd domain.Command) bool
	Connect(ctx context.Context, device domain.Device) bool
	Disconnect()
	ClearError()
	State() domain.RemoteState
	Err() string
	Loading() bool
	OnChange(fn func(domain.RemoteState)) *application.Subscription
}

// StatusFeed reports connection status, including reconnect progress that
// the mirrored RemoteState does not carry.
type StatusFeed interface {
	Status() domain.ConnectionStatus
	OnStatusChange(fn func(domain.ConnectionStatus)) *application.Subscription
}

// stateMsg carries a store snapshot published through OnChange.
type stateMsg domain.RemoteState

type statusMsg domain.ConnectionStatus

// doneMsg is returned once a command or connect call has finished.
type doneMsg struct {
	label string
	ok    bool
}

type Model struct {
	ctx    context.Context
	remote Remote
	device *domain.Device
	keys   *Keymap
	styles styles

	state   domain.RemoteState
	status  domain.ConnectionStatus
	errMsg  string
	loading bool
	last    string
	lastOK  bool
	width   int
}

func NewModel(ctx context.Context, remote Remote, device *domain.Device) Model {
	return Model{
		ctx:    ctx,
		remote: remote,
		device: device,
		keys:   DefaultKeymap(),
		styles: newStyles(DefaultTheme()),
		state:  remote.State(),
		status: domain.InitialStatus(),
		errMsg: remote.Err(),
	}
}

// WithStatus seeds the connection status line.
func (m Model) WithStatus(status domain.ConnectionStatus) Model {
	m.status = status
	return m
}

// Init connects to the target device when there is one and the store is
// not already connected.
func (m Model) Init() tea.Cmd {
	if m.device != nil && !m.state.IsConnected {
		return m.connectCmd()
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case stateMsg:
		m.state = domain.RemoteState(msg)
		m.refresh()

	case statusMsg:
		m.status = domain.ConnectionStatus(msg)

	case doneMsg:
		m.lastOK = msg.ok
		m.state = m.remote.State()
		m.refresh()
	}

	return m, nil
}

func (m *Model) refresh() {
	m.errMsg = m.remote.Err()
	m.loading = m.remote.Loading()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "c":
		if m.device == nil {
			return m, nil
		}
		m.last = "connect"
		return m, m.connectCmd()
	case "x":
		m.last = "disconnect"
		remote := m.remote
		return m, func() tea.Msg {
			remote.Disconnect()
			return doneMsg{label: "disconnect", ok: true}
		}
	case "esc":
		m.remote.ClearError()
		m.errMsg = ""
		return m, nil
	case " ":
		cmd := PlaybackCommand(m.state)
		return m.send(cmd.Action, cmd)
	}

	b, ok := m.keys.Lookup(key)
	if !ok {
		return m, nil
	}
	return m.send(b.Label, b.Command())
}

func (m Model) send(label string, cmd domain.Command) (tea.Model, tea.Cmd) {
	m.last = label
	ctx, remote := m.ctx, m.remote
	return m, func() tea.Msg {
		return doneMsg{label: label, ok: remote.SendCommand(ctx, cmd)}
	}
}

func (m Model) connectCmd() tea.Cmd {
	ctx, remote, device := m.ctx, m.remote, *m.device
	return func() tea.Msg {
		return doneMsg{label: "connect", ok: remote.Connect(ctx, device)}
	}
}

func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.styles.title.Render("TV Remote"))
	sb.WriteString("\n")
	sb.WriteString(m.renderStatusLine())
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.panel.Render(m.renderState()))
	sb.WriteString("\n")

	if m.last != "" {
		result := "sent"
		if m.loading {
			result = "sending..."
		} else if !m.lastOK {
			result = "not accepted"
		}
		fmt.Fprintf(&sb, "%s %s (%s)\n", m.styles.label.Render("last:"), m.last, result)
	}
	if m.errMsg != "" {
		sb.WriteString(m.styles.err.Render("! "+m.errMsg) + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.help.Render(m.renderHelp()))
	return sb.String()
}

func (m Model) renderStatusLine() string {
	status := m.status
	if m.state.IsConnected && !status.Connected() {
		status = domain.ConnectionStatus{State: domain.StateConnected, Message: "Connected"}
	}
	if m.state.CurrentDevice != nil && status.Connected() {
		status.Message = "Connected to " + m.state.CurrentDevice.Name
	}

	style := m.styles.offline
	switch status.State {
	case domain.StateConnected:
		style = m.styles.online
	case domain.StateConnecting:
		style = m.styles.busy
	}
	return style.Render("● " + status.Message)
}

func (m Model) renderState() string {
	s := m.state

	volume := fmt.Sprintf("%d", s.Volume)
	if s.IsMuted {
		volume += " (muted)"
	}
	playing := "paused"
	if s.IsPlaying {
		playing = "playing"
	}

	rows := [][2]string{
		{"volume", volume},
		{"channel", fmt.Sprintf("%d", s.CurrentChannel)},
		{"input", s.CurrentInput},
		{"playback", playing},
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			m.styles.label.Width(10).Render(r[0]), r[1]))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHelp() string {
	return strings.Join([]string{
		"arrows/enter/backspace navigate   +/- volume   m mute   [/] channel   0-9 digits",
		"space play/pause   s stop   ,/. seek   n y v d u b apps   p power   i input",
		"c connect   x disconnect   esc clear error   q quit",
	}, "\n")
}

// Run drives the terminal remote until the user quits or ctx is cancelled.
// status may be nil.
func Run(ctx context.Context, remote Remote, status StatusFeed, device *domain.Device) error {
	m := NewModel(ctx, remote, device)
	if status != nil {
		m = m.WithStatus(status.Status())
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	changes := remote.OnChange(func(s domain.RemoteState) { p.Send(stateMsg(s)) })
	defer changes.Unsubscribe()

	if status != nil {
		sub := status.OnStatusChange(func(s domain.ConnectionStatus) { p.Send(statusMsg(s)) })
		defer sub.Unsubscribe()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running remote: %w", err)
	}
	return nil
}
