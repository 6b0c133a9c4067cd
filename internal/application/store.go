package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tvremote/internal/domain"
)

const notConnectedMessage = "Not connected to TV"

type StoreConfig struct {
	// ErrorTTL is how long a transient error stays visible.
	ErrorTTL time.Duration
}

// RemoteStore sits between the UI and a session. It mirrors the device in
// a RemoteState, applies optimistic updates for accepted commands and turns
// every failure into a transient error string.
type RemoteStore struct {
	control  RemoteControl
	logger   *slog.Logger
	errorTTL time.Duration

	mu       sync.Mutex
	state    domain.RemoteState
	err      string
	errGen   uint64
	errTimer *time.Timer
	inFlight int
	subs     []*Subscription

	changes Topic[domain.RemoteState]
}

func NewRemoteStore(control RemoteControl, cfg StoreConfig, logger *slog.Logger) *RemoteStore {
	if cfg.ErrorTTL <= 0 {
		cfg.ErrorTTL = 5 * time.Second
	}

	s := &RemoteStore{
		control:  control,
		logger:   logger,
		errorTTL: cfg.ErrorTTL,
		state:    domain.InitialRemoteState(),
	}

	s.subs = []*Subscription{
		control.OnDeviceState(s.handleDeviceState),
		control.OnStatusChange(s.handleStatus),
		control.OnError(s.handleError),
	}
	s.handleStatus(control.Status())

	return s
}

// OnChange registers fn to receive a snapshot after every state change.
func (s *RemoteStore) OnChange(fn func(domain.RemoteState)) *Subscription {
	return s.changes.Subscribe(fn)
}

func (s *RemoteStore) State() domain.RemoteState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the current transient error, or "" when there is none.
func (s *RemoteStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *RemoteStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

// SendCommand forwards cmd to the session and reports whether the device
// accepted it. The connected check is made against the mirrored state, so a
// command racing a disconnect may be refused locally.
func (s *RemoteStore) SendCommand(ctx context.Context, cmd domain.Command) bool {
	s.mu.Lock()
	if !s.state.IsConnected {
		s.setErrorLocked(notConnectedMessage)
		snapshot := s.state
		s.mu.Unlock()
		s.changes.Publish(snapshot)
		return false
	}
	s.inFlight++
	s.clearErrorLocked()
	s.mu.Unlock()

	ok, err := s.control.SendCommand(ctx, cmd)

	s.mu.Lock()
	s.inFlight--
	switch {
	case err != nil:
		s.logger.Warn("command failed", "command", cmd.String(), "error", err)
		s.setErrorLocked(err.Error())
	case ok:
		s.state = domain.Reduce(s.state, domain.CommandAccepted{Command: cmd})
	default:
		s.logger.Info("command rejected by device", "command", cmd.String())
	}
	snapshot := s.state
	s.mu.Unlock()

	s.changes.Publish(snapshot)
	return err == nil && ok
}

func (s *RemoteStore) Connect(ctx context.Context, device domain.Device) bool {
	s.mu.Lock()
	s.inFlight++
	s.clearErrorLocked()
	s.mu.Unlock()

	err := s.control.Connect(ctx, device)

	s.mu.Lock()
	s.inFlight--
	if err != nil {
		s.setErrorLocked(err.Error())
	}
	snapshot := s.state
	s.mu.Unlock()

	s.changes.Publish(snapshot)
	return err == nil
}

// Disconnect drops the session and resets the mirror to its initial state.
func (s *RemoteStore) Disconnect() {
	s.control.Disconnect()

	s.mu.Lock()
	s.state = domain.InitialRemoteState()
	snapshot := s.state
	s.mu.Unlock()

	s.changes.Publish(snapshot)
}

func (s *RemoteStore) ClearError() {
	s.mu.Lock()
	s.clearErrorLocked()
	snapshot := s.state
	s.mu.Unlock()

	s.changes.Publish(snapshot)
}

// Close detaches the store from the session.
func (s *RemoteStore) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	if s.errTimer != nil {
		s.errTimer.Stop()
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func (s *RemoteStore) handleStatus(status domain.ConnectionStatus) {
	var device *domain.Device
	if status.Connected() {
		device = s.control.ConnectedDevice()
	}

	s.mu.Lock()
	s.state.IsConnected = status.Connected()
	s.state.CurrentDevice = device
	snapshot := s.state
	s.mu.Unlock()

	s.changes.Publish(snapshot)
}

func (s *RemoteStore) handleDeviceState(update domain.DeviceState) {
	s.mu.Lock()
	s.state = domain.Reduce(s.state, update)
	snapshot := s.state
	s.mu.Unlock()

	s.changes.Publish(snapshot)
}

func (s *RemoteStore) handleError(err error) {
	s.mu.Lock()
	s.setErrorLocked(err.Error())
	snapshot := s.state
	s.mu.Unlock()

	s.changes.Publish(snapshot)
}

// setErrorLocked replaces the transient error and restarts its expiry.
func (s *RemoteStore) setErrorLocked(msg string) {
	s.err = msg
	s.errGen++
	gen := s.errGen

	if s.errTimer != nil {
		s.errTimer.Stop()
	}
	s.errTimer = time.AfterFunc(s.errorTTL, func() {
		s.mu.Lock()
		if s.errGen != gen {
			s.mu.Unlock()
			return
		}
		s.err = ""
		s.errTimer = nil
		snapshot := s.state
		s.mu.Unlock()

		s.changes.Publish(snapshot)
	})
}

func (s *RemoteStore) clearErrorLocked() {
	s.err = ""
	s.errGen++
	if s.errTimer != nil {
		s.errTimer.Stop()
		s.errTimer = nil
	}
}
