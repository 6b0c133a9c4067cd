package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tvremote/internal/backoff"
	"tvremote/internal/domain"
)

type SessionConfig struct {
	ConnectTimeout       time.Duration
	AckTimeout           time.Duration
	MaxReconnectAttempts int
	Backoff              backoff.Policy
	NewID                func() string
	Now                  func() time.Time
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ConnectTimeout:       10 * time.Second,
		AckTimeout:           5 * time.Second,
		MaxReconnectAttempts: 5,
		Backoff:              backoff.Linear(time.Second),
		NewID:                uuid.NewString,
		Now:                  time.Now,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	d := DefaultSessionConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = d.AckTimeout
	}
	if c.MaxReconnectAttempts < 0 {
		c.MaxReconnectAttempts = 0
	}
	if c.Backoff == nil {
		c.Backoff = d.Backoff
	}
	if c.NewID == nil {
		c.NewID = d.NewID
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}

// Session owns the control channel to one device at a time. It tracks the
// connection status, correlates acknowledgments with sent commands and
// re-establishes a channel that drops while connected.
type Session struct {
	dialer Dialer
	cfg    SessionConfig
	logger *slog.Logger

	mu        sync.Mutex
	status    domain.ConnectionStatus
	device    *domain.Device
	transport Transport
	// gen changes whenever the current channel is replaced or dropped, so
	// callbacks from an older channel or retry timer are ignored.
	gen      uint64
	attempts int
	retry    *time.Timer
	pending  map[domain.CommandID]chan bool

	statusTopic Topic[domain.ConnectionStatus]
	ackTopic    Topic[domain.CommandAck]
	stateTopic  Topic[domain.DeviceState]
	errTopic    Topic[error]
}

func NewSession(dialer Dialer, cfg SessionConfig, logger *slog.Logger) *Session {
	return &Session{
		dialer:  dialer,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		status:  domain.InitialStatus(),
		pending: make(map[domain.CommandID]chan bool),
	}
}

func (s *Session) OnStatusChange(fn func(domain.ConnectionStatus)) *Subscription {
	return s.statusTopic.Subscribe(fn)
}

func (s *Session) OnCommandAck(fn func(domain.CommandAck)) *Subscription {
	return s.ackTopic.Subscribe(fn)
}

func (s *Session) OnDeviceState(fn func(domain.DeviceState)) *Subscription {
	return s.stateTopic.Subscribe(fn)
}

func (s *Session) OnError(fn func(error)) *Subscription {
	return s.errTopic.Subscribe(fn)
}

func (s *Session) Status() domain.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ConnectedDevice returns the device only while the session is connected.
func (s *Session) ConnectedDevice() *domain.Device {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.State != domain.StateConnected || s.device == nil {
		return nil
	}
	d := *s.device
	return &d
}

func (s *Session) PendingCommands() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Connect opens a channel to device, replacing any current one. It returns
// once the channel is open, the dial fails, or ConnectTimeout elapses.
func (s *Session) Connect(ctx context.Context, device domain.Device) error {
	s.mu.Lock()
	s.stopRetryLocked()
	previous := s.transport
	s.transport = nil
	s.gen++
	gen := s.gen
	s.device = &device
	status := s.setStatusLocked(domain.StateConnecting, "Connecting to TV...")
	s.mu.Unlock()

	if previous != nil {
		s.logger.Info("replacing existing connection", "device", device.ID)
		_ = previous.Close()
	}
	s.statusTopic.Publish(status)

	err := s.dial(ctx, gen, device)
	if err == nil {
		return nil
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return err
	}
	s.device.IsConnected = false
	status = s.setStatusLocked(domain.StateError, "Connection failed")
	s.mu.Unlock()

	s.logger.Error("connecting to device", "device", device.ID, "error", err)
	s.statusTopic.Publish(status)
	s.errTopic.Publish(err)
	return err
}

func (s *Session) dial(ctx context.Context, gen uint64, device domain.Device) error {
	url := device.RemoteURL()
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	s.logger.Debug("dialing device", "device", device.ID, "url", url)
	t, err := s.dialer.Dial(dialCtx, url)
	timedOut := errors.Is(dialCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil

	if err != nil {
		if timedOut {
			return &domain.ConnectionTimeoutError{Address: url, After: s.cfg.ConnectTimeout}
		}
		return &domain.TransportError{Op: "dial", Err: err}
	}
	if timedOut {
		// the timer won the race; a late open is discarded
		_ = t.Close()
		return &domain.ConnectionTimeoutError{Address: url, After: s.cfg.ConnectTimeout}
	}

	s.mu.Lock()
	if s.gen != gen || s.status.State != domain.StateConnecting {
		s.mu.Unlock()
		_ = t.Close()
		return domain.ErrConnectionSuperseded
	}
	s.transport = t
	s.attempts = 0
	s.device.IsConnected = true
	s.device.LastSeen = s.cfg.Now()
	status := s.setStatusLocked(domain.StateConnected, fmt.Sprintf("Connected to %s", device.Name))
	s.mu.Unlock()

	s.logger.Info("connected to device", "device", device.ID, "name", device.Name)
	s.statusTopic.Publish(status)

	t.Listen(
		func(data []byte) { s.handleMessage(gen, data) },
		func(err error) { s.handleClose(gen, err) },
	)
	return nil
}

// Disconnect closes the channel and forgets the device. It is safe to call
// at any time.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.stopRetryLocked()
	s.gen++
	t := s.transport
	s.transport = nil
	s.device = nil
	s.attempts = 0
	status := s.setStatusLocked(domain.StateDisconnected, "Disconnected")
	s.mu.Unlock()

	if t != nil {
		if err := t.Close(); err != nil {
			s.logger.Debug("closing transport", "error", err)
		}
	}
	s.statusTopic.Publish(status)
}

// SendCommand writes cmd to the device and waits for its acknowledgment.
// The returned bool is the success flag the device reported.
func (s *Session) SendCommand(ctx context.Context, cmd domain.Command) (bool, error) {
	s.mu.Lock()
	if s.status.State != domain.StateConnected || s.transport == nil {
		s.mu.Unlock()
		return false, domain.ErrNotConnected
	}
	if cmd.ID == "" {
		cmd.ID = s.cfg.NewID()
	}
	id := domain.CommandID(cmd.ID)
	if _, inFlight := s.pending[id]; inFlight {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", domain.ErrDuplicateCommandID, id)
	}
	reply := make(chan bool, 1)
	s.pending[id] = reply
	t := s.transport
	s.mu.Unlock()

	data, err := json.Marshal(domain.CommandMessage{
		Type:      domain.MessageCommand,
		CommandID: id,
		Command:   cmd,
		Timestamp: s.cfg.Now().UnixMilli(),
	})
	if err != nil {
		s.forget(id)
		return false, fmt.Errorf("encoding command: %w", err)
	}

	if err := t.Send(ctx, data); err != nil {
		s.forget(id)
		sendErr := &domain.TransportError{Op: "send", Err: err}
		s.errTopic.Publish(sendErr)
		return false, sendErr
	}

	timer := time.NewTimer(s.cfg.AckTimeout)
	defer timer.Stop()

	select {
	case ok := <-reply:
		return ok, nil
	case <-timer.C:
		s.forget(id)
		s.logger.Warn("command not acknowledged", "command", cmd.String(), "id", id)
		return false, &domain.CommandTimeoutError{CommandID: id, After: s.cfg.AckTimeout}
	case <-ctx.Done():
		s.forget(id)
		return false, ctx.Err()
	}
}

func (s *Session) forget(id domain.CommandID) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *Session) handleMessage(gen uint64, data []byte) {
	var msg domain.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn("failed to parse message", "error", err)
		return
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	var reply chan bool
	if msg.Type == domain.MessageCommandAck {
		reply = s.pending[msg.CommandID]
		delete(s.pending, msg.CommandID)
	}
	s.mu.Unlock()

	switch msg.Type {
	case domain.MessageCommandAck:
		if reply != nil {
			reply <- msg.Success
		}
		s.ackTopic.Publish(domain.CommandAck{CommandID: msg.CommandID, Success: msg.Success})
	case domain.MessageDeviceState:
		if msg.State == nil {
			s.logger.Warn("device state message without state")
			return
		}
		s.stateTopic.Publish(*msg.State)
	case domain.MessageError:
		s.errTopic.Publish(&domain.DeviceError{Message: msg.Message})
	default:
		s.logger.Debug("unknown message type", "type", msg.Type)
	}
}

func (s *Session) handleClose(gen uint64, cause error) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.transport = nil
	if s.device != nil {
		s.device.IsConnected = false
	}

	if s.status.State != domain.StateConnected {
		status := s.setStatusLocked(domain.StateDisconnected, "Connection lost")
		s.mu.Unlock()
		s.statusTopic.Publish(status)
		return
	}

	status, exhausted := s.scheduleReconnectLocked(cause)
	s.mu.Unlock()

	s.logger.Warn("connection closed unexpectedly", "error", cause, "status", status.Message)
	s.statusTopic.Publish(status)
	if cause != nil {
		s.errTopic.Publish(&domain.TransportError{Op: "read", Err: cause})
	}
	if exhausted != nil {
		s.errTopic.Publish(exhausted)
	}
}

func (s *Session) scheduleReconnectLocked(last error) (domain.ConnectionStatus, error) {
	if s.device == nil || s.attempts >= s.cfg.MaxReconnectAttempts {
		status := s.setStatusLocked(domain.StateError, "Failed to reconnect")
		return status, &domain.ReconnectExhaustedError{Attempts: s.attempts, Last: last}
	}

	s.attempts++
	attempt := s.attempts
	s.gen++
	gen := s.gen
	device := *s.device
	status := s.setStatusLocked(domain.StateConnecting,
		fmt.Sprintf("Reconnecting... (%d/%d)", attempt, s.cfg.MaxReconnectAttempts))

	s.retry = time.AfterFunc(s.cfg.Backoff(attempt), func() {
		s.reconnect(gen, attempt, device)
	})
	return status, nil
}

func (s *Session) reconnect(gen uint64, attempt int, device domain.Device) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.retry = nil
	s.mu.Unlock()

	err := s.dial(context.Background(), gen, device)
	if err == nil || errors.Is(err, domain.ErrConnectionSuperseded) {
		return
	}
	s.logger.Warn("reconnect attempt failed", "device", device.ID, "attempt", attempt, "error", err)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	status, exhausted := s.scheduleReconnectLocked(err)
	s.mu.Unlock()

	s.statusTopic.Publish(status)
	if exhausted != nil {
		s.errTopic.Publish(exhausted)
	}
}

func (s *Session) stopRetryLocked() {
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
}

func (s *Session) setStatusLocked(state domain.ConnectionState, message string) domain.ConnectionStatus {
	s.status = domain.ConnectionStatus{State: state, Message: message}
	return s.status
}
