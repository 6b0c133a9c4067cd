package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tvremote/internal/domain"
	"tvremote/internal/infra/ws"
)

// handleRemote serves the device control channel. Every command frame is
// executed concurrently, answered with a commandAck carrying the same
// commandId and, when accepted, followed by a deviceState push to every
// connected client.
func (s *Server) handleRemote(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	// the server's read timeout must not end a long lived channel
	_ = conn.SetReadDeadline(time.Time{})

	deviceID := r.URL.Query().Get("deviceId")
	if deviceID == "" {
		deviceID = s.cfg.DeviceID
	}

	t := ws.Wrap(conn, s.logger)
	s.mu.Lock()
	now := s.now()
	s.conns[t] = &controlConn{deviceID: deviceID, connectedAt: now, lastActivity: now}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	t.Listen(
		func(data []byte) {
			s.touch(t)
			go s.handleFrame(ctx, t, deviceID, data)
		},
		func(err error) {
			s.mu.Lock()
			delete(s.conns, t)
			s.mu.Unlock()
			if err != nil {
				s.logger.Debug("control channel ended", "remote_addr", r.RemoteAddr, "error", err)
			}
			close(done)
		},
	)

	s.logger.Info("control channel opened", "remote_addr", r.RemoteAddr, "device", deviceID)
	s.send(ctx, t, domain.StateMessage{Type: domain.MessageDeviceState, State: s.tv.State()})

	<-done
	s.logger.Info("control channel closed", "remote_addr", r.RemoteAddr)
}

func (s *Server) handleFrame(ctx context.Context, t *ws.Conn, deviceID string, data []byte) {
	var msg domain.CommandMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.send(ctx, t, domain.ErrorMessage{Type: domain.MessageError, Message: "malformed message"})
		return
	}
	if msg.Type != domain.MessageCommand {
		s.send(ctx, t, domain.ErrorMessage{
			Type:    domain.MessageError,
			Message: fmt.Sprintf("unsupported message type: %s", msg.Type),
		})
		return
	}

	res, _, err := s.execute(ctx, deviceID, msg.Command)
	if err != nil {
		var invalid *ValidationError
		if !errors.As(err, &invalid) {
			s.logger.Debug("command abandoned", "id", msg.CommandID, "error", err)
			return
		}
		res = Result{Success: false, Error: invalid.Message}
	}

	// the TV changes before the ack goes out
	var state domain.DeviceState
	if res.Success {
		state = s.tv.Apply(msg.Command)
	}

	s.send(ctx, t, domain.AckMessage{Type: domain.MessageCommandAck, CommandID: msg.CommandID, Success: res.Success})
	if res.Error != "" {
		s.send(ctx, t, domain.ErrorMessage{Type: domain.MessageError, Message: res.Error})
	}
	if res.Success {
		s.broadcast(ctx, domain.StateMessage{Type: domain.MessageDeviceState, State: state})
	}
}

func (s *Server) broadcast(ctx context.Context, msg any) {
	s.mu.Lock()
	conns := make([]*ws.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		s.send(ctx, c, msg)
	}
}

func (s *Server) send(ctx context.Context, t *ws.Conn, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("encoding message", "error", err)
		return
	}
	if err := t.Send(ctx, data); err != nil {
		s.logger.Debug("sending to control channel", "error", err)
	}
}
