package simulator

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"time"

	"tvremote/internal/domain"
	"tvremote/internal/infra/ws"
)

// controlConn is what the simulator knows about one open /remote channel.
type controlConn struct {
	deviceID     string
	connectedAt  time.Time
	lastActivity time.Time
}

type connectionInfo struct {
	Device       domain.Device `json:"device"`
	ConnectedAt  time.Time     `json:"connectedAt"`
	LastActivity time.Time     `json:"lastActivity"`
}

func (s *Server) touch(t *ws.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conns[t]; ok {
		c.lastActivity = s.now()
	}
}

// activeConnections lists the open channels, oldest first, optionally only
// those for deviceID.
func (s *Server) activeConnections(deviceID string) []connectionInfo {
	s.mu.Lock()
	out := make([]connectionInfo, 0, len(s.conns))
	for _, c := range s.conns {
		if deviceID != "" && c.deviceID != deviceID {
			continue
		}
		out = append(out, connectionInfo{
			Device:       domain.Device{ID: c.deviceID},
			ConnectedAt:  c.connectedAt,
			LastActivity: c.lastActivity,
		})
	}
	s.mu.Unlock()

	for i := range out {
		if d, ok := s.findDevice(out[i].Device.ID); ok {
			out[i].Device = d
		}
		out[i].Device.IsConnected = true
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectedAt.Before(out[j].ConnectedAt) })
	return out
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")
	conns := s.activeConnections(deviceID)

	if deviceID == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":           true,
			"activeConnections": len(conns),
			"connections":       conns,
		})
		return
	}

	if len(conns) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "connected": false, "device": nil})
		return
	}
	latest := conns[len(conns)-1]
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"connected":    true,
		"device":       latest.Device,
		"connectedAt":  latest.ConnectedAt,
		"lastActivity": latest.LastActivity,
	})
}

// handleCloseConnection closes every control channel open for a device.
func (s *Server) handleCloseConnection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string `json:"deviceId"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	defer r.Body.Close()

	if req.DeviceID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Device ID is required"})
		return
	}

	s.mu.Lock()
	var closing []*ws.Conn
	for t, c := range s.conns {
		if c.deviceID == req.DeviceID {
			closing = append(closing, t)
		}
	}
	s.mu.Unlock()

	if len(closing) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "No active connection found for this device"})
		return
	}
	for _, t := range closing {
		_ = t.Close()
	}

	s.logger.Info("closed control channels", "device", req.DeviceID, "count", len(closing))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"message":        "Disconnected from TV",
		"disconnectedAt": s.now(),
	})
}
