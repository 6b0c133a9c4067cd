package domain

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

type Device struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Model       string    `json:"model"`
	IPAddress   string    `json:"ipAddress"`
	Port        int       `json:"port"`
	IsConnected bool      `json:"isConnected"`
	LastSeen    time.Time `json:"lastSeen"`
}

// RemoteURL is the control channel endpoint exposed by the device.
func (d Device) RemoteURL() string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(d.IPAddress, strconv.Itoa(d.Port)),
		Path:   "/remote",
	}
	return u.String()
}

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

type ConnectionStatus struct {
	State          ConnectionState `json:"status"`
	Message        string          `json:"message"`
	SignalStrength *int            `json:"signalStrength,omitempty"`
}

func (s ConnectionStatus) Connected() bool {
	return s.State == StateConnected
}

func InitialStatus() ConnectionStatus {
	return ConnectionStatus{State: StateDisconnected, Message: "Not connected"}
}
