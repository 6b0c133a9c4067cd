package domain

import "time"

// CommandRecord is one entry of the command execution history.
type CommandRecord struct {
	Command      Command   `json:"command"`
	DeviceID     string    `json:"deviceId"`
	Executed     bool      `json:"executed"`
	ExecutedAt   time.Time `json:"executedAt"`
	ResponseTime int64     `json:"responseTime"` // milliseconds
	Error        string    `json:"error,omitempty"`
}
