package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type MessageType string

const (
	MessageCommand     MessageType = "command"
	MessageCommandAck  MessageType = "commandAck"
	MessageDeviceState MessageType = "deviceState"
	MessageError       MessageType = "error"
)

// CommandID is a correlation key. Devices that still echo numeric
// timestamps are accepted; the number is kept in its decimal form.
type CommandID string

func (id *CommandID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding command id: %w", err)
		}
		*id = CommandID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("command id must be a string or number: %w", err)
		}
		*id = CommandID(n.String())
	}
	return nil
}

type CommandMessage struct {
	Type      MessageType `json:"type"`
	CommandID CommandID   `json:"commandId"`
	Command   Command     `json:"command"`
	Timestamp int64       `json:"timestamp"`
}

type AckMessage struct {
	Type      MessageType `json:"type"`
	CommandID CommandID   `json:"commandId"`
	Success   bool        `json:"success"`
}

type StateMessage struct {
	Type  MessageType `json:"type"`
	State DeviceState `json:"state"`
}

type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// InboundMessage decodes any frame a device sends; Type selects which
// fields are meaningful.
type InboundMessage struct {
	Type      MessageType  `json:"type"`
	CommandID CommandID    `json:"commandId"`
	Success   bool         `json:"success"`
	State     *DeviceState `json:"state"`
	Message   string       `json:"message"`
}

type CommandAck struct {
	CommandID CommandID
	Success   bool
}
