package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type CommandType string

const (
	CommandNavigation CommandType = "navigation"
	CommandMedia      CommandType = "media"
	CommandVolume     CommandType = "volume"
	CommandChannel    CommandType = "channel"
	CommandNumber     CommandType = "number"
	CommandApp        CommandType = "app"
	CommandSystem     CommandType = "system"
)

var CommandTypes = []CommandType{
	CommandNavigation,
	CommandMedia,
	CommandVolume,
	CommandChannel,
	CommandNumber,
	CommandApp,
	CommandSystem,
}

func ParseCommandType(s string) (CommandType, bool) {
	for _, t := range CommandTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Command is one user gesture. ID is assigned by the session when the
// command is sent and is the key acknowledgments are matched on.
type Command struct {
	ID        string      `json:"id,omitempty"`
	Type      CommandType `json:"type"`
	Action    string      `json:"action"`
	Value     *Value      `json:"value,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewCommand(t CommandType, action string) Command {
	return Command{
		Type:      t,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (c Command) WithValue(v *Value) Command {
	c.Value = v
	return c
}

func (c Command) String() string {
	if c.Value != nil {
		return fmt.Sprintf("%s:%s(%s)", c.Type, c.Action, c.Value)
	}
	return fmt.Sprintf("%s:%s", c.Type, c.Action)
}

// Value holds either a string or a number, matching the loosely typed
// value field on the wire.
type Value struct {
	str   string
	num   float64
	isNum bool
}

func StringValue(s string) *Value {
	return &Value{str: s}
}

func NumberValue(n float64) *Value {
	return &Value{num: n, isNum: true}
}

// ParseValue turns CLI or key input into a value, preferring numbers.
func ParseValue(s string) *Value {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return NumberValue(n)
	}
	return StringValue(s)
}

func (v *Value) Number() (float64, bool) {
	if v == nil || !v.isNum {
		return 0, false
	}
	return v.num, true
}

func (v *Value) String() string {
	if v == nil {
		return ""
	}
	if v.isNum {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return v.str
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.isNum {
		return json.Marshal(v.num)
	}
	return json.Marshal(v.str)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding string value: %w", err)
		}
		*v = Value{str: s}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("value must be a string or number: %w", err)
	}
	*v = Value{num: n, isNum: true}
	return nil
}
