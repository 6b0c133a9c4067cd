package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotConnected         = errors.New("not connected to TV")
	ErrDuplicateCommandID   = errors.New("command id already in flight")
	ErrConnectionSuperseded = errors.New("connection attempt superseded")
)

type CommandTimeoutError struct {
	CommandID CommandID
	After     time.Duration
}

func (e *CommandTimeoutError) Error() string {
	return fmt.Sprintf("command %s timed out after %s", e.CommandID, e.After)
}

type ConnectionTimeoutError struct {
	Address string
	After   time.Duration
}

func (e *ConnectionTimeoutError) Error() string {
	return fmt.Sprintf("connection to %s timed out after %s", e.Address, e.After)
}

// TransportError wraps a failure of the underlying connection.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type ReconnectExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ReconnectExhaustedError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("failed to reconnect after %d attempts: %v", e.Attempts, e.Last)
	}
	return fmt.Sprintf("failed to reconnect after %d attempts", e.Attempts)
}

func (e *ReconnectExhaustedError) Unwrap() error {
	return e.Last
}

// DeviceError is an error reported by the device itself.
type DeviceError struct {
	Message string
}

func (e *DeviceError) Error() string {
	return e.Message
}
