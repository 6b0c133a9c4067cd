package application

import (
	"context"
	"time"

	"tvremote/internal/domain"
)

// Transport is one open control channel to a device. Listen starts
// delivering inbound frames; onClose is called once when the channel ends,
// with a nil error after a local Close.
type Transport interface {
	Send(ctx context.Context, data []byte) error
	Listen(onMessage func([]byte), onClose func(error))
	Close() error
}

// Dialer opens control channels. Dial must return once ctx is done; the
// session relies on it to enforce the connect timeout and discards a
// channel that opens after the deadline.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

type CommandSender interface {
	SendCommand(ctx context.Context, cmd domain.Command) (bool, error)
}

// RemoteControl is the part of a session the state store depends on.
type RemoteControl interface {
	CommandSender
	Connect(ctx context.Context, device domain.Device) error
	Disconnect()
	Status() domain.ConnectionStatus
	ConnectedDevice() *domain.Device
	OnStatusChange(fn func(domain.ConnectionStatus)) *Subscription
	OnDeviceState(fn func(domain.DeviceState)) *Subscription
	OnError(fn func(error)) *Subscription
}

type DeviceSource interface {
	Discover(ctx context.Context) ([]domain.Device, error)
}

type DeviceRegistry interface {
	Sync(ctx context.Context) error
	Devices() []domain.Device
	FindDevice(idOrName string) (*domain.Device, bool)
	StartPeriodicSync(ctx context.Context, interval time.Duration)
	Summary() string
}
