package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tvremote/internal/application"
)

const (
	writeWait      = 10 * time.Second
	closeWait      = time.Second
	maxMessageSize = 64 * 1024
)

var ErrClosed = errors.New("websocket closed")

// Dialer opens control channels over websocket.
type Dialer struct {
	dialer *websocket.Dialer
	logger *slog.Logger
}

func NewDialer(logger *slog.Logger) *Dialer {
	return &Dialer{
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		logger: logger,
	}
}

func (d *Dialer) Dial(ctx context.Context, url string) (application.Transport, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	d.logger.Debug("websocket connected", "url", url)
	return Wrap(conn, d.logger), nil
}

// Conn adapts a gorilla connection to application.Transport. It is used on
// both ends: by the session as a client and by the simulator per device
// connection.
type Conn struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu    sync.Mutex
	listenOnce sync.Once
	closeOnce  sync.Once
	closing    atomic.Bool
}

func Wrap(conn *websocket.Conn, logger *slog.Logger) *Conn {
	conn.SetReadLimit(maxMessageSize)
	return &Conn{conn: conn, logger: logger}
}

// Send writes one text frame. The write deadline comes from ctx when it
// has one.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	if c.closing.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

// Listen starts the read loop. Only the first call has any effect.
func (c *Conn) Listen(onMessage func([]byte), onClose func(error)) {
	c.listenOnce.Do(func() {
		go c.readLoop(onMessage, onClose)
	})
}

func (c *Conn) readLoop(onMessage func([]byte), onClose func(error)) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closing.Load() {
				onClose(nil)
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("websocket closed unexpectedly", "remote", c.conn.RemoteAddr().String(), "error", err)
			} else {
				c.logger.Debug("websocket closed", "remote", c.conn.RemoteAddr().String(), "error", err)
			}
			_ = c.conn.Close()
			onClose(err)
			return
		}

		if messageType != websocket.TextMessage {
			c.logger.Debug("ignoring non-text frame", "type", messageType)
			continue
		}
		onMessage(data)
	}
}

// Close sends a normal close frame and releases the connection. The read
// loop then reports a nil error to onClose.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)

		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait)); werr != nil &&
			!errors.Is(werr, websocket.ErrCloseSent) {
			c.logger.Debug("sending close frame", "error", werr)
		}
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}
