package ws_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvremote/internal/infra/ws"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// echoServer replies to every text frame with the same payload prefixed by
// "ack:". A frame reading "bye" makes it close the connection.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == "bye" {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, append([]byte("ack:"), data...)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/remote"
}

func TestConn_SendAndReceive(t *testing.T) {
	server := echoServer(t)
	transport, err := ws.NewDialer(discardLogger()).Dial(context.Background(), wsURL(server))
	require.NoError(t, err)
	defer transport.Close()

	received := make(chan string, 1)
	closed := make(chan error, 1)
	transport.Listen(func(b []byte) { received <- string(b) }, func(err error) { closed <- err })

	require.NoError(t, transport.Send(context.Background(), []byte(`{"type":"command"}`)))

	select {
	case msg := <-received:
		assert.Equal(t, `ack:{"type":"command"}`, msg)
	case <-time.After(time.Second):
		t.Fatal("no reply")
	}
}

func TestConn_LocalCloseReportsNil(t *testing.T) {
	server := echoServer(t)
	transport, err := ws.NewDialer(discardLogger()).Dial(context.Background(), wsURL(server))
	require.NoError(t, err)

	closed := make(chan error, 1)
	transport.Listen(func([]byte) {}, func(err error) { closed <- err })

	require.NoError(t, transport.Close())
	assert.NoError(t, transport.Close())

	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("onClose not called")
	}

	assert.ErrorIs(t, transport.Send(context.Background(), []byte("late")), ws.ErrClosed)
}

func TestConn_RemoteCloseReportsError(t *testing.T) {
	server := echoServer(t)
	transport, err := ws.NewDialer(discardLogger()).Dial(context.Background(), wsURL(server))
	require.NoError(t, err)
	defer transport.Close()

	closed := make(chan error, 1)
	transport.Listen(func([]byte) {}, func(err error) { closed <- err })
	require.NoError(t, transport.Send(context.Background(), []byte("bye")))

	select {
	case err := <-closed:
		require.Error(t, err)
		assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
	case <-time.After(time.Second):
		t.Fatal("onClose not called")
	}
}

func TestDialer_HandshakeRejected(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := ws.NewDialer(discardLogger()).Dial(context.Background(), wsURL(server))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestConn_SendHonoursCancelledContext(t *testing.T) {
	server := echoServer(t)
	transport, err := ws.NewDialer(discardLogger()).Dial(context.Background(), wsURL(server))
	require.NoError(t, err)
	defer transport.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, transport.Send(ctx, []byte("x")), context.Canceled)
}
