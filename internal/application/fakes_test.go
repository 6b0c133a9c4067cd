package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tvremote/internal/application"
	"tvremote/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var livingRoom = domain.Device{
	ID:        "tv-1",
	Name:      "Living Room TV",
	Brand:     "Sony",
	Model:     "Bravia",
	IPAddress: "192.168.1.50",
	Port:      8080,
}

type fakeTransport struct {
	mu        sync.Mutex
	onMessage func([]byte)
	onClose   func(error)
	closed    bool
	sendErr   error

	sent chan []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sent: make(chan []byte, 16)}
}

func (f *fakeTransport) Send(_ context.Context, data []byte) error {
	f.mu.Lock()
	err := f.sendErr
	closed := f.closed
	f.mu.Unlock()

	if closed {
		return errors.New("use of closed connection")
	}
	if err != nil {
		return err
	}
	f.sent <- data
	return nil
}

func (f *fakeTransport) Listen(onMessage func([]byte), onClose func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onMessage = onMessage
	f.onClose = onClose
}

func (f *fakeTransport) Close() error {
	f.finish(nil)
	return nil
}

// drop simulates the remote end going away.
func (f *fakeTransport) drop(err error) {
	f.finish(err)
}

func (f *fakeTransport) finish(err error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	onClose := f.onClose
	f.mu.Unlock()

	if onClose != nil {
		onClose(err)
	}
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) deliver(t *testing.T, msg any) {
	t.Helper()

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	f.deliverRaw(data)
}

func (f *fakeTransport) deliverRaw(data []byte) {
	f.mu.Lock()
	onMessage := f.onMessage
	f.mu.Unlock()

	if onMessage != nil {
		onMessage(data)
	}
}

// nextCommand waits for the next frame written by the session.
func (f *fakeTransport) nextCommand(t *testing.T) domain.CommandMessage {
	t.Helper()

	select {
	case data := <-f.sent:
		var msg domain.CommandMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no command was sent")
		return domain.CommandMessage{}
	}
}

type dialResult struct {
	transport *fakeTransport
	err       error
	// block makes Dial wait for its context to end.
	block bool
	// late delays the open without watching the context.
	late time.Duration
	// release, when set, holds the open until it is closed.
	release chan struct{}
}

type fakeDialer struct {
	mu         sync.Mutex
	results    []dialResult
	urls       []string
	transports []*fakeTransport
	// fallback is used once results run out.
	fallback dialResult
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (application.Transport, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	res := d.fallback
	if len(d.results) > 0 {
		res = d.results[0]
		d.results = d.results[1:]
	}
	if res.err == nil && !res.block && res.transport == nil {
		res.transport = newFakeTransport()
	}
	if res.transport != nil {
		d.transports = append(d.transports, res.transport)
	}
	d.mu.Unlock()

	if res.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if res.late > 0 {
		time.Sleep(res.late)
	}
	if res.release != nil {
		<-res.release
	}
	if res.err != nil {
		return nil, res.err
	}
	return res.transport, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) transport(i int) *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transports[i]
}

// recorder collects everything published on a session's topics.
type recorder struct {
	mu       sync.Mutex
	statuses []domain.ConnectionStatus
	states   []domain.DeviceState
	errs     []error
}

func record(s *application.Session) *recorder {
	r := &recorder{}
	s.OnStatusChange(func(st domain.ConnectionStatus) {
		r.mu.Lock()
		r.statuses = append(r.statuses, st)
		r.mu.Unlock()
	})
	s.OnDeviceState(func(ds domain.DeviceState) {
		r.mu.Lock()
		r.states = append(r.states, ds)
		r.mu.Unlock()
	})
	s.OnError(func(err error) {
		r.mu.Lock()
		r.errs = append(r.errs, err)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.statuses))
	for _, st := range r.statuses {
		out = append(out, st.Message)
	}
	return out
}

func (r *recorder) errorList() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) deviceStates() []domain.DeviceState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.DeviceState(nil), r.states...)
}

// attemptLog records which reconnect attempts asked the backoff policy for a
// delay.
type attemptLog struct {
	mu       sync.Mutex
	attempts []int
}

func (l *attemptLog) policy(attempt int) time.Duration {
	l.mu.Lock()
	l.attempts = append(l.attempts, attempt)
	l.mu.Unlock()
	return time.Millisecond
}

func (l *attemptLog) list() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.attempts...)
}

func fastConfig(log *attemptLog) application.SessionConfig {
	cfg := application.DefaultSessionConfig()
	cfg.ConnectTimeout = 200 * time.Millisecond
	cfg.AckTimeout = 200 * time.Millisecond
	cfg.Backoff = log.policy
	return cfg
}
