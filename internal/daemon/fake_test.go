package daemon

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/resonator/internal/controller"
	"github.com/danmuck/resonator/internal/protocol"
	"github.com/danmuck/resonator/internal/protocol/session"
)

const waitLimit = 2 * time.Second

type inbound struct {
	data []byte
	err  error
}

type fakeConn struct {
	in       chan inbound
	sent     chan []byte
	closed   chan struct{}
	once     sync.Once
	sendHook func([]byte)
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan inbound),
		sent:   make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-c.in:
		return f.data, f.err
	case <-timer.C:
		return nil, ErrReceiveTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Send(data []byte) error {
	if c.sendHook != nil {
		c.sendHook(data)
	}
	select {
	case c.sent <- append([]byte(nil), data...):
		return nil
	default:
		return errors.New("fake: send buffer full")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// push hands one frame to the daemon. The channel is unbuffered, so a return
// means the previous frame has been fully handled.
func (c *fakeConn) push(t *testing.T, data string) {
	t.Helper()
	select {
	case c.in <- inbound{data: []byte(data)}:
	case <-time.After(waitLimit):
		t.Fatalf("daemon did not receive frame %s", data)
	}
}

func (c *fakeConn) fail(t *testing.T, err error) {
	t.Helper()
	select {
	case c.in <- inbound{err: err}:
	case <-time.After(waitLimit):
		t.Fatalf("daemon did not receive error %v", err)
	}
}

// next returns the next sent message of type want, skipping others.
func (c *fakeConn) next(t *testing.T, want protocol.Type) protocol.Message {
	t.Helper()
	deadline := time.After(waitLimit)
	for {
		select {
		case data := <-c.sent:
			msg, err := protocol.Decode(data)
			if err != nil {
				t.Fatalf("daemon sent undecodable frame %s: %v", data, err)
			}
			if msg.MessageType() == want {
				return msg
			}
		case <-deadline:
			t.Fatalf("no %s sent within %s", want, waitLimit)
		}
	}
}

func (c *fakeConn) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-c.closed:
	case <-time.After(waitLimit):
		t.Fatalf("connection was not closed")
	}
}

type dialStep struct {
	conn *fakeConn
	err  error
}

type fakeDialer struct {
	mu    sync.Mutex
	steps []dialStep
	dials int
}

func (f *fakeDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.dials
	f.dials++
	if i >= len(f.steps) {
		return nil, errors.New("fake: no more connections")
	}
	if f.steps[i].err != nil {
		return nil, f.steps[i].err
	}
	return f.steps[i].conn, nil
}

func (f *fakeDialer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type phaseLog struct {
	mu     sync.Mutex
	phases []Phase
}

func (l *phaseLog) record(p Phase) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.phases = append(l.phases, p)
}

func (l *phaseLog) snapshot() []Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Phase(nil), l.phases...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Endpoint = "ws://resonator.test:11111"
	cfg.Seed = 1
	cfg.Session = session.Config{
		ReadTimeout:       time.Hour,
		ReconnectDelay:    10 * time.Millisecond,
		MinActionInterval: 500 * time.Millisecond,
	}
	return cfg
}

func quietGenerator(seed int64) *controller.Generator {
	return controller.NewGenerator(rand.New(rand.NewSource(seed))).WithModulationChance(0)
}

type running struct {
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, d *Daemon) *running {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := &running{cancel: cancel, done: make(chan error, 1)}
	go func() { r.done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-r.done:
		case <-time.After(waitLimit):
			t.Errorf("daemon did not stop")
		}
	})
	return r
}

func (r *running) stop(t *testing.T) error {
	t.Helper()
	r.cancel()
	select {
	case err := <-r.done:
		r.done <- err
		return err
	case <-time.After(waitLimit):
		t.Fatalf("daemon did not stop")
		return nil
	}
}
