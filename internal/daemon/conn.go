package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/resonator/internal/protocol"
	"github.com/danmuck/resonator/internal/protocol/session"
	"github.com/gorilla/websocket"
)

var ErrReceiveTimeout = errors.New("daemon: receive timeout")

// Conn is one established connection to the host. Receive and Send are only
// called from the session goroutine; Close may be called once from anywhere.
type Conn interface {
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)
	Send(data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// WebsocketDialer dials ws:// and wss:// endpoints with gorilla/websocket.
type WebsocketDialer struct {
	cfg session.Config
}

func NewWebsocketDialer(cfg session.Config) *WebsocketDialer {
	return &WebsocketDialer{cfg: cfg.WithDefaults()}
}

func (d *WebsocketDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	tlsCfg, err := d.cfg.ClientTLSConfig(endpoint)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.cfg.HandshakeTimeout,
		TLSClientConfig:  tlsCfg,
	}
	ws, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("daemon: dial %s: %w", endpoint, err)
	}
	ws.SetReadLimit(protocol.MaxMessageBytes)
	return newWSConn(ws, d.cfg.WriteTimeout), nil
}

// wsConn pumps frames from a reader goroutine so a receive timeout never
// touches the read deadline; gorilla connections are unusable after one fires.
type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	frames  chan []byte
	readErr chan error
	done    chan struct{}
	err     error

	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn, writeTimeout time.Duration) *wsConn {
	c := &wsConn{
		ws:           ws,
		writeTimeout: writeTimeout,
		frames:       make(chan []byte),
		readErr:      make(chan error, 1),
		done:         make(chan struct{}),
	}
	go c.readPump()
	return c
}

func (c *wsConn) readPump() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.readErr <- err
			return
		}
		select {
		case c.frames <- data:
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case data := <-c.frames:
		return data, nil
	case err := <-c.readErr:
		c.err = err
		return nil, err
	case <-timer.C:
		return nil, ErrReceiveTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *wsConn) Send(data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close sends a normal close frame, best effort, then drops the socket.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))
		err = c.ws.Close()
	})
	return err
}
