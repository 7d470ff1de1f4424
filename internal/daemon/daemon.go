package daemon

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/resonator/internal/controller"
	logs "github.com/danmuck/resonator/internal/logging"
	"github.com/danmuck/resonator/internal/observability"
	"github.com/danmuck/resonator/internal/protocol"
	"github.com/danmuck/resonator/internal/protocol/session"
	"github.com/google/uuid"
)

var (
	ErrEndpointRequired = errors.New("daemon: endpoint required")
	ErrInvalidEndpoint  = errors.New("daemon: endpoint must be a ws:// or wss:// url")
	ErrSessionPanic     = errors.New("daemon: session panic")
)

const DefaultEndpoint = "ws://localhost:11111"

// Phase is the outer connection state.
type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnecting   Phase = "connecting"
	PhaseConnected    Phase = "connected"
	PhaseDraining     Phase = "draining"
	PhaseCancelled    Phase = "cancelled"
)

// Config is the daemon's construction surface. Seed 0 seeds the directive
// generator from the wall clock.
type Config struct {
	Endpoint        string
	Verbose         bool
	HistoryCapacity int
	Seed            int64
	Session         session.Config
}

func DefaultConfig() Config {
	return Config{
		Endpoint:        DefaultEndpoint,
		HistoryCapacity: controller.DefaultHistoryCapacity,
		Session:         session.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	endpoint := strings.TrimSpace(c.Endpoint)
	if endpoint == "" {
		return ErrEndpointRequired
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}
	return c.Session.ValidateClientTransport()
}

// Session is the per-connection record. A fresh one is created on every
// successful connect; the rate limit only looks at its LastAction.
type Session struct {
	ID          string
	Endpoint    string
	ConnectedAt time.Time
	Actions     int
	LastAction  time.Time
}

type Option func(*Daemon)

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(dm *Daemon) { dm.dialer = d }
}

func WithClock(now func() time.Time) Option {
	return func(dm *Daemon) { dm.now = now }
}

func WithGenerator(g *controller.Generator) Option {
	return func(dm *Daemon) { dm.gen = g }
}

// WithPhaseObserver registers fn to be called on every phase change, from the
// Run goroutine.
func WithPhaseObserver(fn func(Phase)) Option {
	return func(dm *Daemon) { dm.onPhase = fn }
}

type Daemon struct {
	cfg     Config
	dialer  Dialer
	now     func() time.Time
	state   *controller.State
	gen     *controller.Generator
	onPhase func(Phase)

	actions atomic.Int64

	mu      sync.RWMutex
	phase   Phase
	current *Session
}

func New(cfg Config, opts ...Option) (*Daemon, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Session = cfg.Session.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Daemon{
		cfg:   cfg,
		now:   time.Now,
		state: controller.NewState(cfg.HistoryCapacity),
		phase: PhaseDisconnected,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.dialer == nil {
		d.dialer = NewWebsocketDialer(cfg.Session)
	}
	if d.gen == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		d.gen = controller.NewGenerator(rand.New(rand.NewSource(seed)))
	}
	return d, nil
}

func (d *Daemon) Phase() Phase {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.phase
}

// Session returns a copy of the live session record, if connected.
func (d *Daemon) Session() (Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.current == nil {
		return Session{}, false
	}
	return *d.current, true
}

// Actions is the number of weak measurements sent since the daemon started,
// across reconnects.
func (d *Daemon) Actions() int64 { return d.actions.Load() }

// Run drives the connect/serve/reconnect cycle until ctx ends. It returns nil
// on cancellation; session failures are logged and retried.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.setPhase(PhaseCancelled)
	logs.Infof("daemon.Daemon.Run start endpoint=%q", d.cfg.Endpoint)
	for {
		if ctx.Err() != nil {
			return nil
		}
		d.setPhase(PhaseConnecting)
		err := d.runSession(ctx)
		if ctx.Err() != nil {
			logs.Infof("daemon.Daemon.Run stopped actions=%d", d.actions.Load())
			return nil
		}
		d.setPhase(PhaseDisconnected)
		observability.RecordReconnect()
		if errors.Is(err, syscall.ECONNREFUSED) {
			logs.Warnf("daemon.Daemon.Run connection refused endpoint=%q (is the resonator running?)", d.cfg.Endpoint)
		} else {
			logs.Warnf("daemon.Daemon.Run session ended err=%v", err)
		}
		logs.Infof("daemon.Daemon.Run reconnect delay=%s", d.cfg.Session.ReconnectDelay)
		if err := session.WaitReconnect(ctx, d.cfg.Session); err != nil {
			return nil
		}
	}
}

func (d *Daemon) runSession(ctx context.Context) (err error) {
	conn, err := d.dialer.Dial(ctx, d.cfg.Endpoint)
	if err != nil {
		return err
	}
	sess := &Session{
		ID:          uuid.NewString(),
		Endpoint:    d.cfg.Endpoint,
		ConnectedAt: d.now(),
	}
	d.setSession(sess)
	defer func() {
		if ctx.Err() != nil {
			d.setPhase(PhaseDraining)
		}
		d.setSession(nil)
		if cerr := conn.Close(); cerr != nil {
			logs.Debugf("daemon.Daemon.runSession close session=%q err=%v", sess.ID, cerr)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSessionPanic, r)
		}
	}()

	if err := d.send(conn, protocol.DaemonConnect{
		Message:   "NEXUS daemon connected",
		Timestamp: d.now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return err
	}
	d.setPhase(PhaseConnected)
	logs.Infof("daemon.Daemon.runSession connected session=%q endpoint=%q", sess.ID, sess.Endpoint)

	for {
		data, err := conn.Receive(ctx, d.cfg.Session.ReadTimeout)
		switch {
		case errors.Is(err, ErrReceiveTimeout):
			if err := d.heartbeat(conn); err != nil {
				return err
			}
			continue
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := d.handle(conn, sess, data); err != nil {
			return err
		}
	}
}

func (d *Daemon) handle(conn Conn, sess *Session, data []byte) error {
	msg, err := protocol.Decode(data)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			logs.Debugf("daemon.Daemon.handle ignored err=%v", err)
			return nil
		}
		logs.Warnf("daemon.Daemon.handle skipped malformed frame bytes=%d err=%v", len(data), err)
		return nil
	}
	switch m := msg.(type) {
	case protocol.ResonatorState:
		return d.onState(conn, sess, m)
	case protocol.MeasurementCollapse:
		logs.Infof("daemon.Daemon.handle measurement_collapse oscillators_affected=%d", m.OscillatorsAffected)
	}
	return nil
}

func (d *Daemon) onState(conn Conn, sess *Session, m protocol.ResonatorState) error {
	regime := d.state.Observe(m.OrderParam)
	trend := d.state.Trend()
	observability.SetDaemonOrderParam(m.OrderParam)
	if d.cfg.Verbose {
		logs.Infof(
			"daemon.Daemon.onState R=%.3f coherence=%.0f%% oscillators=%d regime=%s trend=%s",
			m.OrderParam, m.Coherence, m.Oscillators, regime, trend,
		)
	}

	now := d.now()
	if session.ActionDue(d.cfg.Session, sess.LastAction, now) {
		dir := d.gen.Generate(controller.Input{
			Regime:       regime,
			Trend:        trend,
			ActiveGlyphs: m.ActiveGlyphs,
		})
		if err := d.send(conn, toWeakMeasurement(dir)); err != nil {
			return err
		}
		d.recordAction(sess, now)
		observability.RecordDirective(string(protocol.TypeWeakMeasurement), string(regime))
		if d.cfg.Verbose {
			logs.Infof(
				"daemon.Daemon.onState weak_measurement strength=%.3f radius=%.1f regime=%s trend=%s",
				dir.Strength, dir.Radius, dir.Regime, dir.Trend,
			)
		}
	} else {
		observability.RecordSuppressed()
	}

	if mod, ok := d.gen.Modulation(m.OrderParam); ok {
		if err := d.send(conn, protocol.Modulate{Glyph: mod.Glyph}); err != nil {
			return err
		}
		observability.RecordDirective(string(protocol.TypeModulate), string(regime))
		logs.Infof("daemon.Daemon.onState modulate glyph=%q R=%.3f", mod.Glyph, m.OrderParam)
	}
	return nil
}

func (d *Daemon) heartbeat(conn Conn) error {
	hb := protocol.DaemonHeartbeat{
		Actions: int(d.actions.Load()),
		Regime:  string(d.state.Regime()),
	}
	if err := d.send(conn, hb); err != nil {
		return err
	}
	observability.RecordHeartbeat()
	logs.Debugf("daemon.Daemon.heartbeat actions=%d regime=%s", hb.Actions, hb.Regime)
	return nil
}

func (d *Daemon) send(conn Conn, msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := conn.Send(data); err != nil {
		return fmt.Errorf("daemon: send %s: %w", msg.MessageType(), err)
	}
	return nil
}

func (d *Daemon) recordAction(sess *Session, at time.Time) {
	d.actions.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	sess.Actions++
	sess.LastAction = at
}

func (d *Daemon) setSession(sess *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = sess
}

func (d *Daemon) setPhase(p Phase) {
	d.mu.Lock()
	prev := d.phase
	d.phase = p
	d.mu.Unlock()
	if prev == p {
		return
	}
	logs.Debugf("daemon.Daemon.setPhase %s -> %s", prev, p)
	if d.onPhase != nil {
		d.onPhase(p)
	}
}

func toWeakMeasurement(dir controller.Directive) protocol.WeakMeasurement {
	return protocol.WeakMeasurement{
		Strength: dir.Strength,
		Radius:   dir.Radius,
		WorldPos: protocol.Position{X: dir.Position.X, Y: dir.Position.Y, Z: dir.Position.Z},
		Regime:   string(dir.Regime),
		Trend:    string(dir.Trend),
	}
}
