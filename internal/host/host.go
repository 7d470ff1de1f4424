// Package host runs the oscillator grid as a network service. It steps the
// grid on a ticker, streams resonator_state to websocket controllers, and
// applies the directives they send back to the glyph overlay.
package host

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/resonator/internal/kuramoto"
	logs "github.com/danmuck/resonator/internal/logging"
	"github.com/danmuck/resonator/internal/observability"
	"github.com/danmuck/resonator/internal/overlay"
	"github.com/danmuck/resonator/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

const shutdownTimeout = 5 * time.Second

// Report is the host's externally visible state.
type Report struct {
	Name        string          `json:"name"`
	Step        uint64          `json:"step"`
	R           float64         `json:"R"`
	Psi         float64         `json:"psi"`
	Coherence   float64         `json:"coherence"`
	Oscillators int             `json:"oscillators"`
	Glyphs      string          `json:"glyphs"`
	Overlay     overlay.Reading `json:"overlay"`
	Clients     int             `json:"clients"`
	Uptime      string          `json:"uptime"`
}

type Host struct {
	cfg      Config
	appeared time.Time

	mu        sync.Mutex
	grid      *kuramoto.Grid
	overlay   *overlay.Overlay
	reading   overlay.Reading
	coherence float64
	steps     uint64

	hub      *hub
	router   *gin.Engine
	upgrader websocket.Upgrader
}

func New(cfg Config) (*Host, error) {
	cfg.Session = cfg.Session.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	grid, err := kuramoto.NewGrid(cfg.gridConfig())
	if err != nil {
		return nil, err
	}
	h := &Host{
		cfg:      cfg,
		appeared: time.Now(),
		grid:     grid,
		overlay:  overlay.New(cfg.GridSize),
		hub:      newHub(),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: cfg.Session.HandshakeTimeout,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
	}
	h.mu.Lock()
	h.refreshLocked()
	h.mu.Unlock()
	h.router = h.newRouter()
	return h, nil
}

func (h *Host) Handler() http.Handler { return h.router }

// Step advances the grid by one Euler step and refreshes the derived state.
// It returns the summary a controller would receive and the new step count.
func (h *Host) Step() (protocol.ResonatorState, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.grid.Update(h.cfg.Dt)
	h.steps++
	if h.cfg.RecordEvery > 0 && h.steps%uint64(h.cfg.RecordEvery) == 0 {
		h.grid.RecordState()
	}
	h.refreshLocked()
	observability.RecordHostStep(h.reading.R)
	return h.stateLocked(), h.steps
}

// State is the current resonator_state summary.
func (h *Host) State() protocol.ResonatorState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stateLocked()
}

func (h *Host) Report() Report {
	h.mu.Lock()
	defer h.mu.Unlock()
	sample := h.grid.Sample()
	return Report{
		Name:        h.cfg.Name,
		Step:        h.steps,
		R:           sample.R,
		Psi:         sample.Psi,
		Coherence:   h.coherence,
		Oscillators: h.cfg.GridSize * h.cfg.GridSize,
		Glyphs:      h.reading.Display(),
		Overlay:     h.reading,
		Clients:     h.hub.count(),
		Uptime:      time.Since(h.appeared).String(),
	}
}

// ExportHistory writes the recorded grid history.
func (h *Host) ExportHistory(w io.Writer, format kuramoto.ExportFormat) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grid.ExportHistory(w, format)
}

// Apply handles one controller message and returns the reply, if any.
func (h *Host) Apply(msg protocol.Message) (protocol.Message, bool) {
	observability.RecordHostMessage(string(msg.MessageType()))
	switch m := msg.(type) {
	case protocol.WeakMeasurement:
		return h.applyMeasurement(m), true
	case protocol.Modulate:
		h.mu.Lock()
		err := h.overlay.Request(m.Glyph)
		h.mu.Unlock()
		if err != nil {
			logs.Warnf("host.Host.Apply modulate rejected err=%v", err)
			return nil, false
		}
		logs.Infof("host.Host.Apply modulate glyph=%q", m.Glyph)
	case protocol.DaemonConnect:
		logs.Infof("host.Host.Apply daemon_connect message=%q timestamp=%q", m.Message, m.Timestamp)
	case protocol.DaemonHeartbeat:
		logs.Debugf("host.Host.Apply daemon_heartbeat actions=%d regime=%s", m.Actions, m.Regime)
	default:
		logs.Debugf("host.Host.Apply ignored type=%s", msg.MessageType())
	}
	return nil, false
}

func (h *Host) applyMeasurement(m protocol.WeakMeasurement) protocol.MeasurementCollapse {
	h.mu.Lock()
	defer h.mu.Unlock()
	affected := h.overlay.Footprint(m.WorldPos.X, m.WorldPos.Y, m.Radius)
	if h.cfg.ApplyPerturbations && affected > 0 {
		total := h.cfg.GridSize * h.cfg.GridSize
		h.grid.Perturb(float64(affected)/float64(total), m.Strength)
	}
	logs.Debugf(
		"host.Host.applyMeasurement strength=%.3f radius=%.1f regime=%s affected=%d perturbed=%t",
		m.Strength, m.Radius, m.Regime, affected, h.cfg.ApplyPerturbations,
	)
	return protocol.MeasurementCollapse{OscillatorsAffected: affected}
}

// Run listens on the configured address until ctx ends.
func (h *Host) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.cfg.Addr)
	if err != nil {
		return err
	}
	return h.Serve(ctx, ln)
}

// Serve runs the HTTP/websocket server and the stepping loop on ln. It
// returns nil after a clean shutdown.
func (h *Host) Serve(ctx context.Context, ln net.Listener) error {
	tlsCfg, err := h.cfg.Session.ServerTLSConfig()
	if err != nil {
		_ = ln.Close()
		return err
	}
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}
	srv := &http.Server{
		Handler:           h.router,
		ReadHeaderTimeout: h.cfg.Session.HandshakeTimeout,
	}
	logs.Infof(
		"host.Host.Serve listening addr=%q tls=%t grid=%d coupling=%.2f noise=%.2f",
		ln.Addr().String(), tlsCfg != nil, h.cfg.GridSize, h.cfg.Coupling, h.cfg.Noise,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return h.simulate(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		h.hub.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	err = g.Wait()
	logs.Infof("host.Host.Serve stopped steps=%d err=%v", h.stepCount(), err)
	return err
}

func (h *Host) simulate(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			state, step := h.Step()
			if step%uint64(h.cfg.BroadcastEvery) != 0 {
				continue
			}
			h.broadcast(state)
		}
	}
}

func (h *Host) broadcast(state protocol.ResonatorState) {
	data, err := protocol.Encode(state)
	if err != nil {
		logs.Errorf("host.Host.broadcast encode err=%v", err)
		return
	}
	h.hub.broadcast(data)
}

func (h *Host) stepCount() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.steps
}

// refreshLocked recomputes the overlay reading and coherence. Caller holds mu.
func (h *Host) refreshLocked() {
	h.reading = h.overlay.Observe(h.grid.View())
	local, err := h.grid.LocalOrder(h.cfg.LocalWindow)
	if err != nil {
		logs.Errorf("host.Host.refresh local order err=%v", err)
		return
	}
	h.coherence = stat.Mean(local.RawMatrix().Data, nil) * 100
}

func (h *Host) stateLocked() protocol.ResonatorState {
	return protocol.ResonatorState{
		OrderParam:   h.reading.R,
		Coherence:    h.coherence,
		ActiveGlyphs: append([]string{}, h.reading.Active...),
		Oscillators:  h.cfg.GridSize * h.cfg.GridSize,
	}
}
