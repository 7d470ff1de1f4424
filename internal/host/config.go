package host

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/resonator/internal/kuramoto"
	"github.com/danmuck/resonator/internal/protocol/session"
)

var (
	ErrAddrRequired        = errors.New("host: listen address required")
	ErrInvalidTimestep     = errors.New("host: dt must be positive")
	ErrInvalidTickInterval = errors.New("host: tick interval must be positive")
	ErrInvalidBroadcast    = errors.New("host: broadcast_every must be at least 1")
	ErrInvalidRecord       = errors.New("host: record_every must be non-negative")
	ErrInvalidWindow       = errors.New("host: local window must be odd and positive")
)

// Config is the engine host's runtime surface. RecordEvery 0 disables history
// recording.
type Config struct {
	Name               string
	Addr               string
	GridSize           int
	Coupling           float64
	Noise              float64
	Seed               int64
	Dt                 float64
	TickInterval       time.Duration
	BroadcastEvery     int
	RecordEvery        int
	HistoryCapacity    int
	LocalWindow        int
	ApplyPerturbations bool
	CORSOrigins        []string
	Session            session.Config
}

func DefaultConfig() Config {
	return Config{
		Name:            "resonator",
		Addr:            ":11111",
		GridSize:        10,
		Coupling:        2.0,
		Noise:           0.1,
		Dt:              0.05,
		TickInterval:    50 * time.Millisecond,
		BroadcastEvery:  2,
		RecordEvery:     10,
		HistoryCapacity: kuramoto.DefaultHistoryCapacity,
		LocalWindow:     3,
		Session:         session.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return ErrAddrRequired
	}
	if c.Dt <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTimestep, c.Dt)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidTickInterval, c.TickInterval)
	}
	if c.BroadcastEvery < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidBroadcast, c.BroadcastEvery)
	}
	if c.RecordEvery < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRecord, c.RecordEvery)
	}
	if c.LocalWindow < 1 || c.LocalWindow%2 == 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWindow, c.LocalWindow)
	}
	if err := c.gridConfig().Validate(); err != nil {
		return err
	}
	return c.Session.ValidateServerTransport()
}

func (c Config) gridConfig() kuramoto.Config {
	return kuramoto.Config{
		Size:            c.GridSize,
		Coupling:        c.Coupling,
		Noise:           c.Noise,
		Seed:            c.Seed,
		HistoryCapacity: c.HistoryCapacity,
	}
}
