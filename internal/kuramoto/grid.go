// Package kuramoto owns the physics layer: an N×N grid of phase oscillators
// with nearest-neighbour coupling on a torus.
//
// A Grid is not safe for concurrent use. Hosts that step the grid on one
// goroutine and read it from others must serialize access themselves.
package kuramoto

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/danmuck/resonator/internal/order"
	"github.com/danmuck/resonator/internal/ring"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidSize     = errors.New("kuramoto: grid size must be positive")
	ErrInvalidCoupling = errors.New("kuramoto: coupling strength must be non-negative")
	ErrInvalidNoise    = errors.New("kuramoto: noise level must be non-negative")
	ErrFieldShape      = errors.New("kuramoto: field shape does not match grid size")
)

const (
	TwoPi                  = 2 * math.Pi
	DefaultHistoryCapacity = 1000

	neighbours = 4
)

// Config is the full construction surface of a Grid.
//
// Seed 0 seeds from the wall clock. NaturalFrequencies defaults to uniform
// draws in [-1, 1); InitialPhases defaults to uniform draws in [0, 2π).
// HistoryCapacity 0 selects DefaultHistoryCapacity.
type Config struct {
	Size               int
	Coupling           float64
	Noise              float64
	Seed               int64
	NaturalFrequencies mat.Matrix
	InitialPhases      mat.Matrix
	HistoryCapacity    int
}

func DefaultConfig() Config {
	return Config{
		Size:            10,
		Coupling:        1.0,
		Noise:           0,
		HistoryCapacity: DefaultHistoryCapacity,
	}
}

func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSize, c.Size)
	}
	if c.Coupling < 0 || math.IsNaN(c.Coupling) {
		return fmt.Errorf("%w: got %v", ErrInvalidCoupling, c.Coupling)
	}
	if c.Noise < 0 || math.IsNaN(c.Noise) {
		return fmt.Errorf("%w: got %v", ErrInvalidNoise, c.Noise)
	}
	if err := checkShape("natural frequencies", c.NaturalFrequencies, c.Size); err != nil {
		return err
	}
	if err := checkShape("initial phases", c.InitialPhases, c.Size); err != nil {
		return err
	}
	return nil
}

type Grid struct {
	size     int
	coupling float64
	noise    float64
	rng      *rand.Rand

	theta    *mat.Dense
	omega    *mat.Dense
	velocity *mat.Dense

	history *ring.Buffer[Snapshot]
}

func NewGrid(cfg Config) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	capacity := cfg.HistoryCapacity
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}

	n := cfg.Size
	g := &Grid{
		size:     n,
		coupling: cfg.Coupling,
		noise:    cfg.Noise,
		rng:      rand.New(rand.NewSource(seed)),
		velocity: mat.NewDense(n, n, nil),
		history:  ring.New[Snapshot](capacity),
	}

	if cfg.NaturalFrequencies != nil {
		g.omega = mat.DenseCopyOf(cfg.NaturalFrequencies)
	} else {
		g.omega = g.randomField(func() float64 { return g.rng.Float64()*2 - 1 })
	}
	if cfg.InitialPhases != nil {
		g.theta = mat.DenseCopyOf(cfg.InitialPhases)
		wrapAll(g.theta.RawMatrix().Data)
	} else {
		g.theta = g.randomField(func() float64 { return g.rng.Float64() * TwoPi })
	}
	return g, nil
}

// Update advances every phase by one Euler step of
// dθ/dt = ω + (K/4)·Σ sin(θ_nb − θ) + ξ, ξ ~ N(0, σ) when σ > 0.
func (g *Grid) Update(dt float64) {
	n := g.size
	theta := g.theta.RawMatrix().Data
	omega := g.omega.RawMatrix().Data
	vel := g.velocity.RawMatrix().Data
	scale := g.coupling / neighbours

	for i := 0; i < n; i++ {
		up := wrapIndex(i-1, n) * n
		down := wrapIndex(i+1, n) * n
		row := i * n
		for j := 0; j < n; j++ {
			left := wrapIndex(j-1, n)
			right := wrapIndex(j+1, n)
			self := theta[row+j]
			sum := math.Sin(theta[up+j]-self) +
				math.Sin(theta[down+j]-self) +
				math.Sin(theta[row+left]-self) +
				math.Sin(theta[row+right]-self)
			v := omega[row+j] + scale*sum
			if g.noise > 0 {
				v += g.rng.NormFloat64() * g.noise
			}
			vel[row+j] = v
		}
	}

	floats.AddScaled(theta, dt, vel)
	wrapAll(theta)
}

// Perturb offsets each cell with probability fraction by a uniform draw in
// [-strength, strength], then re-wraps. It is the only mutation path besides Update.
func (g *Grid) Perturb(fraction, strength float64) {
	if fraction <= 0 {
		return
	}
	strength = math.Abs(strength)
	theta := g.theta.RawMatrix().Data
	for idx := range theta {
		if g.rng.Float64() >= fraction {
			continue
		}
		offset := (2*g.rng.Float64() - 1) * strength
		theta[idx] = wrapPhase(theta[idx] + offset)
	}
}

func (g *Grid) Size() int { return g.size }

func (g *Grid) Coupling() float64 { return g.coupling }

func (g *Grid) Noise() float64 { return g.noise }

// Phases returns a copy of the phase field.
func (g *Grid) Phases() *mat.Dense { return mat.DenseCopyOf(g.theta) }

// Velocities returns a copy of the velocities computed by the last Update.
func (g *Grid) Velocities() *mat.Dense { return mat.DenseCopyOf(g.velocity) }

func (g *Grid) NaturalFrequencies() *mat.Dense { return mat.DenseCopyOf(g.omega) }

func (g *Grid) OrderParameter() float64 { return order.Parameter(g.theta) }

func (g *Grid) MeanPhase() float64 { return order.MeanPhase(g.theta) }

func (g *Grid) Sample() order.Sample { return order.Compute(g.theta) }

func (g *Grid) LocalOrder(window int) (*mat.Dense, error) { return order.Local(g.theta, window) }

func (g *Grid) randomField(draw func() float64) *mat.Dense {
	data := make([]float64, g.size*g.size)
	for i := range data {
		data[i] = draw()
	}
	return mat.NewDense(g.size, g.size, data)
}

func checkShape(name string, m mat.Matrix, size int) error {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	if r != size || c != size {
		return fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrFieldShape, name, r, c, size, size)
	}
	return nil
}

func wrapAll(data []float64) {
	for i, v := range data {
		data[i] = wrapPhase(v)
	}
}

// wrapPhase reduces x into [0, 2π).
func wrapPhase(x float64) float64 {
	x = math.Mod(x, TwoPi)
	if x < 0 {
		x += TwoPi
	}
	if x >= TwoPi {
		x = 0
	}
	return x
}

func wrapIndex(i, n int) int {
	return ((i % n) + n) % n
}
