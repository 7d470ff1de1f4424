package kuramoto

import (
	"github.com/danmuck/resonator/internal/order"
	"gonum.org/v1/gonum/mat"
)

// View is the read-only capability over a grid. Every accessor returns a
// value or a fresh copy, so holders cannot reach live simulation state.
type View interface {
	Size() int
	Phases() *mat.Dense
	Velocities() *mat.Dense
	OrderParameter() float64
	MeanPhase() float64
	Sample() order.Sample
	LocalOrder(window int) (*mat.Dense, error)
}

// View returns a read-only handle. The handle cannot be asserted back to *Grid.
func (g *Grid) View() View {
	return readOnly{g: g}
}

type readOnly struct {
	g *Grid
}

func (v readOnly) Size() int                                 { return v.g.Size() }
func (v readOnly) Phases() *mat.Dense                        { return v.g.Phases() }
func (v readOnly) Velocities() *mat.Dense                    { return v.g.Velocities() }
func (v readOnly) OrderParameter() float64                   { return v.g.OrderParameter() }
func (v readOnly) MeanPhase() float64                        { return v.g.MeanPhase() }
func (v readOnly) Sample() order.Sample                      { return v.g.Sample() }
func (v readOnly) LocalOrder(window int) (*mat.Dense, error) { return v.g.LocalOrder(window) }
