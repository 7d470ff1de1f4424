package overlay

import (
	"errors"
	"math"
	"testing"

	"github.com/danmuck/resonator/internal/controller"
	"github.com/danmuck/resonator/internal/kuramoto"
	"github.com/danmuck/resonator/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func viewOf(t *testing.T, phases *mat.Dense) kuramoto.View {
	t.Helper()
	n, _ := phases.Dims()
	g, err := kuramoto.NewGrid(kuramoto.Config{
		Size:               n,
		Seed:               1,
		InitialPhases:      phases,
		NaturalFrequencies: mat.NewDense(n, n, nil),
	})
	require.NoError(t, err)
	return g.View()
}

func constant(n int, v float64) *mat.Dense {
	data := make([]float64, n*n)
	for i := range data {
		data[i] = v
	}
	return mat.NewDense(n, n, data)
}

func TestObserveSynchronizedField(t *testing.T) {
	testlog.Start(t)

	v := viewOf(t, constant(6, 1.2))
	o := New(6)

	first := o.Observe(v)
	require.InDelta(t, 1.0, first.R, 1e-12)
	require.Equal(t, []string{
		controller.GlyphFierce,
		controller.GlyphSilent,
		controller.GlyphSpiral,
		controller.GlyphGrowth,
	}, first.Active)
	require.Zero(t, first.MeanBeat)
	require.Zero(t, first.Hot)

	// Same R again is not growth.
	second := o.Observe(v)
	require.NotContains(t, second.Active, controller.GlyphGrowth)
}

func TestObserveDoesNotTouchTheGrid(t *testing.T) {
	testlog.Start(t)

	g, err := kuramoto.NewGrid(kuramoto.Config{Size: 8, Coupling: 1, Seed: 3})
	require.NoError(t, err)
	before := g.Phases()
	o := New(8)
	for i := 0; i < 5; i++ {
		o.Observe(g.View())
	}
	require.True(t, mat.Equal(before, g.Phases()))
}

func TestObserveIncoherentFieldIsGentle(t *testing.T) {
	testlog.Start(t)

	v := viewOf(t, mat.NewDense(2, 2, []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2}))
	reading := New(2).Observe(v)
	require.Less(t, reading.R, 1e-9)
	require.Contains(t, reading.Active, controller.GlyphGentle)
	require.NotContains(t, reading.Active, controller.GlyphFierce)
	require.NotContains(t, reading.Active, controller.GlyphSilent)
	require.NotContains(t, reading.Active, controller.GlyphGrowth)
}

func TestBeatFieldUsesQuadDiagonals(t *testing.T) {
	testlog.Start(t)

	// Quad cells: (0,0)=0 (1,0)=1.0 (0,1)=0.5 (1,1)=0.
	v := viewOf(t, mat.NewDense(2, 2, []float64{0, 0.5, 1.0, 0}))
	reading := New(2).Observe(v)
	require.InDelta(t, 0.05, reading.MeanBeat, 1e-12)
	require.NotContains(t, reading.Active, controller.GlyphSpark)
}

func TestQuadsLeaveOddEdgeUncovered(t *testing.T) {
	testlog.Start(t)

	require.Empty(t, quads(1))
	require.Len(t, quads(2), 1)
	require.Len(t, quads(5), 4)
	require.Len(t, quads(10), 25)
	for _, q := range quads(5) {
		for _, idx := range q {
			require.NotEqual(t, 4, idx%5)
			require.Less(t, idx, 20)
		}
	}
}

func TestSingleCellGridHasNoSpiral(t *testing.T) {
	testlog.Start(t)

	reading := New(1).Observe(viewOf(t, constant(1, 0.3)))
	require.NotContains(t, reading.Active, controller.GlyphSpiral)
	require.Contains(t, reading.Active, controller.GlyphSilent)
}

func TestRequestHoldsGlyph(t *testing.T) {
	testlog.Start(t)

	v := viewOf(t, constant(4, 0.7))
	o := New(4)
	err := o.Request("sunburst")
	require.True(t, errors.Is(err, ErrUnknownGlyph))

	require.NoError(t, o.Request(controller.GlyphSpark))
	for i := 0; i < DefaultRequestHold; i++ {
		require.Contains(t, o.Observe(v).Active, controller.GlyphSpark, "observation %d", i)
	}
	require.NotContains(t, o.Observe(v).Active, controller.GlyphSpark)

	// A repeated request refreshes rather than stacks.
	require.NoError(t, o.Request(controller.GlyphGentle))
	o.Observe(v)
	require.NoError(t, o.Request(controller.GlyphGentle))
	require.Len(t, o.requests, 1)
	require.Equal(t, DefaultRequestHold, o.requests[0].remaining)
}

func TestFootprint(t *testing.T) {
	testlog.Start(t)

	o := New(10)
	require.Equal(t, 0, o.Footprint(0, 0, 0))
	require.Equal(t, 4, o.Footprint(0, 0, 16))
	require.Equal(t, 1, o.Footprint(-80, -80, 16))
	require.Equal(t, 1, o.Footprint(-500, -500, 16))
	require.Equal(t, 100, o.Footprint(0, 0, 1000))
	require.Equal(t, o.Footprint(10, 10, 30), o.Footprint(10, 10, -30))
}

func TestReadingDisplay(t *testing.T) {
	testlog.Start(t)

	r := Reading{Active: []string{controller.GlyphFierce, controller.GlyphGrowth}}
	require.Equal(t, "⊙ 🔥 ⊙ ⊙ ⊙ ⊙ 🌱", r.Display())
	require.Equal(t, "⊙ ⊙ ⊙ ⊙ ⊙ ⊙ ⊙", Reading{}.Display())
}
