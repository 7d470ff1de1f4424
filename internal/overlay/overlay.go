// Package overlay reads glyph activations off a phase field. It only ever
// holds a kuramoto.View, so observing can never disturb the simulation.
package overlay

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/danmuck/resonator/internal/controller"
	"github.com/danmuck/resonator/internal/kuramoto"
	"github.com/danmuck/resonator/internal/ring"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var ErrUnknownGlyph = errors.New("overlay: unknown glyph")

const (
	DefaultHistoryCapacity = 100
	DefaultRequestHold     = 10
	DefaultCellThreshold   = math.Pi

	defaultPreviousR = 0.5
	beatScale        = 0.1
	sparkThreshold   = 0.8 * math.Pi
	silentSpread     = 0.5
	spiralSpread     = 1.0
	gentleBelow      = 0.3
	fierceAbove      = 0.8
	balanceLow       = 0.45
	balanceHigh      = 0.55
	inactiveSymbol   = "⊙"
)

// Glyphs lists every glyph in display order.
var Glyphs = []string{
	controller.GlyphGentle,
	controller.GlyphFierce,
	controller.GlyphBalance,
	controller.GlyphSpark,
	controller.GlyphSilent,
	controller.GlyphSpiral,
	controller.GlyphGrowth,
}

var symbols = map[string]string{
	controller.GlyphGentle:  "🜂",
	controller.GlyphFierce:  "🔥",
	controller.GlyphBalance: "⚖",
	controller.GlyphSpark:   "✨",
	controller.GlyphSilent:  "☾",
	controller.GlyphSpiral:  "🌀",
	controller.GlyphGrowth:  "🌱",
}

// Reading is one observation of the field.
type Reading struct {
	R        float64  `json:"R"`
	Active   []string `json:"active"`
	MeanBeat float64  `json:"mean_beat"`
	Hot      int      `json:"hot_cells"`
}

// Display renders the reading as one symbol per glyph, ⊙ when inactive.
func (r Reading) Display() string {
	parts := make([]string, len(Glyphs))
	for i, g := range Glyphs {
		parts[i] = inactiveSymbol
		if slices.Contains(r.Active, g) {
			parts[i] = symbols[g]
		}
	}
	return strings.Join(parts, " ")
}

type request struct {
	glyph     string
	remaining int
}

// Overlay is not safe for concurrent use.
type Overlay struct {
	size      int
	quads     [][4]int
	threshold float64
	hold      int
	history   *ring.Buffer[float64]
	requests  []request
}

func New(size int) *Overlay {
	return &Overlay{
		size:      size,
		quads:     quads(size),
		threshold: DefaultCellThreshold,
		hold:      DefaultRequestHold,
		history:   ring.New[float64](DefaultHistoryCapacity),
	}
}

// Observe computes the active glyphs for the field behind v and records its
// R for the growth rule. Pending requests are merged in and count down.
func (o *Overlay) Observe(v kuramoto.View) Reading {
	phases := v.Phases()
	r := v.OrderParameter()
	beat := o.beatField(phases)

	active := map[string]bool{
		controller.GlyphGentle:  r < gentleBelow,
		controller.GlyphFierce:  r > fierceAbove,
		controller.GlyphBalance: r > balanceLow && r < balanceHigh,
		controller.GlyphSpark:   stat.Mean(beat, nil) > sparkThreshold,
		controller.GlyphSilent:  popStdDev(phases.RawMatrix().Data) < silentSpread,
		controller.GlyphSpiral:  spiral(phases),
		controller.GlyphGrowth:  r > o.previousR(),
	}
	o.history.Push(r)

	kept := o.requests[:0]
	for _, req := range o.requests {
		active[req.glyph] = true
		req.remaining--
		if req.remaining > 0 {
			kept = append(kept, req)
		}
	}
	o.requests = kept

	hot := 0
	for _, b := range beat {
		if b > o.threshold {
			hot++
		}
	}
	out := Reading{R: r, MeanBeat: stat.Mean(beat, nil), Hot: hot, Active: []string{}}
	for _, g := range Glyphs {
		if active[g] {
			out.Active = append(out.Active, g)
		}
	}
	return out
}

// Request holds glyph active for the next few observations regardless of
// the field.
func (o *Overlay) Request(glyph string) error {
	if _, ok := symbols[glyph]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownGlyph, glyph)
	}
	for i := range o.requests {
		if o.requests[i].glyph == glyph {
			o.requests[i].remaining = o.hold
			return nil
		}
	}
	o.requests = append(o.requests, request{glyph: glyph, remaining: o.hold})
	return nil
}

// Footprint counts the cells a measurement at world (x, y) with the given
// radius covers. World coordinates in [-bound, bound] span the grid; z is
// ignored.
func (o *Overlay) Footprint(x, y, radius float64) int {
	bound := controller.DefaultPositionBound
	scale := float64(o.size) / (2 * bound)
	cx := clamp((x+bound)*scale, 0, float64(o.size))
	cy := clamp((y+bound)*scale, 0, float64(o.size))
	cr := math.Abs(radius) * scale

	count := 0
	for i := 0; i < o.size; i++ {
		for j := 0; j < o.size; j++ {
			dx := float64(j) + 0.5 - cx
			dy := float64(i) + 0.5 - cy
			if math.Hypot(dx, dy) <= cr {
				count++
			}
		}
	}
	return count
}

func (o *Overlay) previousR() float64 {
	if last := o.history.Last(1); len(last) == 1 {
		return last[0]
	}
	return defaultPreviousR
}

// beatField spreads the diagonal phase differences of every 2×2 quad over
// its four cells.
func (o *Overlay) beatField(phases *mat.Dense) []float64 {
	data := phases.RawMatrix().Data
	field := make([]float64, len(data))
	for _, q := range o.quads {
		beat := math.Abs(data[q[0]]-data[q[3]]) + math.Abs(data[q[1]]-data[q[2]])
		beat = math.Mod(beat, kuramoto.TwoPi) * beatScale
		for _, idx := range q {
			field[idx] += beat
		}
	}
	return field
}

// quads tiles the grid with non-overlapping 2×2 blocks starting at even
// coordinates; an odd trailing row or column is left uncovered.
func quads(n int) [][4]int {
	var out [][4]int
	for i := 0; i+1 < n; i += 2 {
		for j := 0; j+1 < n; j += 2 {
			out = append(out, [4]int{
				i*n + j,
				(i+1)*n + j,
				i*n + j + 1,
				(i+1)*n + j + 1,
			})
		}
	}
	return out
}

// spiral reports a consistent phase gradient along both axes.
func spiral(phases *mat.Dense) bool {
	rows, cols := phases.Dims()
	if rows < 2 || cols < 2 {
		return false
	}
	dx := make([]float64, 0, rows*(cols-1))
	dy := make([]float64, 0, (rows-1)*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j+1 < cols {
				dx = append(dx, phases.At(i, j+1)-phases.At(i, j))
			}
			if i+1 < rows {
				dy = append(dy, phases.At(i+1, j)-phases.At(i, j))
			}
		}
	}
	return popStdDev(dx) < spiralSpread && popStdDev(dy) < spiralSpread
}

func popStdDev(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return math.Sqrt(stat.PopVariance(x, nil))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
